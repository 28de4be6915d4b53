package model

import (
	"strconv"
	"unicode/utf8"
)

// NoteType はノートの分類を表す。
type NoteType string

const (
	NoteTypeGeneral  NoteType = "general"
	NoteTypeMeeting  NoteType = "meeting"
	NoteTypeResearch NoteType = "research"
	NoteTypeIdea     NoteType = "idea"
	NoteTypePersonal NoteType = "personal"
)

// IsValid は定義済みの値かどうかを返す。
func (t NoteType) IsValid() bool {
	switch t {
	case NoteTypeGeneral, NoteTypeMeeting, NoteTypeResearch, NoteTypeIdea, NoteTypePersonal:
		return true
	}
	return false
}

// TagsMaxLength はタグ文字列の最大文字数。
const TagsMaxLength = 100

// Note はユーザーが所有するノートを表す。
// Tagsは自由形式の短い文字列（カンマ区切りなど）で、解釈はクライアントに委ねる。
type Note struct {
	Item
	NoteType NoteType `json:"note_type" db:"note_type"`
	IsPinned bool     `json:"is_pinned" db:"is_pinned"`
	Tags     string   `json:"tags" db:"tags"`
}

// Kind は項目の種別を返す。
func (n *Note) Kind() Kind {
	return KindNote
}

// ApplyDefaults は未設定のフィールドに既定値を設定する。
func (n *Note) ApplyDefaults() {
	if n.NoteType == "" {
		n.NoteType = NoteTypeGeneral
	}
}

// Validate は共通属性とノート固有フィールドを検証する。
func (n *Note) Validate() error {
	if err := n.Item.Validate(); err != nil {
		return err
	}
	if !n.NoteType.IsValid() {
		return NewInvalidChoiceError("note_type", string(n.NoteType))
	}
	if utf8.RuneCountInString(n.Tags) > TagsMaxLength {
		return NewValidationError("tags", "タグは100文字以内で入力してください。")
	}
	return nil
}

// FilterValue は一覧フィルタ用のフィールド値を返す。
func (n *Note) FilterValue(field string) (string, bool) {
	switch field {
	case "note_type":
		return string(n.NoteType), true
	case "is_pinned":
		return strconv.FormatBool(n.IsPinned), true
	}
	return "", false
}
