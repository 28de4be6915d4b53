// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Kind は項目の種別を表す。
type Kind string

const (
	// KindTask はタスクを表す。
	KindTask Kind = "task"
	// KindBugReport はバグレポートを表す。
	KindBugReport Kind = "bug"
	// KindNote はノートを表す。
	KindNote Kind = "note"
)

// タイトル長の制約（文字数）。
const (
	TitleMinLength = 3
	TitleMaxLength = 200
)

// Item は全種別に共通する属性を表す。
// 単体で永続化されることはなく、Task / BugReport / Note に埋め込まれる。
type Item struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	OwnerID     string    `json:"owner" db:"owner_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Base は共通属性へのポインタを返す。埋め込み先の型にも昇格する。
func (i *Item) Base() *Item {
	return i
}

// Validate は共通属性を検証する。
// タイトルは前後の空白を除いて3〜200文字、説明は空でないことを要求する。
func (i *Item) Validate() error {
	n := utf8.RuneCountInString(strings.TrimSpace(i.Title))
	if n == 0 {
		return NewValidationError("title", "タイトルは必須です。")
	}
	if n < TitleMinLength {
		return NewValidationError("title", "タイトルは3文字以上で入力してください。")
	}
	if n > TitleMaxLength {
		return NewValidationError("title", "タイトルは200文字以内で入力してください。")
	}
	if strings.TrimSpace(i.Description) == "" {
		return NewValidationError("description", "説明は必須です。")
	}
	return nil
}

// Normalize はタイトルの前後の空白を取り除く。
func (i *Item) Normalize() {
	i.Title = strings.TrimSpace(i.Title)
}

// Record は各種別の項目が満たすインターフェース。
// 実装はポインタ型（*Task, *BugReport, *Note）。
type Record interface {
	// Base は共通属性を返す。
	Base() *Item
	// Kind は項目の種別を返す。
	Kind() Kind
	// ApplyDefaults は未設定の列挙フィールドに既定値を設定する。
	ApplyDefaults()
	// Validate は共通属性と種別固有フィールドを検証する。
	Validate() error
	// FilterValue は一覧フィルタ用にフィールド値を文字列で返す。
	// 未対応のフィールドの場合はfalseを返す。
	FilterValue(field string) (string, bool)
}
