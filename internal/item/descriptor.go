package item

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/hitoshi/taskhub/internal/model"
	"github.com/hitoshi/taskhub/internal/query"
)

// MarkupChecker はユーザー入力のテキストにHTMLマークアップが含まれるかを判定する。
type MarkupChecker interface {
	ContainsMarkup(s string) bool
}

// TextField は検証対象の自由入力テキスト。
type TextField struct {
	Name  string
	Value string
}

// Descriptor は種別ごとの差分を表す。
// サービス本体は全種別で共通で、ここに定義された値のみで振る舞いが変わる。
type Descriptor[T model.Record] struct {
	Kind model.Kind
	// New は既定値未設定の空のレコードを生成する。
	New func() T
	// Fields は一覧で完全一致の絞り込みができるフィールド。
	Fields []query.Field
	// TextFields はタイトルと説明以外の自由入力テキストを返す。nil可。
	TextFields func(rec T) []TextField
	// Check はストアを参照する追加検証（外部参照の存在確認など）。nil可。
	Check func(ctx context.Context, rec T) error
}

// UserFinder はユーザーの存在確認に使うインターフェース。
// repository.UserRepositoryの部分集合。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

func enumField[E ~string](name string, valid func(E) bool) query.Field {
	return query.Field{
		Name:   name,
		Column: name,
		Normalize: func(v string) (string, bool) {
			return v, valid(E(v))
		},
	}
}

// TaskDescriptor はタスクの種別定義を返す。
// 担当者が指定された場合はusersに存在することを確認する。
func TaskDescriptor(users UserFinder) Descriptor[*model.Task] {
	return Descriptor[*model.Task]{
		Kind: model.KindTask,
		New:  func() *model.Task { return &model.Task{} },
		Fields: []query.Field{
			enumField("status", model.TaskStatus.IsValid),
			enumField("priority", model.Priority.IsValid),
			{
				Name:   "assigned_to",
				Column: "assigned_to",
				Normalize: func(v string) (string, bool) {
					id, err := uuid.Parse(v)
					if err != nil {
						return "", false
					}
					return id.String(), true
				},
			},
		},
		Check: func(ctx context.Context, t *model.Task) error {
			if t.AssignedTo == nil || users == nil {
				return nil
			}
			if _, err := uuid.Parse(*t.AssignedTo); err != nil {
				return model.NewValidationError("assigned_to", "担当者のIDが不正です。")
			}
			u, err := users.FindByID(ctx, *t.AssignedTo)
			if err != nil {
				return fmt.Errorf("担当者の取得に失敗しました: %w", err)
			}
			if u == nil {
				return model.NewValidationError("assigned_to", "担当者が存在しません。")
			}
			return nil
		},
	}
}

// BugReportDescriptor はバグレポートの種別定義を返す。
func BugReportDescriptor() Descriptor[*model.BugReport] {
	return Descriptor[*model.BugReport]{
		Kind: model.KindBugReport,
		New:  func() *model.BugReport { return &model.BugReport{} },
		Fields: []query.Field{
			enumField("severity", model.Severity.IsValid),
			enumField("status", model.BugStatus.IsValid),
		},
		TextFields: func(b *model.BugReport) []TextField {
			return []TextField{{Name: "expected_result", Value: b.ExpectedResult}}
		},
	}
}

// NoteDescriptor はノートの種別定義を返す。
func NoteDescriptor() Descriptor[*model.Note] {
	return Descriptor[*model.Note]{
		Kind: model.KindNote,
		New:  func() *model.Note { return &model.Note{} },
		Fields: []query.Field{
			enumField("note_type", model.NoteType.IsValid),
			{
				Name:   "is_pinned",
				Column: "is_pinned",
				Normalize: func(v string) (string, bool) {
					b, err := strconv.ParseBool(v)
					if err != nil {
						return "", false
					}
					return strconv.FormatBool(b), true
				},
				Convert: func(v string) any {
					b, _ := strconv.ParseBool(v)
					return b
				},
			},
		},
		TextFields: func(n *model.Note) []TextField {
			return []TextField{{Name: "tags", Value: n.Tags}}
		},
	}
}
