package repository

import (
	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/taskhub/internal/model"
)

// TaskTable はtasksテーブルの定義。
var TaskTable = Table[*model.Task]{
	Name:    "tasks",
	Columns: []string{"assigned_to", "status", "priority"},
	Values: func(t *model.Task) []any {
		return []any{t.AssignedTo, string(t.Status), string(t.Priority)}
	},
}

// BugReportTable はbug_reportsテーブルの定義。
var BugReportTable = Table[*model.BugReport]{
	Name:    "bug_reports",
	Columns: []string{"severity", "status", "expected_result"},
	Values: func(b *model.BugReport) []any {
		return []any{string(b.Severity), string(b.Status), b.ExpectedResult}
	},
}

// NoteTable はnotesテーブルの定義。
var NoteTable = Table[*model.Note]{
	Name:    "notes",
	Columns: []string{"note_type", "is_pinned", "tags"},
	Values: func(n *model.Note) []any {
		return []any{string(n.NoteType), n.IsPinned, n.Tags}
	},
}

// NewPostgresTaskRepo はタスク用のリポジトリを生成する。
func NewPostgresTaskRepo(db *sqlx.DB) *PostgresItemRepo[*model.Task] {
	return NewPostgresItemRepo(db, TaskTable, func() *model.Task { return &model.Task{} })
}

// NewPostgresBugReportRepo はバグレポート用のリポジトリを生成する。
func NewPostgresBugReportRepo(db *sqlx.DB) *PostgresItemRepo[*model.BugReport] {
	return NewPostgresItemRepo(db, BugReportTable, func() *model.BugReport { return &model.BugReport{} })
}

// NewPostgresNoteRepo はノート用のリポジトリを生成する。
func NewPostgresNoteRepo(db *sqlx.DB) *PostgresItemRepo[*model.Note] {
	return NewPostgresItemRepo(db, NoteTable, func() *model.Note { return &model.Note{} })
}

// compile-time interface check
var (
	_ ItemRepository[*model.Task]      = (*PostgresItemRepo[*model.Task])(nil)
	_ ItemRepository[*model.BugReport] = (*PostgresItemRepo[*model.BugReport])(nil)
	_ ItemRepository[*model.Note]      = (*PostgresItemRepo[*model.Note])(nil)
)
