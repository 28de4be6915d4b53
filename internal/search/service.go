// Package search は全種別を横断したテキスト検索を提供する。
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/taskhub/internal/model"
	"github.com/hitoshi/taskhub/internal/query"
)

// Lister は1種別の一覧取得インターフェース。item.Service[T]が実装する。
type Lister[T model.Record] interface {
	List(ctx context.Context, p model.Principal, f query.Filter) ([]T, error)
}

// Result は横断検索の結果。
type Result struct {
	Query string             `json:"query"`
	Tasks []*model.Task      `json:"tasks"`
	Bugs  []*model.BugReport `json:"bugs"`
	Notes []*model.Note      `json:"notes"`
}

// Service は横断検索のサービス層。
type Service struct {
	tasks Lister[*model.Task]
	bugs  Lister[*model.BugReport]
	notes Lister[*model.Note]
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(tasks Lister[*model.Task], bugs Lister[*model.BugReport], notes Lister[*model.Note]) *Service {
	return &Service{tasks: tasks, bugs: bugs, notes: notes}
}

// Search はタイトルまたは説明にtextを含む項目を種別ごとに返す。
// textが空白のみの場合は検索せず、空の結果を返す。
func (s *Service) Search(ctx context.Context, p model.Principal, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	res := &Result{
		Query: text,
		Tasks: []*model.Task{},
		Bugs:  []*model.BugReport{},
		Notes: []*model.Note{},
	}
	if text == "" {
		return res, nil
	}

	f := query.Filter{Text: text}
	var err error
	if res.Tasks, err = s.tasks.List(ctx, p, f); err != nil {
		return nil, fmt.Errorf("タスクの検索に失敗しました: %w", err)
	}
	if res.Bugs, err = s.bugs.List(ctx, p, f); err != nil {
		return nil, fmt.Errorf("バグレポートの検索に失敗しました: %w", err)
	}
	if res.Notes, err = s.notes.List(ctx, p, f); err != nil {
		return nil, fmt.Errorf("ノートの検索に失敗しました: %w", err)
	}
	return res, nil
}
