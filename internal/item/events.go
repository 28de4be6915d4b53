package item

import (
	"context"
	"time"

	"github.com/hitoshi/taskhub/internal/model"
)

// Action はサービス操作の種類。
type Action string

const (
	ActionList   Action = "list"
	ActionGet    Action = "get"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Event は「誰がどの項目に何をしたか」を表す観測イベント。
// サービスは具体的なログやメトリクスの出力先を知らず、EventSinkに渡すだけにする。
type Event struct {
	Actor  model.Principal
	Action Action
	Kind   model.Kind
	ItemID string
	Title  string
	// Query は一覧取得時の検索語。
	Query string
	// Count は一覧取得時の件数。
	Count int
	// ErrCode は失敗時のエラーコード。成功時は空。
	ErrCode string
	At      time.Time
}

// Succeeded は操作が成功したかどうかを返す。
func (e Event) Succeeded() bool {
	return e.ErrCode == ""
}

// EventSink は観測イベントの出力先。
type EventSink interface {
	Record(ctx context.Context, ev Event)
}

// MultiSink は複数のEventSinkにイベントを配信する。
type MultiSink []EventSink

// Record は全ての出力先にイベントを渡す。
func (m MultiSink) Record(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Record(ctx, ev)
	}
}

// NopSink はイベントを破棄する。
type NopSink struct{}

// Record は何もしない。
func (NopSink) Record(context.Context, Event) {}
