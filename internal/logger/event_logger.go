package logger

import (
	"context"
	"log/slog"

	"github.com/hitoshi/taskhub/internal/item"
)

// EventLogger は項目操作イベントを構造化ログとして出力するitem.EventSink。
type EventLogger struct {
	logger *slog.Logger
}

// NewEventLogger はEventLoggerを生成する。loggerがnilの場合はslog.Default()を使用する。
func NewEventLogger(logger *slog.Logger) *EventLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventLogger{logger: logger}
}

// Record はイベントを1行のログとして出力する。
// 一覧・取得の成功はdebug、作成・更新・削除の成功はinfo、失敗はwarnで出力する。
func (l *EventLogger) Record(ctx context.Context, ev item.Event) {
	attrs := []slog.Attr{
		slog.String("user_id", ev.Actor.String()),
		slog.String("action", string(ev.Action)),
		slog.String("kind", string(ev.Kind)),
		slog.Time("at", ev.At),
	}
	if ev.ItemID != "" {
		attrs = append(attrs, slog.String("item_id", ev.ItemID))
	}
	if ev.Title != "" {
		attrs = append(attrs, slog.String("title", ev.Title))
	}
	if ev.Action == item.ActionList {
		attrs = append(attrs, slog.String("query", ev.Query), slog.Int("count", ev.Count))
	}

	if !ev.Succeeded() {
		attrs = append(attrs, slog.String("error_code", ev.ErrCode))
		l.logger.LogAttrs(ctx, slog.LevelWarn, "item operation failed", attrs...)
		return
	}

	level := slog.LevelInfo
	if ev.Action == item.ActionList || ev.Action == item.ActionGet {
		level = slog.LevelDebug
	}
	l.logger.LogAttrs(ctx, level, "item operation", attrs...)
}

var _ item.EventSink = (*EventLogger)(nil)
