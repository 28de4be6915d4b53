// Package cleanup は期限切れセッションの定期削除ジョブを提供する。
// セッションの発行は外部の認証基盤が行い、本サービスは失効済みの行のみ削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB、*sqlx.DB、*sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const deleteExpiredSessionsQuery = `DELETE FROM sessions WHERE expires_at < $1`

// SessionCleanupJob はexpires_atを過ぎたセッションを削除するジョブ。
// 冪等であり、削除対象がない場合もエラーにならない。
type SessionCleanupJob struct {
	db     Executor
	logger *slog.Logger
	now    func() time.Time
}

// NewSessionCleanupJob は新しいSessionCleanupJobを生成する。
func NewSessionCleanupJob(db Executor, logger *slog.Logger) *SessionCleanupJob {
	return &SessionCleanupJob{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Run は期限切れセッションを1回削除し、削除件数を返す。
func (j *SessionCleanupJob) Run(ctx context.Context) (int64, error) {
	start := time.Now()

	result, err := j.db.ExecContext(ctx, deleteExpiredSessionsQuery, j.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get deleted session count: %w", err)
	}

	j.logger.Info("session_cleanup",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return deleted, nil
}

// Start はinterval間隔でRunを実行する。
// 起動直後に1回実行し、コンテキストがキャンセルされるまで継続する。
func (j *SessionCleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("session cleanup started", slog.Duration("interval", interval))

	j.runLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("session cleanup stopped")
			return
		case <-ticker.C:
			j.runLogged(ctx)
		}
	}
}

func (j *SessionCleanupJob) runLogged(ctx context.Context) {
	if _, err := j.Run(ctx); err != nil {
		j.logger.Error("session cleanup failed", slog.String("error", err.Error()))
	}
}
