package handler

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/taskhub/internal/database"
)

// DBPinger は *sqlx.DB を Pinger に適合させるアダプタ。
type DBPinger struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewDBPinger はDBPingerを生成する。
func NewDBPinger(db *sqlx.DB, timeout time.Duration) *DBPinger {
	return &DBPinger{db: db, timeout: timeout}
}

// Ping はタイムアウト付きでデータベースへの疎通を確認する。
func (p *DBPinger) Ping(ctx context.Context) error {
	return database.Ping(ctx, p.db, p.timeout)
}

// PingerFunc は関数を Pinger に適合させる。
type PingerFunc func(ctx context.Context) error

// Ping はfを呼び出す。
func (f PingerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}
