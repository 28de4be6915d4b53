package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/taskhub/internal/model"
)

// ユーザーとセッションは外部の認証基盤が書き込むため、ここでは参照のみを提供する。

// getOptional はqを1行だけ取得する。行がない場合は(nil, nil)を返す。
func getOptional[T any](ctx context.Context, db *sqlx.DB, what string, q sq.SelectBuilder) (*T, error) {
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s query: %w", what, err)
	}

	dest := new(T)
	err = db.GetContext(ctx, dest, sqlStr, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", what, err)
	}
	return dest, nil
}

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sqlx.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sqlx.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合やIDが不正な場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return getOptional[model.User](ctx, r.db, "user",
		psql.Select("id", "username", "email", "created_at").
			From("users").
			Where(sq.Eq{"id": id}))
}

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sqlx.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sqlx.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// FindByID は有効期限内のセッションを取得する。期限切れや未知のIDはnilを返す。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if id == "" {
		return nil, nil
	}
	return getOptional[model.Session](ctx, r.db, "session",
		psql.Select("id", "user_id", "expires_at", "created_at").
			From("sessions").
			Where(sq.Eq{"id": id}).
			Where("expires_at > now()"))
}

var (
	_ UserRepository    = (*PostgresUserRepo)(nil)
	_ SessionRepository = (*PostgresSessionRepo)(nil)
)
