package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hitoshi/taskhub/internal/model"
	"github.com/hitoshi/taskhub/internal/query"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// 全種別のテーブルが共通で持つカラム。
var baseColumns = []string{"id", "title", "description", "owner_id", "created_at", "updated_at"}

// uniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const uniqueViolation = "23505"

// Table は種別ごとのテーブル定義。
type Table[T model.Record] struct {
	Name string
	// Columns は種別固有のカラム。
	Columns []string
	// Values はColumnsと同じ順序で種別固有フィールドの値を返す。
	Values func(rec T) []any
}

func (t Table[T]) columns() []string {
	cols := make([]string, 0, len(baseColumns)+len(t.Columns))
	cols = append(cols, baseColumns...)
	return append(cols, t.Columns...)
}

// PostgresItemRepo はPostgreSQLを使用した作業項目リポジトリ。
type PostgresItemRepo[T model.Record] struct {
	db    *sqlx.DB
	table Table[T]
	newT  func() T
}

// NewPostgresItemRepo はPostgresItemRepoを生成する。
func NewPostgresItemRepo[T model.Record](db *sqlx.DB, table Table[T], newT func() T) *PostgresItemRepo[T] {
	return &PostgresItemRepo[T]{db: db, table: table, newT: newT}
}

// Scan は条件に一致する項目を作成日時・IDの昇順で返す。
func (r *PostgresItemRepo[T]) Scan(ctx context.Context, pred query.Predicate) ([]T, error) {
	q := psql.Select(r.table.columns()...).
		From(r.table.Name).
		OrderBy("created_at ASC", "id ASC")
	if where := pred.Sqlizer(); where != nil {
		q = q.Where(where)
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s query: %w", r.table.Name, err)
	}

	recs := []T{}
	if err := r.db.SelectContext(ctx, &recs, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.table.Name, err)
	}
	return recs, nil
}

// FindByID は指定IDの項目を取得する。見つからない場合やIDが不正な場合はErrNotFoundを返す。
func (r *PostgresItemRepo[T]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T
	if _, err := uuid.Parse(id); err != nil {
		return zero, ErrNotFound
	}

	sqlStr, args, err := psql.Select(r.table.columns()...).
		From(r.table.Name).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return zero, fmt.Errorf("failed to build %s query: %w", r.table.Name, err)
	}

	rec := r.newT()
	err = r.db.GetContext(ctx, rec, sqlStr, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to find %s by ID: %w", r.table.Name, err)
	}
	return rec, nil
}

// ExistsByOwnerAndTitle は同一所有者に同じタイトルの項目があるかを返す。
func (r *PostgresItemRepo[T]) ExistsByOwnerAndTitle(ctx context.Context, ownerID, title, excludeID string) (bool, error) {
	q := psql.Select("1").
		Prefix("SELECT EXISTS (").
		From(r.table.Name).
		Where(sq.Eq{"owner_id": ownerID, "title": title}).
		Suffix(")")
	if excludeID != "" {
		q = q.Where(sq.NotEq{"id": excludeID})
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build %s query: %w", r.table.Name, err)
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, sqlStr, args...); err != nil {
		return false, fmt.Errorf("failed to check %s title: %w", r.table.Name, err)
	}
	return exists, nil
}

// Create は項目を作成する。同一所有者内でタイトルが重複する場合はErrDuplicateTitleを返す。
func (r *PostgresItemRepo[T]) Create(ctx context.Context, rec T) error {
	b := rec.Base()
	values := append([]any{b.ID, b.Title, b.Description, b.OwnerID, b.CreatedAt, b.UpdatedAt}, r.table.Values(rec)...)

	sqlStr, args, err := psql.Insert(r.table.Name).
		Columns(r.table.columns()...).
		Values(values...).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build %s insert: %w", r.table.Name, err)
	}

	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTitle
		}
		return fmt.Errorf("failed to insert %s: %w", r.table.Name, err)
	}
	return nil
}

// Update は項目の可変フィールドを1文で更新する。
// id・owner_id・created_atは更新しない。
func (r *PostgresItemRepo[T]) Update(ctx context.Context, rec T) error {
	b := rec.Base()
	q := psql.Update(r.table.Name).
		Set("title", b.Title).
		Set("description", b.Description).
		Set("updated_at", b.UpdatedAt)
	for i, v := range r.table.Values(rec) {
		q = q.Set(r.table.Columns[i], v)
	}

	sqlStr, args, err := q.Where(sq.Eq{"id": b.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build %s update: %w", r.table.Name, err)
	}

	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTitle
		}
		return fmt.Errorf("failed to update %s: %w", r.table.Name, err)
	}
	return requireAffected(result)
}

// Delete は指定IDの項目を削除する。
func (r *PostgresItemRepo[T]) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	sqlStr, args, err := psql.Delete(r.table.Name).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build %s delete: %w", r.table.Name, err)
	}

	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", r.table.Name, err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
