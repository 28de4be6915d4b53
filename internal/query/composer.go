package query

import (
	"context"

	"github.com/hitoshi/taskhub/internal/model"
)

// Scanner は条件に一致する項目を列挙するストアのインターフェース。
// 並び順はcreated_at昇順、同時刻はid昇順で決定的であること。
type Scanner[T model.Record] interface {
	Scan(ctx context.Context, pred Predicate) ([]T, error)
}

// Composer は種別ごとの一覧取得を組み立てる。
// キャッシュは持たず、呼び出しのたびにストアの現在の状態を返す。
type Composer[T model.Record] struct {
	kind   model.Kind
	store  Scanner[T]
	fields []Field
}

// NewComposer はComposerを生成する。fieldsは完全一致で絞り込めるフィールド。
func NewComposer[T model.Record](kind model.Kind, store Scanner[T], fields []Field) *Composer[T] {
	return &Composer[T]{kind: kind, store: store, fields: fields}
}

// Kind は対象の種別を返す。
func (c *Composer[T]) Kind() model.Kind {
	return c.kind
}

// Fields は絞り込み可能なフィールドを返す。
func (c *Composer[T]) Fields() []Field {
	return c.fields
}

// List はFilterに一致する項目を全所有者にわたって返す。
func (c *Composer[T]) List(ctx context.Context, f Filter) ([]T, Predicate, error) {
	pred, err := Compile(f, c.fields)
	if err != nil {
		return nil, Predicate{}, err
	}
	items, err := c.store.Scan(ctx, pred)
	if err != nil {
		return nil, Predicate{}, err
	}
	return items, pred, nil
}
