// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/taskhub/internal/model"
	"github.com/hitoshi/taskhub/internal/query"
)

var (
	// ErrNotFound は指定IDの項目が存在しないことを示す。
	// IDがUUIDとして不正な場合も同じ扱いとする。
	ErrNotFound = errors.New("item not found")
	// ErrDuplicateTitle は同一所有者内でタイトルが重複したことを示す。
	// 事前チェックをすり抜けた同時作成をDBの一意制約で検出した場合に返す。
	ErrDuplicateTitle = errors.New("duplicate title for owner")
)

// ItemRepository は作業項目の永続化インターフェース。
// 種別ごとに1つのテーブルを持ち、型パラメータで種別を表す。
type ItemRepository[T model.Record] interface {
	query.Scanner[T]

	// FindByID は指定IDの項目を取得する。見つからない場合はErrNotFoundを返す。
	FindByID(ctx context.Context, id string) (T, error)

	// ExistsByOwnerAndTitle は同一所有者に同じタイトルの項目があるかを返す。
	// excludeIDが空でない場合、そのIDの項目は対象外とする。
	ExistsByOwnerAndTitle(ctx context.Context, ownerID, title, excludeID string) (bool, error)

	// Create は項目を作成する。
	Create(ctx context.Context, rec T) error

	// Update は項目の可変フィールドを更新する。
	Update(ctx context.Context, rec T) error

	// Delete は指定IDの項目を削除する。見つからない場合はErrNotFoundを返す。
	Delete(ctx context.Context, id string) error
}

// UserRepository はユーザーデータの参照インターフェース。
// ユーザーの作成・削除は別サービスが担う。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// SessionRepository はセッションデータの参照インターフェース。
type SessionRepository interface {
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
}
