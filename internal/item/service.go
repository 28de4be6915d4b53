// Package item は作業項目（タスク・バグレポート・ノート）のドメインロジックを提供する。
//
// 3種別は同じ生存期間ルール（作成・取得・更新・削除）と所有者による書き込み制限を
// 共有するため、型パラメータ付きのService[T]1つで扱う。
package item

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskhub/internal/model"
	"github.com/hitoshi/taskhub/internal/policy"
	"github.com/hitoshi/taskhub/internal/query"
	"github.com/hitoshi/taskhub/internal/repository"
)

// Mutator は現在のレコードを受け取り、更新後のレコードを返す。
// 部分更新では受け取ったレコードを書き換えて返し、全体更新では新しいレコードを返す。
// ID・所有者・作成日時はサービス側で元の値に戻される。
type Mutator[T model.Record] func(current T) (T, error)

// Option はServiceの任意設定。
type Option[T model.Record] func(*Service[T])

// WithClock は現在時刻の取得関数を差し替える。
func WithClock[T model.Record](now func() time.Time) Option[T] {
	return func(s *Service[T]) { s.now = now }
}

// WithIDGenerator はID生成関数を差し替える。
func WithIDGenerator[T model.Record](gen func() string) Option[T] {
	return func(s *Service[T]) { s.newID = gen }
}

// WithMarkupChecker は保存前のマークアップ検出を設定する。
// 設定した場合、マークアップを含むテキストは検証エラーとなる。
func WithMarkupChecker[T model.Record](mc MarkupChecker) Option[T] {
	return func(s *Service[T]) { s.markup = mc }
}

// WithEventSink は観測イベントの出力先を設定する。
func WithEventSink[T model.Record](sink EventSink) Option[T] {
	return func(s *Service[T]) { s.sink = sink }
}

// Service は1種別の作業項目に対するサービス層。
type Service[T model.Record] struct {
	desc      Descriptor[T]
	repo      repository.ItemRepository[T]
	composer  *query.Composer[T]
	markup    MarkupChecker
	sink      EventSink
	now       func() time.Time
	newID     func() string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService[T model.Record](desc Descriptor[T], repo repository.ItemRepository[T], opts ...Option[T]) *Service[T] {
	s := &Service[T]{
		desc:     desc,
		repo:     repo,
		composer: query.NewComposer[T](desc.Kind, repo, desc.Fields),
		sink:     NopSink{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind はサービスが扱う種別を返す。
func (s *Service[T]) Kind() model.Kind {
	return s.desc.Kind
}

// New はリクエストのデコード先となる既定値設定済みのレコードを返す。
func (s *Service[T]) New() T {
	rec := s.desc.New()
	rec.ApplyDefaults()
	return rec
}

// List は絞り込み条件に一致する項目を作成日時の昇順で返す。
// 閲覧は匿名ユーザーにも許可され、所有者による絞り込みは行わない。
// 呼び出しごとにストアを再検索するため、結果は常に最新の状態を反映する。
func (s *Service[T]) List(ctx context.Context, p model.Principal, f query.Filter) ([]T, error) {
	recs, pred, err := s.composer.List(ctx, f)
	if err != nil {
		var fe *query.FilterError
		if errors.As(err, &fe) {
			apiErr := filterAPIError(fe)
			s.emit(ctx, Event{Actor: p, Action: ActionList, Query: f.Text, ErrCode: apiErr.Code})
			return nil, apiErr
		}
		return nil, fmt.Errorf("%s一覧の取得に失敗しました: %w", s.desc.Kind, err)
	}

	if recs == nil {
		recs = []T{}
	}
	s.emit(ctx, Event{Actor: p, Action: ActionList, Query: pred.Text(), Count: len(recs)})
	return recs, nil
}

// Get は指定IDの項目を返す。
func (s *Service[T]) Get(ctx context.Context, p model.Principal, id string) (T, error) {
	rec, err := s.find(ctx, id)
	if err != nil {
		s.fail(ctx, p, ActionGet, id, err)
		var zero T
		return zero, err
	}
	if policy.DecideItem(p, rec.Base(), policy.OpRead) == policy.Deny {
		err := model.NewForbiddenError(s.desc.Kind, id)
		s.fail(ctx, p, ActionGet, id, err)
		var zero T
		return zero, err
	}

	s.emit(ctx, Event{Actor: p, Action: ActionGet, ItemID: id, Title: rec.Base().Title})
	return rec, nil
}

// Create は認証済みユーザーを所有者として項目を作成する。
// リクエストに含まれるID・所有者・日時は無視して上書きする。
func (s *Service[T]) Create(ctx context.Context, p model.Principal, rec T) (T, error) {
	var zero T
	if !p.IsAuthenticated() {
		err := model.NewUnauthorizedError()
		s.fail(ctx, p, ActionCreate, "", err)
		return zero, err
	}

	base := rec.Base()
	base.ID = s.newID()
	base.OwnerID = p.UserID

	if err := s.prepare(ctx, rec); err != nil {
		s.fail(ctx, p, ActionCreate, "", err)
		return zero, err
	}
	if err := s.checkTitle(ctx, base.OwnerID, base.Title, ""); err != nil {
		s.fail(ctx, p, ActionCreate, "", err)
		return zero, err
	}

	now := s.now().UTC()
	base.CreatedAt = now
	base.UpdatedAt = now

	if err := s.repo.Create(ctx, rec); err != nil {
		err = s.storeError("作成", "", err)
		s.fail(ctx, p, ActionCreate, "", err)
		return zero, err
	}

	s.emit(ctx, Event{Actor: p, Action: ActionCreate, ItemID: base.ID, Title: base.Title})
	return rec, nil
}

// Update は所有者のみに許可された更新を行う。
// チェック順は 未認証 -> 存在しない -> 所有者でない。
func (s *Service[T]) Update(ctx context.Context, p model.Principal, id string, mutate Mutator[T]) (T, error) {
	var zero T
	current, err := s.authorizeWrite(ctx, p, id)
	if err != nil {
		s.fail(ctx, p, ActionUpdate, id, err)
		return zero, err
	}
	orig := *current.Base()

	next, err := mutate(current)
	if err != nil {
		s.fail(ctx, p, ActionUpdate, id, err)
		return zero, err
	}

	base := next.Base()
	base.ID = orig.ID
	base.OwnerID = orig.OwnerID
	base.CreatedAt = orig.CreatedAt

	if err := s.prepare(ctx, next); err != nil {
		s.fail(ctx, p, ActionUpdate, id, err)
		return zero, err
	}
	if base.Title != orig.Title {
		if err := s.checkTitle(ctx, base.OwnerID, base.Title, base.ID); err != nil {
			s.fail(ctx, p, ActionUpdate, id, err)
			return zero, err
		}
	}

	base.UpdatedAt = s.now().UTC()
	if base.UpdatedAt.Before(orig.UpdatedAt) {
		base.UpdatedAt = orig.UpdatedAt
	}

	if err := s.repo.Update(ctx, next); err != nil {
		err = s.storeError("更新", id, err)
		s.fail(ctx, p, ActionUpdate, id, err)
		return zero, err
	}

	s.emit(ctx, Event{Actor: p, Action: ActionUpdate, ItemID: id, Title: base.Title})
	return next, nil
}

// Delete は所有者のみに許可された削除を行う。
func (s *Service[T]) Delete(ctx context.Context, p model.Principal, id string) error {
	current, err := s.authorizeWrite(ctx, p, id)
	if err != nil {
		s.fail(ctx, p, ActionDelete, id, err)
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		err = s.storeError("削除", id, err)
		s.fail(ctx, p, ActionDelete, id, err)
		return err
	}

	s.emit(ctx, Event{Actor: p, Action: ActionDelete, ItemID: id, Title: current.Base().Title})
	return nil
}

func (s *Service[T]) authorizeWrite(ctx context.Context, p model.Principal, id string) (T, error) {
	var zero T
	if !p.IsAuthenticated() {
		return zero, model.NewUnauthorizedError()
	}
	rec, err := s.find(ctx, id)
	if err != nil {
		return zero, err
	}
	if policy.DecideItem(p, rec.Base(), policy.OpWrite) == policy.Deny {
		return zero, model.NewForbiddenError(s.desc.Kind, id)
	}
	return rec, nil
}

func (s *Service[T]) find(ctx context.Context, id string) (T, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		var zero T
		if errors.Is(err, repository.ErrNotFound) {
			return zero, model.NewNotFoundError(s.desc.Kind, id)
		}
		return zero, fmt.Errorf("%sの取得に失敗しました: %w", s.desc.Kind, err)
	}
	return rec, nil
}

// prepare は既定値の補完、正規化、検証を順に行う。
// テキストは書き換えず、入力されたまま保存する。
func (s *Service[T]) prepare(ctx context.Context, rec T) error {
	rec.ApplyDefaults()
	rec.Base().Normalize()
	if err := rec.Validate(); err != nil {
		return err
	}
	if err := s.checkMarkup(rec); err != nil {
		return err
	}
	if s.desc.Check != nil {
		if err := s.desc.Check(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service[T]) checkMarkup(rec T) error {
	if s.markup == nil {
		return nil
	}
	base := rec.Base()
	fields := []TextField{
		{Name: "title", Value: base.Title},
		{Name: "description", Value: base.Description},
	}
	if s.desc.TextFields != nil {
		fields = append(fields, s.desc.TextFields(rec)...)
	}
	for _, f := range fields {
		if s.markup.ContainsMarkup(f.Value) {
			return model.NewValidationError(f.Name, "HTMLタグは使用できません。")
		}
	}
	return nil
}

func (s *Service[T]) checkTitle(ctx context.Context, ownerID, title, excludeID string) error {
	exists, err := s.repo.ExistsByOwnerAndTitle(ctx, ownerID, title, excludeID)
	if err != nil {
		return fmt.Errorf("タイトルの重複確認に失敗しました: %w", err)
	}
	if exists {
		return model.NewDuplicateTitleError()
	}
	return nil
}

// storeError はストアのエラーをAPIエラーに変換する。
func (s *Service[T]) storeError(op, id string, err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateTitle):
		return model.NewDuplicateTitleError()
	case errors.Is(err, repository.ErrNotFound):
		return model.NewNotFoundError(s.desc.Kind, id)
	}
	return fmt.Errorf("%sの%sに失敗しました: %w", s.desc.Kind, op, err)
}

func (s *Service[T]) fail(ctx context.Context, p model.Principal, action Action, id string, err error) {
	code := model.ErrCodeInternal
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		code = apiErr.Code
	}
	s.emit(ctx, Event{Actor: p, Action: action, ItemID: id, ErrCode: code})
}

func (s *Service[T]) emit(ctx context.Context, ev Event) {
	ev.Kind = s.desc.Kind
	ev.At = s.now().UTC()
	s.sink.Record(ctx, ev)
}

func filterAPIError(fe *query.FilterError) *model.APIError {
	if fe.Unknown {
		return model.NewInvalidFilterError(fe.Field)
	}
	return model.NewInvalidChoiceError(fe.Field, fe.Value)
}
