package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskhub/internal/item"
	"github.com/hitoshi/taskhub/internal/middleware"
	"github.com/hitoshi/taskhub/internal/model"
	"github.com/hitoshi/taskhub/internal/query"
)

// maxBodyBytes はリクエストボディの上限サイズ。
const maxBodyBytes = 1 << 20

// textQueryParam は一覧のテキスト検索に使うクエリパラメータ名。
const textQueryParam = "q"

// ItemServiceInterface は項目ハンドラーが必要とするサービスインターフェース。
// item.Service[T]が実装する。
type ItemServiceInterface[T model.Record] interface {
	// New は既定値を設定した空の項目を返す。
	New() T
	List(ctx context.Context, p model.Principal, f query.Filter) ([]T, error)
	Get(ctx context.Context, p model.Principal, id string) (T, error)
	Create(ctx context.Context, p model.Principal, rec T) (T, error)
	Update(ctx context.Context, p model.Principal, id string, mutate item.Mutator[T]) (T, error)
	Delete(ctx context.Context, p model.Principal, id string) error
}

// ItemHandler は1種別の項目に対するREST操作のHTTPハンドラー。
type ItemHandler[T model.Record] struct {
	service ItemServiceInterface[T]
}

// NewItemHandler はItemHandlerを生成する。
func NewItemHandler[T model.Record](service ItemServiceInterface[T]) *ItemHandler[T] {
	return &ItemHandler[T]{service: service}
}

// Routes は一覧・詳細のルーティングを登録する。
// パスは末尾スラッシュの有無どちらでも受け付ける。
func (h *ItemHandler[T]) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Replace)
		r.Patch("/", h.Patch)
		r.Delete("/", h.Delete)
	})
}

// List は項目一覧を取得する。
// GET /api/{kind}/?q=text&field=value
func (h *ItemHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), middleware.PrincipalFromContext(r.Context()), filterFromQuery(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Get は項目詳細を取得する。
// GET /api/{kind}/{id}/
func (h *ItemHandler[T]) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), middleware.PrincipalFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Create は項目を作成する。所有者はリクエストの主体に固定する。
// POST /api/{kind}/
func (h *ItemHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	rec := h.service.New()
	// 匿名の場合はボディを読まずにサービス層で401とする
	if p.IsAuthenticated() {
		body, err := readBody(w, r)
		if err == nil {
			err = decodeInto(body, rec)
		}
		if err != nil {
			handleServiceError(w, err)
			return
		}
	}

	created, err := h.service.Create(r.Context(), p, rec)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Replace は項目の変更可能フィールドをすべて置き換える。
// 指定されなかったフィールドは既定値に戻る。
// PUT /api/{kind}/{id}/
func (h *ItemHandler[T]) Replace(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(body []byte) item.Mutator[T] {
		return func(T) (T, error) {
			rec := h.service.New()
			return rec, decodeInto(body, rec)
		}
	})
}

// Patch は指定されたフィールドのみを更新する。
// PATCH /api/{kind}/{id}/
func (h *ItemHandler[T]) Patch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(body []byte) item.Mutator[T] {
		return func(current T) (T, error) {
			return current, decodeInto(body, current)
		}
	})
}

func (h *ItemHandler[T]) update(w http.ResponseWriter, r *http.Request, mutator func(body []byte) item.Mutator[T]) {
	body, err := readBody(w, r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	updated, err := h.service.Update(r.Context(), middleware.PrincipalFromContext(r.Context()), chi.URLParam(r, "id"), mutator(body))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete は項目を削除する。
// DELETE /api/{kind}/{id}/
func (h *ItemHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.PrincipalFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// filterFromQuery はクエリパラメータを一覧フィルタに変換する。
// qはテキスト検索、それ以外は種別固有フィールドの完全一致条件として扱う。
func filterFromQuery(r *http.Request) query.Filter {
	values := r.URL.Query()
	f := query.Filter{Text: values.Get(textQueryParam)}
	for name := range values {
		if name == textQueryParam {
			continue
		}
		if f.Equals == nil {
			f.Equals = make(map[string]string)
		}
		f.Equals[name] = values.Get(name)
	}
	return f
}

// readBody はリクエストボディを上限サイズまで読み込む。
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, model.NewInvalidRequestError("リクエストボディが大きすぎます")
		}
		return nil, model.NewInvalidRequestError(err.Error())
	}
	return body, nil
}

// decodeInto はJSONオブジェクトを項目に上書きする。
// id, owner, created_at, updated_at はサービス層で元の値に戻される。
func decodeInto(body []byte, rec any) error {
	if len(body) == 0 {
		return model.NewInvalidRequestError("リクエストボディが空です")
	}
	if err := json.Unmarshal(body, rec); err != nil {
		return model.NewInvalidRequestError(err.Error())
	}
	return nil
}
