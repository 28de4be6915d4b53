package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/taskhub/internal/middleware"
	"github.com/hitoshi/taskhub/internal/model"
	"github.com/hitoshi/taskhub/internal/search"
)

// SearchServiceInterface は横断検索ハンドラーが必要とするサービスインターフェース。
type SearchServiceInterface interface {
	Search(ctx context.Context, p model.Principal, text string) (*search.Result, error)
}

// SearchHandler は全種別の横断検索のHTTPハンドラー。
type SearchHandler struct {
	service SearchServiceInterface
}

// NewSearchHandler はSearchHandlerを生成する。
func NewSearchHandler(service SearchServiceInterface) *SearchHandler {
	return &SearchHandler{service: service}
}

// Search はタスク・バグレポート・ノートを横断して検索する。
// GET /api/search/?q=text
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Search(r.Context(), middleware.PrincipalFromContext(r.Context()), r.URL.Query().Get(textQueryParam))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
