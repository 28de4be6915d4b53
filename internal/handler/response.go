package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/taskhub/internal/middleware"
	"github.com/hitoshi/taskhub/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, middleware.StatusForError(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// notFound はルートが存在しない場合の統一エラーレスポンスを返す。
func notFound(w http.ResponseWriter, r *http.Request) {
	middleware.WriteErrorResponse(w, http.StatusNotFound, &model.APIError{
		Code:     model.ErrCodeNotFound,
		Message:  "指定されたパスは存在しません。",
		Category: "system",
		Action:   "URLを確認してください。",
	})
}

// methodNotAllowed は許可されていないメソッドに対する統一エラーレスポンスを返す。
func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	middleware.WriteErrorResponse(w, http.StatusMethodNotAllowed, &model.APIError{
		Code:     "METHOD_NOT_ALLOWED",
		Message:  "このメソッドは許可されていません。",
		Category: "system",
		Action:   "APIのメソッドを確認してください。",
	})
}

