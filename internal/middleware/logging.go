package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// levelForStatus はステータスクラスに応じたログレベルを返す。
func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// NewLoggingMiddleware はリクエストごとに "http_request" のJSON構造化ログを出力するミドルウェアを返す。
// method、path、route（chiのルートパターン）、status、bytes、duration_ms、
// 認証済みの場合はuser_idを含む。
// Principal解決より外側に置くため、解決結果はprincipalHolder経由で受け取る。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rr := recordResponse(w)
			holder := &principalHolder{}

			next.ServeHTTP(rr, r.WithContext(withPrincipalHolder(r.Context(), holder)))

			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rr.status),
				slog.Int("bytes", rr.bytes),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
			}
			// chiはルーティング後に同じRouteContextへパターンを書き込む
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					attrs = append(attrs, slog.String("route", pattern))
				}
			}
			if holder.principal.IsAuthenticated() {
				attrs = append(attrs, slog.String("user_id", holder.principal.UserID))
			}

			logger.Log(r.Context(), levelForStatus(rr.status), "http_request", attrs...)
		})
	}
}
