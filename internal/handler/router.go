package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskhub/internal/middleware"
	"github.com/hitoshi/taskhub/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger // nilの場合はslog.Default()
	Principal         middleware.PrincipalConfig
	CSRF              middleware.CSRFConfig
	CORSAllowedOrigin string // カンマ区切りで複数指定可
	HSTS              bool
	RateLimiter       *middleware.RateLimiter
	HTTPMetrics       middleware.HTTPRecorder // nilの場合はHTTPメトリクスを記録しない

	// 項目
	Tasks ItemServiceInterface[*model.Task]
	Bugs  ItemServiceInterface[*model.BugReport]
	Notes ItemServiceInterface[*model.Note]

	// 横断検索
	Search SearchServiceInterface

	// 運用
	Health  Pinger
	Metrics http.Handler // nilの場合は /metrics を公開しない
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS
//	  → Principal → RateLimit(General, Write) → CSRF
//
// /health と /metrics はPrincipal解決より外側に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	// --- 運用エンドポイント ---
	r.Method(http.MethodGet, "/health", NewHealthHandler(deps.Health))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	// --- API ---
	// ミドルウェアスタック: Principal → RateLimit → CSRF
	r.Route("/api", func(r chi.Router) {
		principal := deps.Principal
		if principal.Logger == nil {
			principal.Logger = logger
		}
		r.Use(middleware.NewPrincipalMiddleware(principal))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
			r.Use(deps.RateLimiter.WriteMiddleware())
		}

		// CSRFトークン取得エンドポイントはCSRF検証の外に配置する
		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF))

		r.Group(func(r chi.Router) {
			r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

			r.Route("/tasks", NewItemHandler(deps.Tasks).Routes)
			r.Route("/bugs", NewItemHandler(deps.Bugs).Routes)
			r.Route("/notes", NewItemHandler(deps.Notes).Routes)

			searchHandler := NewSearchHandler(deps.Search)
			r.Get("/search", searchHandler.Search)
			r.Get("/search/", searchHandler.Search)
		})
	})

	return r
}
