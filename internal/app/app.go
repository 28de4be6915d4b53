// Package app はアプリケーションの起動と依存関係の組み立てを行う。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/taskhub/internal/config"
	"github.com/hitoshi/taskhub/internal/database"
	"github.com/hitoshi/taskhub/internal/handler"
	"github.com/hitoshi/taskhub/internal/item"
	"github.com/hitoshi/taskhub/internal/logger"
	"github.com/hitoshi/taskhub/internal/metrics"
	"github.com/hitoshi/taskhub/internal/middleware"
	"github.com/hitoshi/taskhub/internal/model"
	"github.com/hitoshi/taskhub/internal/repository"
	"github.com/hitoshi/taskhub/internal/search"
	"github.com/hitoshi/taskhub/internal/security"
	"github.com/hitoshi/taskhub/internal/worker/cleanup"
)

// healthPingTimeout は /health でのDB疎通確認のタイムアウト。
const healthPingTimeout = 2 * time.Second

// Init はアプリケーションの初期化を行う。
// .envファイルと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. .envファイルと環境変数から設定を読み込む
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再設定する
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	logger.SetupDefault(w, level)

	return cfg, nil
}

// Server はHTTPサーバーとその後始末をまとめたもの。
type Server struct {
	HTTP    *http.Server
	cleanup []func()
}

// Close はサーバーが保持するバックグラウンド処理を停止する。
func (s *Server) Close() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
}

// NewServer はDB接続から全依存関係をワイヤリングしたHTTPサーバーを構築する。
// regにはメトリクスの登録先を指定する。
func NewServer(cfg *config.Config, db *sqlx.DB, reg *prometheus.Registry) *Server {
	log := slog.Default()

	// 1. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	taskRepo := repository.NewPostgresTaskRepo(db)
	bugRepo := repository.NewPostgresBugReportRepo(db)
	noteRepo := repository.NewPostgresNoteRepo(db)

	// 2. 観測とセキュリティの初期化
	collector := metrics.NewCollector(reg)
	sink := item.MultiSink{logger.NewEventLogger(log), collector}
	markup := security.NewMarkupDetector()

	// 3. ドメインサービスの初期化
	tasks := item.NewService(item.TaskDescriptor(userRepo), taskRepo,
		item.WithMarkupChecker[*model.Task](markup), item.WithEventSink[*model.Task](sink))
	bugs := item.NewService(item.BugReportDescriptor(), bugRepo,
		item.WithMarkupChecker[*model.BugReport](markup), item.WithEventSink[*model.BugReport](sink))
	notes := item.NewService(item.NoteDescriptor(), noteRepo,
		item.WithMarkupChecker[*model.Note](markup), item.WithEventSink[*model.Note](sink))
	searchService := search.NewService(tasks, bugs, notes)

	// 4. ルーターの構築
	principal := middleware.PrincipalConfig{Sessions: sessionRepo}
	if cfg.JWTEnabled() {
		principal.Tokens = middleware.NewJWTVerifier(cfg.JWTSecret)
	}
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitWrite))

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		Principal:         principal,
		CSRF:              middleware.CSRFConfig{CookieSecure: cfg.CookieSecure},
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		HSTS:              cfg.CookieSecure,
		RateLimiter:       rateLimiter,
		HTTPMetrics:       collector,

		Tasks:  tasks,
		Bugs:   bugs,
		Notes:  notes,
		Search: searchService,

		Health:  handler.NewDBPinger(db, healthPingTimeout),
		Metrics: metrics.Handler(reg),
	})

	return &Server{
		HTTP: &http.Server{
			Addr:         ":" + cfg.ServerPort,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		cleanup: []func(){rateLimiter.Stop},
	}
}

// newRegistry はプロセスとGoランタイムのメトリクスを含むレジストリを生成する。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Ping(ctx, db, 5*time.Second); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")

	// 2. サーバーの構築
	srv := NewServer(cfg, db, newRegistry())
	defer srv.Close()

	// 3. 期限切れセッションの定期削除
	if cfg.SessionCleanupInterval > 0 {
		job := cleanup.NewSessionCleanupJob(db, slog.Default())
		go job.Start(ctx, cfg.SessionCleanupInterval)
	}

	// 4. HTTPサーバーの起動
	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", srv.HTTP.Addr),
			slog.Bool("jwt_enabled", cfg.JWTEnabled()),
		)
		if err := srv.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.HTTP.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// migrateOptions はmigrateサブコマンドのオプション。
type migrateOptions struct {
	// Down が正の場合、その数だけマイグレーションを巻き戻す。
	Down int
	// Version がtrueの場合、現在のバージョンを表示するのみ。
	Version bool
}

// runMigrate はデータベースマイグレーションを実行する。
func runMigrate(w io.Writer, cfg *config.Config, opts migrateOptions) error {
	masked := maskDatabaseURL(cfg.DatabaseURL)

	if opts.Version {
		version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to read migration version: %w", err)
		}
		fmt.Fprintf(w, "version=%d dirty=%t\n", version, dirty)
		return nil
	}

	if opts.Down > 0 {
		slog.Info("rolling back database migrations",
			slog.String("database_url", masked),
			slog.Int("steps", opts.Down),
		)
		if err := database.RollbackMigrations(cfg.DatabaseURL, opts.Down); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		slog.Info("database rollback completed successfully")
		return nil
	}

	slog.Info("running database migrations",
		slog.String("database_url", masked),
	)
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(ctx context.Context, baseURL string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
// URLとして解釈できない場合は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}

// signalContext はSIGINTまたはSIGTERMでキャンセルされるコンテキストを返す。
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
