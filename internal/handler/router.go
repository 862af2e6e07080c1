package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kawamura/memgraph/internal/metrics"
	"github.com/kawamura/memgraph/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionResolver   middleware.SessionResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface

	// メモリ
	Dispatcher  MemoryDispatcherInterface
	GraphReader GraphReader
	UserFinder  UserFinder

	// メトリクス
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → (認証ルートのみ) Session → RateLimit(General)
//
// 登録・ログインはIP単位の資格情報レート制限のみを通す。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, authMetrics(deps.Metrics))
	memoryHandler := NewMemoryHandler(deps.Dispatcher, deps.GraphReader, deps.UserFinder, toolMetrics(deps.Metrics))

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.Gatherer != nil {
		r.Get("/metrics", metrics.Handler(deps.Gatherer).ServeHTTP)
	}

	// 登録・ログインはIP単位のレート制限を適用
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.CredentialMiddleware())
		}
		r.Post("/api/register", authHandler.Register)
		r.Post("/api/login", authHandler.Login)
	})

	// トークン自体を検査するルートはセッションミドルウェアの外に置く
	r.Post("/api/logout", authHandler.Logout)
	r.Get("/api/validate", authHandler.Validate)
	r.Get("/api/set_user", authHandler.SetUser)
	r.Post("/api/set_user", authHandler.SetUser)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionResolver))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		r.Route("/api/memory", func(r chi.Router) {
			r.Post("/call", memoryHandler.Call)
			r.Get("/tools", memoryHandler.Tools)
		})

		r.Get("/api/export", memoryHandler.Export)
	})

	return r
}

// authMetrics は*metrics.Collectorを型付きnilを避けてAuthMetricsに変換する。
func authMetrics(c *metrics.Collector) AuthMetrics {
	if c == nil {
		return nil
	}
	return c
}

// toolMetrics は*metrics.Collectorを型付きnilを避けてToolMetricsに変換する。
func toolMetrics(c *metrics.Collector) ToolMetrics {
	if c == nil {
		return nil
	}
	return c
}
