package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/kawamura/memgraph/internal/auth"
	"github.com/kawamura/memgraph/internal/config"
	"github.com/kawamura/memgraph/internal/graph"
	"github.com/kawamura/memgraph/internal/handler"
	"github.com/kawamura/memgraph/internal/logger"
	mcpserver "github.com/kawamura/memgraph/internal/mcp"
	"github.com/kawamura/memgraph/internal/metrics"
	"github.com/kawamura/memgraph/internal/middleware"
	"github.com/kawamura/memgraph/internal/relevance"
	"github.com/kawamura/memgraph/internal/repository"
	"github.com/kawamura/memgraph/internal/security"
	"github.com/kawamura/memgraph/internal/worker/sweep"
)

// Version はアプリケーションのバージョン。MCPサーバーの実装情報にも使う。
const Version = "1.0.0"

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込み、
// APIキーファイルがあれば環境変数として取り込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. APIキーファイルの取り込み
	loaded, err := config.LoadAPIKeys(cfg.APIKeysFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load api keys: %w", err)
	}
	if loaded > 0 {
		slog.Info("api keys loaded",
			slog.String("file", cfg.APIKeysFile),
			slog.Int("count", loaded),
		)
		// APIキーファイルがMEMORY_USERなどを設定した可能性があるため読み直す
		cfg, err = config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to reload config: %w", err)
		}
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("data_dir", cfg.DataDir),
	)

	switch cmd {
	case CommandMCP:
		return runMCP(cfg)
	case CommandSweep:
		return runSweep(cfg)
	default:
		return runServe(cfg)
	}
}

// core はリポジトリとドメインサービスをまとめた配線結果。
type core struct {
	userRepo    *repository.FileUserRepo
	sessionRepo *repository.FileSessionRepo
	authService *auth.Service
	graphSvc    *graph.Service
	dispatcher  *graph.Dispatcher
	collector   *metrics.Collector
	registry    *prometheus.Registry
}

// buildCore はファイルストレージとドメインサービスを配線する。
// serveとmcpの両モードで共通の組み立てをここに集約する。
func buildCore(cfg *config.Config) *core {
	userRepo := repository.NewFileUserRepo(cfg.DataDir)
	sessionRepo := repository.NewFileSessionRepo(cfg.DataDir)
	graphRepo := repository.NewFileGraphRepo(cfg.DataDir)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	graphSvc := graph.NewService(
		graph.NewManager(graphRepo, collector),
		relevance.NewDefaultFilter(),
		security.NewObservationSanitizer(),
	)

	authService := auth.NewService(
		userRepo, sessionRepo, graphRepo,
		auth.ServiceConfig{SessionTTL: cfg.SessionTTL},
	)

	return &core{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		authService: authService,
		graphSvc:    graphSvc,
		dispatcher:  graph.NewDispatcher(graphSvc),
		collector:   collector,
		registry:    registry,
	}
}

// rateLimiterConfig は設定のreq/min値をトークンバケットのreq/secレートに変換する。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rlCfg := middleware.DefaultRateLimiterConfig()
	rlCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rlCfg.GeneralBurst = cfg.RateLimitGeneral
	rlCfg.CredentialRate = rate.Limit(float64(cfg.RateLimitCredential) / 60.0)
	rlCfg.CredentialBurst = cfg.RateLimitCredential
	return rlCfg
}

// runServe はHTTP APIサーバーモードで起動する。
// 全依存関係をワイヤリングし、起動時に期限切れセッションを掃除してからHTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	c := buildCore(cfg)

	// 起動時に1回、期限切れセッションを掃除する。
	// 失敗しても起動は継続する（検証時の遅延失効が安全網になる）。
	sweepJob := sweep.NewJob(c.sessionRepo, c.collector, slog.Default())
	if err := sweepJob.Run(context.Background()); err != nil {
		slog.Error("startup session sweep failed", slog.String("error", err.Error()))
	}

	rl := middleware.NewRateLimiter(rateLimiterConfig(cfg))
	defer rl.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		SessionResolver:   c.authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rl,
		Logger:            slog.Default(),

		AuthService: c.authService,

		Dispatcher:  c.dispatcher,
		GraphReader: c.graphSvc,
		UserFinder:  c.userRepo,

		Metrics:  c.collector,
		Gatherer: c.registry,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMCP はstdio上のMCPサーバーモードで起動する。
// MEMORY_USERで指定されたユーザーのグラフをツールとして公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runMCP(cfg *config.Config) error {
	if cfg.MCPUser == "" {
		return fmt.Errorf("mcp mode requires MEMORY_USER to be set")
	}

	c := buildCore(cfg)

	server := mcpserver.NewServer(c.graphSvc, c.userRepo, cfg.MCPUser, Version)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("MCP server starting",
		slog.String("memory_user", cfg.MCPUser),
	)

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server failed: %w", err)
	}

	slog.Info("MCP server stopped")
	return nil
}

// runSweep は期限切れセッションの掃除を1回実行して終了する。
// cronなどの外部スケジューラから定期実行する用途のサブコマンド。
func runSweep(cfg *config.Config) error {
	sessionRepo := repository.NewFileSessionRepo(cfg.DataDir)
	job := sweep.NewJob(sessionRepo, nil, slog.Default())
	return job.Run(context.Background())
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
