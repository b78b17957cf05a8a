// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
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

	"github.com/hitoshi/pinmap/internal/auth"
	"github.com/hitoshi/pinmap/internal/authz"
	"github.com/hitoshi/pinmap/internal/config"
	"github.com/hitoshi/pinmap/internal/database"
	"github.com/hitoshi/pinmap/internal/handler"
	"github.com/hitoshi/pinmap/internal/logger"
	"github.com/hitoshi/pinmap/internal/metrics"
	"github.com/hitoshi/pinmap/internal/middleware"
	"github.com/hitoshi/pinmap/internal/path"
	"github.com/hitoshi/pinmap/internal/pin"
	"github.com/hitoshi/pinmap/internal/repository"
	"github.com/hitoshi/pinmap/internal/security"
	"github.com/hitoshi/pinmap/internal/token"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
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
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. リポジトリの初期化
	pinRepo := repository.NewPostgresPinRepo(db)
	pathRepo := repository.NewPostgresPathRepo(db)

	// 4. 認可・トークン・サニタイザの初期化
	policy := authz.NewPolicy(cfg.AdminUserID, cfg.AdminUsername)
	codec, err := token.NewCodec(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to create token codec: %w", err)
	}
	sanitizer := security.NewTextSanitizer()

	// 5. ドメインサービスの初期化
	oauthProvider := auth.NewDiscordOAuthProvider(auth.DiscordOAuthConfig{
		ClientID:      cfg.DiscordClientID,
		ClientSecret:  cfg.DiscordClientSecret,
		RedirectURL:   cfg.DiscordRedirectURL,
		RequestGuilds: cfg.DiscordGuildID != "",
		Timeout:       cfg.OAuthTimeout,
	})
	authService := auth.NewService(oauthProvider, codec, policy, collector, auth.ServiceConfig{
		RequiredGuildID:    cfg.DiscordGuildID,
		GuildCheckFailOpen: cfg.GuildCheckFailOpen,
	})

	pinService := pin.NewService(pinRepo, policy, sanitizer)
	pathService := path.NewService(pathRepo, policy, sanitizer)

	// 6. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitMutation > 0 {
		// configのRateLimitMutationはreq/min単位なのでreq/secに変換する
		rateLimiterCfg.MutationRate = rate.Limit(float64(cfg.RateLimitMutation) / 60.0)
		rateLimiterCfg.MutationBurst = cfg.RateLimitMutation
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		TokenVerifier:     codec,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),
		HTTPRecorder:      collector,

		AuthService:  authService,
		AdminChecker: policy,
		AuthConfig: handler.AuthHandlerConfig{
			FrontendOrigin: cfg.CORSAllowedOrigin,
			CookieSecure:   cfg.CookieSecure(),
		},

		PinService:  pinService,
		PathService: pathService,

		PinRecorder:  collector,
		PathRecorder: collector,

		DB: db,
		HealthConfig: handler.HealthConfig{
			OAuthConfigured: cfg.DiscordClientID != "" && cfg.DiscordClientSecret != "",
			GuildGate:       cfg.DiscordGuildID != "",
		},

		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
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

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
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

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
