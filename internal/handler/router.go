package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pinmap/internal/auth"
	"github.com/hitoshi/pinmap/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	HTTPRecorder      middleware.HTTPRecorder // nil可

	// 認証
	AuthService  AuthServiceInterface
	AdminChecker auth.AdminChecker
	AuthConfig   AuthHandlerConfig

	// 注釈
	PinService  PinServiceInterface
	PathService PathServiceInterface

	// メトリクス記録（nil可）
	PinRecorder  PinCreationRecorder
	PathRecorder PathCreationRecorder

	// ヘルスチェック
	DB           DBPinger
	HealthConfig HealthConfig

	// Prometheusスクレイプ用ハンドラー（nil可）
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → Logging → Metrics → SecurityHeaders → CORS
//
// 書き込み系ルートにはさらに Auth → RateLimit(Mutation) を適用する。
// 閲覧系（ピン・経路の一覧）は認証不要。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewRequestIDMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.HTTPRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AdminChecker, deps.AuthConfig)
	pinHandler := NewPinHandler(deps.PinService, deps.PinRecorder)
	pathHandler := NewPathHandler(deps.PathService, deps.PathRecorder)
	healthHandler := NewHealthHandler(deps.DB, deps.HealthConfig)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler.Health)

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// OAuthフロー
	r.Get("/login", authHandler.Login)
	r.Get("/callback", authHandler.Callback)

	// 閲覧系
	r.Get("/pins", pinHandler.ListPins)
	r.Get("/paths", pathHandler.ListPaths)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(Mutation)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.MutationMiddleware())
		}

		// トークン検証
		r.Get("/verify", authHandler.Verify)

		// ピン管理
		r.Post("/pins", pinHandler.CreatePin)
		r.Put("/pins/{id}", pinHandler.UpdatePin)
		r.Delete("/pins/{id}", pinHandler.DeletePin)

		// DELETE /pins/delete_all - 管理者専用の全削除
		r.Delete("/pins/delete_all", pinHandler.DeleteAllPins)

		// 経路管理
		r.Post("/paths", pathHandler.CreatePath)
		r.Put("/paths/{id}", pathHandler.UpdatePath)
		r.Delete("/paths/{id}", pathHandler.DeletePath)
	})

	return r
}
