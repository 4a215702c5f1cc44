package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/gamedex/internal/auth"
	"github.com/hitoshi/gamedex/internal/metrics"
	"github.com/hitoshi/gamedex/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenService      auth.TokenService
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector
	MetricsGatherer   prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ゲームカタログ
	GameService GameServiceInterface
	// limit_per_sourceクエリパラメータ省略時のプロバイダーあたり取得件数
	PopulateLimitPerSource int

	// ヘルスチェック
	HealthChecker HealthChecker
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Logging → Metrics → Recovery
//
// 認証が必要なルートには追加で Session → RateLimit(General) を適用する。
// 状態変更エンドポイントにはCSRFダブルサブミット検証を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	gameHandler := NewGameHandler(deps.GameService, deps.PopulateLimitPerSource)

	csrfConfig := middleware.CSRFConfig{
		CookieSecure: deps.AuthConfig.CookieSecure,
		CookieDomain: deps.AuthConfig.CookieDomain,
	}
	sessionMW := middleware.NewSessionMiddleware(deps.TokenService)
	csrfMW := middleware.NewCSRFMiddleware(csrfConfig)

	// --- 認証不要のルート ---

	// OAuthフローとログアウト
	r.Route("/auth", func(r chi.Router) {
		r.Get("/twitch/login", authHandler.Login)
		r.Get("/twitch/callback", authHandler.Callback)
		r.With(csrfMW).Post("/logout", authHandler.Logout)

		// 現在のユーザー情報（要認証）
		r.With(sessionMW, deps.RateLimiter.GeneralMiddleware()).Get("/me", authHandler.Me)
	})

	// ゲーム一覧は公開エンドポイント
	r.Get("/api/games", gameHandler.ListGames)

	// CSRFトークン取得
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(csrfConfig))

	// ヘルスチェック
	r.Get("/health", NewHealthHandler(deps.HealthChecker))

	// Prometheusメトリクス
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(sessionMW)
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// カタログ更新（更新専用レート制限を追加）
		r.With(deps.RateLimiter.PopulateMiddleware()).Get("/api/games/populate", gameHandler.PopulateGames)

		// ゲーム削除（状態変更のためCSRF検証を追加）
		r.With(csrfMW).Delete("/api/games/{id}", gameHandler.DeleteGame)
	})

	return r
}
