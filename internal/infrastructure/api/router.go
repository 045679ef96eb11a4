package api

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wayfarerhq/impact/internal/application"
	"github.com/wayfarerhq/impact/internal/domain"
	"github.com/wayfarerhq/impact/internal/infrastructure/auth"
	"github.com/wayfarerhq/impact/internal/infrastructure/logging"
	"github.com/wayfarerhq/impact/internal/infrastructure/metrics"
)

// RouterConfig holds dependencies for route registration.
type RouterConfig struct {
	UpdateScoresUseCase *application.UpdateScoresUseCase
	GetScoreUseCase     *application.GetScoreUseCase
	RegisterUserUseCase *application.RegisterUserUseCase
	Leaderboard         LeaderboardSource
	SubscriptionRepo    domain.WebhookSubscriptionRepository
	UserRepo            domain.UserRepository
	JWTValidator        *auth.JWTValidator
	Database            Pinger
	Logger              *logging.Logger
	Metrics             *metrics.Metrics
}

// RegisterRoutes sets up all API routes on the server.
// follows RESTful conventions and groups routes logically.
func RegisterRoutes(e *echo.Echo, config RouterConfig) {
	// prometheus metrics endpoint (no auth, standard scraping path)
	if config.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(
			config.Metrics.Registry,
			promhttp.HandlerOpts{
				Registry:          config.Metrics.Registry,
				EnableOpenMetrics: true,
			},
		)))

		// apply metrics middleware to all routes
		e.Use(metrics.Middleware(config.Metrics))
	}

	// health endpoints (no auth required)
	RegisterHealthRoutes(e, config.Database)

	// api v1 group with auth
	v1 := e.Group("/api/v1")

	authConfig := AuthConfig{
		Validator: config.JWTValidator,
		Skipper: PublicRoutesSkipper(
			"/api/v1/leaderboard",
		),
	}
	v1.Use(RequireAuth(authConfig))

	// register domain handlers
	if config.UpdateScoresUseCase != nil && config.GetScoreUseCase != nil {
		scoreHandler := NewScoreHandler(config.UpdateScoresUseCase, config.GetScoreUseCase)
		scoreHandler.RegisterRoutes(v1)
	}

	if config.RegisterUserUseCase != nil {
		userHandler := NewUserHandler(config.RegisterUserUseCase)
		userHandler.RegisterRoutes(v1)
	}

	if config.Leaderboard != nil {
		leaderboardHandler := NewLeaderboardHandler(config.Leaderboard)
		leaderboardHandler.RegisterRoutes(v1)
	}

	if config.SubscriptionRepo != nil && config.UserRepo != nil {
		subscriptionHandler := NewSubscriptionHandler(config.SubscriptionRepo, config.UserRepo)
		subscriptionHandler.RegisterRoutes(v1)
	}

	metricsEnabled := config.Metrics != nil
	config.Logger.Info("api routes registered",
		"version", "v1",
		"health_endpoints", []string{"/health", "/ready"},
		"metrics_enabled", metricsEnabled,
		"api_prefix", "/api/v1",
	)
}
