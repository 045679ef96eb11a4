package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wayfarerhq/impact/internal/application"
	"github.com/wayfarerhq/impact/internal/infrastructure/api"
	"github.com/wayfarerhq/impact/internal/infrastructure/auth"
	"github.com/wayfarerhq/impact/internal/infrastructure/cache"
	"github.com/wayfarerhq/impact/internal/infrastructure/config"
	"github.com/wayfarerhq/impact/internal/infrastructure/database"
	"github.com/wayfarerhq/impact/internal/infrastructure/logging"
	"github.com/wayfarerhq/impact/internal/infrastructure/metrics"
	"github.com/wayfarerhq/impact/internal/infrastructure/postgres"
	"github.com/wayfarerhq/impact/internal/infrastructure/worker"
)

func main() {
	logger := logging.New()
	logger.Info("impact starting up")

	if err := run(logger); err != nil {
		logger.Error("application failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(logger *logging.Logger) error {
	// load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err.Error())
		return err
	}

	// establish database connection
	conn, err := database.New(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	// run migrations
	migrator := database.NewMigrator(conn, logger)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := migrator.Run(ctx); err != nil {
		return err
	}

	// verify health after migrations
	if err := conn.HealthCheck(ctx); err != nil {
		return err
	}

	logger.Info("impact infrastructure ready", "schema", conn.Schema())

	// initialize prometheus metrics
	appMetrics := metrics.New()
	logger.Info("prometheus metrics initialized")

	// initialize jwt validator
	jwtValidator := auth.NewJWTValidator(cfg.Auth.JWTSecret)

	// initialize repositories
	pool := conn.Pool()
	userRepo := postgres.NewUserRepository(pool)
	recordRepo := postgres.NewScoreRecordRepository(pool)
	webhookSubRepo := postgres.NewWebhookSubscriptionRepository(pool)
	unitOfWork := postgres.NewUnitOfWork(pool)

	// initialize redis (optional - disabled if REDIS_URL is empty)
	var redisClient *cache.RedisClient
	if cfg.Redis.URL != "" {
		redisClient, err = cache.NewRedisClient(cache.RedisConfig{URL: cfg.Redis.URL}, logger)
		if err != nil {
			logger.Error("failed to create redis client", "error", err.Error())
			return err
		}

		if err := redisClient.Connect(ctx); err != nil {
			logger.Warn("redis connection failed, continuing without cache", "error", err.Error())
			redisClient = nil
		} else {
			defer redisClient.Close()
			logger.Info("redis leaderboard cache enabled")
		}
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())

	// initialize webhook worker for score milestone notifications
	webhookWorkerConfig := worker.DefaultWebhookWorkerConfig()
	webhookWorker := worker.NewWebhookWorker(webhookSubRepo, webhookWorkerConfig, logger)
	webhookWorker.Start(workerCtx)

	// initialize use cases
	engineParams := cfg.Engine.Params()

	updateScoresUseCase := application.NewUpdateScoresUseCase(
		recordRepo,
		unitOfWork,
		engineParams,
		logger,
	).WithNotifier(webhookWorker).WithMetrics(appMetrics)

	if redisClient != nil {
		updateScoresUseCase = updateScoresUseCase.WithLeaderboard(redisClient)
	}

	getScoreUseCase := application.NewGetScoreUseCase(recordRepo, logger)
	registerUserUseCase := application.NewRegisterUserUseCase(userRepo, recordRepo, unitOfWork, logger)

	// leaderboard reads go redis-first with postgres fallback
	leaderboard := cache.NewLeaderboardReader(redisClient, recordRepo, userRepo, logger)

	// keep the redis ranking in sync with postgres
	var refreshWorker *worker.LeaderboardRefreshWorker
	if redisClient != nil {
		refreshWorker = worker.NewLeaderboardRefreshWorker(
			recordRepo,
			redisClient,
			worker.DefaultLeaderboardRefreshConfig(),
			logger,
		)
		refreshWorker.Start(workerCtx)
	}

	// initialize http server
	serverConfig := api.DefaultServerConfig()
	if port := os.Getenv("PORT"); port != "" {
		serverConfig.Port = ":" + port
	}

	server := api.NewServer(serverConfig, logger)

	// register routes
	api.RegisterRoutes(server.Echo(), api.RouterConfig{
		UpdateScoresUseCase: updateScoresUseCase,
		GetScoreUseCase:     getScoreUseCase,
		RegisterUserUseCase: registerUserUseCase,
		Leaderboard:         leaderboard,
		SubscriptionRepo:    webhookSubRepo,
		UserRepo:            userRepo,
		JWTValidator:        jwtValidator,
		Database:            conn,
		Logger:              logger,
		Metrics:             appMetrics,
	})

	// start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Error("http server error", "error", err.Error())
		}
	}()

	// wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("impact shutting down")

	// drain the http server first: in-flight requests may still queue
	// milestones, so the workers' channels must outlive them
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer shutdownCancel()

	shutdownErr := server.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		logger.Error("http server shutdown error", "error", shutdownErr.Error())
	}

	// stop background workers now that no requests are in flight
	workerCancel()

	if refreshWorker != nil {
		refreshWorker.Stop()
	}

	// stop webhook worker and drain buffer
	webhookWorker.Stop()

	if shutdownErr != nil {
		return shutdownErr
	}

	logger.Info("impact shutdown complete")
	return nil
}
