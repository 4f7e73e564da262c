package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/result-service/internal/api/http"
	"github.com/spec-kit/result-service/internal/api/http/handlers"
	"github.com/spec-kit/result-service/internal/auth"
	"github.com/spec-kit/result-service/internal/config"
	"github.com/spec-kit/result-service/internal/events"
	"github.com/spec-kit/result-service/internal/observability"
	"github.com/spec-kit/result-service/internal/persistence"
	"github.com/spec-kit/result-service/internal/repository"
	"github.com/spec-kit/result-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	required := map[string]handlers.Pinger{}
	optional := map[string]handlers.Pinger{"redis": redis}

	var (
		identityRepo repository.IdentityRepository
		resultRepo   repository.ResultRepository
	)
	switch cfg.Storage.Mode {
	case config.StorageModePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		identityRepo = repository.NewIdentityRepository(pg.DB)
		resultRepo = repository.NewResultRepository(pg.DB)
		required["postgres"] = pg
	default:
		logger.Warn("using in-memory storage; data is lost on restart")
		identityRepo = repository.NewMemoryIdentityRepository()
		resultRepo = repository.NewMemoryResultRepository()
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	notifications := service.NewNotificationService(dispatcher, events.NewRedisOutbox(redis.Client, cfg.Notification.QueueKey), logger)
	notifications.RegisterHandlers()

	authService, err := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		IdentityRepo: identityRepo,
		Logger:       logger,
		Metrics:      metrics,
	})
	if err != nil {
		logger.Fatal("failed to init auth service", zap.Error(err))
	}
	resultService := service.NewResultService(service.ResultDependencies{
		ResultRepo:   resultRepo,
		IdentityRepo: identityRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Metrics:      metrics,
	})

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.IsProduction(),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, required, optional),
		Auth:           handlers.NewAuthHandler(authService),
		Results:        handlers.NewResultsHandler(resultService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager()),
		LoginLimiter:   httptransport.NewLoginRateLimiter(redis.Client, cfg.RateLimit.LoginPerMinute, time.Minute, logger),
		Metrics:        adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	})

	go func() {
		logger.Info("http server starting",
			zap.String("addr", cfg.App.Addr()),
			zap.String("storage_mode", string(cfg.Storage.Mode)))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
