package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/history-diff-service/internal/api/http"
	"github.com/spec-kit/history-diff-service/internal/api/http/handlers"
	"github.com/spec-kit/history-diff-service/internal/artifact"
	"github.com/spec-kit/history-diff-service/internal/auth"
	"github.com/spec-kit/history-diff-service/internal/azdo"
	"github.com/spec-kit/history-diff-service/internal/config"
	"github.com/spec-kit/history-diff-service/internal/cutout"
	"github.com/spec-kit/history-diff-service/internal/events"
	"github.com/spec-kit/history-diff-service/internal/observability"
	"github.com/spec-kit/history-diff-service/internal/persistence"
	"github.com/spec-kit/history-diff-service/internal/repository"
	"github.com/spec-kit/history-diff-service/internal/service"
	"github.com/spec-kit/history-diff-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	cache := persistence.NewStringCache(redis)

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	configRepo := repository.NewConfigRepository(pool)

	metrics := observability.NewMetrics()

	upstream := azdo.New(cfg.Upstream.BaseURL,
		azdo.WithPAT(cfg.Upstream.PAT),
		azdo.WithTimeout(cfg.Upstream.Timeout()))
	routes := azdo.NewRouteService(cfg.Upstream.BaseURL, cache, cfg.Upstream.CacheTTL(), logger)
	links := artifact.NewResolver(routes, logger)
	sizer := cutout.NewHTTPImageSizer(nil, cache, cfg.Upstream.CacheTTL(), logger)

	sessions := service.NewSessionManager(cfg.Pipeline.SessionTTL(), cfg.Pipeline.Debounce())
	sessions.StartJanitor(ctx)

	authService := service.NewAuthService(*cfg, userRepo)
	settingsService := service.NewSettingsService(configRepo, logger)
	historyService := service.NewHistoryService(upstream, links, sizer, sessions, metrics, logger, cfg.Pipeline)

	dispatcher := events.NewInMemoryDispatcher()
	eventService := service.NewEventService(dispatcher)
	worker.StartInvalidationWorker(dispatcher, sessions, logger)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		History:        handlers.NewHistoryHandler(historyService, settingsService),
		Settings:       handlers.NewSettingsHandler(settingsService),
		Events:         handlers.NewEventsHandler(eventService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
