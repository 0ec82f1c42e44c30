package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-core/internal/api/http"
	"github.com/spec-kit/helpdesk-core/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-core/internal/auth"
	"github.com/spec-kit/helpdesk-core/internal/cache"
	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/dashboard"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/observability"
	"github.com/spec-kit/helpdesk-core/internal/persistence"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	"github.com/spec-kit/helpdesk-core/internal/service"
	"github.com/spec-kit/helpdesk-core/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var redisConn *persistence.Redis
	var cacheStore cache.Cache
	if cfg.Cache.Backend == config.CacheBackendRedis {
		conn, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		redisConn = conn
		defer redisConn.Close()
		cacheStore = cache.NewRedisCache(redisConn.Client, logger)
	} else {
		memory := cache.NewMemory(cfg.Cache.SweepInterval())
		defer memory.Close()
		cacheStore = memory
	}

	metrics := observability.NewMetrics()
	broadcaster := events.NewBroadcaster(cfg.Events.SubscriberBuffer, metrics)

	pool := pg.PoolHandle()
	retry := repository.RetryPolicy{
		Attempts: cfg.Postgres.RetryAttempts,
		Backoff:  cfg.Postgres.RetryBackoff(),
	}
	ticketRepo := repository.NewTicketRepository(pool, retry)
	commentRepo := repository.NewCommentRepository(pool, retry)
	attachmentRepo := repository.NewAttachmentRepository(pool, retry)
	reopenRepo := repository.NewReopenRepository(pool, retry)
	ratingRepo := repository.NewRatingRepository(pool, retry)
	staffRepo := repository.NewStaffRepository(pool, retry)
	userRepo := repository.NewUserRepository(pool, retry)

	ticketService := service.NewTicketService(service.Dependencies{
		TicketRepo:     ticketRepo,
		CommentRepo:    commentRepo,
		AttachmentRepo: attachmentRepo,
		ReopenRepo:     reopenRepo,
		RatingRepo:     ratingRepo,
		StaffRepo:      staffRepo,
		UserRepo:       userRepo,
		Cache:          cacheStore,
		Broadcaster:    broadcaster,
		Metrics:        metrics,
		Logger:         logger,
	})

	aggregator := dashboard.NewAggregator(dashboard.Dependencies{
		TicketRepo: ticketRepo,
		StaffRepo:  staffRepo,
		Cache:      cacheStore,
		Config:     cfg.Dashboard,
		TTL:        cfg.Cache.DashboardTTL(),
		StaticTTL:  cfg.Cache.StaticTTL(),
		Metrics:    metrics,
		Logger:     logger,
	})

	tokenManager := auth.NewTokenManager(cfg.Auth)
	authMiddleware := auth.NewAuthMiddleware(tokenManager)

	notifications := worker.StartNotificationWorker(broadcaster, logger)
	defer notifications.Stop()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisConn),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Dashboard:      handlers.NewDashboardHandler(aggregator),
		Events:         handlers.NewEventsHandler(broadcaster, logger),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
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
