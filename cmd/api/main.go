package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/hms-gateway/internal/api/http"
	"github.com/spec-kit/hms-gateway/internal/api/http/handlers"
	"github.com/spec-kit/hms-gateway/internal/auth"
	"github.com/spec-kit/hms-gateway/internal/config"
	"github.com/spec-kit/hms-gateway/internal/dashboard"
	"github.com/spec-kit/hms-gateway/internal/events"
	"github.com/spec-kit/hms-gateway/internal/guard"
	"github.com/spec-kit/hms-gateway/internal/identity"
	"github.com/spec-kit/hms-gateway/internal/observability"
	"github.com/spec-kit/hms-gateway/internal/persistence"
	"github.com/spec-kit/hms-gateway/internal/realtime"
	"github.com/spec-kit/hms-gateway/internal/repository"
	"github.com/spec-kit/hms-gateway/internal/service"
	"github.com/spec-kit/hms-gateway/internal/session"
	"github.com/spec-kit/hms-gateway/internal/worker"
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

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var staffRepo repository.StaffRepository
	switch {
	case pg.Enabled():
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		staffRepo = repository.NewStaffRepository(pg.PoolHandle())
	case cfg.Identity.Provider == config.IdentityProviderLocal:
		logger.Warn("no postgres DSN configured, staff profiles are kept in memory")
		staffRepo = repository.NewMemoryStaffRepository()
	default:
		logger.Fatal("POSTGRES_DSN is required unless IDENTITY_PROVIDER=local")
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var identityClient identity.Client
	if cfg.Identity.Provider == config.IdentityProviderLocal {
		logger.Warn("using the local identity provider; not for production use")
		identityClient = identity.NewLocalClient(cfg.Identity)
	} else {
		identityClient = identity.NewGoTrueClient(cfg.Identity, logger)
	}

	dispatcher := events.NewInMemoryDispatcher()
	hub := realtime.NewHub(redis.Client, cfg.Realtime.ChannelPrefix, logger, metrics)
	worker.StartChangeRelay(service.NewChangeNotifier(dispatcher, hub, logger))

	resolver := service.NewProfileResolver(staffRepo, dispatcher, logger, metrics)
	authService := service.NewAuthService(service.AuthDependencies{
		Client:     identityClient,
		StaffRepo:  staffRepo,
		Resolver:   resolver,
		Dispatcher: dispatcher,
	}, logger)
	staffService := service.NewStaffService(staffRepo, dispatcher, logger)
	roleRouter := dashboard.NewRouter(logger, metrics)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, identityClient),
		Auth:      handlers.NewAuthHandler(cfg.App.Name, authService, roleRouter, session.NewCookies(cfg.Session)),
		Dashboard: handlers.NewDashboardHandler(roleRouter),
		Staff:     handlers.NewStaffHandler(staffService),
		Changes:   handlers.NewChangesHandler(hub, roleRouter, cfg.Realtime.Heartbeat(), logger),
		Guard:     guard.New(cfg.Session, identityClient, logger, metrics),
		Profiles:  auth.NewProfileMiddleware(resolver),
		Roles:     roleRouter,
		Metrics:   metrics,
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
