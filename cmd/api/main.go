package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/devlab/internal/api/http"
	"github.com/spec-kit/devlab/internal/api/http/handlers"
	"github.com/spec-kit/devlab/internal/auth"
	"github.com/spec-kit/devlab/internal/config"
	"github.com/spec-kit/devlab/internal/events"
	"github.com/spec-kit/devlab/internal/notify"
	"github.com/spec-kit/devlab/internal/observability"
	"github.com/spec-kit/devlab/internal/persistence"
	"github.com/spec-kit/devlab/internal/repository"
	"github.com/spec-kit/devlab/internal/repository/memory"
	"github.com/spec-kit/devlab/internal/service"
	"github.com/spec-kit/devlab/internal/worker"
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

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var store repository.Store
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewStore(pg.PoolHandle())
	} else {
		store = memory.NewStore()
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var revocations repository.RevocationRepository
	if redis.Enabled() {
		revocations = repository.NewRedisRevocationRepository(redis.Client, cfg.App.Name)
	} else {
		revocations = memory.NewRevocations()
	}

	dispatcher := events.NewInMemoryDispatcher()
	mailer := notify.New(cfg.Mail, logger)
	notifications := service.NewNotificationService(dispatcher, mailer, logger)

	var forwarder *events.NATSForwarder
	if cfg.NATS.URL != "" {
		forwarder, err = events.ConnectNATS(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger)
		if err != nil {
			logger.Warn("nats unavailable; events stay in process", zap.Error(err))
			forwarder = nil
		} else {
			defer forwarder.Close()
		}
	}
	worker.StartNotificationWorker(dispatcher, notifications, forwarder)

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL(), cfg.App.Name)

	userService := service.NewUserService(store, hasher, logger, nil)
	created, err := userService.EnsureCoordinator(ctx, service.BootstrapInput{
		Username: cfg.Bootstrap.Username,
		Email:    cfg.Bootstrap.Email,
		Password: cfg.Bootstrap.Password,
	})
	if err != nil {
		logger.Fatal("failed to bootstrap coordinator", zap.Error(err))
	}
	if created {
		logger.Info("bootstrap coordinator created", zap.String("username", cfg.Bootstrap.Username))
	}

	authService := service.NewAuthService(service.AuthDependencies{
		Users:       store.Users(),
		Revocations: revocations,
		Tokens:      tokens,
		Hasher:      hasher,
		Logger:      logger,
	})
	registrationService := service.NewRegistrationService(service.RegistrationDependencies{
		Store:       store,
		Hasher:      hasher,
		Numbers:     service.RandomDigits{Length: cfg.Registration.NumberLength},
		Notifier:    notifications,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
		MaxAttempts: cfg.Registration.MaxAttempts,
	})
	directoryService := service.NewDirectoryService(store, logger)
	dashboardService := service.NewDashboardService(store, service.Contact{Email: cfg.App.ContactEmail})

	authMiddleware := auth.NewAuthMiddleware(tokens, store.Users(), revocations, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Registrations:  handlers.NewRegistrationsHandler(registrationService),
		Users:          handlers.NewUsersHandler(userService),
		Projects:       handlers.NewProjectsHandler(directoryService),
		Teams:          handlers.NewTeamsHandler(directoryService),
		Dashboard:      handlers.NewDashboardHandler(dashboardService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
