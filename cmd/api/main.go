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

	httptransport "github.com/spec-kit/matchmaking-service/internal/api/http"
	"github.com/spec-kit/matchmaking-service/internal/api/http/handlers"
	"github.com/spec-kit/matchmaking-service/internal/auth"
	"github.com/spec-kit/matchmaking-service/internal/config"
	"github.com/spec-kit/matchmaking-service/internal/events"
	"github.com/spec-kit/matchmaking-service/internal/media"
	"github.com/spec-kit/matchmaking-service/internal/observability"
	"github.com/spec-kit/matchmaking-service/internal/persistence"
	"github.com/spec-kit/matchmaking-service/internal/repository"
	"github.com/spec-kit/matchmaking-service/internal/service"
	"github.com/spec-kit/matchmaking-service/internal/worker"
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

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	tx := repository.NewTransactor(pool)
	accountRepo := repository.NewAccountRepository(pool)
	packageRepo := repository.NewPackageRepository(pool)
	requestRepo := repository.NewRequestRepository(pool)
	connectionRepo := repository.NewConnectionRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	viewRepo := repository.NewProfileViewRepository(pool)
	privacyRepo := repository.NewPrivacyRepository(pool)
	preferencesRepo := repository.NewPreferencesRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	promoRepo := repository.NewPromoCodeRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	dispatcher := events.NewInMemoryDispatcher(logger)
	throttle := auth.NewRedisThrottle(redis.Client, redis.Prefix, cfg.Policy.LoginLockout())
	revoker := auth.NewRedisRevoker(redis.Client, redis.Prefix)

	store, err := media.NewLocalStore(cfg.Media)
	if err != nil {
		logger.Fatal("failed to prepare media store", zap.Error(err))
	}

	accessService := service.NewAccessService(cfg.Policy, service.AccessDependencies{
		Transactor:     tx,
		AccountRepo:    accountRepo,
		PackageRepo:    packageRepo,
		ViewRepo:       viewRepo,
		PrivacyRepo:    privacyRepo,
		ConnectionRepo: connectionRepo,
		ActivityRepo:   activityRepo,
		Dispatcher:     dispatcher,
	})
	connectionService := service.NewConnectionService(cfg.Policy, service.ConnectionDependencies{
		Transactor:       tx,
		AccountRepo:      accountRepo,
		PackageRepo:      packageRepo,
		RequestRepo:      requestRepo,
		ConnectionRepo:   connectionRepo,
		NotificationRepo: notificationRepo,
		ActivityRepo:     activityRepo,
		PrivacyRepo:      privacyRepo,
		Access:           accessService,
		Dispatcher:       dispatcher,
	})
	messagingService := service.NewMessagingService(cfg.Policy, service.MessagingDependencies{
		Transactor:       tx,
		AccountRepo:      accountRepo,
		RequestRepo:      requestRepo,
		ConnectionRepo:   connectionRepo,
		MessageRepo:      messageRepo,
		NotificationRepo: notificationRepo,
		ActivityRepo:     activityRepo,
		Dispatcher:       dispatcher,
	})
	searchService := service.NewSearchService(cfg.Policy, accountRepo, accessService, connectionService)
	profileService := service.NewProfileService(cfg.Policy, service.ProfileDependencies{
		Transactor:      tx,
		AccountRepo:     accountRepo,
		ViewRepo:        viewRepo,
		PrivacyRepo:     privacyRepo,
		PreferencesRepo: preferencesRepo,
		ActivityRepo:    activityRepo,
		ConnectionRepo:  connectionRepo,
		Access:          accessService,
		Connections:     connectionService,
		Media:           store,
	})
	subscriptionService := service.NewSubscriptionService(cfg.Payment, service.SubscriptionDependencies{
		Transactor:       tx,
		AccountRepo:      accountRepo,
		PackageRepo:      packageRepo,
		PaymentRepo:      paymentRepo,
		PromoCodeRepo:    promoRepo,
		NotificationRepo: notificationRepo,
		ActivityRepo:     activityRepo,
		Dispatcher:       dispatcher,
	})
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		Transactor:        tx,
		AccountRepo:       accountRepo,
		PasswordResetRepo: resetRepo,
		PrivacyRepo:       privacyRepo,
		ActivityRepo:      activityRepo,
		Access:            accessService,
		Throttle:          throttle,
		Revoker:           revoker,
		Dispatcher:        dispatcher,
		Logger:            logger,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification, notificationRepo, accountRepo)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), accountRepo, revoker, logger)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             cfg.App.BodyLimitBytes,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:     cfg.App.RequestTimeout(),
		CORSOrigins: cfg.App.CORSOrigins,
	})
	app.Static(cfg.Media.PublicPrefix, cfg.Media.UploadDir)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Profile:        handlers.NewProfileHandler(profileService, connectionService),
		Members:        handlers.NewMembersHandler(searchService, profileService, connectionService),
		Requests:       handlers.NewRequestsHandler(connectionService),
		Messages:       handlers.NewMessagesHandler(messagingService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Packages:       handlers.NewPackagesHandler(subscriptionService, cfg.Payment.CallbackSecret),
		AuthMiddleware: authMiddleware,
	})

	go func() {
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
