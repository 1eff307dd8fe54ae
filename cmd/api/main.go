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

	httptransport "github.com/plantops/escalation-service/internal/api/http"
	"github.com/plantops/escalation-service/internal/api/http/handlers"
	"github.com/plantops/escalation-service/internal/auth"
	"github.com/plantops/escalation-service/internal/blob"
	"github.com/plantops/escalation-service/internal/config"
	"github.com/plantops/escalation-service/internal/directory"
	"github.com/plantops/escalation-service/internal/events"
	"github.com/plantops/escalation-service/internal/observability"
	"github.com/plantops/escalation-service/internal/persistence"
	"github.com/plantops/escalation-service/internal/realtime"
	"github.com/plantops/escalation-service/internal/repository"
	"github.com/plantops/escalation-service/internal/service"
	"github.com/plantops/escalation-service/internal/sla"
	"github.com/plantops/escalation-service/internal/worker"
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

	pool := pg.PoolHandle()
	store := repository.NewStore(pool)
	dir := directory.NewDirectory(pool)
	perms := directory.NewPermissionChecker()
	slaCalc := sla.NewCalculator(cfg.SLA)

	blobStore, err := blob.NewDiskStore(cfg.Blob.Dir, cfg.Blob.BaseURL)
	if err != nil {
		logger.Fatal("failed to init blob store", zap.Error(err))
	}

	hub := realtime.NewHub(cfg.Realtime.SessionBuffer, logger)
	bridge := realtime.NewBridge(redis.Client, cfg.Realtime.Channel, hub, logger)
	bridge.Run(ctx)

	dispatcher := events.NewInMemoryDispatcher()

	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:                        store,
		Directory:                    dir,
		PermissionChecker:            perms,
		SLACalculator:                slaCalc,
		BlobStore:                    blobStore,
		Dispatcher:                   dispatcher,
		RecomputeSLAOnPriorityChange: cfg.SLA.RecomputeOnPriorityChange,
	})
	notificationService := service.NewNotificationService(store, dir, bridge, logger)
	inboxService := service.NewInboxService(store)

	worker.StartNotificationWorker(dispatcher, notificationService)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewMiddleware(tokens, dir)

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: 32 * 1024 * 1024,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	writeTimeout := time.Duration(cfg.Realtime.WriteTimeoutMS) * time.Millisecond
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Inbox:          handlers.NewInboxHandler(inboxService),
		WS:             handlers.NewWSHandler(hub, writeTimeout, logger),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	hub.Shutdown()
	bridge.Close()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
