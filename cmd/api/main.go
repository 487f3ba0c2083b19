package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/calloway-labs/dispatch-backend/api/routes"
	"github.com/calloway-labs/dispatch-backend/internal/assignment"
	"github.com/calloway-labs/dispatch-backend/internal/notifications"
	"github.com/calloway-labs/dispatch-backend/internal/notify"
	"github.com/calloway-labs/dispatch-backend/internal/store"
	"github.com/calloway-labs/dispatch-backend/pkg/config"
	"github.com/calloway-labs/dispatch-backend/pkg/db"
	"github.com/calloway-labs/dispatch-backend/pkg/logger"
	"github.com/calloway-labs/dispatch-backend/pkg/metrics"
	"github.com/calloway-labs/dispatch-backend/pkg/migrate"
	"github.com/calloway-labs/dispatch-backend/pkg/pubsub"
	"github.com/calloway-labs/dispatch-backend/pkg/redis"
	"github.com/calloway-labs/dispatch-backend/pkg/textgen"
)

const shutdownGrace = 15 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	requireResource(ctx, logg, "database", err)

	requireResource(ctx, logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	var pubsubClient *pubsub.Client
	if cfg.App.IsProd() {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		requireResource(ctx, logg, "pubsub", err)
	}

	registry := prometheus.NewRegistry()
	assignmentMetrics := metrics.NewAssignmentMetrics(registry)
	notifyMetrics := metrics.NewNotifyMetrics(registry)

	pool, err := parseCandidatePool(cfg.Assignment.CandidatePool)
	requireResource(ctx, logg, "candidate pool", err)

	dispatcher, err := notify.NewDispatcher(
		cfg.Notify,
		buildRenderer(ctx, cfg, logg),
		buildDeliverer(pubsubClient, logg),
		buildCounter(cfg, redisClient),
		logg,
		notifyMetrics,
	)
	requireResource(ctx, logg, "notify dispatcher", err)
	dispatcher.Start()

	var sink assignment.EventSink = assignment.NopSink{}
	if cfg.Notify.Enabled {
		sink = dispatcher
	}

	itemStore := store.NewWithRetry(store.NewGorm(dbClient.DB()), cfg.Assignment.StoreRetries)
	assignmentSvc, err := assignment.NewService(
		itemStore,
		assignment.NewPoolProvider(pool),
		sink,
		cfg.Assignment,
		logg,
		assignmentMetrics,
		nil,
	)
	requireResource(ctx, logg, "assignment service", err)

	notificationsSvc, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	requireResource(ctx, logg, "notifications service", err)

	var pubsubPinger interface {
		Ping(context.Context) error
	}
	if pubsubClient != nil {
		pubsubPinger = pubsubClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			pubsubPinger,
			registry,
			assignmentSvc,
			notificationsSvc,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
	}

	logg.Info(runCtx, "shutting down api server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(runCtx, "error draining http server", err)
	}

	assignmentSvc.Shutdown()
	dispatcher.Close()

	var closeErr error
	if pubsubClient != nil {
		closeErr = multierr.Append(closeErr, pubsubClient.Close())
	}
	closeErr = multierr.Append(closeErr, redisClient.Close())
	closeErr = multierr.Append(closeErr, dbClient.Close())
	if closeErr != nil {
		logg.Error(runCtx, "error closing resources", closeErr)
		os.Exit(1)
	}
}

func buildRenderer(ctx context.Context, cfg *config.Config, logg *logger.Logger) notify.Renderer {
	if cfg.TextGen.APIKey == "" {
		logg.Warn(ctx, "textgen api key missing, using static notification messages")
		return notify.StaticRenderer{}
	}

	client, err := textgen.NewClient(
		cfg.TextGen.APIKey,
		textgen.WithBaseURL(cfg.TextGen.BaseURL),
		textgen.WithModel(cfg.TextGen.Model),
		textgen.WithHTTPClient(&http.Client{Timeout: cfg.TextGen.Timeout}),
	)
	requireResource(ctx, logg, "textgen client", err)

	renderer, err := notify.NewTextGenRenderer(client)
	requireResource(ctx, logg, "notification renderer", err)
	return renderer
}

func buildDeliverer(pubsubClient *pubsub.Client, logg *logger.Logger) notify.Deliverer {
	if pubsubClient == nil {
		return notify.NewLogDeliverer(logg)
	}
	deliverer, err := notify.NewPubSubDeliverer(pubsubClient.NotificationPublisher())
	requireResource(context.Background(), logg, "notification deliverer", err)
	return deliverer
}

func buildCounter(cfg *config.Config, redisClient *redis.Client) notify.Counter {
	return notify.NewRedisCounter(redisClient, cfg.Notify.CounterTTL)
}

func parseCandidatePool(raw []string) ([]uuid.UUID, error) {
	pool := make([]uuid.UUID, 0, len(raw))
	for _, entry := range raw {
		id, err := uuid.Parse(entry)
		if err != nil {
			return nil, fmt.Errorf("candidate pool entry %q: %w", entry, err)
		}
		pool = append(pool, id)
	}
	return pool, nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
