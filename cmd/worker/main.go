package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/case-conductor/backend/internal/audit"
	"github.com/case-conductor/backend/internal/config"
	"github.com/case-conductor/backend/internal/db"
	"github.com/case-conductor/backend/internal/events"
	"github.com/case-conductor/backend/internal/metrics"
	"github.com/case-conductor/backend/internal/repositories"
	"github.com/case-conductor/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := db.Open(ctx, cfg.StorageDriver, cfg.DatabaseDSN, log)
	if err != nil {
		log.Fatal("failed to open storage", zap.Error(err))
	}
	defer conn.Close()

	if err := db.RunMigrations(ctx, conn, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RedisURL != "" {
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		publisher = events.NewRedisPublisher(rdb, log)
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	store := repositories.NewStore(conn, audit.NewPolicy(nil), m)
	resultService := services.NewResultService(store, publisher, m, log)

	// Health and metrics
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := store.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	go func() {
		addr := fmt.Sprintf(":%s", cfg.WorkerPort)
		if err := app.Listen(addr); err != nil {
			log.Error("worker http server stopped", zap.Error(err))
		}
	}()
	defer app.Shutdown()

	log.Info("worker started",
		zap.Duration("interval", cfg.ExpireInterval),
		zap.Duration("result_start_timeout", cfg.ResultStartTimeout),
	)

	if cfg.ResultStartTimeout <= 0 || cfg.ExpireInterval <= 0 {
		log.Warn("result expiry disabled")
		waitForSignal(ctx, log)
		return
	}

	// Initial run
	runExpiry(ctx, resultService, cfg.ResultStartTimeout, log)

	expireTicker := time.NewTicker(cfg.ExpireInterval)
	defer expireTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-expireTicker.C:
			runExpiry(ctx, resultService, cfg.ResultStartTimeout, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

func runExpiry(ctx context.Context, resultService *services.ResultService, olderThan time.Duration, log *zap.Logger) {
	n, err := resultService.ExpireStarted(ctx, olderThan)
	if err != nil {
		log.Error("failed to expire started results", zap.Error(err))
		return
	}
	log.Debug("expiry pass finished", zap.Int64("expired", n))
}

func waitForSignal(ctx context.Context, log *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info("shutting down worker")
	case <-ctx.Done():
	}
}
