package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/case-conductor/backend/internal/audit"
	"github.com/case-conductor/backend/internal/config"
	"github.com/case-conductor/backend/internal/db"
	"github.com/case-conductor/backend/internal/events"
	apphttp "github.com/case-conductor/backend/internal/http"
	"github.com/case-conductor/backend/internal/http/handlers"
	"github.com/case-conductor/backend/internal/metrics"
	"github.com/case-conductor/backend/internal/repositories"
	"github.com/case-conductor/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	conn, err := db.Open(ctx, cfg.StorageDriver, cfg.DatabaseDSN, log)
	if err != nil {
		log.Fatal("failed to open storage", zap.Error(err))
	}
	defer conn.Close()

	if err := db.RunMigrations(ctx, conn, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	// Redis is optional; without it the hub is fed directly.
	var rdb *redis.Client
	var subscriber events.Subscriber
	if cfg.RedisURL != "" {
		rdb, err = db.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		subscriber = events.NewRedisSubscriber(rdb, log)
	}
	wsHub := handlers.NewWSHub(cfg.JWTSecret, subscriber, log)

	var publisher events.Publisher = wsHub
	if rdb != nil {
		publisher = events.NewRedisPublisher(rdb, log)
	}

	// Services
	store := repositories.NewStore(conn, audit.NewPolicy(nil), m)
	cycleService := services.NewCycleService(store, publisher, m, log)
	runService := services.NewRunService(store, publisher, m, log)
	resultService := services.NewResultService(store, publisher, m, log)

	if err := wsHub.Start(ctx); err != nil {
		log.Fatal("failed to subscribe to events", zap.Error(err))
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, m, reg, apphttp.Handlers{
		Health:    handlers.NewHealthHandler(store, log),
		Meta:      handlers.NewMetaHandler(),
		Cycles:    handlers.NewCycleHandler(cycleService, runService, log),
		Runs:      handlers.NewRunHandler(runService, log),
		Execution: handlers.NewExecutionHandler(resultService, log),
		WS:        wsHub,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr), zap.String("storage", conn.Dialect()))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
