package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/case-conductor/backend/internal/config"
	"github.com/case-conductor/backend/internal/db"
	"github.com/case-conductor/backend/internal/events"
	"go.uber.org/zap"
)

// Notify bridge: subscribes to test execution events on Redis and
// forwards them to a webhook.
func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	if cfg.RedisURL == "" || cfg.NotifyWebhookURL == "" {
		log.Fatal("REDIS_URL and NOTIFY_WEBHOOK_URL are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	subscriber := events.NewRedisSubscriber(rdb, log)
	client := &http.Client{Timeout: 10 * time.Second}

	log.Info("notify-bridge started", zap.String("webhook", cfg.NotifyWebhookURL))

	err = subscriber.Subscribe(ctx, events.StreamTestExecution, func(event events.Event) {
		log.Info("forwarding event", zap.String("type", event.Type))
		forward(ctx, client, cfg.NotifyWebhookURL, event, log)
	})
	if err != nil {
		log.Fatal("failed to subscribe", zap.Error(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down notify-bridge")
	cancel()
}

func forward(ctx context.Context, client *http.Client, url string, event events.Event, log *zap.Logger) {
	body, err := json.Marshal(map[string]any{
		"type":    event.Type,
		"text":    summary(event),
		"at":      event.At,
		"payload": event.Payload,
	})
	if err != nil {
		log.Warn("failed to encode event", zap.String("type", event.Type), zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Warn("failed to build webhook request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		log.Warn("failed to forward event", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		log.Warn("webhook returned error status", zap.Int("status", resp.StatusCode))
	}
}

func summary(event events.Event) string {
	switch event.Type {
	case events.EventResultChanged:
		return fmt.Sprintf("Result %v: %v -> %v", event.Payload["result_id"], event.Payload["old_status"], event.Payload["new_status"])
	case events.EventResultsApproved:
		return fmt.Sprintf("%v results approved", event.Payload["count"])
	case events.EventResultsExpired:
		return fmt.Sprintf("%v started results expired", event.Payload["count"])
	case events.EventAssignmentCreated:
		return fmt.Sprintf("Tester %v assigned in run %v", event.Payload["tester_id"], event.Payload["run_id"])
	}
	return fmt.Sprintf("Event: %s", event.Type)
}
