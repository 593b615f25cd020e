// cmd/notify-worker/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"myads-pipeline/internal/common/aws"
	"myads-pipeline/internal/common/config"
	"myads-pipeline/internal/common/database"
	"myads-pipeline/internal/common/http"
	"myads-pipeline/internal/common/logger"
	"myads-pipeline/internal/common/observability"
	"myads-pipeline/internal/common/zeebe"
	"myads-pipeline/internal/format"
	"myads-pipeline/internal/notify"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notification worker...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("notify-worker")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient *zeebe.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zeebe.NewClientWithConfig(&zeebe.ClientConfig{
			GatewayAddress:         cfg.Zeebe.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Zeebe.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init SES ---
	sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("ses client failed", zap.Error(err))
	}
	zapLog.Info("SES client initialized")

	// --- Init ADS API clients ---
	apiClient := http.NewAuthenticatedClient(config.GetDuration(cfg.API.Timeout), cfg.API.Token)
	users := notify.NewUserAPI(cfg.API.UserEmailEndpoint, apiClient)
	queries := notify.NewQueryAPI(cfg.API.VaultQueryEndpoint, apiClient)

	guard := notify.NewSentGuard(redis.Client,
		time.Duration(cfg.Notifications.SentGuardTTLHours)*time.Hour)
	formatter := format.NewFormatter(cfg.API.AbstractBaseURL)

	notifyCfg := notify.LoadConfig()
	notifyCfg.EmailEnabled = cfg.Notifications.Email.Enabled
	notifyCfg.FromEmail = cfg.Notifications.Email.FromEmail
	if cfg.Zeebe.Timeout > 0 {
		notifyCfg.Timeout = config.GetDuration(cfg.Zeebe.Timeout)
	}

	handler := notify.NewHandler(notifyCfg, sesClient, users, queries, guard, formatter, log)

	zeebeClient.GetClient().NewJobWorker().
		JobType(notify.TaskType).
		Handler(handler.Handle).
		MaxJobsActive(cfg.Zeebe.MaxJobsActive).
		Timeout(config.GetDuration(cfg.Zeebe.Timeout)).
		Open()

	zapLog.Info("worker started",
		zap.String("taskType", notify.TaskType),
		zap.Int("maxJobsActive", cfg.Zeebe.MaxJobsActive),
		zap.Int("timeout_ms", cfg.Zeebe.Timeout),
	)

	// --- Health & Metrics Server ---
	go func() {
		nethttp.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(nethttp.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		nethttp.HandleFunc("/ready", func(w nethttp.ResponseWriter, r *nethttp.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := zeebeClient.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(nethttp.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
			w.WriteHeader(nethttp.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		nethttp.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := nethttp.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping worker...")

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Notification worker stopped gracefully")
}
