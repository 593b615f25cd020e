// cmd/scheduler/schedule.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"myads-pipeline/internal/common/config"
	"myads-pipeline/internal/common/logger"
	"myads-pipeline/internal/dispatch"
	"myads-pipeline/internal/watermark"
)

func scheduleCmd() *cobra.Command {
	var adminEmail string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Runs gated dispatch passes on the configured cron schedule",
		Long: `myads-scheduler schedule [--admin-email=<address>]

Stays in the foreground and triggers a daily and a weekly dispatch pass
at the cron expressions configured under schedule.daily and schedule.weekly.`,
		Run: func(cmd *cobra.Command, args []string) {
			zapLog := logger.New("info", "console")
			defer zapLog.Sync()
			log := logger.NewZapAdapter(zapLog)

			cfg, err := config.Load()
			if err != nil {
				zapLog.Fatal("config load failed", zap.Error(err))
			}
			if cfg.Schedule.Daily == "" && cfg.Schedule.Weekly == "" {
				zapLog.Fatal("no cron schedule configured: set schedule.daily or schedule.weekly")
			}

			ctx := cmd.Context()

			a, err := newApp(ctx, cfg, log, adminEmail)
			if err != nil {
				zapLog.Fatal("pipeline init failed", zap.Error(err))
			}
			defer a.close()

			c := cron.New()

			if cfg.Schedule.Daily != "" {
				if _, err := c.AddFunc(cfg.Schedule.Daily, scheduledRun(a, watermark.Daily, log)); err != nil {
					zapLog.Fatal("invalid schedule.daily cron expression", zap.Error(err))
				}
				zapLog.Info("daily pass scheduled", zap.String("cron", cfg.Schedule.Daily))
			}
			if cfg.Schedule.Weekly != "" {
				if _, err := c.AddFunc(cfg.Schedule.Weekly, scheduledRun(a, watermark.Weekly, log)); err != nil {
					zapLog.Fatal("invalid schedule.weekly cron expression", zap.Error(err))
				}
				zapLog.Info("weekly pass scheduled", zap.String("cron", cfg.Schedule.Weekly))
			}

			c.Start()
			zapLog.Info("scheduler started")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh

			zapLog.Info("Shutdown signal received, stopping scheduler...")
			<-c.Stop().Done()
			zapLog.Info("Scheduler stopped gracefully")
		},
	}

	cmd.Flags().StringVar(&adminEmail, "admin-email", "", "send run status emails to this address")

	return cmd
}

func scheduledRun(a *app, freq watermark.Frequency, log logger.Logger) func() {
	return func() {
		opts := dispatch.RunOptions{Frequency: freq}
		if err := a.runFrequency(context.Background(), opts); err != nil {
			log.WithError(err).Error("scheduled dispatch run failed", map[string]interface{}{
				"frequency": string(freq),
			})
		}
	}
}
