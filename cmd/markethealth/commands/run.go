package commands

import (
	"log/slog"
	"net/http"
	"time"

	"markethealth/internal/components/chrono"
	"markethealth/internal/health"
	"markethealth/internal/notify"
	"markethealth/internal/scheduler"
	"markethealth/lib/serviceutil"

	"github.com/spf13/cobra"
)

var runNow bool

func init() {
	runCmd.Flags().BoolVar(&runNow, "now", false, "Run a batch immediately instead of waiting for the first scheduled one.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--now]",
	Short: "Runs batches on the configured schedule while the market is open.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to load config", err)
		}
		a, err := newApp(cfg)
		if err != nil {
			serviceutil.Fatal("failed to initialize", err)
		}
		defer a.Close()

		cat, err := cfg.Catalog()
		if err != nil {
			serviceutil.Fatal("invalid queries", err)
		}
		gate, err := a.gate()
		if err != nil {
			serviceutil.Fatal("invalid market calendar", err)
		}
		if !cfg.Github.Enabled() {
			slog.Warn("github is not configured, workbooks will only be written locally")
		}

		tracker := health.NewTracker(health.Options{
			Threshold: cfg.Retry.BreakerThreshold,
			Cooldown:  time.Duration(cfg.Retry.BreakerCooldownMinutes) * time.Minute,
		})
		tracker.OnTransition(func(tr health.Transition) {
			slog.Info("health changed", "from", tr.From, "to", tr.To)
		})
		if cfg.Slack.WebhookUrl != "" {
			tracker.OnTransition(notify.NewSlack(cfg.Slack.WebhookUrl, serviceName, a.tel).Listener(ctx))
		}

		mux := http.NewServeMux()
		mux.Handle("/healthz", tracker)
		mux.Handle("/metrics", a.metrics.Handler())
		go func() {
			err := serviceutil.StartHttpServer(ctx, cfg.Status.Port, mux)
			if err != nil {
				slog.Error("status server stopped", "err", err)
			}
		}()
		a.metrics.SampleHost(ctx)

		s := scheduler.New(
			chrono.NewStandardCron(a.time.Location(), a.tel),
			a.runner(cat, true),
			scheduler.Options{
				Spec:   cfg.Schedule.Cron,
				Gate:   gate,
				Time:   a.time,
				Health: tracker,
				Retry: scheduler.RetryOptions{
					MaxRetries:      uint64(cfg.Retry.MaxRetries),
					InitialInterval: time.Duration(cfg.Retry.InitialIntervalSeconds) * time.Second,
					MaxInterval:     time.Duration(cfg.Retry.MaxIntervalSeconds) * time.Second,
				},
				Metrics: a.metrics,
			},
			a.tel,
		)

		slog.Info(
			"scheduler started",
			"cron", cfg.Schedule.Cron,
			"queries", cat.Len(),
			"market_hours", !cfg.Schedule.IgnoreMarketHours,
		)
		err = s.Run(ctx, runNow)
		if err != nil {
			serviceutil.Fatal("scheduler failed", err)
		}
		slog.Info("stopped")
	},
}
