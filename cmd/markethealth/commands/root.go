package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"markethealth/internal/config"
	"markethealth/lib/telemetry"

	"github.com/spf13/cobra"
)

const serviceName = "markethealth"

var (
	configPath string
	verbose    bool
	tracing    telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "markethealth",
	Short: "markethealth scrapes screener queries into a workbook and publishes it.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		var err error
		tracing, err = telemetry.SetupFromEnv(cmd.Context(), serviceName)
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		err := tracing.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "The config file to read, a .local variant is merged over it.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logs and dump http exchanges to .dev/resty.")
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	slog.Debug("loaded config", "path", configPath, "queries", len(cfg.Queries), "publish", cfg.Github.Enabled())
	return cfg, nil
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
