package cmd

import (
	"context"
	"log/slog"
	"time"

	"bbmp-grievances/internal/config"
	"bbmp-grievances/internal/notify"
	"bbmp-grievances/lib/serviceutil"
	"bbmp-grievances/lib/telemetry"

	"github.com/spf13/cobra"
)

var configPath string

// cfg is loaded before any subcommand runs.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "grievances",
	Short: "grievances fetches citizen grievances from the BBMP portal and publishes them as an open dataset.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		telemetry.InitSlog(cfg.Log.Level, cfg.Log.Format)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultName, "path to the json5 config file")
}

func notifyAfter(ctx context.Context, summary notify.Summary) {
	err := notify.New(cfg.Notify).Send(ctx, summary)
	if err != nil {
		slog.WarnContext(ctx, "failed to send notification", "err", err)
	}
}

func Execute() {
	ctx := serviceutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "grievances")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}

	err = rootCmd.ExecuteContext(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := tel.Shutdown(shutdownCtx); shutdownErr != nil {
		slog.Warn("failed to flush telemetry", "err", shutdownErr)
	}

	if err != nil {
		serviceutil.Fatal("grievances failed", err)
	}
}
