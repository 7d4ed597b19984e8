package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/cataloger/config"
)

var (
	cfg *config.Config

	envFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:           "cataloger",
	Short:         "cataloger harvests product listings from dynamically loaded catalog pages.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// ── 1. Load configuration (.env, then environment, then flags) ──
		config.LoadDotEnv(envFile)
		cfg = config.Load()
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.Log.Format = logFormat
		}

		// ── 2. Initialise structured logging ────────────────────────
		initLogger(cfg.Log)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file; missing files are ignored.")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error.")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log format: json or text.")
}

// initLogger configures slog based on the LogConfig. Logs go to stderr so
// stdout stays free for sink output.
func initLogger(lc config.LogConfig) {
	opts := &slog.HandlerOptions{Level: parseLevel(lc.Level)}

	var handler slog.Handler
	if lc.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
