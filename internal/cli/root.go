package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/profilecache/internal/control"
	"github.com/vietddude/profilecache/internal/core/config"
)

var (
	cfgPath   string
	isDebug   bool
	serverURL string
	warmIDs   []string
)

var rootCmd = &cobra.Command{
	Use:   "profilecache",
	Short: "Profile cache service",
	Long:  `profilecache serves subject profiles through memory, Redis and PostgreSQL tiers with retry and fallback recovery.`,
	Run:   runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the profile cache server",
	Run:   runServe,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "address of a running server")
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().StringSliceVar(&warmIDs, "warm", nil, "subject ids to prefetch on startup")
	}
	rootCmd.AddCommand(serveCmd)
}

func setupLogging(level string) {
	slogLevel := slog.LevelInfo
	switch {
	case isDebug || level == "debug":
		slogLevel = slog.LevelDebug
	case level == "warn":
		slogLevel = slog.LevelWarn
	case level == "error":
		slogLevel = slog.LevelError
	}

	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
}

func runServe(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	// Load Configuration
	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg.Logging.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := control.NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize profile cache", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start profile cache", "error", err)
		os.Exit(1)
	}

	if len(warmIDs) > 0 {
		go func() {
			if _, err := app.Profiles().Warm(ctx, warmIDs); err != nil {
				slog.Warn("Cache warm-up aborted", "error", err)
			}
		}()
	}

	slog.Info("Profile cache started", "config", cfgPath)

	sig := <-sigChan
	slog.Info("Received signal, shutting down...", "signal", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}
}
