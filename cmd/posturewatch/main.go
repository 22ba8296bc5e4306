// Package main provides the CLI entrypoint for posturewatch.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/care/posturewatch/internal/config"
	"github.com/care/posturewatch/internal/core"
	"github.com/care/posturewatch/internal/logging"
	"github.com/care/posturewatch/internal/report"
	"github.com/care/posturewatch/internal/store"
)

const defaultConfigPath = "config/posturewatch.yaml"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	configPath   string
	envPath      string
	debug        bool
	historyLimit int
)

// HighGUI windows must be driven from the main OS thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "posturewatch",
		Short:        "Webcam posture monitor",
		SilenceUsage: true,
		RunE:         runMonitor,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env-file", ".env", "optional .env file with POSTUREWATCH_* overrides")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent monitoring sessions",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVarP(&historyLimit, "last", "n", 10, "number of sessions to show")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "posturewatch", version)
		},
	}

	rootCmd.AddCommand(historyCmd, versionCmd)
	return rootCmd
}

// loadConfig reads the .env file and the configuration. A missing file at
// the default path falls back to built-in defaults.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envPath); err != nil {
		return nil, err
	}
	path := configPath
	if path == defaultConfigPath {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}
	return config.Load(path)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	closer, err := logging.Setup(cfg.Log, debug)
	if err != nil {
		return err
	}
	defer closer.Close()

	slog.Info("starting posturewatch",
		"version", version,
		"config", configPath,
		"instance_id", cfg.InstanceID,
		"debug", debug,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitor, err := core.NewFromConfig(ctx, cfg)
	if err != nil {
		slog.Error("failed to create posture monitor", "error", err)
		return err
	}

	if cfg.Health.Listen != "" {
		monitor.StartHealthServer(ctx, cfg.Health.Listen)
	}

	if err := monitor.Run(ctx); err != nil {
		slog.Error("posture monitor failed", "error", err)
		return err
	}

	slog.Info("posturewatch stopped")
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("session history is disabled in the configuration")
	}

	st, err := store.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.RecentSessions(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), report.RenderHistory(records))
	return nil
}
