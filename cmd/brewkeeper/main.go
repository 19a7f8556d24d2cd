// Package main is the CLI entry point for brewkeeper.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/brewkeeper/internal/daemon"
	"github.com/eliteGoblin/brewkeeper/internal/infra"
	"github.com/eliteGoblin/brewkeeper/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "brewkeeper",
	Short: "Unattended Homebrew maintenance",
	Long: `brewkeeper keeps a Homebrew installation healthy without human
attention: it refreshes the package index, upgrades every outdated formula
and cask under a per-package time budget, and cleans up stale artifacts.

Any brew invocation that asks for input is killed instead of being allowed
to hang an unattended run.`,
	Version: Version,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one maintenance pass (update, upgrade, cleanup)",
	Long: `Runs exactly one maintenance pass and exits. The exit code is zero when
the update, outdated and cleanup phases succeed, even if individual package
upgrades failed; those are reported in the log instead.`,
	RunE: runOnce,
}

var outdatedCmd = &cobra.Command{
	Use:   "outdated",
	Short: "List outdated packages without upgrading anything",
	RunE:  runOutdated,
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run maintenance passes on a fixed interval",
	Long: `Runs maintenance passes on a fixed interval until interrupted.
A failed pass is logged and the loop keeps going.`,
	RunE: runDaemon,
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install a LaunchAgent that runs maintenance daily",
	RunE:  runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the maintenance LaunchAgent",
	RunE:  runUninstall,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	upgradeTimeout time.Duration
	interval       time.Duration
	skipFirstPass  bool
	jsonOutput     bool
)

func init() {
	runCmd.Flags().DurationVar(&upgradeTimeout, "upgrade-timeout", usecase.DefaultConfig().UpgradeTimeout,
		"Wall-clock budget for upgrading a single package")
	daemonCmd.Flags().DurationVar(&upgradeTimeout, "upgrade-timeout", usecase.DefaultConfig().UpgradeTimeout,
		"Wall-clock budget for upgrading a single package")
	daemonCmd.Flags().DurationVar(&interval, "interval", daemon.DefaultSchedulerConfig().Interval,
		"Time between maintenance passes")
	daemonCmd.Flags().BoolVar(&skipFirstPass, "skip-first-pass", false,
		"Wait for the first interval instead of running immediately")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(outdatedCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(versionCmd)
}

func newMaintainer(logger *zap.Logger) *usecase.Maintainer {
	executor := infra.NewBrewExecutor(logger)
	decoder := infra.NewOutdatedDecoder()
	config := usecase.Config{UpgradeTimeout: upgradeTimeout}
	return usecase.NewMaintainer(executor, decoder, config, logger)
}

func runOnce(cmd *cobra.Command, args []string) error {
	logger := createLogger()
	defer func() { _ = logger.Sync() }()

	logger.Info("maintenance run starting",
		zap.String("version", Version),
		zap.Duration("upgrade_timeout", upgradeTimeout))

	report, err := newMaintainer(logger).Run(cmd.Context())
	if err != nil {
		logger.Error("maintenance run aborted", zap.Error(err))
		return err
	}

	logger.Info("maintenance run complete",
		zap.Duration("duration", report.Duration),
		zap.Int("outdated", len(report.Outdated.All())),
		zap.Int("failed_upgrades", len(report.FailedUpgrades)))
	return nil
}

func runOutdated(cmd *cobra.Command, args []string) error {
	logger := createLogger()
	defer func() { _ = logger.Sync() }()

	report, err := newMaintainer(logger).FindOutdated(cmd.Context())
	if err != nil {
		return err
	}

	if report.Empty() {
		fmt.Println("Everything is up to date.")
		return nil
	}

	fmt.Printf("\n=== Outdated Packages ===\n")
	fmt.Printf("\nFormulae (%d):\n", len(report.Formulae))
	for _, pkg := range report.Formulae {
		fmt.Printf("  - %s\n", pkg)
	}
	fmt.Printf("\nCasks (%d):\n", len(report.Casks))
	for _, pkg := range report.Casks {
		fmt.Printf("  - %s\n", pkg)
	}
	fmt.Println("\n=========================")
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	logger := createLogger()
	defer func() { _ = logger.Sync() }()

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	config := daemon.SchedulerConfig{
		Interval:   interval,
		RunOnStart: !skipFirstPass,
	}
	scheduler := daemon.NewScheduler(config, newMaintainer(logger), logger)

	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runInstall(cmd *cobra.Command, args []string) error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	manager := infra.NewLaunchdManager()
	if manager.IsInstalled() {
		fmt.Println("brewkeeper LaunchAgent is already installed.")
		fmt.Printf("Plist: %s\n", manager.PlistPath())
		return nil
	}

	if err := manager.Install(execPath); err != nil {
		return fmt.Errorf("failed to install LaunchAgent: %w", err)
	}

	fmt.Println("Installed LaunchAgent for daily maintenance runs.")
	fmt.Printf("Plist: %s\n", manager.PlistPath())
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	manager := infra.NewLaunchdManager()
	if !manager.IsInstalled() {
		fmt.Println("brewkeeper LaunchAgent is not installed.")
		return nil
	}

	if err := manager.Uninstall(); err != nil {
		return fmt.Errorf("failed to uninstall LaunchAgent: %w", err)
	}

	fmt.Println("Removed the maintenance LaunchAgent.")
	return nil
}

// createLogger writes to the Homebrew log directory next to brew's own
// logs, mirroring everything to stdout for launchd capture.
func createLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{infra.DefaultLogFilePath(), "stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		// Fallback to stdout if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("brewkeeper %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
