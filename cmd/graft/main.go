package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/grafthq/graft/internal/engine"
	"github.com/grafthq/graft/internal/gitrepo"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	repoDir   string
	hubDir    string
	logLevel  string
	logFormat string

	// Command flags
	hooksSource string
	hooksDir    string
	backupDir   string
	dryRun      bool
	force       bool
	restore     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "graft",
	Short: "Install and remove hub-managed content in a repository",
	Long: `graft injects marker-delimited content blocks and git hook scripts from a
hub directory into a repository, and removes them again without disturbing
anything the user wrote.

Installed state is tracked in a manifest so that uninstall only touches what
graft put there.`,
	SilenceUsage: true,
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Inject configured content and install hook scripts",
	Long: `Install reads the hub's configuration, renders each template, and injects it
into its target file inside a marked region. Configured hook scripts are
copied into the repository's hook directory and core.hooksPath is pointed at
it. Everything written is recorded in a manifest for later removal.

Running install again replaces previously injected regions in place; files
already carrying the expected content are left untouched.`,
	RunE: runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove injected content and installed hook scripts",
	Long: `Uninstall reverses a previous install using the manifest: injected regions
are stripped, installed hooks are removed, core.hooksPath is unset, and the
manifest is deleted.

Content the user edited since install is preserved unless --force is given.
Without a manifest, uninstall falls back to scanning well-known files and the
hook directory for marked content.`,
	RunE: runUninstall,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the state of installed content",
	Long: `Status compares each file recorded in the manifest against its recorded
content hash and reports whether it is unchanged, modified, or missing.`,
	RunE: runStatus,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("graft %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&repoDir, "repo", ".", "repository to operate on")
	rootCmd.PersistentFlags().StringVar(&hubDir, "hub", "", "hub directory (default is <repo>/.graft/hub)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "pretty", "log format (pretty, text, json)")

	// Install command flags
	installCmd.Flags().StringVar(&hooksSource, "hooks-source", "", "hook script source directory (default is <hub>/hooks)")
	installCmd.Flags().StringVar(&hooksDir, "hooks-dir", engine.DefaultHooksDir, "repository-relative directory to install hooks into")
	installCmd.Flags().StringVar(&backupDir, "backup-dir", engine.DefaultBackupDir, "repository-relative directory for hook backups")
	installCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be done without making changes")

	// Uninstall command flags
	uninstallCmd.Flags().StringVar(&hooksDir, "hooks-dir", engine.DefaultHooksDir, "repository-relative directory hooks were installed into")
	uninstallCmd.Flags().StringVar(&backupDir, "backup-dir", engine.DefaultBackupDir, "repository-relative directory holding hook backups")
	uninstallCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be done without making changes")
	uninstallCmd.Flags().BoolVar(&force, "force", false, "remove content even if it was edited since install")
	uninstallCmd.Flags().BoolVar(&restore, "restore", false, "restore backed-up hooks after removal")

	// Add commands
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	eng, err := newEngine(logger)
	if err != nil {
		return err
	}

	if err := eng.Install(ctx); err != nil {
		logger.Error("install failed", "error", err)
		return err
	}
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	eng, err := newEngine(logger)
	if err != nil {
		return err
	}

	if err := eng.Uninstall(ctx); err != nil {
		logger.Error("uninstall failed", "error", err)
		return err
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	eng, err := newEngine(logger)
	if err != nil {
		return err
	}

	if err := eng.Status(ctx); err != nil {
		logger.Error("status failed", "error", err)
		return err
	}
	return nil
}

func newEngine(logger *slog.Logger) (*engine.Engine, error) {
	root, err := filepath.Abs(repoDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repository path: %w", err)
	}

	opts := engine.Options{
		RepoRoot:    root,
		HubPath:     hubDir,
		HooksSource: hooksSource,
		HooksDir:    hooksDir,
		BackupDir:   backupDir,
		DryRun:      dryRun,
		Force:       force,
		Restore:     restore,
	}

	return engine.New(gitrepo.NewShellClient(), logger, opts), nil
}

func setupLogger() *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	switch logFormat {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			NoColor:    !term.IsTerminal(int(os.Stderr.Fd())),
		})
	}

	return slog.New(handler)
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
