package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumosnap/synccore/internal/opsconfig"
)

// version is set at build time via ldflags.
var version = "dev"

// flags holds every persistent flag's bound value.
var flags CLIFlags

// CLIFlags are the persistent flags every command inherits.
type CLIFlags struct {
	ConfigPath   string
	DataDir      string
	MasterFolder string
	APIBaseURL   string
	JSON         bool
	Verbose      bool
	Debug        bool
	Quiet        bool
}

// CLIContext bundles the resolved ops config and logger. Built once in
// PersistentPreRunE and threaded through the command's context so RunE
// handlers never re-resolve config.
type CLIContext struct {
	Ops          *opsconfig.Resolved
	Logger       *slog.Logger
	DataDir      string
	MasterFolder string
	APIBaseURL   string
	JSON         bool
	Quiet        bool
}

type cliContextKey struct{}

// cliContextFrom extracts the CLIContext from the command's context, or nil
// if PersistentPreRunE never ran (shouldn't happen outside tests).
func cliContextFrom(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		return nil
	}

	return cc
}

// mustCLIContext extracts the CLIContext or panics — always a programmer
// error, since PersistentPreRunE populates it before every RunE runs.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc := cliContextFrom(ctx)
	if cc == nil {
		panic("BUG: CLIContext not found in context")
	}

	return cc
}

// newRootCmd builds the fully-assembled root command with all subcommands
// registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "lumosnap-core",
		Short:   "Local sync engine for the lumosnap photo-sharing client",
		Long:    "Watches album folders, compresses and uploads new images, and keeps a local catalog in sync with the remote album service.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadContext(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "ops config file path")
	cmd.PersistentFlags().StringVar(&flags.DataDir, "data-dir", "", "application data directory (catalog, session, config)")
	cmd.PersistentFlags().StringVar(&flags.MasterFolder, "master-folder", "", "directory whose immediate subfolders are album source folders")
	cmd.PersistentFlags().StringVar(&flags.APIBaseURL, "api-base-url", "", "base URL of the remote album API")
	cmd.PersistentFlags().BoolVar(&flags.JSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "show detailed output")
	cmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress informational output")

	cmd.MarkFlagsMutuallyExclusive("verbose", "debug", "quiet")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newAlbumsCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLoginCmd())

	return cmd
}

// loadContext resolves the four-layer ops config chain and the application
// data directory, and stashes both in the command's context.
func loadContext(cmd *cobra.Command) error {
	logger := buildLogger(flags)

	cli := opsconfig.CLIOverrides{ConfigPath: flags.ConfigPath}
	env := opsconfig.ReadEnvOverrides()

	resolved, err := opsconfig.Resolve(env, cli, logger)
	if err != nil {
		return fmt.Errorf("resolving ops config: %w", err)
	}

	dataDir := flags.DataDir
	if dataDir == "" {
		dataDir = opsconfig.DefaultConfigDir()
	}

	if dataDir == "" {
		return fmt.Errorf("no application data directory: pass --data-dir")
	}

	cc := &CLIContext{
		Ops:          resolved,
		Logger:       logger,
		DataDir:      dataDir,
		MasterFolder: flags.MasterFolder,
		APIBaseURL:   flags.APIBaseURL,
		JSON:         flags.JSON,
		Quiet:        flags.Quiet,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	return nil
}

// buildLogger creates an slog.Logger whose level is set by the persistent
// flags. --verbose, --debug, and --quiet are mutually exclusive (enforced
// by Cobra), so at most one ever applies.
func buildLogger(flags CLIFlags) *slog.Logger {
	level := slog.LevelWarn

	switch {
	case flags.Debug:
		level = slog.LevelDebug
	case flags.Verbose:
		level = slog.LevelInfo
	case flags.Quiet:
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
