package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lumosnap/synccore/internal/app"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the sync daemon",
		Long: `Watches --master-folder for album folders, compresses and uploads new
images, and keeps the local catalog in sync with the remote album API.

Runs until interrupted (SIGINT/SIGTERM). A second signal forces an
immediate exit.`,
		RunE: runRun,
	}

	cmd.Flags().Bool("hidden", false, "start without showing a window (accepted; the core shows no window, so it has no effect)")

	return cmd
}

func runRun(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if cc.MasterFolder == "" {
		return fmt.Errorf("--master-folder is required")
	}

	pidPath := pidFilePath(cc.DataDir)

	cleanup, err := writePIDFile(pidPath)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := shutdownContext(cmd.Context(), cc.Logger)

	instance, err := app.New(ctx, cc.DataDir, cc.MasterFolder, app.Config{
		Ops:     cc.Ops,
		BaseURL: cc.APIBaseURL,
	}, cc.Logger)
	if err != nil {
		return fmt.Errorf("starting: %w", err)
	}
	defer instance.Close()

	if err := instance.Start(ctx); err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}

	statusf("lumosnap-core running against %s (master folder %s)\n", cc.DataDir, cc.MasterFolder)

	go logEvents(ctx, instance, cc)

	<-ctx.Done()

	return nil
}

// logEvents drains the app's event bus and logs each one at debug level,
// so --debug shows sync activity without the daemon needing a UI attached.
func logEvents(ctx context.Context, instance *app.App, cc *CLIContext) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-instance.Events():
			if !ok {
				return
			}

			cc.Logger.Debug("event", "kind", ev.Kind, "album_id", ev.AlbumID)
		}
	}
}

// pidFilePath returns the fixed PID file location inside dataDir.
func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "run.pid")
}
