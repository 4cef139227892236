package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lumosnap/synccore/internal/app"
	"github.com/lumosnap/synccore/internal/reconciler"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Review and apply pending changes for an album",
	}

	cmd.AddCommand(newSyncRunCmd())

	return cmd
}

var syncDryRun bool

func newSyncRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <album-id>",
		Short: "Apply an album's pending change set and upload it",
		Long: `Re-detects the album's current change set against the filesystem and,
unless --dry-run is given, applies it (deleting remotely-then-locally
removed images, recording renames and edits) and enqueues the album for
upload. With --dry-run, the change set is only reported.

This is a one-shot command; it does not start the filesystem watcher.
Use "run" for the long-lived daemon.`,
		Args: cobra.ExactArgs(1),
		RunE: runSyncRun,
	}

	cmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "report the pending change set without applying it")

	return cmd
}

func runSyncRun(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	albumID := args[0]

	instance, err := app.New(cmd.Context(), cc.DataDir, cc.MasterFolder, app.Config{
		Ops:     cc.Ops,
		BaseURL: cc.APIBaseURL,
	}, cc.Logger)
	if err != nil {
		return fmt.Errorf("starting: %w", err)
	}
	defer instance.Close()

	if syncDryRun {
		changes, err := instance.PendingChanges(cmd.Context(), albumID)
		if err != nil {
			return fmt.Errorf("detecting changes for %s: %w", albumID, err)
		}

		return printChangeSet(cc, changes)
	}

	if err := instance.ApproveSync(cmd.Context(), albumID); err != nil {
		return fmt.Errorf("syncing %s: %w", albumID, err)
	}

	statusf("sync applied for %s, awaiting upload completion...\n", albumID)

	return awaitAlbumIdle(cmd.Context(), instance, albumID)
}

// printChangeSet reports a Changes summary in the album's configured output
// format, for `sync run --dry-run`.
func printChangeSet(cc *CLIContext, changes *reconciler.Changes) error {
	if wantsJSON(cc.JSON) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(changes)
	}

	fmt.Println(changes.Summary())

	return nil
}

// awaitAlbumIdle polls the pipeline's run state for albumID until it leaves
// "running", or ctx is canceled.
func awaitAlbumIdle(ctx context.Context, instance *app.App, albumID string) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			switch instance.AlbumRunState(albumID) {
			case "running":
				continue
			default:
				return nil
			}
		}
	}
}
