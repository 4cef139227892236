package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lumosnap/synccore/internal/catalog"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize every album's upload state",
		Long:  `Reads the local catalog and reports how many images in each album are pending, uploading, complete, or failed. Does not require the daemon to be running.`,
		RunE:  runStatus,
	}
}

// albumStatus is one album's row in the status report.
type albumStatus struct {
	Album string            `json:"album"`
	Stats catalog.ImageStats `json:"stats"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	store, err := catalog.Open(ctx, filepath.Join(cc.DataDir, "catalog.db"), cc.Logger)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer store.Close()

	albums, err := store.ListAlbums(ctx)
	if err != nil {
		return fmt.Errorf("listing albums: %w", err)
	}

	report := make([]albumStatus, 0, len(albums))

	for _, a := range albums {
		stats, err := store.GetImageStats(ctx, a.ID)
		if err != nil {
			return fmt.Errorf("reading stats for %s: %w", a.ID, err)
		}

		report = append(report, albumStatus{Album: a.Title, Stats: stats})
	}

	if wantsJSON(cc.JSON) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(report)
	}

	printStatusReport(report)

	return nil
}

func printStatusReport(report []albumStatus) {
	if len(report) == 0 {
		fmt.Println("No albums yet.")
		return
	}

	headers := []string{"ALBUM", "PENDING", "UPLOADING", "COMPLETE", "FAILED"}
	rows := make([][]string, 0, len(report))

	for _, r := range report {
		rows = append(rows, []string{
			r.Album,
			fmt.Sprintf("%d", r.Stats.Pending+r.Stats.Compressing),
			fmt.Sprintf("%d", r.Stats.Uploading),
			fmt.Sprintf("%d", r.Stats.Complete),
			fmt.Sprintf("%d", r.Stats.FailedCompression+r.Stats.FailedUpload),
		})
	}

	printTable(os.Stdout, headers, rows)
}
