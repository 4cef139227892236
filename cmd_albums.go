package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lumosnap/synccore/internal/app"
	"github.com/lumosnap/synccore/internal/catalog"
)

func newAlbumsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "albums",
		Short: "Inspect and manage known albums",
	}

	cmd.AddCommand(newAlbumsAddCmd())
	cmd.AddCommand(newAlbumsListCmd())
	cmd.AddCommand(newAlbumsRemoveCmd())
	cmd.AddCommand(newAlbumsOrphansCmd())

	return cmd
}

var albumsAddTitle string

func newAlbumsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <folder>",
		Short: "Designate a folder as a new album",
		Long: `Registers folder as a new album with the remote album service, then
records it in the local catalog under the id the service assigns.`,
		Args: cobra.ExactArgs(1),
		RunE: runAlbumsAdd,
	}

	cmd.Flags().StringVar(&albumsAddTitle, "title", "", "album title (defaults to the folder's base name)")

	return cmd
}

func runAlbumsAdd(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	folder := args[0]

	abs, err := filepath.Abs(folder)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", folder, err)
	}

	instance, err := app.New(cmd.Context(), cc.DataDir, cc.MasterFolder, app.Config{
		Ops:     cc.Ops,
		BaseURL: cc.APIBaseURL,
	}, cc.Logger)
	if err != nil {
		return fmt.Errorf("starting: %w", err)
	}
	defer instance.Close()

	album, err := instance.DesignateFolder(cmd.Context(), abs, albumsAddTitle)
	if err != nil {
		return fmt.Errorf("designating %s: %w", abs, err)
	}

	statusf("created album %s (%s)\n", album.ID, album.Title)

	return nil
}

func newAlbumsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every album known to the local catalog",
		RunE:  runAlbumsList,
	}
}

func runAlbumsList(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	store, err := catalog.Open(cmd.Context(), filepath.Join(cc.DataDir, "catalog.db"), cc.Logger)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer store.Close()

	albums, err := store.ListAlbums(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing albums: %w", err)
	}

	if wantsJSON(cc.JSON) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(albums)
	}

	printAlbumsTable(albums)

	return nil
}

func printAlbumsTable(albums []*catalog.Album) {
	headers := []string{"ID", "TITLE", "IMAGES", "SYNC", "LAST SYNCED"}
	rows := make([][]string, 0, len(albums))

	for _, a := range albums {
		rows = append(rows, []string{
			a.ID,
			a.Title,
			fmt.Sprintf("%d", a.TotalImages),
			albumSyncState(a),
			formatRelativeTime(a.LastSyncedAt),
		})
	}

	printTable(os.Stdout, headers, rows)
}

// albumSyncState renders an Album's combined orphaned/needs-review/synced
// state as a single column value, shared by `albums list` and
// `albums orphans`.
func albumSyncState(a *catalog.Album) string {
	switch {
	case a.IsOrphaned:
		return "orphaned"
	case a.NeedsSync:
		return "needs review"
	default:
		return "synced"
	}
}

func newAlbumsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <album-id>",
		Short: "Delete an album from the remote service and the local catalog",
		Long: `Deletes the remote album first; only once the remote service accepts
the deletion is the local row (and its images) dropped.`,
		Args: cobra.ExactArgs(1),
		RunE: runAlbumsRemove,
	}
}

func runAlbumsRemove(cmd *cobra.Command, args []string) error {
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

	if err := instance.RemoveAlbum(cmd.Context(), albumID); err != nil {
		return fmt.Errorf("removing %s: %w", albumID, err)
	}

	statusf("removed album %s\n", albumID)

	return nil
}

func newAlbumsOrphansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orphans",
		Short: "List albums whose source folder is currently missing",
		RunE:  runAlbumsOrphans,
	}
}

func runAlbumsOrphans(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	store, err := catalog.Open(cmd.Context(), filepath.Join(cc.DataDir, "catalog.db"), cc.Logger)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer store.Close()

	albums, err := store.ListAlbums(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing albums: %w", err)
	}

	orphans := make([]*catalog.Album, 0, len(albums))
	for _, a := range albums {
		if a.IsOrphaned {
			orphans = append(orphans, a)
		}
	}

	if wantsJSON(cc.JSON) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(orphans)
	}

	printAlbumsTable(orphans)

	return nil
}
