package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumosnap/synccore/internal/appconfig"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect effective configuration",
	}

	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved ops tunables and the app config",
		RunE:  runConfigShow,
	}
}

// configShowOutput bundles both configuration layers for display: the
// operator-facing tunables (opsconfig) and the UI-facing app config
// (appconfig).
type configShowOutput struct {
	DataDir string           `json:"dataDir"`
	Ops     any              `json:"ops"`
	App     *appconfig.Config `json:"app"`
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	appCfg, err := appconfig.Load(cc.DataDir, cc.MasterFolder)
	if err != nil {
		return fmt.Errorf("loading app config: %w", err)
	}

	out := configShowOutput{DataDir: cc.DataDir, Ops: cc.Ops, App: appCfg}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}
