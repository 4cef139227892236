package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lumosnap/synccore/internal/trust"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Inspect or clear the signed-in session",
		Long:  `The session itself is established by the UI layer (OAuth-style sign-in against the photo-sharing service); this command only inspects or clears what was saved.`,
	}

	cmd.AddCommand(newLoginStatusCmd())
	cmd.AddCommand(newLoginLogoutCmd())

	return cmd
}

func newLoginStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a session is saved",
		RunE:  runLoginStatus,
	}
}

func runLoginStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	env, err := trust.Load(cc.DataDir)
	if errors.Is(err, trust.ErrNotFound) {
		fmt.Println("Not signed in.")
		return nil
	}

	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}

	fmt.Printf("Signed in as %s (%s)\n", env.User.Name, env.User.Email)

	return nil
}

func newLoginLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the saved session",
		RunE:  runLoginLogout,
	}
}

func runLoginLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if err := trust.Clear(cc.DataDir); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}

	statusf("signed out\n")

	return nil
}
