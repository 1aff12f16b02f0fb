package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *App) registerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register [username]",
		Short: "Create a player account on the server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := a.load(cmd)
			if err != nil {
				return err
			}

			username, err := a.readUsername(args)
			if err != nil {
				return err
			}
			password, err := a.readPassword("Password: ")
			if err != nil {
				return err
			}
			if a.passwords.FromFile == "" && a.passwords.FromArgs == "" {
				confirm, err := a.io.ReadPassword("Confirm password: ")
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				if confirm != password {
					return fmt.Errorf("passwords do not match")
				}
			}

			result, err := deps.Auth.Register(cmd.Context(), username, password)
			if err != nil {
				return err
			}

			a.io.Printf("✓ Registered %s (user id %s)\n", result.Username, result.UserID)
			a.io.Println("Run 'gophprogress-client login' to start syncing.")
			return nil
		},
	}
	a.passwords.bind(cmd)
	return cmd
}

func (a *App) loginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Log in and store the session locally",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := a.load(cmd)
			if err != nil {
				return err
			}

			username, err := a.readUsername(args)
			if err != nil {
				return err
			}
			password, err := a.readPassword("Password: ")
			if err != nil {
				return err
			}

			session, err := deps.Auth.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}

			a.io.Printf("✓ Logged in as %s\n", session.Username)
			if session.ExpiresAt > 0 {
				a.io.Printf("Session expires: %s\n", formatSyncTime(session.ExpiresAt*1000))
			}
			return nil
		},
	}
	a.passwords.bind(cmd)
	return cmd
}

func (a *App) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the local session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := a.load(cmd)
			if err != nil {
				return err
			}
			if err := deps.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			a.io.Println("✓ Logged out. Local progress is kept.")
			return nil
		},
	}
}
