package main

import (
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login NAME",
	Short: "Log in and print a session ID",
	Long: `Log in and print a session ID. Pass it to later commands with --session
or export it as KASTEN_SESSION.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}

		ctrl, err := app.controller()
		if err != nil {
			return err
		}
		session, err := ctrl.Login(args[0], password)
		if err != nil {
			return err
		}

		cmd.Println(session.ID)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctrl, _, err := app.authenticate()
		if err != nil {
			return err
		}
		if err := ctrl.Logout(app.sessionID); err != nil {
			return err
		}

		cmd.Println("Logged out")
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Maintain login sessions",
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired sessions of all users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctrl, err := app.controller()
		if err != nil {
			return err
		}
		removed, err := ctrl.PruneSessions()
		if err != nil {
			return err
		}

		cmd.Printf("Removed %d expired sessions\n", removed)
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsPruneCmd)
}
