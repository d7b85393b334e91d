package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/plustik/kasten/pkg/controller"
	"github.com/plustik/kasten/pkg/metadata"
	"github.com/spf13/cobra"
)

var userPassword string

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a user with a home directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}

		ctrl, err := app.controller()
		if err != nil {
			return err
		}
		user, err := ctrl.AddUser(args[0], password)
		if err != nil {
			return err
		}

		cmd.Printf("Created user %s (id %d, home %d)\n", user.Name, user.ID, user.RootDirID)
		return nil
	},
}

var userShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the logged in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctrl, userID, err := app.authenticate()
		if err != nil {
			return err
		}
		user, err := ctrl.GetUserInfo(userID, userID)
		if err != nil {
			return err
		}

		printUser(cmd, user)
		return nil
	},
}

var userRenameCmd = &cobra.Command{
	Use:   "rename NAME",
	Short: "Rename the logged in user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, userID, err := app.authenticate()
		if err != nil {
			return err
		}
		user, err := ctrl.UpdateUserInfo(userID, controller.UserUpdate{Name: &args[0]})
		if err != nil {
			return err
		}

		printUser(cmd, user)
		return nil
	},
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the password of the logged in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}

		ctrl, userID, err := app.authenticate()
		if err != nil {
			return err
		}
		if _, err := ctrl.UpdateUserInfo(userID, controller.UserUpdate{Password: &password}); err != nil {
			return err
		}

		cmd.Println("Password changed")
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{userAddCmd, userPasswdCmd, loginCmd} {
		c.Flags().StringVarP(&userPassword, "password", "p", "", "Password (default: read one line from stdin)")
	}

	userCmd.AddCommand(userAddCmd, userShowCmd, userRenameCmd, userPasswdCmd)
}

// readPassword returns the --password flag or the first line of stdin.
func readPassword(cmd *cobra.Command) (string, error) {
	if userPassword != "" {
		return userPassword, nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("empty password")
	}
	return password, nil
}

func printUser(cmd *cobra.Command, user *metadata.User) {
	cmd.Printf("ID:     %d\n", user.ID)
	cmd.Printf("Name:   %s\n", user.Name)
	cmd.Printf("Home:   %d\n", user.RootDirID)
	cmd.Printf("Groups: %s\n", formatIDs(user.GroupIDs))
}

func formatIDs(ids []uint64) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}
