package main

import (
	"github.com/plustik/kasten/pkg/metadata"
	"github.com/spf13/cobra"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage groups",
}

var groupAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a group administered by the logged in user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, userID, err := app.authenticate()
		if err != nil {
			return err
		}
		group, err := ctrl.AddGroup(userID, args[0])
		if err != nil {
			return err
		}

		printGroup(cmd, group)
		return nil
	},
}

var groupShowCmd = &cobra.Command{
	Use:   "show GROUP",
	Short: "Show a group by ID or name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, userID, err := app.authenticate()
		if err != nil {
			return err
		}
		groupID, err := app.resolveGroup(args[0])
		if err != nil {
			return err
		}
		group, err := ctrl.GetGroupInfo(userID, groupID)
		if err != nil {
			return err
		}

		printGroup(cmd, group)
		return nil
	},
}

var groupRenameCmd = &cobra.Command{
	Use:   "rename GROUP NAME",
	Short: "Rename a group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, userID, err := app.authenticate()
		if err != nil {
			return err
		}
		groupID, err := app.resolveGroup(args[0])
		if err != nil {
			return err
		}
		group, err := ctrl.UpdateGroupInfo(userID, groupID, args[1])
		if err != nil {
			return err
		}

		printGroup(cmd, group)
		return nil
	},
}

var groupAddMembersCmd = &cobra.Command{
	Use:   "add-members GROUP USER...",
	Short: "Add users to a group",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeGroupUsers(cmd, args, false)
	},
}

var groupAddAdminsCmd = &cobra.Command{
	Use:   "add-admins GROUP USER...",
	Short: "Make users admins of a group",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeGroupUsers(cmd, args, true)
	},
}

func init() {
	groupCmd.AddCommand(groupAddCmd, groupShowCmd, groupRenameCmd, groupAddMembersCmd, groupAddAdminsCmd)
}

func changeGroupUsers(cmd *cobra.Command, args []string, admins bool) error {
	ctrl, userID, err := app.authenticate()
	if err != nil {
		return err
	}
	groupID, err := app.resolveGroup(args[0])
	if err != nil {
		return err
	}

	userIDs := make([]uint64, 0, len(args)-1)
	for _, arg := range args[1:] {
		id, err := app.resolveUser(arg)
		if err != nil {
			return err
		}
		userIDs = append(userIDs, id)
	}

	var group *metadata.Group
	if admins {
		group, err = ctrl.AddAdmins(userID, groupID, userIDs...)
	} else {
		group, err = ctrl.AddMembers(userID, groupID, userIDs...)
	}
	if err != nil {
		return err
	}

	printGroup(cmd, group)
	return nil
}

func printGroup(cmd *cobra.Command, group *metadata.Group) {
	cmd.Printf("ID:      %d\n", group.ID)
	cmd.Printf("Name:    %s\n", group.Name)
	cmd.Printf("Admins:  %s\n", formatIDs(group.AdminIDs))
	cmd.Printf("Members: %s\n", formatIDs(group.MemberIDs))
}
