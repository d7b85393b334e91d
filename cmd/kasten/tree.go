package main

import (
	"github.com/plustik/kasten/pkg/controller"
	"github.com/plustik/kasten/pkg/metadata"
	"github.com/spf13/cobra"
)

var fileMediaType string

var dirCmd = &cobra.Command{
	Use:   "dir",
	Short: "Work with directories",
}

var dirMkdirCmd = &cobra.Command{
	Use:   "mkdir PARENT NAME",
	Short: "Create a directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, userID, err := app.authenticate()
		if err != nil {
			return err
		}
		parentID, err := parseID(args[0], "directory")
		if err != nil {
			return err
		}
		dir, err := ctrl.AddDir(userID, parentID, args[1])
		if err != nil {
			return err
		}

		cmd.Println(dir.ID)
		return nil
	},
}

var dirLsCmd = &cobra.Command{
	Use:   "ls [DIR]",
	Short: "List a directory (default: your home directory)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, userID, err := app.authenticate()
		if err != nil {
			return err
		}

		var dirID uint64
		if len(args) == 1 {
			if dirID, err = parseID(args[0], "directory"); err != nil {
				return err
			}
		} else {
			user, err := ctrl.GetUserInfo(userID, userID)
			if err != nil {
				return err
			}
			dirID = user.RootDirID
		}

		children, err := ctrl.ListDir(userID, dirID)
		if err != nil {
			return err
		}

		for _, dir := range children.Dirs {
			cmd.Printf("d %20d  %s/\n", dir.ID, dir.Name)
		}
		for _, file := range children.Files {
			cmd.Printf("f %20d  %s  (%s)\n", file.ID, file.Name, file.MediaType)
		}
		return nil
	},
}

var dirInfoCmd = &cobra.Command{
	Use:   "info DIR",
	Short: "Show a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, userID, err := app.authenticate()
		if err != nil {
			return err
		}
		dirID, err := parseID(args[0], "directory")
		if err != nil {
			return err
		}
		dir, err := ctrl.GetDirInfo(userID, dirID)
		if err != nil {
			return err
		}

		cmd.Printf("ID:       %d\n", dir.ID)
		cmd.Printf("Name:     %s\n", dir.Name)
		cmd.Printf("Parent:   %d\n", dir.ParentID)
		cmd.Printf("Owner:    %d\n", dir.OwnerID)
		cmd.Printf("Children: %d\n", len(dir.ChildIDs))
		printPermissions(cmd, dir.Permissions)
		return nil
	},
}

var dirRmCmd = &cobra.Command{
	Use:   "rm DIR",
	Short: "Remove a directory and everything below it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, userID, err := app.authenticate()
		if err != nil {
			return err
		}
		dirID, err := parseID(args[0], "directory")
		if err != nil {
			return err
		}
		_, err = ctrl.RemoveDir(userID, dirID)
		return err
	},
}

var dirMvCmd = &cobra.Command{
	Use:   "mv DIR PARENT [NAME]",
	Short: "Move a directory, optionally renaming it",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, userID, err := app.authenticate()
		if err != nil {
			return err
		}
		update, nodeID, err := parseMove(args)
		if err != nil {
			return err
		}
		_, err = ctrl.UpdateDirInfo(userID, nodeID, update)
		return err
	},
}

var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Work with files",
}

var fileAddCmd = &cobra.Command{
	Use:   "add PARENT NAME",
	Short: "Create a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, userID, err := app.authenticate()
		if err != nil {
			return err
		}
		parentID, err := parseID(args[0], "directory")
		if err != nil {
			return err
		}
		file, err := ctrl.AddFile(userID, parentID, args[1], fileMediaType)
		if err != nil {
			return err
		}

		cmd.Println(file.ID)
		return nil
	},
}

var fileInfoCmd = &cobra.Command{
	Use:   "info FILE",
	Short: "Show a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, userID, err := app.authenticate()
		if err != nil {
			return err
		}
		fileID, err := parseID(args[0], "file")
		if err != nil {
			return err
		}
		file, err := ctrl.GetFileInfo(userID, fileID)
		if err != nil {
			return err
		}

		cmd.Printf("ID:     %d\n", file.ID)
		cmd.Printf("Name:   %s\n", file.Name)
		cmd.Printf("Type:   %s\n", file.MediaType)
		cmd.Printf("Parent: %d\n", file.ParentID)
		cmd.Printf("Owner:  %d\n", file.OwnerID)
		printPermissions(cmd, file.Permissions)
		return nil
	},
}

var fileRmCmd = &cobra.Command{
	Use:   "rm FILE",
	Short: "Remove a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, userID, err := app.authenticate()
		if err != nil {
			return err
		}
		fileID, err := parseID(args[0], "file")
		if err != nil {
			return err
		}
		_, err = ctrl.RemoveFile(userID, fileID)
		return err
	},
}

var fileMvCmd = &cobra.Command{
	Use:   "mv FILE PARENT [NAME]",
	Short: "Move a file, optionally renaming it",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, userID, err := app.authenticate()
		if err != nil {
			return err
		}
		update, nodeID, err := parseMove(args)
		if err != nil {
			return err
		}
		_, err = ctrl.UpdateFileInfo(userID, nodeID, update)
		return err
	},
}

var shareCmd = &cobra.Command{
	Use:   "share read|write NODE GROUP",
	Short: "Grant a group read or write access to a file or directory",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, userID, err := app.authenticate()
		if err != nil {
			return err
		}
		nodeID, err := parseID(args[1], "node")
		if err != nil {
			return err
		}
		groupID, err := app.resolveGroup(args[2])
		if err != nil {
			return err
		}

		switch args[0] {
		case "read":
			return ctrl.ShareRead(userID, nodeID, groupID)
		case "write":
			return ctrl.ShareWrite(userID, nodeID, groupID)
		default:
			return metadata.NewError(metadata.ErrBadCall, nodeID, "unknown access %q, want read or write", args[0])
		}
	},
}

func init() {
	fileAddCmd.Flags().StringVarP(&fileMediaType, "type", "t", "application/octet-stream", "Media type of the file")

	dirCmd.AddCommand(dirMkdirCmd, dirLsCmd, dirInfoCmd, dirRmCmd, dirMvCmd)
	fileCmd.AddCommand(fileAddCmd, fileInfoCmd, fileRmCmd, fileMvCmd)
}

// parseMove reads NODE PARENT [NAME].
func parseMove(args []string) (controller.NodeUpdate, uint64, error) {
	var update controller.NodeUpdate

	nodeID, err := parseID(args[0], "node")
	if err != nil {
		return update, 0, err
	}
	parentID, err := parseID(args[1], "directory")
	if err != nil {
		return update, 0, err
	}
	update.ParentID = &parentID
	if len(args) == 3 {
		update.Name = &args[2]
	}
	return update, nodeID, nil
}

func printPermissions(cmd *cobra.Command, perms metadata.Permissions) {
	cmd.Printf("Readers: %s\n", formatIDs(perms.ReadGroupIDs))
	cmd.Printf("Writers: %s\n", formatIDs(perms.WriteGroupIDs))
}
