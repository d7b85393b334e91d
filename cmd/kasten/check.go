package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the consistency of the directory trees",
	Long: `Walk every directory and file record and report broken parent links,
dangling children and missing permission records.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := app.controller(); err != nil {
			return err
		}

		problems, err := app.db.Check()
		if err != nil {
			return err
		}
		for _, p := range problems {
			cmd.Println(p.String())
		}
		if len(problems) > 0 {
			return fmt.Errorf("found %d problems", len(problems))
		}

		cmd.Println("No problems found")
		return nil
	},
}
