package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/plustik/kasten/internal/logger"
	"github.com/plustik/kasten/pkg/metadata"
	"github.com/spf13/cobra"
)

var command = &cobra.Command{
	Use:   "kasten",
	Short: "Personal file storage engine",
	Long: `kasten keeps a directory tree per user, shares nodes with groups and
manages users, groups and login sessions on top of an embedded
transactional key-value store (badger or bbolt).`,
	PersistentPreRunE: loadApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	command.SetOut(os.Stdout)

	flags := command.PersistentFlags()
	flags.StringVarP(&app.configPath, "config", "c", "", "Config file (default: $XDG_CONFIG_HOME/kasten/config.yaml)")
	flags.StringVar(&app.logLevel, "log-level", "", "Override the configured log level (DEBUG, INFO, WARN, ERROR)")
	flags.Uint64Var(&app.sessionID, "session", 0, "Session ID from 'kasten login' (default: $KASTEN_SESSION)")

	command.AddCommand(
		initCmd,
		userCmd,
		loginCmd,
		logoutCmd,
		sessionsCmd,
		groupCmd,
		dirCmd,
		fileCmd,
		shareCmd,
		checkCmd,
		gcCmd,
	)
}

func main() {
	err := command.Execute()
	app.close()
	exitOnErr(err)
}

// exitOnErr prints err and exits with a code derived from it. Does nothing
// if err is nil.
func exitOnErr(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	logger.Sync()
	os.Exit(exitCode(err))
}

// exitCode maps store errors to distinct exit codes so scripts can tell
// refused and missing targets apart from other failures.
func exitCode(err error) int {
	var storeErr *metadata.StoreError
	if !errors.As(err, &storeErr) {
		return 1
	}

	switch storeErr.Code {
	case metadata.ErrNoSuchFile, metadata.ErrNoSuchDir, metadata.ErrNoSuchTarget, metadata.ErrNoSuchUser:
		return 2
	case metadata.ErrForbiddenAction:
		return 3
	case metadata.ErrTargetExists:
		return 4
	case metadata.ErrBadCall:
		return 5
	default:
		return 1
	}
}
