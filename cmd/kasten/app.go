package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/plustik/kasten/internal/logger"
	"github.com/plustik/kasten/pkg/config"
	"github.com/plustik/kasten/pkg/controller"
	"github.com/plustik/kasten/pkg/database"
	"github.com/spf13/cobra"
)

// app holds the state shared by all commands of one invocation.
var app state

type state struct {
	configPath string
	logLevel   string
	sessionID  uint64

	cfg     *config.Config
	metrics *config.MetricsResult
	db      *database.Database
	ctrl    *controller.Controller
}

// loadApp loads the configuration and sets up logging and metrics. The
// database is only opened by commands that need it.
func loadApp(cmd *cobra.Command, _ []string) error {
	if cmd == initCmd {
		return nil
	}

	cfg, err := config.Load(app.configPath)
	if err != nil {
		return err
	}
	if app.logLevel != "" {
		cfg.Logging.Level = app.logLevel
	}

	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	app.cfg = cfg
	app.metrics = config.InitializeMetrics(cfg)
	return nil
}

// controller opens the database on first use.
func (s *state) controller() (*controller.Controller, error) {
	if s.ctrl != nil {
		return s.ctrl, nil
	}

	db, err := config.OpenDatabase(s.cfg, s.metrics.DatabaseMetrics)
	if err != nil {
		return nil, err
	}

	s.db = db
	s.ctrl = config.NewController(s.cfg, db)
	return s.ctrl, nil
}

// authenticate opens the database and resolves the session to its user.
// On success sessionID holds the session in use.
func (s *state) authenticate() (*controller.Controller, uint64, error) {
	ctrl, err := s.controller()
	if err != nil {
		return nil, 0, err
	}

	id := s.sessionID
	if id == 0 {
		if env := os.Getenv("KASTEN_SESSION"); env != "" {
			if id, err = strconv.ParseUint(env, 10, 64); err != nil {
				return nil, 0, fmt.Errorf("invalid KASTEN_SESSION: %w", err)
			}
		}
	}
	if id == 0 {
		return nil, 0, errors.New("not logged in: pass --session or set KASTEN_SESSION")
	}

	session, err := ctrl.Authenticate(id)
	if err != nil {
		return nil, 0, err
	}
	s.sessionID = session.ID
	return ctrl, session.UserID, nil
}

// resolveUser accepts a numeric user ID or a user name.
func (s *state) resolveUser(arg string) (uint64, error) {
	if id, err := strconv.ParseUint(arg, 10, 64); err == nil {
		return id, nil
	}
	return s.db.GetUserIDByName(arg)
}

// resolveGroup accepts a numeric group ID or a group name.
func (s *state) resolveGroup(arg string) (uint64, error) {
	if id, err := strconv.ParseUint(arg, 10, 64); err == nil {
		return id, nil
	}
	return s.db.GetGroupIDByName(arg)
}

func (s *state) close() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Error("failed to close database: %v", err)
		}
		s.db = nil
		s.ctrl = nil
	}
	if s.metrics != nil {
		s.metrics.Flush()
	}
	logger.Sync()
}

func parseID(arg, what string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, arg)
	}
	return id, nil
}
