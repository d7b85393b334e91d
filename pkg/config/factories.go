package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/plustik/kasten/internal/logger"
	"github.com/plustik/kasten/pkg/controller"
	"github.com/plustik/kasten/pkg/database"
	"github.com/plustik/kasten/pkg/kv"
	badgerkv "github.com/plustik/kasten/pkg/kv/badger"
	boltkv "github.com/plustik/kasten/pkg/kv/bolt"
	"github.com/plustik/kasten/pkg/metrics"
)

// OpenStore opens the kv store selected by cfg.Type.
//
// This factory function decodes the type-specific options from the
// corresponding map and passes them to the backend's Open. cfg.Path wins
// over a path given inside the map.
//
// Supported types:
//   - "badger": Uses pkg/kv/badger (default)
//   - "bolt": Uses pkg/kv/bolt
func OpenStore(cfg *DatabaseConfig) (kv.Store, error) {
	switch cfg.Type {
	case "badger":
		return openBadgerStore(cfg)
	case "bolt":
		return openBoltStore(cfg)
	default:
		return nil, fmt.Errorf("unknown database type: %q", cfg.Type)
	}
}

func openBadgerStore(cfg *DatabaseConfig) (kv.Store, error) {
	var storeCfg badgerkv.Config
	if err := decodeOptions(cfg.Badger, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger config: %w", err)
	}
	if cfg.Path != "" {
		storeCfg.Path = cfg.Path
	}

	store, err := badgerkv.Open(storeCfg, database.Collections()...)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return store, nil
}

func openBoltStore(cfg *DatabaseConfig) (kv.Store, error) {
	var storeCfg boltkv.Config
	if err := decodeOptions(cfg.Bolt, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode bolt config: %w", err)
	}
	if cfg.Path != "" {
		storeCfg.Path = cfg.Path
	}

	store, err := boltkv.Open(storeCfg, database.Collections()...)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt store: %w", err)
	}
	return store, nil
}

// decodeOptions decodes a backend option map. Durations may be given as
// strings ("5s") and numbers may arrive as any numeric type.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}

// OpenDatabase opens the configured store and wraps it in a Database.
//
// Parameters:
//   - cfg: The complete kasten configuration
//   - m: Database metrics (nil uses no-op metrics)
func OpenDatabase(cfg *Config, m metrics.DatabaseMetrics) (*database.Database, error) {
	store, err := OpenStore(&cfg.Database)
	if err != nil {
		return nil, err
	}

	db, err := database.New(store, database.Options{
		Metrics:        m,
		GroupCacheSize: cfg.Cache.GroupEntries,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	logger.Debug("opened %s database at %s", cfg.Database.Type, cfg.Database.Path)
	return db, nil
}

// NewController creates a Controller over db using the session and password
// settings of cfg.
func NewController(cfg *Config, db *database.Database) *controller.Controller {
	params := controller.DefaultArgon2Params
	params.Memory = cfg.Passwords.MemoryKiB
	params.Time = cfg.Passwords.Time
	params.Threads = cfg.Passwords.Threads

	return controller.New(db, controller.Config{
		SessionMaxAge:       cfg.Sessions.MaxAge,
		Argon2:              params,
		FailedLoginInterval: cfg.Sessions.FailedLoginInterval,
		FailedLoginBurst:    cfg.Sessions.FailedLoginBurst,
	})
}
