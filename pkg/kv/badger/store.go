package badger

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/plustik/kasten/internal/logger"
	"github.com/plustik/kasten/pkg/kv"
)

// Store implements kv.Store on top of BadgerDB.
//
// Storage Model:
// BadgerDB has a single flat keyspace, so every collection is mapped to a key
// prefix "<collection>:" and keys are stored as prefix + key. Collection names
// never contain ':' which keeps the prefixes disjoint.
//
// Concurrency:
// BadgerDB uses optimistic concurrency control. Every key read inside an
// update transaction is tracked, and Commit fails with badger.ErrConflict if
// another transaction committed a write to one of those keys in the meantime.
// Update re-runs the closure on conflict, up to MaxTxnRetries times.
type Store struct {
	db          *badger.DB
	collections map[kv.Collection][]byte
	maxRetries  int
}

// Config contains configuration for opening a BadgerDB store.
type Config struct {
	// Path is the directory where BadgerDB stores its files.
	// Ignored when InMemory is true.
	Path string `mapstructure:"path"`

	// InMemory keeps all data in memory (tests and throwaway databases)
	InMemory bool `mapstructure:"in_memory"`

	// SyncWrites fsyncs the value log on every commit
	SyncWrites bool `mapstructure:"sync_writes"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64 `mapstructure:"index_cache_mb"`

	// MaxTxnRetries bounds how often a conflicting update is re-run
	// before kv.ErrConflict is returned (default: 16)
	MaxTxnRetries int `mapstructure:"max_txn_retries"`
}

// Open opens (or creates) a BadgerDB store exposing the given collections.
//
// Parameters:
//   - cfg: Location and tuning options
//   - collections: Every collection the caller will address
//
// Returns:
//   - *Store: Store ready for concurrent use
//   - error: Error if the database cannot be opened
func Open(cfg Config, collections ...kv.Collection) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger: empty database path")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	blockCacheMB := cfg.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := cfg.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}

	// Records are small and mostly point lookups
	opts = opts.WithLoggingLevel(badger.WARNING).
		WithCompression(options.None).
		WithSyncWrites(cfg.SyncWrites).
		WithBlockCacheSize(blockCacheMB << 20).
		WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %q: %w", cfg.Path, err)
	}

	maxRetries := cfg.MaxTxnRetries
	if maxRetries <= 0 {
		maxRetries = 16
	}

	s := &Store{
		db:          db,
		collections: make(map[kv.Collection][]byte, len(collections)),
		maxRetries:  maxRetries,
	}
	for _, c := range collections {
		s.collections[c] = []byte(string(c) + ":")
	}

	return s, nil
}

// View runs fn in a read-only BadgerDB transaction.
func (s *Store) View(fn func(txn kv.Txn) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn, store: s})
	})
}

// Update runs fn in a read-write transaction, retrying on write conflicts.
//
// Errors returned by fn abort the transaction and are returned as-is; they
// are never retried. Only badger.ErrConflict from Commit triggers a retry.
func (s *Store) Update(fn func(txn kv.Txn) error) error {
	for attempt := 1; ; attempt++ {
		err := s.db.Update(func(txn *badger.Txn) error {
			return fn(&badgerTxn{txn: txn, store: s})
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if attempt >= s.maxRetries {
			return fmt.Errorf("%w: gave up after %d attempts", kv.ErrConflict, attempt)
		}
		logger.Debug("badger: transaction conflict, retrying (attempt %d/%d)", attempt, s.maxRetries)
	}
}

// Close closes the BadgerDB database and flushes pending writes.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

// badgerTxn adapts *badger.Txn to kv.Txn.
type badgerTxn struct {
	txn   *badger.Txn
	store *Store
}

// fullKey prefixes key with the collection prefix.
func (t *badgerTxn) fullKey(c kv.Collection, key []byte) ([]byte, error) {
	prefix, ok := t.store.collections[c]
	if !ok {
		return nil, fmt.Errorf("%w: %q", kv.ErrUnknownCollection, c)
	}
	full := make([]byte, 0, len(prefix)+len(key))
	full = append(full, prefix...)
	return append(full, key...), nil
}

func (t *badgerTxn) Get(c kv.Collection, key []byte) ([]byte, error) {
	full, err := t.fullKey(c, key)
	if err != nil {
		return nil, err
	}

	item, err := t.txn.Get(full)
	if err == badger.ErrKeyNotFound {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s key: %w", c, err)
	}

	return item.ValueCopy(nil)
}

func (t *badgerTxn) Has(c kv.Collection, key []byte) (bool, error) {
	full, err := t.fullKey(c, key)
	if err != nil {
		return false, err
	}

	_, err = t.txn.Get(full)
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s key: %w", c, err)
	}
	return true, nil
}

func (t *badgerTxn) Set(c kv.Collection, key, value []byte) error {
	full, err := t.fullKey(c, key)
	if err != nil {
		return err
	}

	// Badger keeps references until commit
	v := make([]byte, len(value))
	copy(v, value)

	if err := t.txn.Set(full, v); err != nil {
		return fmt.Errorf("failed to set %s key: %w", c, err)
	}
	return nil
}

func (t *badgerTxn) Delete(c kv.Collection, key []byte) error {
	full, err := t.fullKey(c, key)
	if err != nil {
		return err
	}

	if err := t.txn.Delete(full); err != nil {
		return fmt.Errorf("failed to delete %s key: %w", c, err)
	}
	return nil
}

func (t *badgerTxn) Scan(c kv.Collection, prefix []byte, fn func(key, value []byte) error) error {
	full, err := t.fullKey(c, prefix)
	if err != nil {
		return err
	}
	collectionPrefixLen := len(t.store.collections[c])

	opts := badger.DefaultIteratorOptions
	opts.Prefix = full
	it := t.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(full); it.ValidForPrefix(full); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)[collectionPrefixLen:]
		value, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("failed to read %s value: %w", c, err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}

	return nil
}
