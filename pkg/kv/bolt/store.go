package bolt

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/plustik/kasten/pkg/kv"
	"go.etcd.io/bbolt"
)

// Store implements kv.Store on top of bbolt.
//
// Every collection is a top-level bucket, created when the store is opened.
// bbolt allows a single writer at a time, so update transactions are
// serialized and never conflict.
type Store struct {
	db *bbolt.DB
}

// Config contains configuration for opening a bbolt store.
type Config struct {
	// Path is the database file
	Path string `mapstructure:"path"`

	// Timeout bounds how long Open waits for the file lock (default: 5s)
	Timeout time.Duration `mapstructure:"timeout"`

	// NoSync skips fsync after each commit
	NoSync bool `mapstructure:"no_sync"`
}

// Open opens (or creates) a bbolt store exposing the given collections.
func Open(cfg Config, collections ...kv.Collection) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("bolt: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, fmt.Errorf("could not use %q dir: %w", filepath.Dir(cfg.Path), err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	db, err := bbolt.Open(cfg.Path, 0o600, &bbolt.Options{
		Timeout: timeout,
		NoSync:  cfg.NoSync,
	})
	if err != nil {
		return nil, fmt.Errorf("can't open bbolt at %s: %w", cfg.Path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, c := range collections {
			if _, err := tx.CreateBucketIfNotExists([]byte(c)); err != nil {
				return fmt.Errorf("could not init %s bucket: %w", c, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// View runs fn in a read-only bbolt transaction.
func (s *Store) View(fn func(txn kv.Txn) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return fn(&boltTxn{tx: tx})
	})
}

// Update runs fn in the single bbolt write transaction.
func (s *Store) Update(fn func(txn kv.Txn) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return fn(&boltTxn{tx: tx})
	})
}

// Close closes the bbolt database file.
func (s *Store) Close() error {
	return s.db.Close()
}

type boltTxn struct {
	tx *bbolt.Tx
}

func (t *boltTxn) bucket(c kv.Collection) (*bbolt.Bucket, error) {
	b := t.tx.Bucket([]byte(c))
	if b == nil {
		return nil, fmt.Errorf("%w: %q", kv.ErrUnknownCollection, c)
	}
	return b, nil
}

// makeCopy detaches a value from the mmap, which is only valid during the tx.
func makeCopy(val []byte) []byte {
	tmp := make([]byte, len(val))
	copy(tmp, val)

	return tmp
}

func (t *boltTxn) Get(c kv.Collection, key []byte) ([]byte, error) {
	b, err := t.bucket(c)
	if err != nil {
		return nil, err
	}

	val, ok := lookup(b, key)
	if !ok {
		return nil, kv.ErrNotFound
	}
	return makeCopy(val), nil
}

// lookup finds key through a cursor. Bucket.Get cannot tell an empty value
// apart from a missing key, and membership markers are stored with empty values.
func lookup(b *bbolt.Bucket, key []byte) ([]byte, bool) {
	k, v := b.Cursor().Seek(key)
	if k == nil || !bytes.Equal(k, key) {
		return nil, false
	}
	return v, true
}

func (t *boltTxn) Has(c kv.Collection, key []byte) (bool, error) {
	b, err := t.bucket(c)
	if err != nil {
		return false, err
	}
	_, ok := lookup(b, key)
	return ok, nil
}

func (t *boltTxn) Set(c kv.Collection, key, value []byte) error {
	b, err := t.bucket(c)
	if err != nil {
		return err
	}

	if err := b.Put(makeCopy(key), makeCopy(value)); err != nil {
		return fmt.Errorf("failed to put %s key: %w", c, err)
	}
	return nil
}

func (t *boltTxn) Delete(c kv.Collection, key []byte) error {
	b, err := t.bucket(c)
	if err != nil {
		return err
	}
	if err := b.Delete(key); err != nil {
		return fmt.Errorf("failed to delete %s key: %w", c, err)
	}
	return nil
}

func (t *boltTxn) Scan(c kv.Collection, prefix []byte, fn func(key, value []byte) error) error {
	b, err := t.bucket(c)
	if err != nil {
		return err
	}

	cur := b.Cursor()
	for k, v := cur.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cur.Next() {
		if err := fn(makeCopy(k), makeCopy(v)); err != nil {
			return err
		}
	}

	return nil
}
