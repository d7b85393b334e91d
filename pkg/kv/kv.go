// Package kv defines the transactional byte store the database engine is built on.
//
// A store exposes named collections (independent keyspaces) and runs closures
// inside transactions that may touch any number of collections. All writes of
// an Update closure commit together or not at all.
//
// Backends:
//   - badger: optimistic concurrency with conflict detection and automatic retry
//   - bolt:   single-writer transactions (conflicts cannot occur)
package kv

import (
	"encoding/binary"
	"errors"
)

// Collection names an independent keyspace within a Store.
//
// Collection names are part of the on-disk contract: renaming one orphans
// every record stored under the old name.
type Collection string

var (
	// ErrNotFound is returned by Txn.Get when the key does not exist.
	ErrNotFound = errors.New("kv: key not found")

	// ErrConflict is returned by Store.Update when the transaction kept
	// conflicting with concurrent writers after all retries were spent.
	ErrConflict = errors.New("kv: transaction conflict")

	// ErrUnknownCollection is returned when a transaction addresses a
	// collection the store was not opened with.
	ErrUnknownCollection = errors.New("kv: unknown collection")
)

// Txn is a transaction handle passed to View and Update closures.
//
// Values returned by Get and passed to Scan callbacks are copies owned by the
// caller. Scan callbacks must not modify the collection being scanned; collect
// keys first and mutate after Scan returns.
type Txn interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(c Collection, key []byte) ([]byte, error)

	// Has reports whether key exists in the collection.
	Has(c Collection, key []byte) (bool, error)

	// Set stores value under key, replacing any previous value.
	Set(c Collection, key, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(c Collection, key []byte) error

	// Scan calls fn for every key in the collection starting with prefix, in
	// ascending key order. Returning an error from fn stops the scan and is
	// returned by Scan.
	Scan(c Collection, prefix []byte, fn func(key, value []byte) error) error
}

// Store is a transactional key-value store with named collections.
type Store interface {
	// View runs fn in a read-only transaction.
	View(fn func(txn Txn) error) error

	// Update runs fn in a read-write transaction. If fn returns an error the
	// transaction is discarded and the error is returned unchanged.
	//
	// fn may be invoked more than once when the backend retries after a
	// conflict, so it must derive everything it writes from what it reads
	// through txn.
	Update(fn func(txn Txn) error) error

	// Close releases the underlying database.
	Close() error
}

// Uint64Key encodes an identifier as the 8-byte big-endian key used by
// every ID-keyed collection.
func Uint64Key(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

// CompoundKey concatenates two identifiers into one 16-byte key, so that a
// prefix scan over Uint64Key(first) enumerates every entry for first.
func CompoundKey(first, second uint64) []byte {
	key := make([]byte, 16)
	binary.BigEndian.PutUint64(key[:8], first)
	binary.BigEndian.PutUint64(key[8:], second)
	return key
}

// DecodeUint64Key is the inverse of Uint64Key.
func DecodeUint64Key(key []byte) (uint64, bool) {
	if len(key) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(key), true
}

// SplitCompoundKey is the inverse of CompoundKey.
func SplitCompoundKey(key []byte) (first, second uint64, ok bool) {
	if len(key) != 16 {
		return 0, 0, false
	}
	return binary.BigEndian.Uint64(key[:8]), binary.BigEndian.Uint64(key[8:]), true
}
