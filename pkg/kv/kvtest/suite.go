// Package kvtest is a conformance suite for kv.Store implementations.
//
// It tests the interface contract, not implementation details, so every
// backend runs the same assertions.
package kvtest

import (
	"errors"
	"sync"
	"testing"

	"github.com/plustik/kasten/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// CollectionA and CollectionB are the collections NewStore must open.
	CollectionA kv.Collection = "alpha"
	CollectionB kv.Collection = "beta"
)

// StoreTestSuite runs the kv.Store contract against a backend.
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store exposing CollectionA and
	// CollectionB. The suite closes it.
	NewStore func(t *testing.T) kv.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("SetGet", suite.TestSetGet)
	t.Run("GetMissing", suite.TestGetMissing)
	t.Run("EmptyValue", suite.TestEmptyValue)
	t.Run("Delete", suite.TestDelete)
	t.Run("CollectionsAreIndependent", suite.TestCollectionsAreIndependent)
	t.Run("UnknownCollection", suite.TestUnknownCollection)
	t.Run("ScanPrefix", suite.TestScanPrefix)
	t.Run("UpdateAbortDiscardsWrites", suite.TestUpdateAbortDiscardsWrites)
	t.Run("ConcurrentIncrements", suite.TestConcurrentIncrements)
}

func (suite *StoreTestSuite) open(t *testing.T) kv.Store {
	store := suite.NewStore(t)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// TestSetGet verifies a committed value is visible to later transactions.
func (suite *StoreTestSuite) TestSetGet(t *testing.T) {
	store := suite.open(t)

	err := store.Update(func(txn kv.Txn) error {
		return txn.Set(CollectionA, kv.Uint64Key(1), []byte("one"))
	})
	require.NoError(t, err)

	err = store.View(func(txn kv.Txn) error {
		val, err := txn.Get(CollectionA, kv.Uint64Key(1))
		require.NoError(t, err)
		assert.Equal(t, []byte("one"), val)

		ok, err := txn.Has(CollectionA, kv.Uint64Key(1))
		require.NoError(t, err)
		assert.True(t, ok)
		return nil
	})
	require.NoError(t, err)
}

// TestGetMissing verifies ErrNotFound for absent keys.
func (suite *StoreTestSuite) TestGetMissing(t *testing.T) {
	store := suite.open(t)

	err := store.View(func(txn kv.Txn) error {
		_, err := txn.Get(CollectionA, kv.Uint64Key(42))
		assert.ErrorIs(t, err, kv.ErrNotFound)

		ok, err := txn.Has(CollectionA, kv.Uint64Key(42))
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

// TestEmptyValue verifies that a key with an empty value still exists.
func (suite *StoreTestSuite) TestEmptyValue(t *testing.T) {
	store := suite.open(t)

	require.NoError(t, store.Update(func(txn kv.Txn) error {
		return txn.Set(CollectionA, kv.CompoundKey(1, 2), nil)
	}))

	require.NoError(t, store.View(func(txn kv.Txn) error {
		ok, err := txn.Has(CollectionA, kv.CompoundKey(1, 2))
		require.NoError(t, err)
		assert.True(t, ok)

		val, err := txn.Get(CollectionA, kv.CompoundKey(1, 2))
		require.NoError(t, err)
		assert.Empty(t, val)
		return nil
	}))
}

// TestDelete verifies deletes and that deleting a missing key is allowed.
func (suite *StoreTestSuite) TestDelete(t *testing.T) {
	store := suite.open(t)

	require.NoError(t, store.Update(func(txn kv.Txn) error {
		return txn.Set(CollectionA, kv.Uint64Key(7), []byte("x"))
	}))
	require.NoError(t, store.Update(func(txn kv.Txn) error {
		if err := txn.Delete(CollectionA, kv.Uint64Key(7)); err != nil {
			return err
		}
		return txn.Delete(CollectionA, kv.Uint64Key(8))
	}))

	require.NoError(t, store.View(func(txn kv.Txn) error {
		_, err := txn.Get(CollectionA, kv.Uint64Key(7))
		assert.ErrorIs(t, err, kv.ErrNotFound)
		return nil
	}))
}

// TestCollectionsAreIndependent verifies equal keys in different collections don't collide.
func (suite *StoreTestSuite) TestCollectionsAreIndependent(t *testing.T) {
	store := suite.open(t)

	require.NoError(t, store.Update(func(txn kv.Txn) error {
		if err := txn.Set(CollectionA, kv.Uint64Key(5), []byte("a")); err != nil {
			return err
		}
		return txn.Set(CollectionB, kv.Uint64Key(5), []byte("b"))
	}))

	require.NoError(t, store.View(func(txn kv.Txn) error {
		a, err := txn.Get(CollectionA, kv.Uint64Key(5))
		require.NoError(t, err)
		b, err := txn.Get(CollectionB, kv.Uint64Key(5))
		require.NoError(t, err)
		assert.Equal(t, []byte("a"), a)
		assert.Equal(t, []byte("b"), b)

		var keys int
		err = txn.Scan(CollectionB, nil, func(_, _ []byte) error {
			keys++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, keys)
		return nil
	}))
}

// TestUnknownCollection verifies addressing an unopened collection fails.
func (suite *StoreTestSuite) TestUnknownCollection(t *testing.T) {
	store := suite.open(t)

	err := store.Update(func(txn kv.Txn) error {
		return txn.Set("gamma", kv.Uint64Key(1), []byte("x"))
	})
	assert.ErrorIs(t, err, kv.ErrUnknownCollection)
}

// TestScanPrefix verifies prefix scans return exactly the matching keys in order.
func (suite *StoreTestSuite) TestScanPrefix(t *testing.T) {
	store := suite.open(t)

	require.NoError(t, store.Update(func(txn kv.Txn) error {
		for _, k := range [][]byte{
			kv.CompoundKey(1, 30), kv.CompoundKey(1, 10), kv.CompoundKey(2, 5), kv.CompoundKey(1, 20),
		} {
			if err := txn.Set(CollectionA, k, nil); err != nil {
				return err
			}
		}
		return nil
	}))

	var seconds []uint64
	require.NoError(t, store.View(func(txn kv.Txn) error {
		return txn.Scan(CollectionA, kv.Uint64Key(1), func(key, _ []byte) error {
			first, second, ok := kv.SplitCompoundKey(key)
			require.True(t, ok)
			assert.Equal(t, uint64(1), first)
			seconds = append(seconds, second)
			return nil
		})
	}))
	assert.Equal(t, []uint64{10, 20, 30}, seconds)

	stop := errors.New("stop")
	var visited int
	err := store.View(func(txn kv.Txn) error {
		return txn.Scan(CollectionA, nil, func(_, _ []byte) error {
			visited++
			return stop
		})
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, visited)
}

// TestUpdateAbortDiscardsWrites verifies that an error from the closure rolls back every write.
func (suite *StoreTestSuite) TestUpdateAbortDiscardsWrites(t *testing.T) {
	store := suite.open(t)
	abort := errors.New("abort")

	err := store.Update(func(txn kv.Txn) error {
		if err := txn.Set(CollectionA, kv.Uint64Key(1), []byte("a")); err != nil {
			return err
		}
		if err := txn.Set(CollectionB, kv.Uint64Key(1), []byte("b")); err != nil {
			return err
		}
		return abort
	})
	assert.ErrorIs(t, err, abort)

	require.NoError(t, store.View(func(txn kv.Txn) error {
		for _, c := range []kv.Collection{CollectionA, CollectionB} {
			ok, err := txn.Has(c, kv.Uint64Key(1))
			require.NoError(t, err)
			assert.False(t, ok, "write to %s should have been discarded", c)
		}
		return nil
	}))
}

// TestConcurrentIncrements verifies read-modify-write updates don't lose writes under contention.
func (suite *StoreTestSuite) TestConcurrentIncrements(t *testing.T) {
	store := suite.open(t)
	key := kv.Uint64Key(99)

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				errs <- store.Update(func(txn kv.Txn) error {
					val, err := txn.Get(CollectionA, key)
					if errors.Is(err, kv.ErrNotFound) {
						val = kv.Uint64Key(0)
					} else if err != nil {
						return err
					}
					n, _ := kv.DecodeUint64Key(val)
					return txn.Set(CollectionA, key, kv.Uint64Key(n+1))
				})
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	require.NoError(t, store.View(func(txn kv.Txn) error {
		val, err := txn.Get(CollectionA, key)
		require.NoError(t, err)
		n, ok := kv.DecodeUint64Key(val)
		require.True(t, ok)
		assert.Equal(t, uint64(workers*perWorker), n)
		return nil
	}))
}
