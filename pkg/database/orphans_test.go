package database

import (
	"testing"

	"github.com/plustik/kasten/pkg/kv"
	"github.com/plustik/kasten/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrphanPermissions(t *testing.T) {
	forEachBackend(t, Options{}, func(t *testing.T, db *Database) {
		root := newRoot(t, db, 1)
		file, err := db.InsertNewFile(root.ID, 1, "a.txt", "text/plain")
		require.NoError(t, err)

		orphans, err := db.OrphanPermissions()
		require.NoError(t, err)
		assert.Empty(t, orphans)

		const stray = 424242
		require.NoError(t, db.update("test", func(txn kv.Txn) error {
			return putPermissions(txn, stray, metadata.Permissions{ReadGroupIDs: []uint64{9}})
		}))

		orphans, err = db.OrphanPermissions()
		require.NoError(t, err)
		assert.Equal(t, []uint64{stray}, orphans)

		removed, err := db.RemoveOrphanPermissions([]uint64{stray, file.ID, stray + 1})
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		orphans, err = db.OrphanPermissions()
		require.NoError(t, err)
		assert.Empty(t, orphans)

		_, err = db.GetPermissions(file.ID)
		assert.NoError(t, err)
		requireConsistent(t, db)
	})
}
