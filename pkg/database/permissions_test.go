package database

import (
	"testing"

	"github.com/plustik/kasten/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddReadableGroup(t *testing.T) {
	forEachBackend(t, Options{}, func(t *testing.T, db *Database) {
		root := newRoot(t, db, 7)
		file, err := db.InsertNewFile(root.ID, 7, "a.txt", "text/plain")
		require.NoError(t, err)
		team := mustGroup(t, db)

		require.NoError(t, db.AddReadableGroup(file.ID, team))

		perms, err := db.GetPermissions(file.ID)
		require.NoError(t, err)
		assert.Contains(t, perms.ReadGroupIDs, team)
		assert.Empty(t, perms.WriteGroupIDs)

		got, err := db.GetFile(file.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint64{team}, got.ReadGroupIDs)
	})
}

func TestAddWriteableGroup_KeepsDuplicates(t *testing.T) {
	forEachBackend(t, Options{}, func(t *testing.T, db *Database) {
		root := newRoot(t, db, 7)
		dir, err := db.InsertNewDir(root.ID, 7, "shared")
		require.NoError(t, err)
		team := mustGroup(t, db)

		require.NoError(t, db.AddWriteableGroup(dir.ID, team))
		require.NoError(t, db.AddWriteableGroup(dir.ID, team))

		got, err := db.GetDir(dir.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint64{team, team}, got.WriteGroupIDs)
		assert.Empty(t, got.ReadGroupIDs)
	})
}

func TestAddGroup_MissingTargets(t *testing.T) {
	forEachBackend(t, Options{}, func(t *testing.T, db *Database) {
		team := mustGroup(t, db)

		err := db.AddReadableGroup(404, team)
		requireCode(t, err, metadata.ErrNoSuchTarget)

		root := newRoot(t, db, 7)
		err = db.AddWriteableGroup(root.ID, 404)
		requireCode(t, err, metadata.ErrNoSuchTarget)

		_, err = db.GetPermissions(404)
		requireCode(t, err, metadata.ErrNoSuchTarget)
	})
}

func TestPermissionsSurviveTreeUpdates(t *testing.T) {
	db := newBadgerDatabase(t, Options{})
	root := newRoot(t, db, 7)
	team := mustGroup(t, db)
	require.NoError(t, db.AddReadableGroup(root.ID, team))

	// Inserting a child rewrites the parent's tree record only
	_, err := db.InsertNewFile(root.ID, 7, "a", "text/plain")
	require.NoError(t, err)

	perms, err := db.GetPermissions(root.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{team}, perms.ReadGroupIDs)
}
