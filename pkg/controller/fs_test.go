package controller

import (
	"testing"

	"github.com/plustik/kasten/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDirAndFile(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	docs, err := f.ctrl.AddDir(alice.ID, alice.RootDirID, "docs")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, docs.OwnerID)
	assert.Equal(t, alice.RootDirID, docs.ParentID)

	file, err := f.ctrl.AddFile(alice.ID, docs.ID, "notes.txt", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", file.MediaType)

	_, err = f.ctrl.AddDir(bob.ID, alice.RootDirID, "intruder")
	requireCode(t, err, metadata.ErrForbiddenAction)

	_, err = f.ctrl.AddFile(bob.ID, docs.ID, "intruder.txt", "text/plain")
	requireCode(t, err, metadata.ErrForbiddenAction)

	_, err = f.ctrl.AddDir(alice.ID, 999999, "nowhere")
	requireCode(t, err, metadata.ErrNoSuchDir)
}

func TestReadAccess(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	file, err := f.ctrl.AddFile(alice.ID, alice.RootDirID, "a.txt", "text/plain")
	require.NoError(t, err)

	_, err = f.ctrl.GetDirInfo(bob.ID, alice.RootDirID)
	requireCode(t, err, metadata.ErrForbiddenAction)
	_, err = f.ctrl.GetFileInfo(bob.ID, file.ID)
	requireCode(t, err, metadata.ErrForbiddenAction)
	_, err = f.ctrl.ListDir(bob.ID, alice.RootDirID)
	requireCode(t, err, metadata.ErrForbiddenAction)

	group, err := f.ctrl.AddGroup(alice.ID, "friends")
	require.NoError(t, err)
	_, err = f.ctrl.AddMembers(alice.ID, group.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, f.ctrl.ShareRead(alice.ID, alice.RootDirID, group.ID))

	dir, err := f.ctrl.GetDirInfo(bob.ID, alice.RootDirID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{group.ID}, dir.ReadGroupIDs)

	children, err := f.ctrl.ListDir(bob.ID, alice.RootDirID)
	require.NoError(t, err)
	require.Len(t, children.Files, 1)
	assert.Equal(t, file.ID, children.Files[0].ID)

	// Read access on a directory doesn't extend to its children
	_, err = f.ctrl.GetFileInfo(bob.ID, file.ID)
	requireCode(t, err, metadata.ErrForbiddenAction)

	// Nor does it grant write access
	_, err = f.ctrl.AddDir(bob.ID, alice.RootDirID, "x")
	requireCode(t, err, metadata.ErrForbiddenAction)
}

func TestShareWrite(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	group, err := f.ctrl.AddGroup(alice.ID, "editors")
	require.NoError(t, err)
	_, err = f.ctrl.AddMembers(alice.ID, group.ID, bob.ID)
	require.NoError(t, err)

	err = f.ctrl.ShareWrite(bob.ID, alice.RootDirID, group.ID)
	requireCode(t, err, metadata.ErrForbiddenAction)

	require.NoError(t, f.ctrl.ShareWrite(alice.ID, alice.RootDirID, group.ID))

	dir, err := f.ctrl.AddDir(bob.ID, alice.RootDirID, "from-bob")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, dir.OwnerID)

	err = f.ctrl.ShareWrite(alice.ID, 999999, group.ID)
	requireCode(t, err, metadata.ErrNoSuchTarget)

	err = f.ctrl.ShareRead(alice.ID, alice.RootDirID, 999999)
	requireCode(t, err, metadata.ErrNoSuchTarget)
}

func TestShareFile(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	file, err := f.ctrl.AddFile(alice.ID, alice.RootDirID, "a.txt", "text/plain")
	require.NoError(t, err)
	group, err := f.ctrl.AddGroup(alice.ID, "readers")
	require.NoError(t, err)
	_, err = f.ctrl.AddMembers(alice.ID, group.ID, bob.ID)
	require.NoError(t, err)

	require.NoError(t, f.ctrl.ShareRead(alice.ID, file.ID, group.ID))

	got, err := f.ctrl.GetFileInfo(bob.ID, file.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", got.Name)
}

func TestUpdateFileInfo(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	docs, err := f.ctrl.AddDir(alice.ID, alice.RootDirID, "docs")
	require.NoError(t, err)
	file, err := f.ctrl.AddFile(alice.ID, alice.RootDirID, "a.txt", "text/plain")
	require.NoError(t, err)

	updated, err := f.ctrl.UpdateFileInfo(alice.ID, file.ID, NodeUpdate{
		Name:      ptr("a.md"),
		MediaType: ptr("text/markdown"),
		ParentID:  ptr(docs.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, "a.md", updated.Name)
	assert.Equal(t, docs.ID, updated.ParentID)

	children, err := f.ctrl.ListDir(alice.ID, docs.ID)
	require.NoError(t, err)
	require.Len(t, children.Files, 1)
	assert.Equal(t, "text/markdown", children.Files[0].MediaType)

	// Moving into a directory the user can't write
	_, err = f.ctrl.UpdateFileInfo(alice.ID, file.ID, NodeUpdate{ParentID: ptr(bob.RootDirID)})
	requireCode(t, err, metadata.ErrForbiddenAction)

	_, err = f.ctrl.UpdateFileInfo(alice.ID, file.ID, NodeUpdate{ParentID: ptr(uint64(0))})
	requireCode(t, err, metadata.ErrForbiddenAction)

	_, err = f.ctrl.UpdateFileInfo(bob.ID, file.ID, NodeUpdate{Name: ptr("stolen")})
	requireCode(t, err, metadata.ErrForbiddenAction)
}

func TestUpdateDirInfo(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")

	a, err := f.ctrl.AddDir(alice.ID, alice.RootDirID, "a")
	require.NoError(t, err)
	b, err := f.ctrl.AddDir(alice.ID, a.ID, "b")
	require.NoError(t, err)

	renamed, err := f.ctrl.UpdateDirInfo(alice.ID, a.ID, NodeUpdate{Name: ptr("alpha")})
	require.NoError(t, err)
	assert.Equal(t, "alpha", renamed.Name)
	assert.Equal(t, []uint64{b.ID}, renamed.ChildIDs)

	_, err = f.ctrl.UpdateDirInfo(alice.ID, a.ID, NodeUpdate{ParentID: ptr(b.ID)})
	requireCode(t, err, metadata.ErrBadCall)

	moved, err := f.ctrl.UpdateDirInfo(alice.ID, b.ID, NodeUpdate{ParentID: ptr(alice.RootDirID)})
	require.NoError(t, err)
	assert.Equal(t, alice.RootDirID, moved.ParentID)

	home, err := f.ctrl.GetDirInfo(alice.ID, alice.RootDirID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{a.ID, b.ID}, home.ChildIDs)
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	docs, err := f.ctrl.AddDir(alice.ID, alice.RootDirID, "docs")
	require.NoError(t, err)
	file, err := f.ctrl.AddFile(alice.ID, docs.ID, "a.txt", "text/plain")
	require.NoError(t, err)

	_, err = f.ctrl.RemoveFile(bob.ID, file.ID)
	requireCode(t, err, metadata.ErrForbiddenAction)
	_, err = f.ctrl.RemoveDir(bob.ID, docs.ID)
	requireCode(t, err, metadata.ErrForbiddenAction)

	_, err = f.ctrl.RemoveDir(alice.ID, alice.RootDirID)
	requireCode(t, err, metadata.ErrForbiddenAction)

	removed, err := f.ctrl.RemoveDir(alice.ID, docs.ID)
	require.NoError(t, err)
	assert.Equal(t, docs.ID, removed.ID)

	_, err = f.ctrl.GetFileInfo(alice.ID, file.ID)
	requireCode(t, err, metadata.ErrNoSuchFile)

	other, err := f.ctrl.AddFile(alice.ID, alice.RootDirID, "b.txt", "text/plain")
	require.NoError(t, err)
	_, err = f.ctrl.RemoveFile(alice.ID, other.ID)
	require.NoError(t, err)

	problems, err := f.db.Check()
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestUpdateInfo_KeepsSharedGroups(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	group, err := f.ctrl.AddGroup(alice.ID, "friends")
	require.NoError(t, err)
	_, err = f.ctrl.AddMembers(alice.ID, group.ID, bob.ID)
	require.NoError(t, err)

	docs, err := f.ctrl.AddDir(alice.ID, alice.RootDirID, "docs")
	require.NoError(t, err)
	file, err := f.ctrl.AddFile(alice.ID, docs.ID, "a.txt", "text/plain")
	require.NoError(t, err)

	require.NoError(t, f.ctrl.ShareWrite(alice.ID, docs.ID, group.ID))
	require.NoError(t, f.ctrl.ShareRead(alice.ID, file.ID, group.ID))

	// bob writes docs through the group and renames it
	dir, err := f.ctrl.UpdateDirInfo(bob.ID, docs.ID, NodeUpdate{Name: ptr("shared")})
	require.NoError(t, err)
	assert.Equal(t, []uint64{group.ID}, dir.WriteGroupIDs)

	updated, err := f.ctrl.UpdateFileInfo(alice.ID, file.ID, NodeUpdate{Name: ptr("b.txt"), ParentID: ptr(docs.ID)})
	require.NoError(t, err)
	assert.Equal(t, []uint64{group.ID}, updated.ReadGroupIDs)

	// Naming the current parent is not a move and needs no extra access
	_, err = f.ctrl.UpdateDirInfo(bob.ID, docs.ID, NodeUpdate{ParentID: ptr(alice.RootDirID)})
	require.NoError(t, err)

	perms, err := f.db.GetPermissions(docs.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{group.ID}, perms.WriteGroupIDs)
}
