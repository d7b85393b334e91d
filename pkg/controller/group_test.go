package controller

import (
	"testing"

	"github.com/plustik/kasten/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddGroup(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")

	group, err := f.ctrl.AddGroup(alice.ID, "friends")
	require.NoError(t, err)
	assert.Equal(t, []uint64{alice.ID}, group.AdminIDs)
	assert.Empty(t, group.MemberIDs)

	user, err := f.ctrl.GetUserInfo(alice.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{group.ID}, user.GroupIDs)

	_, err = f.ctrl.AddGroup(alice.ID, "friends")
	requireCode(t, err, metadata.ErrTargetExists)

	_, err = f.ctrl.AddGroup(424242, "ghosts")
	requireCode(t, err, metadata.ErrNoSuchUser)
}

func TestGetGroupInfo(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")

	group, err := f.ctrl.AddGroup(alice.ID, "friends")
	require.NoError(t, err)
	_, err = f.ctrl.AddMembers(alice.ID, group.ID, bob.ID)
	require.NoError(t, err)

	for _, id := range []uint64{alice.ID, bob.ID} {
		got, err := f.ctrl.GetGroupInfo(id, group.ID)
		require.NoError(t, err)
		assert.Equal(t, "friends", got.Name)
	}

	_, err = f.ctrl.GetGroupInfo(carol.ID, group.ID)
	requireCode(t, err, metadata.ErrForbiddenAction)

	_, err = f.ctrl.GetGroupInfo(alice.ID, 999999)
	requireCode(t, err, metadata.ErrNoSuchTarget)
}

func TestUpdateGroupInfo(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	group, err := f.ctrl.AddGroup(alice.ID, "friends")
	require.NoError(t, err)
	_, err = f.ctrl.AddMembers(alice.ID, group.ID, bob.ID)
	require.NoError(t, err)

	_, err = f.ctrl.UpdateGroupInfo(bob.ID, group.ID, "bobs")
	requireCode(t, err, metadata.ErrForbiddenAction)

	renamed, err := f.ctrl.UpdateGroupInfo(alice.ID, group.ID, "pals")
	require.NoError(t, err)
	assert.Equal(t, "pals", renamed.Name)

	id, err := f.db.GetGroupIDByName("pals")
	require.NoError(t, err)
	assert.Equal(t, group.ID, id)

	_, err = f.db.GetGroupIDByName("friends")
	assert.Error(t, err)
}

func TestAddMembersAndAdmins(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")

	group, err := f.ctrl.AddGroup(alice.ID, "friends")
	require.NoError(t, err)

	_, err = f.ctrl.AddMembers(bob.ID, group.ID, bob.ID)
	requireCode(t, err, metadata.ErrForbiddenAction)

	group, err = f.ctrl.AddMembers(alice.ID, group.ID, bob.ID, carol.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{bob.ID, carol.ID}, group.MemberIDs)

	group, err = f.ctrl.AddMembers(alice.ID, group.ID, carol.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{bob.ID, carol.ID}, group.MemberIDs)

	group, err = f.ctrl.AddAdmins(alice.ID, group.ID, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{alice.ID, bob.ID}, group.AdminIDs)

	// bob is an admin now
	_, err = f.ctrl.AddAdmins(bob.ID, group.ID, carol.ID)
	require.NoError(t, err)

	_, err = f.ctrl.AddMembers(alice.ID, group.ID, 424242)
	requireCode(t, err, metadata.ErrNoSuchTarget)
}

func TestAppendMissing(t *testing.T) {
	assert.Equal(t, []uint64{1, 2, 3}, appendMissing([]uint64{1, 2}, []uint64{2, 3, 3}))
	assert.Equal(t, []uint64{4}, appendMissing(nil, []uint64{4, 4}))
	assert.Nil(t, appendMissing(nil, nil))
}
