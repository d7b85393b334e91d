package database

import (
	"github.com/plustik/kasten/pkg/kv"
	"github.com/plustik/kasten/pkg/metadata"
	"github.com/plustik/kasten/pkg/metadata/codec"
)

// GetGroup returns the group with the given ID. ErrNoSuchTarget if absent.
func (d *Database) GetGroup(id uint64) (*metadata.Group, error) {
	var gen uint64
	if d.groups != nil {
		var cached *metadata.Group
		if cached, gen = d.groups.get(id); cached != nil {
			return cached, nil
		}
	}

	var group *metadata.Group
	err := d.view("GetGroup", func(txn kv.Txn) error {
		var err error
		group, err = getGroup(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if d.groups != nil {
		d.groups.put(group, gen)
	}
	return group, nil
}

// GetGroupIDByName resolves a group name. ErrNoSuchTarget if unknown.
func (d *Database) GetGroupIDByName(name string) (uint64, error) {
	var id uint64
	err := d.view("GetGroupIDByName", func(txn kv.Txn) error {
		var err error
		id, err = getIDByName(txn, groupNamesCollection, name)
		if err == nil && id == 0 {
			return metadata.NewError(metadata.ErrNoSuchTarget, 0, "no group named %q", name)
		}
		return err
	})
	return id, err
}

// InsertNewGroup stores a new group under a freshly allocated ID and returns
// it. group.ID is ignored.
//
// Fails with ErrTargetExists if the name is taken and with ErrNoSuchTarget if
// a member or admin is not an existing user. Every member and admin gets the
// group added to their user-to-groups index in the same transaction.
func (d *Database) InsertNewGroup(group *metadata.Group) (*metadata.Group, error) {
	var created *metadata.Group
	err := d.update("InsertNewGroup", func(txn kv.Txn) error {
		id, err := allocateID(d.newID, inAnyCollection(txn, groupsCollection))
		if err != nil {
			return err
		}

		created = cloneGroup(group)
		created.ID = id
		return putGroup(txn, created, nil)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// InsertGroup stores group under its own ID, creating or replacing it.
//
// It applies the validations of InsertNewGroup; a name collision is only an
// error if the name belongs to a different group.
func (d *Database) InsertGroup(group *metadata.Group) error {
	if group.ID == 0 {
		return metadata.NewError(metadata.ErrBadCall, 0, "group id must not be zero")
	}

	err := d.update("InsertGroup", func(txn kv.Txn) error {
		old, err := lookupGroup(txn, group.ID)
		if err != nil {
			return err
		}
		return putGroup(txn, group, old)
	})
	d.invalidateGroup(group.ID)
	return err
}

// UpdateGroup applies fn to the stored group and writes the result, all in
// one transaction, so that checks fn makes against the group hold when the
// write commits. fn may be called more than once if the transaction is
// retried. An error from fn aborts the update and is returned unchanged.
//
// The result is validated like InsertGroup. fn must not change the ID.
func (d *Database) UpdateGroup(id uint64, fn func(group *metadata.Group) error) (*metadata.Group, error) {
	var updated *metadata.Group
	err := d.update("UpdateGroup", func(txn kv.Txn) error {
		old, err := getGroup(txn, id)
		if err != nil {
			return err
		}

		updated = cloneGroup(old)
		if err := fn(updated); err != nil {
			return err
		}
		if updated.ID != id {
			return metadata.NewError(metadata.ErrBadCall, id, "group id cannot be changed")
		}
		return putGroup(txn, updated, old)
	})
	d.invalidateGroup(id)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (d *Database) invalidateGroup(id uint64) {
	if d.groups != nil {
		d.groups.invalidate(id)
	}
}

// putGroup validates and writes group, its name index entry and the
// user-to-groups index of its members and admins. old is the currently
// stored version, or nil when the group is new.
func putGroup(txn kv.Txn, group, old *metadata.Group) error {
	if group.Name == "" {
		return metadata.NewError(metadata.ErrBadCall, group.ID, "group name must not be empty")
	}

	ownerID, err := getIDByName(txn, groupNamesCollection, group.Name)
	if err != nil {
		return err
	}
	if ownerID != 0 && ownerID != group.ID {
		return metadata.NewError(metadata.ErrTargetExists, ownerID, "group name %q is taken", group.Name)
	}

	for _, userID := range append(append([]uint64(nil), group.MemberIDs...), group.AdminIDs...) {
		exists, err := txn.Has(usersCollection, idKey(userID))
		if err != nil {
			return err
		}
		if !exists {
			return metadata.NewError(metadata.ErrNoSuchTarget, userID, "group %q references a missing user", group.Name)
		}
	}

	data, err := codec.EncodeGroup(group)
	if err != nil {
		return err
	}
	if err := txn.Set(groupsCollection, idKey(group.ID), data); err != nil {
		return err
	}

	if old != nil && old.Name != group.Name {
		if err := txn.Delete(groupNamesCollection, nameKey(old.Name)); err != nil {
			return err
		}
	}
	if err := txn.Set(groupNamesCollection, nameKey(group.Name), idKey(group.ID)); err != nil {
		return err
	}

	for _, userID := range append(append([]uint64(nil), group.MemberIDs...), group.AdminIDs...) {
		if err := addUserGroup(txn, userID, group.ID); err != nil {
			return err
		}
	}
	return nil
}

// getGroup reads a group. ErrNoSuchTarget if absent.
func getGroup(txn kv.Txn, id uint64) (*metadata.Group, error) {
	group, err := lookupGroup(txn, id)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, metadata.NewError(metadata.ErrNoSuchTarget, id, "group does not exist")
	}
	return group, nil
}

// lookupGroup is getGroup returning nil for an absent group.
func lookupGroup(txn kv.Txn, id uint64) (*metadata.Group, error) {
	data, ok, err := get(txn, groupsCollection, idKey(id))
	if err != nil || !ok {
		return nil, err
	}
	return codec.DecodeGroup(id, data)
}

// addUserGroup records groupID in userID's user-to-groups index.
//
// The index only grows: removing a user from a group leaves the entry in
// place, and GetUser filters it against the group's current lists.
func addUserGroup(txn kv.Txn, userID, groupID uint64) error {
	groupIDs, err := getUserGroupIDs(txn, userID)
	if err != nil {
		return err
	}
	for _, id := range groupIDs {
		if id == groupID {
			return nil
		}
	}
	groupIDs = append(groupIDs, groupID)
	return txn.Set(userGroupsCollection, idKey(userID), codec.EncodeIDList(groupIDs))
}

func getUserGroupIDs(txn kv.Txn, userID uint64) ([]uint64, error) {
	data, ok, err := get(txn, userGroupsCollection, idKey(userID))
	if err != nil || !ok {
		return nil, err
	}
	return codec.DecodeIDList(data)
}

// getIDByName resolves a name index entry, returning 0 if the name is free.
func getIDByName(txn kv.Txn, c kv.Collection, name string) (uint64, error) {
	data, ok, err := get(txn, c, nameKey(name))
	if err != nil || !ok {
		return 0, err
	}
	id, valid := kv.DecodeUint64Key(data)
	if !valid {
		return 0, metadata.NewError(metadata.ErrEncoding, 0, "%s entry for %q is %d bytes", c, name, len(data))
	}
	return id, nil
}
