package database

import (
	"github.com/plustik/kasten/pkg/kv"
	"github.com/plustik/kasten/pkg/metadata"
	"github.com/plustik/kasten/pkg/metadata/codec"
)

// homeDirName names the root directory created for every new user.
const homeDirName = "home"

// GetUser returns the user with the given ID. ErrNoSuchUser if absent.
//
// GroupIDs is derived from the user-to-groups index, keeping only groups
// that still list the user as member or admin.
func (d *Database) GetUser(id uint64) (*metadata.User, error) {
	var user *metadata.User
	err := d.view("GetUser", func(txn kv.Txn) error {
		var err error
		user, err = getUser(txn, id)
		return err
	})
	return user, err
}

// GetUserIDByName resolves a user name. ErrNoSuchUser if unknown.
func (d *Database) GetUserIDByName(name string) (uint64, error) {
	var id uint64
	err := d.view("GetUserIDByName", func(txn kv.Txn) error {
		var err error
		id, err = getIDByName(txn, userNamesCollection, name)
		if err == nil && id == 0 {
			return metadata.NewError(metadata.ErrNoSuchUser, 0, "no user named %q", name)
		}
		return err
	})
	return id, err
}

// InsertUser stores user under its own ID, creating or replacing it, and
// points the name index at it.
//
// Fails with ErrTargetExists if the name belongs to a different user. When a
// user is renamed the old name is released. GroupIDs is not stored.
func (d *Database) InsertUser(user *metadata.User) error {
	if user.ID == 0 {
		return metadata.NewError(metadata.ErrBadCall, 0, "user id must not be zero")
	}

	return d.update("InsertUser", func(txn kv.Txn) error {
		old, err := lookupUserRecord(txn, user.ID)
		if err != nil {
			return err
		}
		return putUser(txn, user, old)
	})
}

// UpdateUser reads the user with the given ID, passes it to fn and writes
// the result in one transaction, so a concurrent change to the user is
// never overwritten with a stale copy. fn may be called more than once if
// the transaction is retried; an error from fn aborts the update and is
// returned unchanged.
//
// The result is written like InsertUser. fn must not change the ID.
func (d *Database) UpdateUser(id uint64, fn func(user *metadata.User) error) (*metadata.User, error) {
	var updated *metadata.User
	err := d.update("UpdateUser", func(txn kv.Txn) error {
		old, err := getUser(txn, id)
		if err != nil {
			return err
		}

		clone := *old
		clone.GroupIDs = append([]uint64(nil), old.GroupIDs...)
		updated = &clone
		if err := fn(updated); err != nil {
			return err
		}
		if updated.ID != id {
			return metadata.NewError(metadata.ErrBadCall, id, "user id cannot be changed")
		}
		return putUser(txn, updated, old)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// InsertNewUser creates a user with a fresh ID and a root directory named
// "home" owned by the user, in one transaction. user.ID and user.RootDirID
// are ignored.
//
// Fails with ErrTargetExists if the name is taken.
func (d *Database) InsertNewUser(user *metadata.User) (*metadata.User, error) {
	var created *metadata.User
	err := d.update("InsertNewUser", func(txn kv.Txn) error {
		id, err := allocateID(d.newID, inAnyCollection(txn, usersCollection))
		if err != nil {
			return err
		}

		created = &metadata.User{
			ID:           id,
			Name:         user.Name,
			PasswordHash: user.PasswordHash,
		}

		// Name check first, so a taken name doesn't allocate a directory
		if err := checkUserName(txn, created); err != nil {
			return err
		}

		root, err := d.insertRootDir(txn, id, homeDirName)
		if err != nil {
			return err
		}
		created.RootDirID = root.ID

		return putUser(txn, created, nil)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func checkUserName(txn kv.Txn, user *metadata.User) error {
	if user.Name == "" {
		return metadata.NewError(metadata.ErrBadCall, user.ID, "user name must not be empty")
	}
	ownerID, err := getIDByName(txn, userNamesCollection, user.Name)
	if err != nil {
		return err
	}
	if ownerID != 0 && ownerID != user.ID {
		return metadata.NewError(metadata.ErrTargetExists, ownerID, "user name %q is taken", user.Name)
	}
	return nil
}

// putUser writes the user record and its name index entry. old is the
// currently stored version, or nil when the user is new.
func putUser(txn kv.Txn, user, old *metadata.User) error {
	if err := checkUserName(txn, user); err != nil {
		return err
	}

	data, err := codec.EncodeUser(user)
	if err != nil {
		return err
	}
	if err := txn.Set(usersCollection, idKey(user.ID), data); err != nil {
		return err
	}

	if old != nil && old.Name != user.Name {
		if err := txn.Delete(userNamesCollection, nameKey(old.Name)); err != nil {
			return err
		}
	}
	return txn.Set(userNamesCollection, nameKey(user.Name), idKey(user.ID))
}

// getUser reads a user and derives its groups. ErrNoSuchUser if absent.
func getUser(txn kv.Txn, id uint64) (*metadata.User, error) {
	user, err := lookupUserRecord(txn, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, metadata.NewError(metadata.ErrNoSuchUser, id, "user does not exist")
	}

	indexed, err := getUserGroupIDs(txn, id)
	if err != nil {
		return nil, err
	}
	for _, groupID := range indexed {
		group, err := lookupGroup(txn, groupID)
		if err != nil {
			return nil, err
		}
		if group != nil && (group.HasMember(id) || group.HasAdmin(id)) {
			user.GroupIDs = append(user.GroupIDs, groupID)
		}
	}
	return user, nil
}

func lookupUserRecord(txn kv.Txn, id uint64) (*metadata.User, error) {
	data, ok, err := get(txn, usersCollection, idKey(id))
	if err != nil || !ok {
		return nil, err
	}
	return codec.DecodeUser(id, data)
}
