package database

import (
	"github.com/plustik/kasten/internal/logger"
	"github.com/plustik/kasten/pkg/kv"
	"github.com/plustik/kasten/pkg/metadata"
	"github.com/plustik/kasten/pkg/metadata/codec"
)

// ============================================================================
// Reads
// ============================================================================

// GetFile returns the file with the given ID, including its permissions.
func (d *Database) GetFile(id uint64) (*metadata.File, error) {
	var file *metadata.File
	err := d.view("GetFile", func(txn kv.Txn) error {
		var err error
		file, err = getFile(txn, id)
		return err
	})
	return file, err
}

// GetDir returns the directory with the given ID, including its permissions.
func (d *Database) GetDir(id uint64) (*metadata.Directory, error) {
	var dir *metadata.Directory
	err := d.view("GetDir", func(txn kv.Txn) error {
		var err error
		dir, err = getDir(txn, id)
		return err
	})
	return dir, err
}

// ListChildren resolves the child list of a directory into files and
// directories, each in child-list order.
//
// A child ID found in neither collection is skipped. It can only exist after
// an earlier consistency failure, so it is logged.
func (d *Database) ListChildren(dirID uint64) (*metadata.Children, error) {
	children := &metadata.Children{}
	err := d.view("ListChildren", func(txn kv.Txn) error {
		dir, err := getDirRecord(txn, dirID)
		if err != nil {
			return err
		}

		for _, childID := range dir.ChildIDs {
			file, err := lookupFile(txn, childID)
			if err != nil {
				return err
			}
			if file != nil {
				children.Files = append(children.Files, file)
				continue
			}

			sub, err := lookupDir(txn, childID)
			if err != nil {
				return err
			}
			if sub != nil {
				children.Dirs = append(children.Dirs, sub)
				continue
			}

			logger.Warn("directory %d lists missing child %d", dirID, childID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return children, nil
}

// ============================================================================
// Inserts
// ============================================================================

// InsertNewFile creates a file under parentID with an empty permission record.
//
// The parent's child list, the file record and the permission record are
// written in one transaction. Fails with ErrNoSuchDir if the parent does not
// exist and with ErrBadCall if the parent already holds the maximum number of
// children.
func (d *Database) InsertNewFile(parentID, ownerID uint64, name, mediaType string) (*metadata.File, error) {
	var file *metadata.File
	err := d.update("InsertNewFile", func(txn kv.Txn) error {
		id, err := d.allocateNodeID(txn)
		if err != nil {
			return err
		}

		if err := appendChild(txn, parentID, id); err != nil {
			return err
		}

		file = &metadata.File{
			ID:        id,
			ParentID:  parentID,
			OwnerID:   ownerID,
			Name:      name,
			MediaType: mediaType,
		}
		if err := putFile(txn, file); err != nil {
			return err
		}
		return putPermissions(txn, id, metadata.Permissions{})
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

// InsertNewDir creates an empty directory under parentID. It follows the
// rules of InsertNewFile.
func (d *Database) InsertNewDir(parentID, ownerID uint64, name string) (*metadata.Directory, error) {
	var dir *metadata.Directory
	err := d.update("InsertNewDir", func(txn kv.Txn) error {
		id, err := d.allocateNodeID(txn)
		if err != nil {
			return err
		}

		if err := appendChild(txn, parentID, id); err != nil {
			return err
		}

		dir = &metadata.Directory{
			ID:       id,
			ParentID: parentID,
			OwnerID:  ownerID,
			Name:     name,
		}
		if err := putDir(txn, dir); err != nil {
			return err
		}
		return putPermissions(txn, id, metadata.Permissions{})
	})
	if err != nil {
		return nil, err
	}
	return dir, nil
}

// InsertRootDir creates a directory without parent, the root of a user's tree.
func (d *Database) InsertRootDir(ownerID uint64, name string) (*metadata.Directory, error) {
	var dir *metadata.Directory
	err := d.update("InsertRootDir", func(txn kv.Txn) error {
		var err error
		dir, err = d.insertRootDir(txn, ownerID, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dir, nil
}

func (d *Database) insertRootDir(txn kv.Txn, ownerID uint64, name string) (*metadata.Directory, error) {
	id, err := d.allocateNodeID(txn)
	if err != nil {
		return nil, err
	}

	dir := &metadata.Directory{ID: id, OwnerID: ownerID, Name: name}
	if err := putDir(txn, dir); err != nil {
		return nil, err
	}
	if err := putPermissions(txn, id, metadata.Permissions{}); err != nil {
		return nil, err
	}
	return dir, nil
}

// ============================================================================
// Updates
// ============================================================================

// UpdateFile replaces the name, owner, parent, media type and permission
// lists of an existing file.
//
// A changed ParentID moves the file: it is removed from the old parent's
// child list and appended to the new one's in the same transaction.
func (d *Database) UpdateFile(file *metadata.File) error {
	return d.update("UpdateFile", func(txn kv.Txn) error {
		old, err := getFileRecord(txn, file.ID)
		if err != nil {
			return err
		}
		return writeFile(txn, file, old.ParentID)
	})
}

// UpdateFileWith reads the file with the given ID, passes it to fn and
// writes the result, all in one transaction. Permission grants committed
// concurrently are never lost: a conflicting transaction is retried with a
// fresh read, so fn may be called more than once. An error from fn aborts
// the update and is returned unchanged.
//
// The result is written like UpdateFile. fn must not change the ID.
func (d *Database) UpdateFileWith(id uint64, fn func(file *metadata.File) error) (*metadata.File, error) {
	var updated *metadata.File
	err := d.update("UpdateFileWith", func(txn kv.Txn) error {
		var err error
		if updated, err = getFile(txn, id); err != nil {
			return err
		}
		oldParent := updated.ParentID

		if err := fn(updated); err != nil {
			return err
		}
		if updated.ID != id {
			return metadata.NewError(metadata.ErrBadCall, id, "file id cannot be changed")
		}
		return writeFile(txn, updated, oldParent)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func writeFile(txn kv.Txn, file *metadata.File, oldParent uint64) error {
	if file.ParentID != oldParent {
		if err := moveNode(txn, file.ID, oldParent, file.ParentID, false); err != nil {
			return err
		}
	}

	if err := putFile(txn, file); err != nil {
		return err
	}
	return putPermissions(txn, file.ID, file.Permissions)
}

// UpdateDir replaces the name, owner, parent and permission lists of an
// existing directory.
//
// The stored child list is kept as is; dir.ChildIDs is ignored, so children
// can't be orphaned through this path. A changed ParentID moves the
// directory like UpdateFile does. Moving a directory below itself fails with
// ErrBadCall; detaching a directory from its parent or attaching a root
// directory to one fails with ErrForbiddenAction.
func (d *Database) UpdateDir(dir *metadata.Directory) error {
	return d.update("UpdateDir", func(txn kv.Txn) error {
		old, err := getDirRecord(txn, dir.ID)
		if err != nil {
			return err
		}
		updated := *dir
		return writeDir(txn, &updated, old)
	})
}

// UpdateDirWith is UpdateFileWith for directories. Changes fn makes to
// ChildIDs are ignored.
func (d *Database) UpdateDirWith(id uint64, fn func(dir *metadata.Directory) error) (*metadata.Directory, error) {
	var updated *metadata.Directory
	err := d.update("UpdateDirWith", func(txn kv.Txn) error {
		old, err := getDir(txn, id)
		if err != nil {
			return err
		}

		updated = cloneDir(old)
		if err := fn(updated); err != nil {
			return err
		}
		if updated.ID != id {
			return metadata.NewError(metadata.ErrBadCall, id, "directory id cannot be changed")
		}
		return writeDir(txn, updated, old)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// writeDir stores dir over old, keeping old's child list.
func writeDir(txn kv.Txn, dir, old *metadata.Directory) error {
	if dir.ParentID != old.ParentID {
		if err := moveNode(txn, dir.ID, old.ParentID, dir.ParentID, true); err != nil {
			return err
		}
	}

	dir.ChildIDs = old.ChildIDs
	if err := putDir(txn, dir); err != nil {
		return err
	}
	return putPermissions(txn, dir.ID, dir.Permissions)
}

func cloneDir(d *metadata.Directory) *metadata.Directory {
	clone := *d
	clone.ChildIDs = append([]uint64(nil), d.ChildIDs...)
	clone.ReadGroupIDs = append([]uint64(nil), d.ReadGroupIDs...)
	clone.WriteGroupIDs = append([]uint64(nil), d.WriteGroupIDs...)
	return &clone
}

// moveNode moves id from oldParent's child list to newParent's.
func moveNode(txn kv.Txn, id, oldParent, newParent uint64, isDir bool) error {
	if oldParent == 0 {
		return metadata.NewError(metadata.ErrForbiddenAction, id, "root directories cannot be moved")
	}
	if newParent == 0 {
		return metadata.NewError(metadata.ErrForbiddenAction, id, "nodes cannot be turned into root directories")
	}

	if isDir {
		inside, err := isWithin(txn, newParent, id)
		if err != nil {
			return err
		}
		if inside {
			return metadata.NewError(metadata.ErrBadCall, id, "directory cannot be moved into its own subtree")
		}
	}

	if err := appendChild(txn, newParent, id); err != nil {
		return err
	}
	return removeChild(txn, oldParent, id)
}

// isWithin reports whether dirID is ancestorID or one of its descendants,
// following parent pointers upwards from dirID.
func isWithin(txn kv.Txn, dirID, ancestorID uint64) (bool, error) {
	seen := make(map[uint64]bool)
	for current := dirID; current != 0; {
		if current == ancestorID {
			return true, nil
		}
		if seen[current] {
			return false, metadata.NewError(metadata.ErrInconsistentDbState, current, "parent pointers form a cycle")
		}
		seen[current] = true

		dir, err := getDirRecord(txn, current)
		if err != nil {
			return false, err
		}
		current = dir.ParentID
	}
	return false, nil
}

// ============================================================================
// Child lists
// ============================================================================

// appendChild adds childID to the end of parentID's child list.
func appendChild(txn kv.Txn, parentID, childID uint64) error {
	parent, err := getDirRecord(txn, parentID)
	if err != nil {
		return err
	}
	if len(parent.ChildIDs) >= metadata.MaxListLen {
		return metadata.NewError(metadata.ErrBadCall, parentID, "directory already has %d children", len(parent.ChildIDs))
	}

	parent.ChildIDs = append(parent.ChildIDs, childID)
	return putDir(txn, parent)
}

// removeChild splices childID out of parentID's child list, keeping the
// order of the remaining children. The parent must exist: a child whose
// parent is gone means the tree is already broken.
func removeChild(txn kv.Txn, parentID, childID uint64) error {
	parent, ok, err := lookupDirRecord(txn, parentID)
	if err != nil {
		return err
	}
	if !ok {
		return metadata.NewError(metadata.ErrInconsistentDbState, childID, "parent directory %d is missing", parentID)
	}

	kept := parent.ChildIDs[:0]
	found := false
	for _, id := range parent.ChildIDs {
		if id == childID {
			found = true
			continue
		}
		kept = append(kept, id)
	}
	if !found {
		logger.Warn("directory %d does not list child %d", parentID, childID)
		return nil
	}

	parent.ChildIDs = kept
	return putDir(txn, parent)
}

// ============================================================================
// Records
// ============================================================================

// getFile reads a file and its permissions. ErrNoSuchFile if absent.
func getFile(txn kv.Txn, id uint64) (*metadata.File, error) {
	file, err := getFileRecord(txn, id)
	if err != nil {
		return nil, err
	}
	if file.Permissions, err = lookupPermissions(txn, id); err != nil {
		return nil, err
	}
	return file, nil
}

// lookupFile is getFile returning nil for an absent file.
func lookupFile(txn kv.Txn, id uint64) (*metadata.File, error) {
	file, err := getFile(txn, id)
	if metadata.IsCode(err, metadata.ErrNoSuchFile) {
		return nil, nil
	}
	return file, err
}

// getFileRecord reads a file without its permissions.
func getFileRecord(txn kv.Txn, id uint64) (*metadata.File, error) {
	data, ok, err := get(txn, filesCollection, idKey(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, metadata.NewError(metadata.ErrNoSuchFile, id, "file does not exist")
	}
	return codec.DecodeFile(id, data)
}

func putFile(txn kv.Txn, file *metadata.File) error {
	data, err := codec.EncodeFile(file)
	if err != nil {
		return err
	}
	return txn.Set(filesCollection, idKey(file.ID), data)
}

// getDir reads a directory and its permissions. ErrNoSuchDir if absent.
func getDir(txn kv.Txn, id uint64) (*metadata.Directory, error) {
	dir, err := getDirRecord(txn, id)
	if err != nil {
		return nil, err
	}
	if dir.Permissions, err = lookupPermissions(txn, id); err != nil {
		return nil, err
	}
	return dir, nil
}

// lookupDir is getDir returning nil for an absent directory.
func lookupDir(txn kv.Txn, id uint64) (*metadata.Directory, error) {
	dir, err := getDir(txn, id)
	if metadata.IsCode(err, metadata.ErrNoSuchDir) {
		return nil, nil
	}
	return dir, err
}

// getDirRecord reads a directory without its permissions.
func getDirRecord(txn kv.Txn, id uint64) (*metadata.Directory, error) {
	dir, ok, err := lookupDirRecord(txn, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, metadata.NewError(metadata.ErrNoSuchDir, id, "directory does not exist")
	}
	return dir, nil
}

func lookupDirRecord(txn kv.Txn, id uint64) (*metadata.Directory, bool, error) {
	data, ok, err := get(txn, dirsCollection, idKey(id))
	if err != nil || !ok {
		return nil, false, err
	}
	dir, err := codec.DecodeDirectory(id, data)
	if err != nil {
		return nil, false, err
	}
	return dir, true, nil
}

func putDir(txn kv.Txn, dir *metadata.Directory) error {
	data, err := codec.EncodeDirectory(dir)
	if err != nil {
		return err
	}
	return txn.Set(dirsCollection, idKey(dir.ID), data)
}
