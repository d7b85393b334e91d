package database

import (
	"github.com/plustik/kasten/internal/logger"
	"github.com/plustik/kasten/pkg/kv"
	"github.com/plustik/kasten/pkg/metadata"
)

// RemoveFile deletes a file and its permission record and splices it out of
// its parent's child list, all in one transaction. It returns the file as it
// was before removal.
//
// Fails with ErrNoSuchFile if the file does not exist and with
// ErrInconsistentDbState if its parent directory is missing.
func (d *Database) RemoveFile(id uint64) (*metadata.File, error) {
	var file *metadata.File
	err := d.update("RemoveFile", func(txn kv.Txn) error {
		var err error
		file, err = getFile(txn, id)
		if err != nil {
			return err
		}

		if err := removeChild(txn, file.ParentID, id); err != nil {
			return err
		}
		if err := txn.Delete(filesCollection, idKey(id)); err != nil {
			return err
		}
		return deletePermissions(txn, id)
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

// RemoveDir deletes a directory together with its whole subtree.
//
// Root directories are rejected with ErrForbiddenAction. In one transaction
// the directory is spliced out of its parent's child list, and every
// descendant file and directory is deleted along with its permission record.
// The subtree is walked with an explicit stack, so depth is bounded by
// memory rather than the call stack.
//
// The directory's own permission record is read and deleted in a second
// transaction after the structural removal has committed. A failure there
// is logged and the returned directory carries empty permission lists; the
// removal itself is not rolled back.
func (d *Database) RemoveDir(id uint64) (*metadata.Directory, error) {
	var dir *metadata.Directory
	err := d.update("RemoveDir", func(txn kv.Txn) error {
		var err error
		dir, err = getDirRecord(txn, id)
		if err != nil {
			return err
		}
		if dir.IsRoot() {
			return metadata.NewError(metadata.ErrForbiddenAction, id, "root directories cannot be removed")
		}

		if err := removeChild(txn, dir.ParentID, id); err != nil {
			return err
		}
		if err := removeSubtree(txn, dir); err != nil {
			return err
		}
		return txn.Delete(dirsCollection, idKey(id))
	})
	if err != nil {
		return nil, err
	}

	perms, err := d.takePermissions(id)
	if err != nil {
		logger.Warn("removed directory %d but could not remove its permission record: %v", id, err)
	} else {
		dir.Permissions = perms
	}
	return dir, nil
}

// removeSubtree deletes every descendant of dir and their permission records.
func removeSubtree(txn kv.Txn, dir *metadata.Directory) error {
	stack := append([]uint64(nil), dir.ChildIDs...)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		isFile, err := txn.Has(filesCollection, idKey(id))
		if err != nil {
			return err
		}
		if isFile {
			if err := txn.Delete(filesCollection, idKey(id)); err != nil {
				return err
			}
			if err := deletePermissions(txn, id); err != nil {
				return err
			}
			continue
		}

		sub, ok, err := lookupDirRecord(txn, id)
		if err != nil {
			return err
		}
		if !ok {
			logger.Warn("directory subtree of %d lists missing node %d", dir.ID, id)
			continue
		}

		stack = append(stack, sub.ChildIDs...)
		if err := txn.Delete(dirsCollection, idKey(id)); err != nil {
			return err
		}
		if err := deletePermissions(txn, id); err != nil {
			return err
		}
	}

	return nil
}

// takePermissions reads and deletes the permission record of nodeID.
func (d *Database) takePermissions(nodeID uint64) (metadata.Permissions, error) {
	var perms metadata.Permissions
	err := d.update("RemovePermissions", func(txn kv.Txn) error {
		var err error
		perms, err = getPermissions(txn, nodeID)
		if err != nil {
			return err
		}
		return deletePermissions(txn, nodeID)
	})
	return perms, err
}
