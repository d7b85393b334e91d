package controller

import (
	"github.com/plustik/kasten/pkg/metadata"
)

// AddDir creates a directory below parentID. The acting user needs write
// access to the parent and becomes the owner.
func (c *Controller) AddDir(actingUserID, parentID uint64, name string) (*metadata.Directory, error) {
	if _, err := c.writableDir(actingUserID, parentID); err != nil {
		return nil, err
	}
	return c.db.InsertNewDir(parentID, actingUserID, name)
}

// AddFile creates a file below parentID, like AddDir.
func (c *Controller) AddFile(actingUserID, parentID uint64, name, mediaType string) (*metadata.File, error) {
	if _, err := c.writableDir(actingUserID, parentID); err != nil {
		return nil, err
	}
	return c.db.InsertNewFile(parentID, actingUserID, name, mediaType)
}

// GetDirInfo returns a directory the acting user may read.
func (c *Controller) GetDirInfo(actingUserID, dirID uint64) (*metadata.Directory, error) {
	user, err := c.db.GetUser(actingUserID)
	if err != nil {
		return nil, err
	}
	dir, err := c.db.GetDir(dirID)
	if err != nil {
		return nil, err
	}
	if !metadata.MayRead(user, dir) {
		return nil, forbidden(dirID, "no read access to directory")
	}
	return dir, nil
}

// GetFileInfo returns a file the acting user may read.
func (c *Controller) GetFileInfo(actingUserID, fileID uint64) (*metadata.File, error) {
	user, err := c.db.GetUser(actingUserID)
	if err != nil {
		return nil, err
	}
	file, err := c.db.GetFile(fileID)
	if err != nil {
		return nil, err
	}
	if !metadata.MayRead(user, file) {
		return nil, forbidden(fileID, "no read access to file")
	}
	return file, nil
}

// ListDir resolves the children of a readable directory. Children are
// returned regardless of their own permissions.
func (c *Controller) ListDir(actingUserID, dirID uint64) (*metadata.Children, error) {
	if _, err := c.GetDirInfo(actingUserID, dirID); err != nil {
		return nil, err
	}
	return c.db.ListChildren(dirID)
}

// NodeUpdate lists the fields to change on a file or directory. Nil fields
// are kept. MediaType only applies to files.
type NodeUpdate struct {
	Name      *string
	ParentID  *uint64
	MediaType *string
}

// UpdateDirInfo renames or moves a directory. Moving also requires write
// access to the new parent.
//
// The access check and the write happen in one transaction, so groups
// granted concurrently are kept.
func (c *Controller) UpdateDirInfo(actingUserID, dirID uint64, update NodeUpdate) (*metadata.Directory, error) {
	user, err := c.db.GetUser(actingUserID)
	if err != nil {
		return nil, err
	}
	moveErr := c.moveTargetCheck(user, update.ParentID)

	return c.db.UpdateDirWith(dirID, func(dir *metadata.Directory) error {
		if !metadata.MayWrite(user, dir) {
			return forbidden(dirID, "no write access to directory")
		}

		if update.Name != nil {
			dir.Name = *update.Name
		}
		if update.ParentID != nil && *update.ParentID != dir.ParentID {
			if moveErr != nil {
				return moveErr
			}
			dir.ParentID = *update.ParentID
		}
		return nil
	})
}

// UpdateFileInfo renames, retypes or moves a file like UpdateDirInfo.
func (c *Controller) UpdateFileInfo(actingUserID, fileID uint64, update NodeUpdate) (*metadata.File, error) {
	user, err := c.db.GetUser(actingUserID)
	if err != nil {
		return nil, err
	}
	moveErr := c.moveTargetCheck(user, update.ParentID)

	return c.db.UpdateFileWith(fileID, func(file *metadata.File) error {
		if !metadata.MayWrite(user, file) {
			return forbidden(fileID, "no write access to file")
		}

		if update.Name != nil {
			file.Name = *update.Name
		}
		if update.MediaType != nil {
			file.MediaType = *update.MediaType
		}
		if update.ParentID != nil && *update.ParentID != file.ParentID {
			if moveErr != nil {
				return moveErr
			}
			file.ParentID = *update.ParentID
		}
		return nil
	})
}

// RemoveDir removes a writable, non-root directory and everything below it.
func (c *Controller) RemoveDir(actingUserID, dirID uint64) (*metadata.Directory, error) {
	if _, err := c.writableDir(actingUserID, dirID); err != nil {
		return nil, err
	}
	return c.db.RemoveDir(dirID)
}

// RemoveFile removes a writable file.
func (c *Controller) RemoveFile(actingUserID, fileID uint64) (*metadata.File, error) {
	user, err := c.db.GetUser(actingUserID)
	if err != nil {
		return nil, err
	}
	file, err := c.db.GetFile(fileID)
	if err != nil {
		return nil, err
	}
	if !metadata.MayWrite(user, file) {
		return nil, forbidden(fileID, "no write access to file")
	}
	return c.db.RemoveFile(fileID)
}

// ShareRead grants groupID read access to a node the acting user may write.
func (c *Controller) ShareRead(actingUserID, nodeID, groupID uint64) error {
	if err := c.checkNodeWrite(actingUserID, nodeID); err != nil {
		return err
	}
	return c.db.AddReadableGroup(nodeID, groupID)
}

// ShareWrite grants groupID write access to a node the acting user may write.
func (c *Controller) ShareWrite(actingUserID, nodeID, groupID uint64) error {
	if err := c.checkNodeWrite(actingUserID, nodeID); err != nil {
		return err
	}
	return c.db.AddWriteableGroup(nodeID, groupID)
}

func (c *Controller) writableDir(actingUserID, dirID uint64) (*metadata.Directory, error) {
	user, err := c.db.GetUser(actingUserID)
	if err != nil {
		return nil, err
	}
	dir, err := c.db.GetDir(dirID)
	if err != nil {
		return nil, err
	}
	if !metadata.MayWrite(user, dir) {
		return nil, forbidden(dirID, "no write access to directory")
	}
	return dir, nil
}

// moveTargetCheck checks write access to a requested new parent ahead of
// the update transaction. The result only matters if the node turns out to
// move.
func (c *Controller) moveTargetCheck(user *metadata.User, parentID *uint64) error {
	if parentID == nil {
		return nil
	}
	return c.checkMoveTarget(user, *parentID)
}

func (c *Controller) checkMoveTarget(user *metadata.User, parentID uint64) error {
	if parentID == 0 {
		return forbidden(0, "nodes cannot be detached from their parent")
	}
	parent, err := c.db.GetDir(parentID)
	if err != nil {
		return err
	}
	if !metadata.MayWrite(user, parent) {
		return forbidden(parentID, "no write access to target directory")
	}
	return nil
}

// checkNodeWrite resolves nodeID as a directory or a file and checks write
// access on it.
func (c *Controller) checkNodeWrite(actingUserID, nodeID uint64) error {
	user, err := c.db.GetUser(actingUserID)
	if err != nil {
		return err
	}

	var node metadata.Node
	if dir, err := c.db.GetDir(nodeID); err == nil {
		node = dir
	} else if !metadata.IsCode(err, metadata.ErrNoSuchDir) {
		return err
	} else if file, err := c.db.GetFile(nodeID); err == nil {
		node = file
	} else if metadata.IsCode(err, metadata.ErrNoSuchFile) {
		return metadata.NewError(metadata.ErrNoSuchTarget, nodeID, "no such node")
	} else {
		return err
	}

	if !metadata.MayWrite(user, node) {
		return forbidden(nodeID, "no write access to node")
	}
	return nil
}
