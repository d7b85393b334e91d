// Package metadata defines the entities of the storage engine, its typed
// errors, and the authorization rules the controller layer applies to them.
//
// Identifiers are non-zero 64-bit values. Zero is reserved: a directory with
// ParentID 0 is the root of a user's tree.
package metadata

import "time"

// MaxListLen is the largest number of entries any stored ID list may hold.
// Counts are persisted as 16-bit fields.
const MaxListLen = 1<<16 - 1

// Permissions holds the groups that may read or write a node.
//
// Lists keep insertion order and may contain duplicates.
type Permissions struct {
	ReadGroupIDs  []uint64
	WriteGroupIDs []uint64
}

// File is a leaf node of a user's tree.
type File struct {
	ID        uint64
	ParentID  uint64
	OwnerID   uint64
	Name      string
	MediaType string

	Permissions
}

// Directory is an inner node of a user's tree.
type Directory struct {
	ID       uint64
	ParentID uint64
	OwnerID  uint64
	Name     string

	// ChildIDs lists file and directory IDs in insertion order
	ChildIDs []uint64

	Permissions
}

// IsRoot reports whether the directory is the root of a user's tree.
func (d *Directory) IsRoot() bool {
	return d.ParentID == 0
}

// Children is the resolved content of a directory.
type Children struct {
	Files []*File
	Dirs  []*Directory
}

// Group is a named set of users. Admins may change the group.
type Group struct {
	ID        uint64
	Name      string
	MemberIDs []uint64
	AdminIDs  []uint64
}

// HasMember reports whether userID is a member of the group.
func (g *Group) HasMember(userID uint64) bool {
	return containsID(g.MemberIDs, userID)
}

// HasAdmin reports whether userID administers the group.
func (g *Group) HasAdmin(userID uint64) bool {
	return containsID(g.AdminIDs, userID)
}

// User is an account. GroupIDs is derived from group membership when the
// user is read and is never persisted with the user record.
type User struct {
	ID           uint64
	Name         string
	PasswordHash string
	RootDirID    uint64
	GroupIDs     []uint64
}

// UserSession is an authenticated login.
type UserSession struct {
	ID        uint64
	UserID    uint64
	CreatedAt time.Time
}

func containsID(ids []uint64, id uint64) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
