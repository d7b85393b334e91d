package metadata

// Node is the part of a file or directory that authorization looks at.
type Node interface {
	Owner() uint64
	Perms() Permissions
}

func (f *File) Owner() uint64           { return f.OwnerID }
func (f *File) Perms() Permissions      { return f.Permissions }
func (d *Directory) Owner() uint64      { return d.OwnerID }
func (d *Directory) Perms() Permissions { return d.Permissions }

// MayRead reports whether user may read node: the owner always may, anyone
// else needs a group in common with the node's read groups.
func MayRead(user *User, node Node) bool {
	if user.ID == node.Owner() {
		return true
	}
	return intersects(user.GroupIDs, node.Perms().ReadGroupIDs)
}

// MayWrite is MayRead for the node's write groups.
func MayWrite(user *User, node Node) bool {
	if user.ID == node.Owner() {
		return true
	}
	return intersects(user.GroupIDs, node.Perms().WriteGroupIDs)
}

func intersects(a, b []uint64) bool {
	for _, id := range a {
		if containsID(b, id) {
			return true
		}
	}
	return false
}
