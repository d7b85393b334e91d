package database

import (
	"github.com/plustik/kasten/pkg/kv"
	"github.com/plustik/kasten/pkg/metadata"
	"github.com/plustik/kasten/pkg/metadata/codec"
)

// Permission records are keyed by node ID and shared by files and
// directories. They live apart from the tree records so that changing a
// node's groups never rewrites a directory's child list.

// GetPermissions returns the read and write groups of a file or directory.
func (d *Database) GetPermissions(nodeID uint64) (metadata.Permissions, error) {
	var perms metadata.Permissions
	err := d.view("GetPermissions", func(txn kv.Txn) error {
		var err error
		perms, err = getPermissions(txn, nodeID)
		return err
	})
	return perms, err
}

// AddReadableGroup appends groupID to the node's read groups.
//
// The list is not de-duplicated: adding a group twice stores it twice.
// Fails with ErrNoSuchTarget if the node has no permission record or the
// group does not exist.
func (d *Database) AddReadableGroup(nodeID, groupID uint64) error {
	return d.update("AddReadableGroup", func(txn kv.Txn) error {
		return addGroupToPermissions(txn, nodeID, groupID, func(p *metadata.Permissions) {
			p.ReadGroupIDs = append(p.ReadGroupIDs, groupID)
		})
	})
}

// AddWriteableGroup appends groupID to the node's write groups.
// It follows the rules of AddReadableGroup.
func (d *Database) AddWriteableGroup(nodeID, groupID uint64) error {
	return d.update("AddWriteableGroup", func(txn kv.Txn) error {
		return addGroupToPermissions(txn, nodeID, groupID, func(p *metadata.Permissions) {
			p.WriteGroupIDs = append(p.WriteGroupIDs, groupID)
		})
	})
}

func addGroupToPermissions(txn kv.Txn, nodeID, groupID uint64, add func(*metadata.Permissions)) error {
	perms, err := getPermissions(txn, nodeID)
	if err != nil {
		return err
	}

	exists, err := txn.Has(groupsCollection, idKey(groupID))
	if err != nil {
		return err
	}
	if !exists {
		return metadata.NewError(metadata.ErrNoSuchTarget, groupID, "group does not exist")
	}

	add(&perms)
	return putPermissions(txn, nodeID, perms)
}

// getPermissions reads the permission record of nodeID.
func getPermissions(txn kv.Txn, nodeID uint64) (metadata.Permissions, error) {
	data, ok, err := get(txn, permsCollection, idKey(nodeID))
	if err != nil {
		return metadata.Permissions{}, err
	}
	if !ok {
		return metadata.Permissions{}, metadata.NewError(metadata.ErrNoSuchTarget, nodeID, "no permission record")
	}
	return codec.DecodePermissions(data)
}

// lookupPermissions is getPermissions for reads that tolerate a missing
// record, reporting it as empty lists.
func lookupPermissions(txn kv.Txn, nodeID uint64) (metadata.Permissions, error) {
	perms, err := getPermissions(txn, nodeID)
	if metadata.IsCode(err, metadata.ErrNoSuchTarget) {
		return metadata.Permissions{}, nil
	}
	return perms, err
}

func putPermissions(txn kv.Txn, nodeID uint64, perms metadata.Permissions) error {
	data, err := codec.EncodePermissions(perms)
	if err != nil {
		return err
	}
	return txn.Set(permsCollection, idKey(nodeID), data)
}

func deletePermissions(txn kv.Txn, nodeID uint64) error {
	return txn.Delete(permsCollection, idKey(nodeID))
}
