package database

import (
	"github.com/plustik/kasten/pkg/kv"
)

// OrphanPermissions returns the IDs of permission records that belong to
// neither a file nor a directory. RemoveDir can leave one behind when its
// second transaction fails.
func (d *Database) OrphanPermissions() ([]uint64, error) {
	var orphans []uint64
	err := d.view("OrphanPermissions", func(txn kv.Txn) error {
		orphans = nil
		return txn.Scan(permsCollection, nil, func(key, _ []byte) error {
			id, ok := kv.DecodeUint64Key(key)
			if !ok {
				return nil
			}
			used, err := inAnyCollection(txn, filesCollection, dirsCollection)(id)
			if err != nil {
				return err
			}
			if !used {
				orphans = append(orphans, id)
			}
			return nil
		})
	})
	return orphans, err
}

// RemoveOrphanPermissions deletes the permission records of ids in one
// transaction. IDs that turned into a live node since they were listed, or
// whose record is already gone, are skipped. It returns the number of
// records deleted.
func (d *Database) RemoveOrphanPermissions(ids []uint64) (int, error) {
	var removed int
	err := d.update("RemoveOrphanPermissions", func(txn kv.Txn) error {
		removed = 0
		used := inAnyCollection(txn, filesCollection, dirsCollection)
		for _, id := range ids {
			inUse, err := used(id)
			if err != nil {
				return err
			}
			if inUse {
				continue
			}
			exists, err := txn.Has(permsCollection, idKey(id))
			if err != nil {
				return err
			}
			if !exists {
				continue
			}
			if err := deletePermissions(txn, id); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}
