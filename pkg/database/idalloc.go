package database

import (
	"math/rand/v2"

	"github.com/plustik/kasten/pkg/kv"
	"github.com/plustik/kasten/pkg/metadata"
)

// maxAllocAttempts bounds how many taken IDs the allocator tolerates before
// it reports an internal error.
const maxAllocAttempts = 1000

// IDSource produces candidate identifiers. It must be safe for concurrent use.
type IDSource func() uint64

// RandomIDs draws uniformly distributed 64-bit identifiers.
func RandomIDs() uint64 {
	return rand.Uint64()
}

// allocateID draws candidates from source until one is non-zero and not
// taken.
func allocateID(source IDSource, taken func(id uint64) (bool, error)) (uint64, error) {
	for attempt := 0; attempt < maxAllocAttempts; attempt++ {
		id := source()
		if id == 0 {
			continue
		}
		exists, err := taken(id)
		if err != nil {
			return 0, err
		}
		if !exists {
			return id, nil
		}
	}
	return 0, metadata.NewError(metadata.ErrInternal, 0, "no free identifier after %d attempts", maxAllocAttempts)
}

// inAnyCollection returns a taken-check over the given collections of txn.
//
// Every Has is a tracked read, so two transactions that draw the same ID
// conflict on commit instead of both writing it.
func inAnyCollection(txn kv.Txn, collections ...kv.Collection) func(uint64) (bool, error) {
	return func(id uint64) (bool, error) {
		for _, c := range collections {
			ok, err := txn.Has(c, idKey(id))
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
}

// allocateNodeID allocates an ID unused by any file or directory and free of
// a permission record, so a record left behind by RemoveDir is never
// adopted by a new node.
func (d *Database) allocateNodeID(txn kv.Txn) (uint64, error) {
	return allocateID(d.newID, inAnyCollection(txn, filesCollection, dirsCollection, permsCollection))
}
