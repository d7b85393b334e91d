package database

import (
	"fmt"

	"github.com/plustik/kasten/pkg/kv"
	"github.com/plustik/kasten/pkg/metadata/codec"
)

// Problem is one tree invariant violation found by Check.
type Problem struct {
	NodeID uint64
	Reason string
}

func (p Problem) String() string {
	return fmt.Sprintf("node %d: %s", p.NodeID, p.Reason)
}

// Check verifies the tree invariants over the whole database in one read
// transaction:
//
//   - every child listed by a directory exists and points back at it
//   - no directory lists a child twice
//   - every non-root node is listed by its parent exactly once
//   - every node has a permission record and no file shares an ID with a directory
//
// A nil result means the tree is consistent.
func (d *Database) Check() ([]Problem, error) {
	var problems []Problem
	err := d.view("Check", func(txn kv.Txn) error {
		problems = nil
		report := func(id uint64, format string, args ...any) {
			problems = append(problems, Problem{NodeID: id, Reason: fmt.Sprintf(format, args...)})
		}

		parents := make(map[uint64]uint64)
		listed := make(map[uint64]int)
		var dirIDs []uint64

		err := txn.Scan(dirsCollection, nil, func(key, value []byte) error {
			id, _ := kv.DecodeUint64Key(key)
			dir, err := codec.DecodeDirectory(id, value)
			if err != nil {
				report(id, "undecodable directory record: %v", err)
				return nil
			}
			parents[id] = dir.ParentID
			dirIDs = append(dirIDs, id)

			seen := make(map[uint64]bool, len(dir.ChildIDs))
			for _, child := range dir.ChildIDs {
				if seen[child] {
					report(id, "lists child %d more than once", child)
				}
				seen[child] = true
				listed[child]++
			}
			return nil
		})
		if err != nil {
			return err
		}

		err = txn.Scan(filesCollection, nil, func(key, value []byte) error {
			id, _ := kv.DecodeUint64Key(key)
			if _, clash := parents[id]; clash {
				report(id, "used by a file and a directory")
			}
			file, err := codec.DecodeFile(id, value)
			if err != nil {
				report(id, "undecodable file record: %v", err)
				return nil
			}
			parents[id] = file.ParentID
			return nil
		})
		if err != nil {
			return err
		}

		for id, parent := range parents {
			if parent == 0 {
				if listed[id] > 0 {
					report(id, "root directory is listed as a child")
				}
			} else {
				if _, ok := parents[parent]; !ok {
					report(id, "parent %d does not exist", parent)
				}
				if listed[id] != 1 {
					report(id, "listed %d times, expected once", listed[id])
				}
			}

			hasPerms, err := txn.Has(permsCollection, idKey(id))
			if err != nil {
				return err
			}
			if !hasPerms {
				report(id, "missing permission record")
			}
		}

		for _, id := range dirIDs {
			dir, err := getDirRecord(txn, id)
			if err != nil {
				continue
			}
			for _, child := range dir.ChildIDs {
				parent, ok := parents[child]
				switch {
				case !ok:
					report(id, "lists missing child %d", child)
				case parent != id:
					report(id, "lists child %d whose parent is %d", child, parent)
				}
			}
		}
		return nil
	})
	return problems, err
}
