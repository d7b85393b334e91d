package testutil

import "sync"

// ScriptedIDs hands out a fixed sequence of identifiers, then counts
// upwards from the last one. Safe for concurrent use.
type ScriptedIDs struct {
	mu    sync.Mutex
	queue []uint64
	next  uint64
}

// NewScriptedIDs creates a source that returns ids in order first.
func NewScriptedIDs(ids ...uint64) *ScriptedIDs {
	s := &ScriptedIDs{queue: ids, next: 1}
	if len(ids) > 0 {
		s.next = ids[len(ids)-1] + 1
	}
	return s
}

// Next returns the next identifier.
func (s *ScriptedIDs) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) > 0 {
		id := s.queue[0]
		s.queue = s.queue[1:]
		return id
	}
	id := s.next
	s.next++
	return id
}

// ConstantID returns a source that always yields id.
func ConstantID(id uint64) func() uint64 {
	return func() uint64 { return id }
}
