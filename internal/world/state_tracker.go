package world

import (
	"sync"

	"github.com/udisondev/worldserver/internal/model"
)

// Change flags bits reported by StateTracker.Delta.
const (
	ChangedPosition uint8 = 1 << iota
	ChangedHP
	ChangedLevel
)

// Snapshot is the last values broadcast for an entity.
type Snapshot struct {
	Location model.Location
	HP       int32
	Level    int32
}

// StateTracker remembers the last-broadcast snapshot of each entity's
// position, HP, and level, and reports which of those changed since.
type StateTracker struct {
	mu        sync.Mutex
	snapshots map[uint32]Snapshot
}

// NewStateTracker creates an empty tracker.
func NewStateTracker() *StateTracker {
	return &StateTracker{snapshots: make(map[uint32]Snapshot)}
}

// Delta compares current against id's last-broadcast snapshot, returns
// the bitmask of changed fields and the previous location (useful for
// resolving interest over the old-to-new move), and rewrites the
// snapshot whenever any field changed. The first call for an id always
// reports every field changed, with prevLocation equal to current.
func (t *StateTracker) Delta(id uint32, current Snapshot) (flags uint8, prevLocation model.Location) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.snapshots[id]
	if !ok {
		t.snapshots[id] = current
		return ChangedPosition | ChangedHP | ChangedLevel, current.Location
	}

	if prev.Location != current.Location {
		flags |= ChangedPosition
	}
	if prev.HP != current.HP {
		flags |= ChangedHP
	}
	if prev.Level != current.Level {
		flags |= ChangedLevel
	}
	if flags != 0 {
		t.snapshots[id] = current
	}
	return flags, prev.Location
}

// Remove drops id's snapshot, e.g. once it despawns.
func (t *StateTracker) Remove(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.snapshots, id)
}
