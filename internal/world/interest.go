package world

import (
	"sync"

	"github.com/udisondev/worldserver/internal/model"
)

type interestArea struct {
	loc    model.Location
	radius float32
}

func (a interestArea) contains(loc model.Location) bool {
	return a.loc.DistanceSquared(loc) <= float64(a.radius)*float64(a.radius)
}

// InterestManager tracks, per session, the spherical area that session
// cares about, and maintains the reverse index from object id to the set
// of sessions currently interested in it. It never touches the spatial
// grid directly; every resolution walks the (small) set of live interest
// areas.
type InterestManager struct {
	mu      sync.RWMutex
	areas   map[string]interestArea   // sessionID -> area
	reverse map[uint32]map[string]struct{} // objectID -> sessionIDs
}

// NewInterestManager creates an empty manager.
func NewInterestManager() *InterestManager {
	return &InterestManager{
		areas:   make(map[string]interestArea),
		reverse: make(map[uint32]map[string]struct{}),
	}
}

// SetInterestArea installs or replaces sessionID's interest area.
func (m *InterestManager) SetInterestArea(sessionID string, loc model.Location, radius float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.areas[sessionID] = interestArea{loc: loc, radius: radius}
}

// RemoveInterestArea drops sessionID's area and erases it from every
// object's reverse-index entry.
func (m *InterestManager) RemoveInterestArea(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.areas, sessionID)
	for id, set := range m.reverse {
		delete(set, sessionID)
		if len(set) == 0 {
			delete(m.reverse, id)
		}
	}
}

// ResolveOnSpawn computes the sessions whose interest area contains loc,
// stores that set as id's reverse-index entry, and returns it.
func (m *InterestManager) ResolveOnSpawn(id uint32, loc model.Location) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.sessionsContaining(loc)
	m.reverse[id] = set
	return keys(set)
}

// ResolveTransition recomputes which sessions can currently see id at
// loc against id's last-recorded reverse-index entry, diffing the two
// sets rather than re-deriving "old" from a stale location: a session's
// own area can have moved between calls (its avatar walked), not just
// id's location, so the prior reverse-index entry is the only reliable
// record of who actually saw id last. The reverse index is rewritten to
// the new set. entered and left partition the sessions whose view of id
// changed; stayed lists the rest.
func (m *InterestManager) ResolveTransition(id uint32, loc model.Location) (entered, stayed, left []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	newSet := m.sessionsContaining(loc)
	prevSet := m.reverse[id]

	for sid := range newSet {
		if _, ok := prevSet[sid]; ok {
			stayed = append(stayed, sid)
		} else {
			entered = append(entered, sid)
		}
	}
	for sid := range prevSet {
		if _, ok := newSet[sid]; !ok {
			left = append(left, sid)
		}
	}

	m.reverse[id] = newSet
	return entered, stayed, left
}

// ResolveOnDespawn removes id's reverse-index entry and returns the
// sessions that had been interested in it.
func (m *InterestManager) ResolveOnDespawn(id uint32) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.reverse[id]
	delete(m.reverse, id)
	if !ok {
		return nil
	}
	return keys(set)
}

func (m *InterestManager) sessionsContaining(loc model.Location) map[string]struct{} {
	out := make(map[string]struct{})
	for sid, area := range m.areas {
		if area.contains(loc) {
			out[sid] = struct{}{}
		}
	}
	return out
}

func keys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
