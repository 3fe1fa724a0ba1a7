package world

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/udisondev/worldserver/internal/ai"
	"github.com/udisondev/worldserver/internal/model"
	"github.com/udisondev/worldserver/internal/worldpool"
)

// idleSleep is how long the tick loop sleeps between checks when no
// character is present, instead of spinning the full tick rate against
// an empty map.
const idleSleep = time.Second

// Map owns every live entity on one world map: the grid that indexes
// their positions, the interest manager that resolves broadcast
// recipients, the state tracker that detects what changed, and the
// cooperative tick loop that advances them all. Modeled on the
// region/world tick loop precedent (internal/world/world.go), replacing
// its visibility-cache refresh with monster AI ticking and move integration.
type Map struct {
	tickPeriod time.Duration

	grid     *Grid
	interest *InterestManager
	tracker  *StateTracker

	characters *worldpool.Characters
	monsters   *worldpool.Monsters

	mu          sync.RWMutex
	chars       map[uint32]*model.Character
	mons        map[uint32]*model.Monster
	controllers map[uint32]*ai.MonsterAI
	bySession   map[string]*model.Character
}

// NewMap creates a map ticking at the given period, using cellSize for
// its spatial grid.
func NewMap(tickPeriod time.Duration, cellSize float32, characters *worldpool.Characters, monsters *worldpool.Monsters) *Map {
	return &Map{
		tickPeriod:  tickPeriod,
		grid:        NewGrid(cellSize),
		interest:    NewInterestManager(),
		tracker:     NewStateTracker(),
		characters:  characters,
		monsters:    monsters,
		chars:       make(map[uint32]*model.Character),
		mons:        make(map[uint32]*model.Monster),
		controllers: make(map[uint32]*ai.MonsterAI),
		bySession:   make(map[string]*model.Character),
	}
}

// Grid exposes the spatial index for callers outside the tick loop, e.g.
// the game service resolving an initial snapshot.
func (m *Map) Grid() *Grid { return m.grid }

// Interest exposes the interest manager for callers installing or
// dropping a session's interest area.
func (m *Map) Interest() *InterestManager { return m.interest }

// Tracker exposes the state tracker for callers computing broadcast deltas.
func (m *Map) Tracker() *StateTracker { return m.tracker }

// AddCharacter registers a character owned by sessionID and adds it to
// the spatial grid.
func (m *Map) AddCharacter(ch *model.Character) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chars[ch.ID()] = ch
	m.bySession[ch.SessionID()] = ch
	m.grid.Add(ch.ID(), ch.Location())
}

// RebindSession moves ch's bySession entry from oldSessionID to ch's
// current SessionID, for a character that stayed live in the map across
// a reconnect (never parked, so AddCharacter's own rekey never ran).
func (m *Map) RebindSession(oldSessionID string, ch *model.Character) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bySession, oldSessionID)
	m.bySession[ch.SessionID()] = ch
}

// RemoveCharacter drops a character from the map, grid, and state
// tracker and returns it; ok is false if id is not live. It does not
// return the character to the pool.
func (m *Map) RemoveCharacter(id uint32) (*model.Character, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.chars[id]
	if !ok {
		return nil, false
	}
	delete(m.chars, id)
	delete(m.bySession, ch.SessionID())
	m.grid.Remove(id)
	m.tracker.Remove(id)
	return ch, true
}

// AddMonster registers a monster, wires its AI controller, and adds it
// to the spatial grid.
func (m *Map) AddMonster(mo *model.Monster) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mons[mo.ID()] = mo
	m.controllers[mo.ID()] = ai.NewMonsterAI(mo, m.nearestCharacter, m.characterLocation)
	m.grid.Add(mo.ID(), mo.Location())
}

// RemoveMonster drops a monster from the map, grid, and AI registry.
func (m *Map) RemoveMonster(id uint32) (*model.Monster, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mo, ok := m.mons[id]
	if !ok {
		return nil, false
	}
	delete(m.mons, id)
	delete(m.controllers, id)
	m.grid.Remove(id)
	m.tracker.Remove(id)
	return mo, true
}

// GetInRange delegates to the spatial grid.
func (m *Map) GetInRange(x, y, z, r float32) []uint32 {
	return m.grid.Range(x, y, z, r)
}

// GetBySession returns the character owned by sessionID, if any.
func (m *Map) GetBySession(sessionID string) (*model.Character, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.bySession[sessionID]
	return ch, ok
}

// GetCharacter returns the character with the given id, if live.
func (m *Map) GetCharacter(id uint32) (*model.Character, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.chars[id]
	return ch, ok
}

// EntityIDs returns the ids of every live character and monster, a
// snapshot suitable for one BroadcastDeltas pass.
func (m *Map) EntityIDs() []uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]uint32, 0, len(m.chars)+len(m.mons))
	for id := range m.chars {
		ids = append(ids, id)
	}
	for id := range m.mons {
		ids = append(ids, id)
	}
	return ids
}

// Locate reports id's current location, HP, max HP, level, and kind,
// whether it names a character or a monster. It is the locate callback
// game.Service's BroadcastDeltas expects.
func (m *Map) Locate(id uint32) (loc model.Location, hp, maxHP, level int32, kind model.Kind, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ch, ok := m.chars[id]; ok {
		hp, maxHP := ch.HP()
		return ch.Location(), hp, maxHP, ch.Level(), model.KindCharacter, true
	}
	if mo, ok := m.mons[id]; ok {
		hp, maxHP := mo.HP()
		return mo.Location(), hp, maxHP, mo.Level(), model.KindMonster, true
	}
	return model.Location{}, 0, 0, 0, model.KindCharacter, false
}

// nearestCharacter implements ai.NearestTarget over the live character set.
func (m *Map) nearestCharacter(center model.Location, radius float32) (uint32, model.Location, bool) {
	candidates := m.grid.Range(center.X, center.Y, center.Z, radius)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		bestID   uint32
		bestLoc  model.Location
		bestDist = float64(radius) * float64(radius)
		found    bool
	)
	for _, id := range candidates {
		ch, ok := m.chars[id]
		if !ok || !ch.Active() {
			continue
		}
		d := ch.Location().DistanceSquared(center)
		if d <= bestDist {
			bestDist, bestID, bestLoc, found = d, id, ch.Location(), true
		}
	}
	return bestID, bestLoc, found
}

// characterLocation implements ai.CharacterLocator.
func (m *Map) characterLocation(id uint32) (model.Location, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.chars[id]
	if !ok || !ch.Active() {
		return model.Location{}, false
	}
	return ch.Location(), true
}

// Run advances the map at its configured tick rate until ctx is
// cancelled. It is the map's only writer of entity positions: handlers
// write move intent, the tick loop applies it.
func (m *Map) Run(ctx context.Context) error {
	slog.Info("map tick loop started", "period", m.tickPeriod)
	defer slog.Info("map tick loop stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if m.characterCount() == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(idleSleep):
			}
			continue
		}

		start := time.Now()
		m.tick(m.tickPeriod.Seconds())
		elapsed := time.Since(start)

		if wait := m.tickPeriod - elapsed; wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
}

func (m *Map) characterCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chars)
}

// tick runs one update pass over every entity: move characters toward
// their target, tick monster AI (which folds in its own target scan and
// movement), propagate any position change to the grid, and reap dead
// entities back to the pool.
func (m *Map) tick(dtSeconds float64) {
	m.mu.Lock()
	characters := make([]*model.Character, 0, len(m.chars))
	for _, ch := range m.chars {
		characters = append(characters, ch)
	}
	monsters := make([]*model.Monster, 0, len(m.mons))
	controllers := make([]*ai.MonsterAI, 0, len(m.mons))
	for id, mo := range m.mons {
		monsters = append(monsters, mo)
		controllers = append(controllers, m.controllers[id])
	}
	m.mu.Unlock()

	var deadMonsters []uint32

	for _, ch := range characters {
		old := ch.Location()
		moveCharacter(ch, dtSeconds)
		if next := ch.Location(); next != old {
			m.grid.Update(ch.ID(), next)
		}
	}

	for i, mo := range monsters {
		old := mo.Location()
		controllers[i].Tick(dtSeconds)
		if next := mo.Location(); next != old {
			m.grid.Update(mo.ID(), next)
		}
		if !mo.Active() {
			deadMonsters = append(deadMonsters, mo.ID())
		}
	}

	for _, id := range deadMonsters {
		if mo, ok := m.RemoveMonster(id); ok {
			// TODO: schedule a respawn from mo.SpawnPoint() after the
			// descriptor's RespawnSecs instead of returning it straight
			// to the pool; no caller currently tracks per-anchor timers.
			m.monsters.Return(mo)
		}
	}
}

// moveCharacter advances ch toward its current move target by one tick,
// stopping (and clearing the target) once it arrives.
func moveCharacter(ch *model.Character, dtSeconds float64) {
	tx, ty, tz, moving := ch.MoveTarget()
	if !moving {
		return
	}
	target := model.Location{X: tx, Y: ty, Z: tz}
	next, arrived := ai.StepToward(ch.Location(), target, ch.MoveSpeed(), dtSeconds, 0.05)
	ch.SetLocation(next)
	if arrived {
		ch.StopMoving()
	}
}
