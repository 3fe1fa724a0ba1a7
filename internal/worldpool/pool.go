// Package worldpool hands out fresh object ids and recycles entity
// values, following the rent/return idiom used for packet buffers
// (internal/gameserver/packet.Writer's sync.Pool) and the id-range
// partitioning its spawn manager uses for NPC object ids.
package worldpool

import (
	"sync"
	"sync/atomic"

	"github.com/udisondev/worldserver/internal/model"
)

// Id ranges: character ids start at 1, monster ids start at 10,000, so
// an id alone discloses its Kind when the full record isn't at hand.
const (
	characterIDBase uint32 = 1
	monsterIDBase   uint32 = 10000
)

// IDs hands out unique object ids partitioned by entity kind.
type IDs struct {
	nextCharacter atomic.Uint32
	nextMonster   atomic.Uint32
}

// NewIDs creates an id allocator with both counters seeded at their base.
func NewIDs() *IDs {
	ids := &IDs{}
	ids.nextCharacter.Store(characterIDBase)
	ids.nextMonster.Store(monsterIDBase)
	return ids
}

// NextCharacterID returns the next unused character object id.
func (ids *IDs) NextCharacterID() uint32 {
	return ids.nextCharacter.Add(1) - 1
}

// NextMonsterID returns the next unused monster object id.
func (ids *IDs) NextMonsterID() uint32 {
	return ids.nextMonster.Add(1) - 1
}

// Characters pools *model.Character values so repeated login/logout
// cycles don't churn the allocator under load.
type Characters struct {
	pool sync.Pool
}

// NewCharacters creates an empty character pool.
func NewCharacters() *Characters {
	return &Characters{
		pool: sync.Pool{New: func() any { return new(model.Character) }},
	}
}

// Rent returns a character built at loc with the given attributes,
// reusing a value from a prior Return when one is available.
func (c *Characters) Rent(id uint32, name string, loc model.Location, level, maxHP int32, moveSpeed float32, sessionID string) *model.Character {
	ch := c.pool.Get().(*model.Character)
	ch.Reset(id, name, loc, level, maxHP, moveSpeed, sessionID)
	return ch
}

// Return releases a character back to the pool once its session has
// fully logged out and no reconnection grace period applies.
func (c *Characters) Return(ch *model.Character) {
	c.pool.Put(ch)
}

// Monsters pools *model.Monster values for respawn cycles.
type Monsters struct {
	pool sync.Pool
}

// NewMonsters creates an empty monster pool.
func NewMonsters() *Monsters {
	return &Monsters{
		pool: sync.Pool{New: func() any { return new(model.Monster) }},
	}
}

// Rent returns a monster built from a spawn anchor's descriptor, reusing
// a value from a prior Return when one is available.
func (m *Monsters) Rent(id uint32, loc model.Location, maxHP, damage, level int32, moveSpeed, detectRange, attackRange float32, patrol bool, patrolRadius float32) *model.Monster {
	mo := m.pool.Get().(*model.Monster)
	mo.Reset(id, loc, maxHP, damage, level, moveSpeed, detectRange, attackRange, patrol, patrolRadius)
	return mo
}

// Return releases a monster back to the pool once it has been despawned.
func (m *Monsters) Return(mo *model.Monster) {
	m.pool.Put(mo)
}
