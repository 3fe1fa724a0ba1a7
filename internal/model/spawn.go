package model

import (
	"sync"
	"sync/atomic"
)

// Spawn is a monster spawn anchor parsed from a map descriptor: the
// point and radius around it that monsters populate, plus the
// bookkeeping needed to track how many are currently alive. Respawn
// scheduling itself is not implemented (see internal/world.Map).
type Spawn struct {
	id            int64
	monsterType   uint8
	location      Location
	count         int32
	respawnDelay  int32 // seconds; unused until respawn scheduling exists
	spawnRadius   float32
	level         int32
	maxHP         int32
	damage        int32
	moveSpeed     float32
	detectRange   float32
	attackRange   float32
	patrol        bool
	patrolRadius  float32

	mu      sync.RWMutex
	live    atomic.Int32 // currently-alive count
	monsters []*Monster
}

// NewSpawn creates a spawn anchor from a map descriptor entry.
func NewSpawn(id int64, monsterType uint8, loc Location, count int32, respawnDelay int32, spawnRadius float32, level, maxHP, damage int32, moveSpeed, detectRange, attackRange float32, patrol bool, patrolRadius float32) *Spawn {
	return &Spawn{
		id:           id,
		monsterType:  monsterType,
		location:     loc,
		count:        count,
		respawnDelay: respawnDelay,
		spawnRadius:  spawnRadius,
		level:        level,
		maxHP:        maxHP,
		damage:       damage,
		moveSpeed:    moveSpeed,
		detectRange:  detectRange,
		attackRange:  attackRange,
		patrol:       patrol,
		patrolRadius: patrolRadius,
		monsters:     make([]*Monster, 0, count),
	}
}

// ID returns the spawn anchor's id.
func (s *Spawn) ID() int64 { return s.id }

// MonsterType returns the template type id monsters from this spawn use.
func (s *Spawn) MonsterType() uint8 { return s.monsterType }

// Location returns the spawn anchor's center point.
func (s *Spawn) Location() Location { return s.location }

// Count returns the number of monsters this anchor should maintain.
func (s *Spawn) Count() int32 { return s.count }

// RespawnDelay returns the configured respawn delay in seconds.
func (s *Spawn) RespawnDelay() int32 { return s.respawnDelay }

// SpawnRadius returns the radius around Location monsters are placed within.
func (s *Spawn) SpawnRadius() float32 { return s.spawnRadius }

// Stats returns the level/HP/damage a monster from this spawn is created with.
func (s *Spawn) Stats() (level, maxHP, damage int32) {
	return s.level, s.maxHP, s.damage
}

// Ranges returns the move speed and sensing ranges a monster from this
// spawn is created with.
func (s *Spawn) Ranges() (moveSpeed, detectRange, attackRange float32) {
	return s.moveSpeed, s.detectRange, s.attackRange
}

// Patrol reports whether monsters from this spawn wander while idle, and
// within what radius.
func (s *Spawn) Patrol() (enabled bool, radius float32) {
	return s.patrol, s.patrolRadius
}

// LiveCount returns the number of currently-alive monsters from this spawn.
func (s *Spawn) LiveCount() int32 {
	return s.live.Load()
}

// AddMonster registers a newly-spawned monster against this anchor.
func (s *Spawn) AddMonster(m *Monster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monsters = append(s.monsters, m)
	s.live.Add(1)
}

// RemoveMonster unregisters a monster, e.g. on death.
func (s *Spawn) RemoveMonster(m *Monster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.monsters {
		if n == m {
			s.monsters = append(s.monsters[:i], s.monsters[i+1:]...)
			s.live.Add(-1)
			return
		}
	}
}

// Monsters returns a copy of the anchor's currently tracked monsters.
func (s *Spawn) Monsters() []*Monster {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Monster, len(s.monsters))
	copy(out, s.monsters)
	return out
}
