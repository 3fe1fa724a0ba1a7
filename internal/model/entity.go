// Package model defines the entity kinds that populate a map: their
// shared identity and position contract, plus the character, monster,
// and spawn anchor types built on top of it.
package model

import "sync"

// Kind tags an entity's type. The wire protocol encodes it as a single
// byte (protocol.ObjectSpawn.Type).
type Kind uint8

const (
	KindCharacter Kind = iota
	KindMonster
	KindNPC
	KindItem
	KindProjectile
	KindEffect
)

// Entity is the base every world object embeds: a stable id, a type tag,
// a mutable position, and an active flag. Object ids are partitioned by
// range so Kind is inferrable from id alone when the full record isn't
// at hand: characters start at 1, monsters at 10,000.
type Entity struct {
	id   uint32
	kind Kind

	mu       sync.RWMutex
	location Location
	active   bool
}

// NewEntity creates an Entity at loc, active by default.
func NewEntity(id uint32, kind Kind, loc Location) *Entity {
	return &Entity{id: id, kind: kind, location: loc, active: true}
}

// ID returns the entity's object id. Immutable after creation.
func (e *Entity) ID() uint32 {
	return e.id
}

// Kind returns the entity's type tag. Immutable after creation.
func (e *Entity) Kind() Kind {
	return e.kind
}

// Location returns a copy of the entity's current position.
func (e *Entity) Location() Location {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.location
}

// SetLocation updates the entity's position.
func (e *Entity) SetLocation(loc Location) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.location = loc
}

// Active reports whether the entity is still live in the world.
func (e *Entity) Active() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active
}

// SetActive flips the active flag, e.g. on death or despawn.
func (e *Entity) SetActive(active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = active
}
