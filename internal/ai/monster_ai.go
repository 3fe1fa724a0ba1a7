package ai

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/udisondev/worldserver/internal/model"
)

// Update cadences per state, and the idle/patrol rescan throttle.
const (
	idleUpdatePeriod   = 500 * time.Millisecond
	patrolUpdatePeriod = 200 * time.Millisecond
	chaseUpdatePeriod  = 100 * time.Millisecond
	rescanPeriod       = 300 * time.Millisecond

	// idleToPatrolDelay is the accumulated idle time before a monster picks
	// a patrol target and moves off, independent of idleUpdatePeriod above
	// (which only throttles how often idle re-evaluates).
	idleToPatrolDelay = 3 * time.Second

	patrolRadius      = 5.0 // world units around the spawn anchor
	arrivalThreshold  = 0.5 // distance at which a patrol target counts as reached
	chaseGiveUpFactor = 1.5 // × detect range, beyond which a chase target is dropped
	rescanRangeFactor = 1.5 // × detect range, the radius scanned for a new target
)

// NearestTarget locates the nearest active character within radius of
// center, used by MonsterAI to acquire and drop targets. Implemented by
// the spatial grid (internal/world), injected here to avoid an import
// cycle between ai and world.
type NearestTarget func(center model.Location, radius float32) (id uint32, loc model.Location, found bool)

// CharacterLocator resolves a character's current location by id, used
// to check whether a chase/attack target is still in range. It returns
// found=false once the character has logged out or despawned.
type CharacterLocator func(id uint32) (loc model.Location, found bool)

// MonsterAI drives one monster through the Idle/Patrol/Chase/Attack/Dead
// state machine.
type MonsterAI struct {
	monster *model.Monster
	nearest NearestTarget
	locate  CharacterLocator

	mu           sync.Mutex
	sinceUpdate  time.Duration
	sinceIdle    time.Duration
	sinceRescan  time.Duration
	patrolTarget model.Location
}

// NewMonsterAI creates a controller for monster, using nearest to
// acquire targets and locate to track an existing target's position.
// sinceIdle starts already due so the first idle tick after creation (or
// after entering Idle from another state) always runs immediately;
// idleUpdatePeriod only throttles the ticks after that.
func NewMonsterAI(monster *model.Monster, nearest NearestTarget, locate CharacterLocator) *MonsterAI {
	return &MonsterAI{monster: monster, nearest: nearest, locate: locate, sinceIdle: idleUpdatePeriod}
}

// Tick advances the monster's state machine by elapsed seconds.
func (a *MonsterAI) Tick(elapsed float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.monster.State() == model.StateDead {
		return
	}
	if hp, _ := a.monster.HP(); hp <= 0 {
		a.monster.SetState(model.StateDead)
		a.monster.SetActive(false)
		return
	}

	step := time.Duration(elapsed * float64(time.Second))
	a.sinceUpdate += step
	a.sinceIdle += step
	a.sinceRescan += step

	switch a.monster.State() {
	case model.StateIdle:
		a.tickIdle()
	case model.StatePatrol:
		a.tickPatrol()
	case model.StateChase:
		a.tickChase()
	case model.StateAttack:
		a.tickAttack()
	}
}

func (a *MonsterAI) tickIdle() {
	if a.sinceIdle < idleUpdatePeriod {
		return
	}
	a.sinceIdle = 0

	a.maybeRescan()
	if a.monster.State() != model.StateIdle {
		return
	}
	if a.sinceUpdate < idleToPatrolDelay {
		return
	}
	a.sinceUpdate = 0

	anchor := a.monster.SpawnPoint()
	a.patrolTarget = model.Location{
		X: anchor.X + (rand.Float32()*2-1)*patrolRadius,
		Y: anchor.Y,
		Z: anchor.Z + (rand.Float32()*2-1)*patrolRadius,
	}
	a.monster.SetState(model.StatePatrol)
	a.sinceUpdate = 0
}

func (a *MonsterAI) tickPatrol() {
	a.maybeRescan()
	if a.monster.State() != model.StatePatrol {
		return
	}
	if a.sinceUpdate < patrolUpdatePeriod {
		return
	}
	a.sinceUpdate = 0

	current := a.monster.Location()
	next, arrived := StepToward(current, a.patrolTarget, a.monster.MoveSpeed(), patrolUpdatePeriod.Seconds(), arrivalThreshold)
	a.monster.SetLocation(next)
	if arrived {
		a.monster.SetState(model.StateIdle)
		a.sinceIdle = idleUpdatePeriod
	}
}

func (a *MonsterAI) maybeRescan() {
	if a.sinceRescan < rescanPeriod {
		return
	}
	a.sinceRescan = 0

	detect := a.monster.DetectRange()
	id, loc, found := a.nearest(a.monster.Location(), detect*rescanRangeFactor)
	if !found {
		return
	}
	if a.monster.Location().Distance(loc) > float64(detect) {
		return
	}
	a.monster.SetTarget(id)
	a.monster.SetState(model.StateChase)
	a.sinceUpdate = 0
}

func (a *MonsterAI) tickChase() {
	if a.sinceUpdate < chaseUpdatePeriod {
		return
	}
	a.sinceUpdate = 0

	targetID := a.monster.Target()
	targetLoc, found := a.locate(targetID)
	if !found {
		a.dropTarget()
		return
	}

	dist := a.monster.Location().Distance(targetLoc)
	detect := float64(a.monster.DetectRange())
	if dist > detect*chaseGiveUpFactor {
		a.dropTarget()
		return
	}
	if dist <= float64(a.monster.AttackRange()) {
		a.monster.SetState(model.StateAttack)
		return
	}

	next, _ := StepToward(a.monster.Location(), targetLoc, a.monster.MoveSpeed(), chaseUpdatePeriod.Seconds(), 0)
	a.monster.SetLocation(next)
}

func (a *MonsterAI) tickAttack() {
	targetID := a.monster.Target()
	targetLoc, found := a.locate(targetID)
	if !found {
		a.dropTarget()
		return
	}
	dist := a.monster.Location().Distance(targetLoc)
	if dist > float64(a.monster.AttackRange()) {
		a.monster.SetState(model.StateChase)
	}
	// Damage application is an extension point left unimplemented here.
}

func (a *MonsterAI) dropTarget() {
	a.monster.SetTarget(0)
	a.monster.SetState(model.StateIdle)
	a.sinceUpdate = 0
	a.sinceIdle = idleUpdatePeriod
}

// StepToward advances current toward target by speed*dt world units,
// clamping to target if the remaining distance is less than that step
// or below threshold. It returns the new location and whether the
// target has been reached.
func StepToward(current, target model.Location, speed float32, dt float64, threshold float64) (model.Location, bool) {
	dist := current.Distance(target)
	if dist <= threshold {
		return target, true
	}

	step := float64(speed) * dt
	if step >= dist {
		return target, true
	}

	ratio := step / dist
	next := model.Location{
		X: current.X + float32(float64(target.X-current.X)*ratio),
		Y: current.Y + float32(float64(target.Y-current.Y)*ratio),
		Z: current.Z + float32(float64(target.Z-current.Z)*ratio),
	}
	return next, false
}
