// Package ai drives monster behavior: a state machine cycling through
// Idle, Patrol, Chase, Attack, and Dead, ticked by the owning map at the
// cadence each state calls for. Interface shape and per-tick driving
// style follow internal/ai/controller.go and internal/ai/attackable_ai.go,
// simplified from aggro-list/hate/faction
// mechanics (out of scope here) down to the direct nearest-target rule
// this domain specifies.
package ai

// Controller is one monster's AI, ticked once per map update with the
// elapsed simulated time since the previous tick.
type Controller interface {
	Tick(elapsed float64)
}
