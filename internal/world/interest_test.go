package world

import (
	"sort"
	"testing"

	"github.com/udisondev/worldserver/internal/model"
)

func sortedStrings(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func TestInterestManagerResolveOnSpawn(t *testing.T) {
	m := NewInterestManager()
	m.SetInterestArea("s1", model.Location{X: 0, Y: 0, Z: 0}, 10)
	m.SetInterestArea("s2", model.Location{X: 100, Y: 0, Z: 100}, 10)

	got := m.ResolveOnSpawn(1, model.Location{X: 1, Y: 0, Z: 1})
	want := []string{"s1"}
	if sort := sortedStrings(got); len(sort) != 1 || sort[0] != want[0] {
		t.Fatalf("ResolveOnSpawn = %v, want %v", got, want)
	}
}

func TestInterestManagerResolveTransitionOnObjectMove(t *testing.T) {
	m := NewInterestManager()
	m.SetInterestArea("near-origin", model.Location{X: 0, Y: 0, Z: 0}, 5)
	m.SetInterestArea("near-far", model.Location{X: 50, Y: 0, Z: 50}, 5)

	m.ResolveOnSpawn(1, model.Location{X: 0, Y: 0, Z: 0})

	entered, stayed, left := m.ResolveTransition(1, model.Location{X: 50, Y: 0, Z: 50})
	if len(stayed) != 0 {
		t.Fatalf("stayed = %v, want none", stayed)
	}
	if len(entered) != 1 || entered[0] != "near-far" {
		t.Fatalf("entered = %v, want [near-far]", entered)
	}
	if len(left) != 1 || left[0] != "near-origin" {
		t.Fatalf("left = %v, want [near-origin]", left)
	}

	// Reverse index should now reflect only the new position.
	onlyNew := m.ResolveOnDespawn(1)
	if len(onlyNew) != 1 || onlyNew[0] != "near-far" {
		t.Fatalf("ResolveOnDespawn after move = %v, want [near-far]", onlyNew)
	}
}

func TestInterestManagerResolveTransitionOnViewerAreaMove(t *testing.T) {
	m := NewInterestManager()
	m.SetInterestArea("viewer", model.Location{X: 0, Y: 0, Z: 0}, 50)

	// A stationary object at (100,0,0) starts out of view.
	m.ResolveOnSpawn(1, model.Location{X: 100, Y: 0, Z: 0})

	// The viewer walks to (60,0,0): 40 units from the object, inside the
	// radius, even though the object itself never moved.
	m.SetInterestArea("viewer", model.Location{X: 60, Y: 0, Z: 0}, 50)
	entered, stayed, left := m.ResolveTransition(1, model.Location{X: 100, Y: 0, Z: 0})
	if len(left) != 0 {
		t.Fatalf("left = %v, want none", left)
	}
	if len(stayed) != 0 {
		t.Fatalf("stayed = %v, want none", stayed)
	}
	if len(entered) != 1 || entered[0] != "viewer" {
		t.Fatalf("entered = %v, want [viewer]", entered)
	}

	// The viewer walks back out of range; the object should now leave.
	m.SetInterestArea("viewer", model.Location{X: 0, Y: 0, Z: 0}, 50)
	entered, stayed, left = m.ResolveTransition(1, model.Location{X: 100, Y: 0, Z: 0})
	if len(entered) != 0 || len(stayed) != 0 {
		t.Fatalf("entered = %v, stayed = %v, want both empty", entered, stayed)
	}
	if len(left) != 1 || left[0] != "viewer" {
		t.Fatalf("left = %v, want [viewer]", left)
	}
}

func TestInterestManagerRemoveInterestAreaClearsReverseIndex(t *testing.T) {
	m := NewInterestManager()
	m.SetInterestArea("s1", model.Location{}, 10)
	m.ResolveOnSpawn(1, model.Location{})

	m.RemoveInterestArea("s1")

	if got := m.ResolveOnDespawn(1); len(got) != 0 {
		t.Fatalf("ResolveOnDespawn = %v, want empty after interest area removed", got)
	}
}

func TestInterestManagerResolveOnDespawnReturnsPriorSet(t *testing.T) {
	m := NewInterestManager()
	m.SetInterestArea("s1", model.Location{}, 10)
	m.ResolveOnSpawn(1, model.Location{})

	got := m.ResolveOnDespawn(1)
	if len(got) != 1 || got[0] != "s1" {
		t.Fatalf("ResolveOnDespawn = %v, want [s1]", got)
	}

	// A second despawn call reports nothing left.
	if got := m.ResolveOnDespawn(1); len(got) != 0 {
		t.Fatalf("second ResolveOnDespawn = %v, want empty", got)
	}
}
