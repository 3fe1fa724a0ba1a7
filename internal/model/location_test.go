package model

import "testing"

func TestDistanceSquared(t *testing.T) {
	a := Location{X: 0, Y: 0, Z: 0}
	b := Location{X: 3, Y: 0, Z: 4}

	if got := a.DistanceSquared(b); got != 25 {
		t.Fatalf("DistanceSquared = %v, want 25", got)
	}
	if got := a.Distance(b); got != 5 {
		t.Fatalf("Distance = %v, want 5", got)
	}
}

func TestPlanarDistanceSquaredIgnoresY(t *testing.T) {
	a := Location{X: 0, Y: 0, Z: 0}
	b := Location{X: 3, Y: 1000, Z: 4}

	if got := a.PlanarDistanceSquared(b); got != 25 {
		t.Fatalf("PlanarDistanceSquared = %v, want 25", got)
	}
}
