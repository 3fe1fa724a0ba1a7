package model

import "testing"

func TestMonsterHPClamped(t *testing.T) {
	m := NewMonster(10000, Location{}, 100, 5, 1, 3, 20, 2, false, 0)

	m.SetHP(-5)
	if hp, _ := m.HP(); hp != 0 {
		t.Fatalf("HP = %d, want 0", hp)
	}

	m.SetHP(500)
	if hp, max := m.HP(); hp != max {
		t.Fatalf("HP = %d, want clamped to max %d", hp, max)
	}
}

func TestMonsterStateDefaultsToIdle(t *testing.T) {
	m := NewMonster(10000, Location{}, 100, 5, 1, 3, 20, 2, false, 0)
	if m.State() != StateIdle {
		t.Fatalf("State = %v, want StateIdle", m.State())
	}

	m.SetState(StateChase)
	if m.State() != StateChase {
		t.Fatalf("State = %v, want StateChase", m.State())
	}
}

func TestMonsterTarget(t *testing.T) {
	m := NewMonster(10000, Location{}, 100, 5, 1, 3, 20, 2, false, 0)
	if m.Target() != 0 {
		t.Fatalf("Target = %d, want 0", m.Target())
	}
	m.SetTarget(7)
	if m.Target() != 7 {
		t.Fatalf("Target = %d, want 7", m.Target())
	}
}
