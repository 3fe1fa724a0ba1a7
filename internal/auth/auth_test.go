package auth

import "testing"

func TestLoginRoundTrip(t *testing.T) {
	a := New()
	if err := a.Register("alice", "hunter2"); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	token, err := a.Login("alice", "hunter2")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	username, ok := a.Validate(token)
	if !ok || username != "alice" {
		t.Fatalf("Validate = %q, %v, want alice, true", username, ok)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	a := New()
	_ = a.Register("alice", "hunter2")

	if _, err := a.Login("alice", "wrong"); err != ErrInvalidCredentials {
		t.Fatalf("Login error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginRejectsUnknownAccount(t *testing.T) {
	a := New()
	if _, err := a.Login("ghost", "whatever"); err != ErrInvalidCredentials {
		t.Fatalf("Login error = %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	a := New()
	_ = a.Register("alice", "hunter2")
	if err := a.Register("alice", "other"); err != ErrAccountExists {
		t.Fatalf("Register error = %v, want ErrAccountExists", err)
	}
}

func TestValidateRejectsUnknownToken(t *testing.T) {
	a := New()
	if _, ok := a.Validate("not-a-real-token"); ok {
		t.Fatal("Validate should reject an unknown token")
	}
}
