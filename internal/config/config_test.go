package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadReturnsDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("Load(missing) = %+v, want defaults", cfg)
	}
}

func TestLoadOverridesDefaultsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	body := "port: 9999\ntick_rate: 30\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9999 {
		t.Fatalf("Port = %d, want 9999", cfg.Port)
	}
	if cfg.TickRate != 30 {
		t.Fatalf("TickRate = %d, want 30", cfg.TickRate)
	}
	// Fields absent from the file keep their default value.
	if cfg.BindAddress != Default().BindAddress {
		t.Fatalf("BindAddress = %q, want default %q", cfg.BindAddress, Default().BindAddress)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	if err := os.WriteFile(path, []byte("port: [this is not valid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestTickPeriodDerivesFromTickRate(t *testing.T) {
	cfg := Default()
	cfg.TickRate = 20
	if got := cfg.TickPeriod(); got != 50*time.Millisecond {
		t.Fatalf("TickPeriod() = %v, want 50ms", got)
	}
}

func TestTickPeriodFallsBackWhenTickRateUnset(t *testing.T) {
	cfg := Default()
	cfg.TickRate = 0
	if got := cfg.TickPeriod(); got != 50*time.Millisecond {
		t.Fatalf("TickPeriod() = %v, want 50ms fallback", got)
	}
}
