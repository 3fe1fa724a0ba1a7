// Package config holds server configuration, loaded from YAML with
// fallback to sensible defaults when no file is present.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// World holds all configuration for the realtime world server.
type World struct {
	// Network
	BindAddress    string `yaml:"bind_address"`
	Port           int    `yaml:"port"`
	MaxConnections int    `yaml:"max_connections"`

	// Session I/O
	SendQueueSize int           `yaml:"send_queue_size"` // per-session outbox capacity
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`

	// Liveness
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	SessionTimeout    time.Duration `yaml:"session_timeout"`

	// Dispatcher
	DispatchWorkers int `yaml:"dispatch_workers"`

	// World / tick
	TickRate        int           `yaml:"tick_rate"` // ticks per second
	CellSize        float32       `yaml:"cell_size"`
	InterestRadius  float32       `yaml:"interest_radius"`
	ReconnectGrace  time.Duration `yaml:"reconnect_grace"`
	ParkSweepPeriod time.Duration `yaml:"park_sweep_period"`

	// Map descriptor
	MapDescriptorPath string `yaml:"map_descriptor_path"` // empty = built-in default map

	// Auth
	AllowAutoRegister bool `yaml:"allow_auto_register"`

	// Logging
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

// Default returns World config with its production-tuned defaults.
func Default() World {
	return World{
		BindAddress:       "0.0.0.0",
		Port:              8888,
		MaxConnections:    1000,
		SendQueueSize:     1000,
		ReadTimeout:       120 * time.Second,
		WriteTimeout:      5 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		SessionTimeout:    90 * time.Second,
		DispatchWorkers:   4,
		TickRate:          20,
		CellSize:          10,
		InterestRadius:    50,
		ReconnectGrace:    30 * time.Second,
		ParkSweepPeriod:   5 * time.Second,
		AllowAutoRegister: false,
		LogLevel:          "info",
	}
}

// Load loads World config from a YAML file. If the file doesn't exist,
// returns defaults.
func Load(path string) (World, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// TickPeriod returns the duration of one simulation tick.
func (w World) TickPeriod() time.Duration {
	if w.TickRate <= 0 {
		return 50 * time.Millisecond
	}
	return time.Second / time.Duration(w.TickRate)
}
