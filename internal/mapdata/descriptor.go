// Package mapdata loads the static description of a world map: its
// dimensions and the monster spawn points scattered across it. JSON
// descriptors are decoded with the standard library's encoding/json,
// the one ambient concern no repo in the reference corpus needed a
// third-party package for, noted in the design ledger. A path ending in
// .yaml or .yml instead decodes with gopkg.in/yaml.v3, the same config
// idiom the world server's own settings file uses. Spawn and descriptor
// shape are grounded on the Go-literal spawn definitions precedent
// (internal/data/spawn_data.go, spawn_loader.go), translated into file
// formats an operator can edit without recompiling the server.
package mapdata

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SpawnPoint describes one monster spawn anchor.
type SpawnPoint struct {
	MonsterType  uint8   `json:"monsterType" yaml:"monsterType"`
	X            float32 `json:"x" yaml:"x"`
	Y            float32 `json:"y" yaml:"y"`
	Z            float32 `json:"z" yaml:"z"`
	Count        int32   `json:"count" yaml:"count"`
	RespawnSecs  int32   `json:"respawnSeconds" yaml:"respawnSeconds"`
	SpawnRadius  float32 `json:"spawnRadius" yaml:"spawnRadius"`
	Level        int32   `json:"level" yaml:"level"`
	MaxHP        int32   `json:"maxHP" yaml:"maxHP"`
	Damage       int32   `json:"damage" yaml:"damage"`
	MoveSpeed    float32 `json:"moveSpeed" yaml:"moveSpeed"`
	DetectRange  float32 `json:"detectRange" yaml:"detectRange"`
	AttackRange  float32 `json:"attackRange" yaml:"attackRange"`
	Patrol       bool    `json:"patrol" yaml:"patrol"`
	PatrolRadius float32 `json:"patrolRadius" yaml:"patrolRadius"`
}

// Descriptor is a map's static layout.
type Descriptor struct {
	ID     int32        `json:"id" yaml:"id"`
	Name   string       `json:"name" yaml:"name"`
	Width  float32      `json:"width" yaml:"width"`
	Depth  float32      `json:"depth" yaml:"depth"`
	Spawns []SpawnPoint `json:"spawns" yaml:"spawns"`
}

// Load reads a map descriptor from path, picking its decoder from the
// file extension: .yaml/.yml use yaml.v3, anything else is treated as
// JSON.
func Load(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("mapdata: read %s: %w", path, err)
	}

	ext := ""
	if i := strings.LastIndex(path, "."); i >= 0 {
		ext = strings.ToLower(path[i+1:])
	}

	var d Descriptor
	switch ext {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &d); err != nil {
			return Descriptor{}, fmt.Errorf("mapdata: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &d); err != nil {
			return Descriptor{}, fmt.Errorf("mapdata: parse %s: %w", path, err)
		}
	}
	return d, nil
}

// Default returns a small built-in map used when no descriptor file is
// configured: ten monsters arranged along a diagonal.
func Default() Descriptor {
	d := Descriptor{ID: 1, Name: "default", Width: 2000, Depth: 2000}
	for i := 0; i < 10; i++ {
		pos := float32(i) * 100
		d.Spawns = append(d.Spawns, SpawnPoint{
			MonsterType: 1,
			X:           pos,
			Y:           0,
			Z:           pos,
			Count:       1,
			RespawnSecs: 30,
			SpawnRadius: 5,
			Level:       1,
			MaxHP:       100,
			Damage:      5,
			MoveSpeed:   3,
			DetectRange: 20,
			AttackRange: 2,
			Patrol:      true,
			PatrolRadius: 5,
		})
	}
	return d
}
