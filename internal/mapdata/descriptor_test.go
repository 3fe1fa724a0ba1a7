package mapdata

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadParsesDescriptor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.json")
	content := `{
		"id": 2,
		"name": "test-map",
		"width": 1000,
		"depth": 1000,
		"spawns": [
			{"monsterType": 3, "x": 10, "y": 0, "z": 20, "count": 2, "respawnSeconds": 15}
		]
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if d.Name != "test-map" || len(d.Spawns) != 1 {
		t.Fatalf("Load = %+v, unexpected shape", d)
	}
	if d.Spawns[0].Count != 2 {
		t.Fatalf("Spawns[0].Count = %d, want 2", d.Spawns[0].Count)
	}
}

func TestLoadParsesYAMLDescriptor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.yaml")
	content := `
id: 3
name: yaml-map
width: 500
depth: 500
spawns:
  - monsterType: 1
    x: 5
    y: 0
    z: 5
    count: 4
    respawnSeconds: 20
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if d.Name != "yaml-map" || len(d.Spawns) != 1 {
		t.Fatalf("Load = %+v, unexpected shape", d)
	}
	if d.Spawns[0].Count != 4 {
		t.Fatalf("Spawns[0].Count = %d, want 4", d.Spawns[0].Count)
	}
}

func TestLoadRejectsMalformedYAMLDescriptor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.yml")
	if err := os.WriteFile(path, []byte("id: [this is not valid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestLoadReturnsErrorForMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/map.json"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestDefaultProducesTenSpawns(t *testing.T) {
	d := Default()
	if len(d.Spawns) != 10 {
		t.Fatalf("Default spawns = %d, want 10", len(d.Spawns))
	}
}
