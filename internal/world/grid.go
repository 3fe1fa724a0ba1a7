// Package world holds the spatial index, interest management, delta
// tracking, and tick loop that together keep every session's view of
// the map current. The coordinate-to-cell convention generalizes the
// fixed-shift region array precedent (internal/world/grid.go,
// internal/world/world.go) to a configurable cell size; the reverse
// interest index is modeled on its VisibilityManager
// (internal/world/visibility_manager.go), simplified away from its
// LOD/region-fingerprint caching, which doesn't apply to this domain's
// sphere-radius interest areas.
package world

import (
	"math"
	"sync"

	"github.com/udisondev/worldserver/internal/model"
)

type cellKey struct{ cx, cz int64 }

func cellOf(x, z, cellSize float32) cellKey {
	return cellKey{
		cx: int64(math.Floor(float64(x / cellSize))),
		cz: int64(math.Floor(float64(z / cellSize))),
	}
}

// Grid is a uniform spatial index over (x, z), used for range queries
// such as the login snapshot and monster AI target scans. Broadcast
// recipients are resolved by InterestManager, not by the grid.
type Grid struct {
	cellSize float32

	mu    sync.RWMutex
	cells map[cellKey]map[uint32]struct{}
	pos   map[uint32]model.Location
}

// NewGrid creates an empty grid with the given cell size.
func NewGrid(cellSize float32) *Grid {
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[cellKey]map[uint32]struct{}),
		pos:      make(map[uint32]model.Location),
	}
}

// Add inserts an id at loc.
func (g *Grid) Add(id uint32, loc model.Location) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pos[id] = loc
	key := cellOf(loc.X, loc.Z, g.cellSize)
	g.insert(key, id)
}

// Update moves id to loc, migrating it between cells if the cell changed.
func (g *Grid) Update(id uint32, loc model.Location) {
	g.mu.Lock()
	defer g.mu.Unlock()

	old, ok := g.pos[id]
	g.pos[id] = loc
	if !ok {
		g.insert(cellOf(loc.X, loc.Z, g.cellSize), id)
		return
	}

	oldKey := cellOf(old.X, old.Z, g.cellSize)
	newKey := cellOf(loc.X, loc.Z, g.cellSize)
	if oldKey == newKey {
		return
	}
	g.remove(oldKey, id)
	g.insert(newKey, id)
}

// Remove drops id from the grid entirely.
func (g *Grid) Remove(id uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	loc, ok := g.pos[id]
	if !ok {
		return
	}
	delete(g.pos, id)
	g.remove(cellOf(loc.X, loc.Z, g.cellSize), id)
}

// CellOf returns id's current position, if tracked.
func (g *Grid) CellOf(id uint32) (model.Location, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	loc, ok := g.pos[id]
	return loc, ok
}

// Range returns every id within Euclidean distance r (3D) of (x, y, z).
func (g *Grid) Range(x, y, z, r float32) []uint32 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	minKey := cellOf(x-r, z-r, g.cellSize)
	maxKey := cellOf(x+r, z+r, g.cellSize)
	r2 := float64(r) * float64(r)
	center := model.Location{X: x, Y: y, Z: z}

	var out []uint32
	for cx := minKey.cx; cx <= maxKey.cx; cx++ {
		for cz := minKey.cz; cz <= maxKey.cz; cz++ {
			for id := range g.cells[cellKey{cx, cz}] {
				loc := g.pos[id]
				if loc.DistanceSquared(center) <= r2 {
					out = append(out, id)
				}
			}
		}
	}
	return out
}

func (g *Grid) insert(key cellKey, id uint32) {
	set, ok := g.cells[key]
	if !ok {
		set = make(map[uint32]struct{})
		g.cells[key] = set
	}
	set[id] = struct{}{}
}

func (g *Grid) remove(key cellKey, id uint32) {
	set, ok := g.cells[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(g.cells, key)
	}
}
