package main

import "math"

// EntityKind tags what an EntityRef points at. It is fixed at insertion.
type EntityKind uint8

const (
	KindPlayer EntityKind = iota
	KindFood
	KindProjectile
)

func (k EntityKind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindFood:
		return "food"
	case KindProjectile:
		return "projectile"
	}
	return "unknown"
}

// EntityRef identifies an entity in the grid
type EntityRef struct {
	Kind EntityKind
	Idx  int // index into the slice passed to Rebuild for this kind
}

type cellKey struct {
	cx, cy int
}

// SpatialGrid is a uniform hash grid for broad-phase collision queries.
// It never owns entities: it holds refs into the slices given to the last
// Rebuild, which stay valid until the store is mutated.
type SpatialGrid struct {
	cellSize    float64
	cells       map[cellKey][]EntityRef
	players     []*Player
	food        []*Food
	projectiles []*Projectile
}

// NewSpatialGrid creates an empty grid with the given cell size
func NewSpatialGrid(cellSize float64) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = 200
	}
	return &SpatialGrid{
		cellSize: cellSize,
		cells:    make(map[cellKey][]EntityRef),
	}
}

// Clear resets all cells (keeps allocated capacity)
func (g *SpatialGrid) Clear() {
	for k, refs := range g.cells {
		g.cells[k] = refs[:0]
	}
	g.players = nil
	g.food = nil
	g.projectiles = nil
}

func (g *SpatialGrid) keyFor(x, y float64) cellKey {
	return cellKey{
		cx: int(math.Floor(x / g.cellSize)),
		cy: int(math.Floor(y / g.cellSize)),
	}
}

// Insert adds an entity reference to the cell containing (x, y)
func (g *SpatialGrid) Insert(x, y float64, ref EntityRef) {
	k := g.keyFor(x, y)
	g.cells[k] = append(g.cells[k], ref)
}

// Rebuild clears the grid and inserts every live entity by its center.
// Dead players are left out so they drop out of all pair checks.
func (g *SpatialGrid) Rebuild(players []*Player, food []*Food, projectiles []*Projectile) {
	g.Clear()
	g.players = players
	g.food = food
	g.projectiles = projectiles
	for i, p := range players {
		if p.IsDead {
			continue
		}
		g.Insert(p.X, p.Y, EntityRef{Kind: KindPlayer, Idx: i})
	}
	for i, f := range food {
		g.Insert(f.X, f.Y, EntityRef{Kind: KindFood, Idx: i})
	}
	for i, pr := range projectiles {
		g.Insert(pr.X, pr.Y, EntityRef{Kind: KindProjectile, Idx: i})
	}
}

// Neighbors returns refs in every cell overlapped by the square of half-width
// radius around (x, y), never less than the 3x3 block around the center cell.
// Each entity is inserted once, so no ref repeats within one result.
func (g *SpatialGrid) Neighbors(x, y, radius float64) []EntityRef {
	return g.NeighborsBuf(x, y, radius, nil)
}

// NeighborsBuf appends results to buf and returns the extended slice, avoiding per-call allocation
func (g *SpatialGrid) NeighborsBuf(x, y, radius float64, buf []EntityRef) []EntityRef {
	center := g.keyFor(x, y)
	lo := g.keyFor(x-radius, y-radius)
	hi := g.keyFor(x+radius, y+radius)
	if lo.cx > center.cx-1 {
		lo.cx = center.cx - 1
	}
	if lo.cy > center.cy-1 {
		lo.cy = center.cy - 1
	}
	if hi.cx < center.cx+1 {
		hi.cx = center.cx + 1
	}
	if hi.cy < center.cy+1 {
		hi.cy = center.cy + 1
	}
	for cy := lo.cy; cy <= hi.cy; cy++ {
		for cx := lo.cx; cx <= hi.cx; cx++ {
			buf = append(buf, g.cells[cellKey{cx, cy}]...)
		}
	}
	return buf
}

// Player resolves a player ref. Returns nil for refs of another kind.
func (g *SpatialGrid) Player(ref EntityRef) *Player {
	if ref.Kind != KindPlayer || ref.Idx < 0 || ref.Idx >= len(g.players) {
		return nil
	}
	return g.players[ref.Idx]
}

func (g *SpatialGrid) Food(ref EntityRef) *Food {
	if ref.Kind != KindFood || ref.Idx < 0 || ref.Idx >= len(g.food) {
		return nil
	}
	return g.food[ref.Idx]
}

func (g *SpatialGrid) Projectile(ref EntityRef) *Projectile {
	if ref.Kind != KindProjectile || ref.Idx < 0 || ref.Idx >= len(g.projectiles) {
		return nil
	}
	return g.projectiles[ref.Idx]
}

// CellCount returns the number of cells currently holding at least one entity
func (g *SpatialGrid) CellCount() int {
	n := 0
	for _, refs := range g.cells {
		if len(refs) > 0 {
			n++
		}
	}
	return n
}

// Populated returns the total number of refs in the grid
func (g *SpatialGrid) Populated() int {
	n := 0
	for _, refs := range g.cells {
		n += len(refs)
	}
	return n
}
