package main

import "testing"

func hasRef(refs []EntityRef, want EntityRef) bool {
	for _, r := range refs {
		if r == want {
			return true
		}
	}
	return false
}

func TestSpatialGridInsertAndQuery(t *testing.T) {
	grid := NewSpatialGrid(200)

	ref := EntityRef{Kind: KindPlayer, Idx: 0}
	grid.Insert(100, 100, ref)

	// Query around (100,100) should find it
	if !hasRef(grid.Neighbors(100, 100, 50), ref) {
		t.Error("expected to find entity at (100,100)")
	}

	// Query far away should not find it
	if hasRef(grid.Neighbors(3000, 3000, 50), ref) {
		t.Error("should not find entity at (3000,3000)")
	}
}

func TestSpatialGridClear(t *testing.T) {
	grid := NewSpatialGrid(200)
	grid.Insert(500, 500, EntityRef{Kind: KindFood, Idx: 0})
	grid.Clear()

	if results := grid.Neighbors(500, 500, 100); len(results) != 0 {
		t.Errorf("expected 0 results after clear, got %d", len(results))
	}
	if grid.CellCount() != 0 {
		t.Errorf("expected no populated cells, got %d", grid.CellCount())
	}
}

func TestNeighborsCoverAdjacentCells(t *testing.T) {
	grid := NewSpatialGrid(200)
	ref := EntityRef{Kind: KindFood, Idx: 3}
	grid.Insert(399, 100, ref)

	// (401,100) is in the next cell over; a tiny radius still sees it
	if !hasRef(grid.Neighbors(401, 100, 1), ref) {
		t.Error("3x3 block around the query cell should include the neighbor cell")
	}
	if hasRef(grid.Neighbors(1000, 100, 1), ref) {
		t.Error("cells two away should not be included for a small radius")
	}
}

func TestNeighborsLargeRadius(t *testing.T) {
	grid := NewSpatialGrid(200)
	ref := EntityRef{Kind: KindProjectile, Idx: 0}
	grid.Insert(1000, 100, ref)
	if !hasRef(grid.Neighbors(100, 100, 950), ref) {
		t.Error("a large radius should reach cells beyond the 3x3 block")
	}
}

func TestNegativeCoordinates(t *testing.T) {
	grid := NewSpatialGrid(200)
	ref := EntityRef{Kind: KindPlayer, Idx: 0}
	grid.Insert(-10, -10, ref)
	if !hasRef(grid.Neighbors(5, 5, 10), ref) {
		t.Error("entity at negative coords should be found from the origin cell")
	}
}

func TestRebuildResolvesRefs(t *testing.T) {
	cfg := testConfig()
	alive := &Player{ID: "a", X: 100, Y: 100}
	dead := &Player{ID: "d", X: 110, Y: 100, IsDead: true}
	food := []*Food{{ID: "f", X: 120, Y: 100}}
	proj := []*Projectile{{ID: "p", X: 130, Y: 100}}

	grid := NewSpatialGrid(cfg.World.CellSize)
	grid.Rebuild([]*Player{alive, dead}, food, proj)
	if grid.Populated() != 3 {
		t.Fatalf("expected 3 refs (dead player skipped), got %d", grid.Populated())
	}

	seen := map[string]bool{}
	for _, ref := range grid.Neighbors(100, 100, 50) {
		switch ref.Kind {
		case KindPlayer:
			seen[grid.Player(ref).ID] = true
		case KindFood:
			seen[grid.Food(ref).ID] = true
		case KindProjectile:
			seen[grid.Projectile(ref).ID] = true
		}
	}
	for _, id := range []string{"a", "f", "p"} {
		if !seen[id] {
			t.Errorf("expected %s among neighbors", id)
		}
	}
	if seen["d"] {
		t.Error("dead player should not be in the grid")
	}
	if grid.Food(EntityRef{Kind: KindPlayer, Idx: 0}) != nil {
		t.Error("resolving a ref of the wrong kind should return nil")
	}
}

func TestNeighborsNoDuplicates(t *testing.T) {
	grid := NewSpatialGrid(50)
	for i := 0; i < 20; i++ {
		grid.Insert(float64(i*13), float64(i*7), EntityRef{Kind: KindFood, Idx: i})
	}
	seen := map[EntityRef]bool{}
	for _, r := range grid.Neighbors(120, 70, 300) {
		if seen[r] {
			t.Fatalf("ref %+v returned twice", r)
		}
		seen[r] = true
	}
	if len(seen) != 20 {
		t.Errorf("expected all 20 refs, got %d", len(seen))
	}
}

func TestEntityKindString(t *testing.T) {
	if KindFood.String() != "food" || EntityKind(99).String() != "unknown" {
		t.Error("unexpected kind names")
	}
}
