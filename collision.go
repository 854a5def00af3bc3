package main

import "time"

// CheckCollision checks if two circles overlap
func CheckCollision(x1, y1, r1, x2, y2, r2 float64) bool {
	dx := x2 - x1
	dy := y2 - y1
	dist2 := dx*dx + dy*dy
	radSum := r1 + r2
	return dist2 < radSum*radSum
}

// resolveCollisions runs every pairwise interaction of the tick through the
// grid built by the last Rebuild. Food and projectiles are only marked here;
// the store drops them once the sweep is over.
func (g *Game) resolveCollisions(now time.Time) {
	eaten := make(map[string]struct{})

	maxProj := 0.0
	for _, pr := range g.store.Projectiles() {
		if pr.Radius > maxProj {
			maxProj = pr.Radius
		}
	}
	reach := g.cfg.Food.MaxRadius
	if maxProj > reach {
		reach = maxProj
	}

	for _, p := range g.store.Players() {
		if p.IsDead {
			continue
		}
		g.nearBuf = g.grid.NeighborsBuf(p.X, p.Y, p.Radius+reach, g.nearBuf[:0])
		for _, ref := range g.nearBuf {
			if p.IsDead {
				break
			}
			switch ref.Kind {
			case KindFood:
				f := g.grid.Food(ref)
				if _, gone := eaten[f.ID]; gone {
					continue
				}
				if CheckCollision(p.X, p.Y, p.Radius, f.X, f.Y, f.Radius) {
					eaten[f.ID] = struct{}{}
					g.consumeFood(p, f, now)
				}
			case KindProjectile:
				pr := g.grid.Projectile(ref)
				if pr.OwnerID == p.ID {
					continue
				}
				if _, gone := g.deadProjectiles[pr.ID]; gone {
					continue
				}
				if CheckCollision(p.X, p.Y, p.Radius, pr.X, pr.Y, pr.Radius) {
					g.hitPlayer(pr, p, now)
				}
			}
		}
	}

	// Projectile pairs: each unordered pair is looked at from the side with
	// the smaller id only.
	for _, a := range g.store.Projectiles() {
		if _, gone := g.deadProjectiles[a.ID]; gone {
			continue
		}
		g.nearBuf = g.grid.NeighborsBuf(a.X, a.Y, a.Radius+maxProj, g.nearBuf[:0])
		for _, ref := range g.nearBuf {
			if ref.Kind != KindProjectile {
				continue
			}
			b := g.grid.Projectile(ref)
			if b.ID <= a.ID || b.OwnerID == a.OwnerID {
				continue
			}
			if _, gone := g.deadProjectiles[b.ID]; gone {
				continue
			}
			if CheckCollision(a.X, a.Y, a.Radius, b.X, b.Y, b.Radius) {
				g.removeProjectile(a)
				g.removeProjectile(b)
				break
			}
		}
	}

	g.store.RemoveFood(eaten)
}
