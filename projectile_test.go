package main

import (
	"math"
	"testing"
	"time"
)

func TestNewProjectileDirectionAndOffset(t *testing.T) {
	cfg := testConfig()
	now := time.Now()
	owner := NewPlayer("o", "Owner", "#ABCDEF", 100, 100, cfg, now)

	pr := NewProjectile(owner, 200, 100, cfg, now)
	if pr == nil {
		t.Fatal("expected a projectile")
	}
	if pr.VX != cfg.Projectile.Speed || pr.VY != 0 {
		t.Errorf("expected velocity (%v,0), got (%v,%v)", cfg.Projectile.Speed, pr.VX, pr.VY)
	}
	if want := 100 + owner.Radius + cfg.Projectile.SpawnOffset; pr.X != want {
		t.Errorf("expected spawn x %v, got %v", want, pr.X)
	}
	if pr.Color != owner.Color || pr.OwnerID != "o" {
		t.Error("projectile should carry owner color and id")
	}
	if pr.Lifespan != cfg.Projectile.LifespanTicks {
		t.Errorf("expected lifespan %d, got %d", cfg.Projectile.LifespanTicks, pr.Lifespan)
	}
}

func TestNewProjectileNoDirection(t *testing.T) {
	cfg := testConfig()
	owner := NewPlayer("o", "Owner", "#FFFFFF", 100, 100, cfg, time.Now())
	if pr := NewProjectile(owner, 100, 100, cfg, time.Now()); pr != nil {
		t.Error("shooting at own center should produce nothing")
	}
}

func TestProjectileScalesWithLevelAndBuff(t *testing.T) {
	cfg := testConfig()
	now := time.Now()
	owner := NewPlayer("o", "Owner", "#FFFFFF", 100, 100, cfg, now)
	owner.Level = 3
	pr := NewProjectile(owner, 0, 100, cfg, now)
	base := cfg.Projectile.Damage + 3*cfg.Projectile.DamagePerLevel
	if pr.Damage != base {
		t.Errorf("expected damage %v, got %v", base, pr.Damage)
	}
	if want := cfg.Projectile.BaseRadius + 3*cfg.Projectile.RadiusPerLevel; pr.Radius != want {
		t.Errorf("expected radius %v, got %v", want, pr.Radius)
	}

	owner.PowerUps[PowerUpDamage] = now.Add(time.Second)
	pr = NewProjectile(owner, 0, 100, cfg, now)
	if math.Abs(pr.Damage-base*cfg.PowerUps.DamageMultiplier) > 1e-9 {
		t.Errorf("damage buff should multiply, got %v", pr.Damage)
	}
}

func TestProjectileExpired(t *testing.T) {
	pr := &Projectile{X: 10, Y: 10, VX: 5, Lifespan: 2}
	pr.Step()
	if pr.Expired(100, 100) {
		t.Error("should still be alive")
	}
	pr.Step()
	if !pr.Expired(100, 100) {
		t.Error("should expire when lifespan runs out")
	}

	out := &Projectile{X: 99, Y: 10, VX: 5, Lifespan: 10}
	out.Step()
	if !out.Expired(100, 100) {
		t.Error("should expire when leaving the world")
	}
}

func TestShootCostsMassAndRespectsCooldown(t *testing.T) {
	g, clock := newTestGame(testConfig())
	p := addTestPlayer(g, "Gunner", 500, 500)

	g.SubmitIntent(Intent{Kind: IntentShoot, PlayerID: p.ID, X: 800, Y: 500, At: clock.t})
	advance(g, clock)
	if g.store.ProjectileCount() != 1 {
		t.Fatalf("expected 1 projectile, got %d", g.store.ProjectileCount())
	}
	if p.Mass != 100-g.cfg.Projectile.Cost {
		t.Errorf("expected mass %v, got %v", 100-g.cfg.Projectile.Cost, p.Mass)
	}

	g.SubmitIntent(Intent{Kind: IntentShoot, PlayerID: p.ID, X: 800, Y: 500, At: clock.t.Add(time.Second)})
	advance(g, clock)
	if g.store.ProjectileCount() != 1 {
		t.Errorf("second shot inside cooldown should be dropped, got %d projectiles", g.store.ProjectileCount())
	}

	clock.t = clock.t.Add(g.cfg.Projectile.Cooldown)
	g.SubmitIntent(Intent{Kind: IntentShoot, PlayerID: p.ID, X: 800, Y: 500, At: clock.t.Add(2 * time.Second)})
	advance(g, clock)
	if g.store.ProjectileCount() != 2 {
		t.Errorf("shot after cooldown should fire, got %d projectiles", g.store.ProjectileCount())
	}
}

func TestShootRecoilPushesShooterBack(t *testing.T) {
	g, clock := newTestGame(testConfig())
	p := addTestPlayer(g, "Kick", 500, 500)

	g.SubmitIntent(Intent{Kind: IntentShoot, PlayerID: p.ID, X: 800, Y: 500, At: clock.t})
	advance(g, clock)
	if math.Abs(p.VX+g.cfg.Projectile.Recoil) > 1e-9 || p.VY != 0 {
		t.Fatalf("expected velocity (%v,0) after recoil, got (%v,%v)", -g.cfg.Projectile.Recoil, p.VX, p.VY)
	}

	advance(g, clock)
	if p.X >= 500 {
		t.Errorf("shooter should drift away from the target, x=%v", p.X)
	}
	if p.Warnings != 0 {
		t.Errorf("recoil must not trip the movement guard, got %d warnings", p.Warnings)
	}
}

func TestShootRecoilDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Projectile.Recoil = 0
	g, clock := newTestGame(cfg)
	p := addTestPlayer(g, "Steady", 500, 500)
	g.SubmitIntent(Intent{Kind: IntentShoot, PlayerID: p.ID, X: 800, Y: 500, At: clock.t})
	advance(g, clock)
	if p.VX != 0 || p.VY != 0 {
		t.Errorf("no recoil configured, got velocity (%v,%v)", p.VX, p.VY)
	}
}

func TestShootNeedsMass(t *testing.T) {
	g, clock := newTestGame(testConfig())
	p := addTestPlayer(g, "Light", 500, 500)
	p.Mass = g.cfg.Projectile.MinShootMass
	p.Health = p.Mass
	g.SubmitIntent(Intent{Kind: IntentShoot, PlayerID: p.ID, X: 800, Y: 500})
	advance(g, clock)
	if g.store.ProjectileCount() != 0 {
		t.Error("player at the minimum mass must not shoot")
	}
}

func TestProjectileRemovedAfterLifespan(t *testing.T) {
	g, clock := newTestGame(testConfig())
	g.store.AddProjectile(&Projectile{ID: "p1", OwnerID: "gone", X: 1500, Y: 1500, Radius: 5, Lifespan: 3})
	for i := 0; i < 2; i++ {
		advance(g, clock)
	}
	if g.store.ProjectileCount() != 1 {
		t.Fatal("projectile should live for its lifespan")
	}
	advance(g, clock)
	if g.store.ProjectileCount() != 0 {
		t.Error("projectile should be removed when its lifespan runs out")
	}
}

func TestFoodRespawnsTowardFloor(t *testing.T) {
	cfg := testConfig()
	cfg.Food.Floor = 15
	g, clock := newTestGame(cfg)

	advance(g, clock)
	if g.store.FoodCount() != 0 {
		t.Fatal("no food before the respawn interval elapses")
	}
	clock.t = clock.t.Add(cfg.Food.RespawnInterval)
	advance(g, clock)
	if g.store.FoodCount() != cfg.Food.RespawnBatch {
		t.Fatalf("expected one batch of %d, got %d", cfg.Food.RespawnBatch, g.store.FoodCount())
	}
	clock.t = clock.t.Add(cfg.Food.RespawnInterval)
	advance(g, clock)
	clock.t = clock.t.Add(cfg.Food.RespawnInterval)
	advance(g, clock)
	if g.store.FoodCount() != 2*cfg.Food.RespawnBatch {
		t.Errorf("respawn should stop once the floor is reached, got %d", g.store.FoodCount())
	}
}

func TestFoodValueMonotonic(t *testing.T) {
	prev := -1.0
	for r := 3.0; r <= 8; r += 0.25 {
		v := FoodValue(r, 2)
		if v < prev {
			t.Fatalf("value fell from %v to %v at radius %v", prev, v, r)
		}
		prev = v
	}
}
