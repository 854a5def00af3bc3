package main

import (
	"math"
	"time"
)

// movePlayer advances one live player by a tick. It returns false when the
// anti-cheat guard rejected the move and the player must be kicked.
func (g *Game) movePlayer(p *Player, now time.Time, dt float64, elapsed time.Duration) bool {
	pc := &g.cfg.Player

	p.ExpirePowerUps(now)
	speed := p.MaxSpeed(g.cfg, now)
	if p.CanBoost(g.cfg) {
		p.Mass -= pc.BoostCostPerSec * dt
		p.ClampHealth(pc.MinMass)
	}

	// Velocity can only approach speed by the steer lerp or decay by the
	// damping factor, so this envelope bounds |v| for the next integration.
	p.speedBound = math.Max((1-pc.SteerLerp)*p.speedBound+pc.SteerLerp*speed, pc.Damping*p.speedBound)

	dx := p.AimX - p.X
	dy := p.AimY - p.Y
	dist := math.Hypot(dx, dy)
	if dist > pc.AimDeadzone {
		tvx := dx / dist * speed
		tvy := dy / dist * speed
		p.VX += (tvx - p.VX) * pc.SteerLerp
		p.VY += (tvy - p.VY) * pc.SteerLerp
	} else {
		p.VX *= pc.Damping
		p.VY *= pc.Damping
	}

	prevX, prevY := p.X, p.Y
	p.X += p.VX
	p.Y += p.VY

	if !p.IsBot && !g.guard.CheckMove(p, prevX, prevY, elapsed) {
		g.metrics.CheatWarnings.Add(1)
		if p.Warnings >= g.cfg.AntiCheat.MaxWarnings {
			return false
		}
	}

	w, h := g.cfg.World.Width, g.cfg.World.Height
	cx := Clamp(p.X, p.Radius, w-p.Radius)
	cy := Clamp(p.Y, p.Radius, h-p.Radius)
	if cx != p.X || cy != p.Y {
		g.emit(EvWall, p.ID, "", 0)
	}
	p.X, p.Y = cx, cy
	return true
}

// resolveShots turns staged shoot intents into projectiles. Shots on
// cooldown, from players too light to pay, or with no direction are dropped.
func (g *Game) resolveShots(now time.Time) {
	pc := &g.cfg.Projectile
	for _, p := range g.store.Players() {
		shot := p.PendingShot
		if shot == nil {
			continue
		}
		p.PendingShot = nil
		if p.IsDead {
			continue
		}
		cooldown := pc.Cooldown
		if !p.IsBot {
			cooldown = g.guard.EffectiveCooldown(p, now)
		}
		if now.Sub(p.LastShot) < cooldown || p.Mass <= pc.MinShootMass {
			continue
		}
		if g.store.ProjectileCount() >= pc.MaxLive {
			continue
		}
		proj := NewProjectile(p, shot.X, shot.Y, g.cfg, now)
		if proj == nil {
			continue
		}
		if !g.store.AddProjectile(proj) {
			continue
		}
		g.applyRecoil(p, proj)
		p.Mass -= pc.Cost
		p.ClampHealth(g.cfg.Player.MinMass)
		p.LastShot = now
		g.metrics.Shots.Add(1)
	}
}

// applyRecoil pushes the shooter opposite to the shot. The speed envelope
// grows by the same amount so the kick never reads as a teleport.
func (g *Game) applyRecoil(p *Player, proj *Projectile) {
	recoil := g.cfg.Projectile.Recoil
	speed := math.Hypot(proj.VX, proj.VY)
	if recoil <= 0 || speed == 0 {
		return
	}
	p.VX -= proj.VX / speed * recoil
	p.VY -= proj.VY / speed * recoil
	p.speedBound += recoil
}

// stepProjectiles moves every projectile and marks expired ones for removal.
func (g *Game) stepProjectiles() {
	w, h := g.cfg.World.Width, g.cfg.World.Height
	for _, pr := range g.store.Projectiles() {
		pr.Step()
		if pr.Expired(w, h) {
			g.removeProjectile(pr)
			g.emit(EvMiss, pr.OwnerID, "", 0)
		}
	}
}

// removeProjectile marks pr for removal at the end of the sweep. It reports
// false when pr was already claimed by another resolution this tick.
func (g *Game) removeProjectile(pr *Projectile) bool {
	if _, done := g.deadProjectiles[pr.ID]; done {
		return false
	}
	g.deadProjectiles[pr.ID] = struct{}{}
	return true
}

// spawnFood tops the pellet count back up toward the floor in batches.
func (g *Game) spawnFood(now time.Time) {
	fc := &g.cfg.Food
	if g.store.FoodCount() >= fc.Floor || now.Sub(g.lastFoodSpawn) < fc.RespawnInterval {
		return
	}
	g.lastFoodSpawn = now
	for i := 0; i < fc.RespawnBatch; i++ {
		g.store.AddFood(NewFood(g.cfg, g.rng))
	}
}

// recomputeDerived restores derived fields and clamps after all score and
// mass changes of the tick have been applied.
func (g *Game) recomputeDerived() {
	pc := &g.cfg.Player
	for _, p := range g.store.Players() {
		p.ClampHealth(pc.MinMass)
		p.Recompute(pc)
	}
}
