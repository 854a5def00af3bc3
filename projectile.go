package main

import (
	"math"
	"time"
)

// Projectile is a shot in flight. Lifespan counts physics ticks and only
// ever decreases.
type Projectile struct {
	ID       string
	OwnerID  string
	Color    string
	X, Y     float64
	VX, VY   float64
	Radius   float64
	Damage   float64
	Lifespan int
}

// NewProjectile fires from owner toward (tx, ty). It returns nil when the
// target coincides with the owner's center and no direction exists.
func NewProjectile(owner *Player, tx, ty float64, cfg *Config, now time.Time) *Projectile {
	dx := tx - owner.X
	dy := ty - owner.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return nil
	}
	ux, uy := dx/dist, dy/dist
	pc := cfg.Projectile
	lvl := float64(owner.Level)
	damage := pc.Damage + lvl*pc.DamagePerLevel
	if owner.HasPowerUp(PowerUpDamage, now) {
		damage *= cfg.PowerUps.DamageMultiplier
	}
	offset := owner.Radius + pc.SpawnOffset
	return &Projectile{
		ID:       GenerateUUID(),
		OwnerID:  owner.ID,
		Color:    owner.Color,
		X:        owner.X + ux*offset,
		Y:        owner.Y + uy*offset,
		VX:       ux * pc.Speed,
		VY:       uy * pc.Speed,
		Radius:   pc.BaseRadius + lvl*pc.RadiusPerLevel,
		Damage:   damage,
		Lifespan: pc.LifespanTicks,
	}
}

// Step moves the projectile one tick
func (p *Projectile) Step() {
	p.X += p.VX
	p.Y += p.VY
	p.Lifespan--
}

// Expired reports whether the projectile ran out of life or left the world
func (p *Projectile) Expired(w, h float64) bool {
	return p.Lifespan <= 0 || p.X < 0 || p.X > w || p.Y < 0 || p.Y > h
}

// ToState converts to protocol state. Velocity and owner stay server-side.
func (p *Projectile) ToState() ProjectileState {
	return ProjectileState{
		ID:     p.ID,
		X:      round1(p.X),
		Y:      round1(p.Y),
		Radius: round1(p.Radius),
		Color:  p.Color,
	}
}
