package main

import (
	"math"
	"time"
)

// AntiCheatGuard validates human movement and shot pacing. Bots are never
// checked.
type AntiCheatGuard struct {
	cfg      AntiCheatConfig
	cooldown time.Duration
	tick     time.Duration
}

func NewAntiCheatGuard(cfg *Config) *AntiCheatGuard {
	return &AntiCheatGuard{
		cfg:      cfg.AntiCheat,
		cooldown: cfg.Projectile.Cooldown,
		tick:     cfg.TickDuration(),
	}
}

// MaxDisplacement is the largest legal move for one tick that took elapsed
// wall-clock time.
func (ac *AntiCheatGuard) MaxDisplacement(p *Player, elapsed time.Duration) float64 {
	scale := 1.0
	if ac.tick > 0 && elapsed > ac.tick {
		scale = float64(elapsed) / float64(ac.tick)
	}
	return p.speedBound * scale * ac.cfg.Tolerance
}

// CheckMove compares the move from (prevX, prevY) against the bound. On a
// violation the player is put back, stopped and warned, and false returned.
func (ac *AntiCheatGuard) CheckMove(p *Player, prevX, prevY float64, elapsed time.Duration) bool {
	disp := math.Hypot(p.X-prevX, p.Y-prevY)
	limit := ac.MaxDisplacement(p, elapsed)
	if disp <= limit {
		return true
	}
	p.X, p.Y = prevX, prevY
	p.VX, p.VY = 0, 0
	p.Warnings++
	Log.Warnw("movement violation",
		"player", p.ID, "name", p.Name,
		"disp", disp, "limit", limit, "warnings", p.Warnings)
	return false
}

// RecordShootRequest notes a shoot request received at. Requests closer
// together than the suspicious interval earn strikes; enough strikes start a
// penalty window with a longer cooldown.
func (ac *AntiCheatGuard) RecordShootRequest(p *Player, at time.Time) {
	if !p.lastShootRequest.IsZero() && at.Sub(p.lastShootRequest) < ac.cfg.SuspiciousShootInterval {
		p.shootStrikes++
		Log.Warnw("shoot spam", "player", p.ID, "interval", at.Sub(p.lastShootRequest), "strikes", p.shootStrikes)
		if p.shootStrikes >= ac.cfg.ShootStrikeLimit {
			p.shootStrikes = 0
			p.shootPenaltyUntil = at.Add(ac.cfg.ShootPenalty)
		}
	}
	p.lastShootRequest = at
}

// EffectiveCooldown returns the shot cooldown that applies to p at now.
func (ac *AntiCheatGuard) EffectiveCooldown(p *Player, now time.Time) time.Duration {
	if now.Before(p.shootPenaltyUntil) {
		return time.Duration(float64(ac.cooldown) * ac.cfg.ShootPenaltyFactor)
	}
	return ac.cooldown
}
