package main

import (
	"math"
	"sort"
	"time"
)

// PowerUpKind names a timed buff granted by special food
type PowerUpKind string

const (
	PowerUpNone   PowerUpKind = ""
	PowerUpShield PowerUpKind = "shield"
	PowerUpDamage PowerUpKind = "damage"
	PowerUpSpeed  PowerUpKind = "speed"
)

var powerUpKinds = []PowerUpKind{PowerUpShield, PowerUpDamage, PowerUpSpeed}

// playerColors is the palette handed out when a client does not pick one
var playerColors = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#FFA07A", "#98D8C8", "#F7DC6F",
	"#BB8FCE", "#85C1E2", "#F8B739", "#52B788", "#E63946", "#A8DADC",
}

type shotIntent struct {
	X, Y float64
}

// Player is a human or bot avatar. Level and Radius are derived from Score
// and only ever written by Recompute.
type Player struct {
	ID     string
	Name   string
	Color  string
	X, Y   float64
	VX, VY float64 // px per physics tick

	Radius float64
	Mass   float64
	Health float64
	Score  float64
	Level  int

	Kills      int
	KillStreak int
	OnFire     bool
	Boosting   bool
	IsBot      bool
	IsDead     bool
	LastKiller string
	LastShot   time.Time
	JoinedAt   time.Time
	PowerUps   map[PowerUpKind]time.Time

	AimX, AimY  float64
	PendingShot *shotIntent

	// anti-cheat bookkeeping
	speedBound        float64
	Warnings          int
	lastShootRequest  time.Time
	shootStrikes      int
	shootPenaltyUntil time.Time
}

// NewPlayer creates a player at (x, y) with starting mass and full health.
func NewPlayer(id, name, color string, x, y float64, cfg *Config, now time.Time) *Player {
	p := &Player{
		ID:       id,
		Name:     name,
		Color:    color,
		JoinedAt: now,
		PowerUps: make(map[PowerUpKind]time.Time),
	}
	p.Reset(x, y, cfg)
	return p
}

// Reset puts the player back to spawn condition at (x, y). Kills survive.
func (p *Player) Reset(x, y float64, cfg *Config) {
	p.X, p.Y = x, y
	p.VX, p.VY = 0, 0
	p.AimX, p.AimY = x, y
	p.Mass = cfg.Player.StartMass
	p.Health = p.Mass
	p.Score = 0
	p.KillStreak = 0
	p.OnFire = false
	p.Boosting = false
	p.IsDead = false
	p.PendingShot = nil
	for k := range p.PowerUps {
		delete(p.PowerUps, k)
	}
	p.Recompute(&cfg.Player)
	p.speedBound = p.MaxSpeed(cfg, time.Time{})
}

// LevelFor returns the level reached with the given score
func LevelFor(score, xpRatio float64) int {
	if score <= 0 || xpRatio <= 0 {
		return 1
	}
	return int(math.Floor(math.Sqrt(score/xpRatio))) + 1
}

// Recompute derives level and radius from score
func (p *Player) Recompute(cfg *PlayerConfig) {
	p.Level = LevelFor(p.Score, cfg.LevelXPRatio)
	p.Radius = cfg.BaseRadius + float64(p.Level)*cfg.LevelRadiusFactor
}

// ClampHealth restores 0 <= health <= mass and mass >= minMass
func (p *Player) ClampHealth(minMass float64) {
	if p.Mass < minMass {
		p.Mass = minMass
	}
	p.Health = Clamp(p.Health, 0, p.Mass)
}

// HasPowerUp reports whether kind is active at now
func (p *Player) HasPowerUp(kind PowerUpKind, now time.Time) bool {
	exp, ok := p.PowerUps[kind]
	return ok && now.Before(exp)
}

// ExpirePowerUps drops every buff that ran out before now
func (p *Player) ExpirePowerUps(now time.Time) {
	for k, exp := range p.PowerUps {
		if !now.Before(exp) {
			delete(p.PowerUps, k)
		}
	}
}

// CanBoost reports whether boosting currently applies
func (p *Player) CanBoost(cfg *Config) bool {
	return p.Boosting && p.Mass > cfg.Player.BoostMinMass
}

// MaxSpeed is the per-tick speed cap under current mass, boost and buffs.
func (p *Player) MaxSpeed(cfg *Config, now time.Time) float64 {
	speed := cfg.Player.BaseSpeed / (1 + p.Mass/cfg.Player.MassDivisor)
	if p.CanBoost(cfg) {
		speed *= cfg.Player.BoostMultiplier
	}
	if p.HasPowerUp(PowerUpSpeed, now) {
		speed *= cfg.PowerUps.SpeedMultiplier
	}
	return speed
}

// HealthRatio returns health/mass in [0, 1]
func (p *Player) HealthRatio() float64 {
	if p.Mass <= 0 {
		return 0
	}
	return Clamp(p.Health/p.Mass, 0, 1)
}

// activePowerUps lists active buffs in a stable order for the wire
func (p *Player) activePowerUps(now time.Time) []string {
	if len(p.PowerUps) == 0 {
		return nil
	}
	out := make([]string, 0, len(p.PowerUps))
	for k, exp := range p.PowerUps {
		if now.Before(exp) {
			out = append(out, string(k))
		}
	}
	sort.Strings(out)
	return out
}

// ToState converts to protocol state
func (p *Player) ToState(now time.Time) PlayerState {
	return PlayerState{
		ID:       p.ID,
		Name:     p.Name,
		Color:    p.Color,
		X:        round1(p.X),
		Y:        round1(p.Y),
		VX:       round1(p.VX),
		VY:       round1(p.VY),
		Radius:   p.Radius,
		Mass:     round1(p.Mass),
		Health:   round1(p.Health),
		Score:    math.Floor(p.Score),
		Kills:    p.Kills,
		Level:    p.Level,
		Boost:    p.Boosting,
		OnFire:   p.OnFire,
		PowerUps: p.activePowerUps(now),
	}
}
