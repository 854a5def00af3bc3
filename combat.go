package main

import (
	"fmt"
	"math"
	"time"
)

const (
	noticeInfo    = "#AAAAAA"
	noticeKill    = "#FF6B6B"
	noticeOnFire  = "#FF9800"
	noticePowerUp = "#4FC3F7"
)

func (g *Game) powerUpDuration(kind PowerUpKind) time.Duration {
	switch kind {
	case PowerUpShield:
		return g.cfg.PowerUps.ShieldDuration
	case PowerUpDamage:
		return g.cfg.PowerUps.DamageDuration
	case PowerUpSpeed:
		return g.cfg.PowerUps.SpeedDuration
	}
	return 0
}

// consumeFood applies a pellet to p. Callers guarantee each pellet reaches
// here at most once.
func (g *Game) consumeFood(p *Player, f *Food, now time.Time) {
	if f.PowerUp != PowerUpNone {
		p.PowerUps[f.PowerUp] = now.Add(g.powerUpDuration(f.PowerUp))
		g.emit(EvPowerUp, p.ID, "", 0)
		g.notice(fmt.Sprintf("%s picked up %s", p.Name, f.PowerUp), noticePowerUp)
		return
	}
	v := f.Value
	p.Mass += v
	p.Score += v
	p.Health = math.Min(p.Health+v/2, p.Mass)
	g.emit(EvFoodEaten, p.ID, "", v)
	g.metrics.FoodEaten.Add(1)
}

// hitPlayer resolves pr striking target. A projectile already claimed this
// tick does nothing.
func (g *Game) hitPlayer(pr *Projectile, target *Player, now time.Time) {
	if target.IsDead || !g.removeProjectile(pr) {
		return
	}
	if target.HasPowerUp(PowerUpShield, now) {
		g.emit(EvShielded, target.ID, pr.OwnerID, pr.Damage)
		return
	}

	d := pr.Damage
	target.Health -= d
	target.Mass = math.Max(target.Mass-d/2, g.cfg.Player.MinMass)
	if target.Health > target.Mass {
		target.Health = target.Mass
	}

	shooter, _ := g.store.Player(pr.OwnerID)
	if shooter != nil {
		shooter.Score += d
	}
	g.emit(EvHit, pr.OwnerID, target.ID, d)
	g.emit(EvHurt, target.ID, pr.OwnerID, d)

	if target.Health <= 0 {
		g.killPlayer(target, shooter, now)
	}
}

// killPlayer marks victim dead and settles the killer's bookkeeping. killer
// may be nil when the shooter already left.
func (g *Game) killPlayer(victim, killer *Player, now time.Time) {
	if victim.IsDead {
		return
	}
	victim.IsDead = true
	victim.Health = 0
	victim.KillStreak = 0
	victim.OnFire = false
	victim.Boosting = false
	victim.PendingShot = nil
	victim.VX, victim.VY = 0, 0

	killerName := "unknown"
	killerID := ""
	if killer != nil {
		killerName = killer.Name
		killerID = killer.ID
		killer.Kills++
		killer.KillStreak++
		killer.Score += math.Max(0, victim.Mass) * g.cfg.Player.KillScoreFactor
		if killer.KillStreak >= g.cfg.Player.OnFireStreak && !killer.OnFire {
			killer.OnFire = true
			g.notice(fmt.Sprintf("%s is on fire! (%d kills)", killer.Name, killer.KillStreak), noticeOnFire)
		}
		g.emit(EvKill, killer.ID, victim.ID, victim.Mass)
	}
	victim.LastKiller = killerName
	g.emit(EvDeath, victim.ID, killerID, 0)
	g.metrics.Kills.Add(1)

	g.sendAll(Envelope{T: MsgDeath, Data: DeathMsg{
		ID:         victim.ID,
		KillerName: killerName,
		Stats:      DeathStats{Score: math.Floor(victim.Score), Kills: victim.Kills},
	}})
	g.sendTo(victim.ID, Envelope{T: MsgYouDied, Data: YouDiedMsg{
		KillerName:  killerName,
		SurvivedSec: math.Round(now.Sub(victim.JoinedAt).Seconds()),
		Score:       math.Floor(victim.Score),
		Kills:       victim.Kills,
	}})
	g.notice(fmt.Sprintf("%s eliminated %s", killerName, victim.Name), noticeKill)
	g.analytics.Track(EvtKill, killerName, victim.Name)
}
