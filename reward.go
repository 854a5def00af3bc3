package main

const (
	PersonalityBalanced   = "balanced"
	PersonalityAggressive = "aggressive"
	PersonalityCautious   = "cautious"
)

var personalities = []string{PersonalityAggressive, PersonalityCautious, PersonalityBalanced}

var neutralPersonality = PersonalityMultiplier{Food: 1, Hit: 1, Kill: 1, Death: 1}

func (rc *RewardConfig) multiplier(personality string) PersonalityMultiplier {
	if m, ok := rc.Personalities[personality]; ok {
		return m
	}
	return neutralPersonality
}

// EventReward returns the shaped reward a bot with the given personality
// earns for ev. Events that carry no learning signal return 0.
func (rc *RewardConfig) EventReward(personality string, ev GameEvent) float64 {
	m := rc.multiplier(personality)
	switch ev.Kind {
	case EvFoodEaten:
		return rc.Food * ev.Value * m.Food
	case EvPowerUp:
		return rc.PowerUp * m.Food
	case EvHit:
		return rc.Hit * m.Hit
	case EvKill:
		return rc.Kill * m.Kill
	case EvDeath:
		return rc.Death * m.Death
	case EvMiss:
		return rc.Miss
	case EvWall:
		return rc.Wall
	}
	return 0
}

// TickShaping holds what a bot observed about itself this tick.
type TickShaping struct {
	Stalled       bool
	BoostNoThreat bool
	Retreating    bool
}

// TickReward is the per-tick part of the reward: survival plus the
// behavioral penalties and bonuses.
func (rc *RewardConfig) TickReward(s TickShaping) float64 {
	r := rc.Survival
	if s.Stalled {
		r += rc.Stall
	}
	if s.BoostNoThreat {
		r += rc.IdleBoost
	}
	if s.Retreating {
		r += rc.Retreat
	}
	return r
}
