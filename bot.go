package main

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"
)

var botNames = []string{
	"Blaze", "Nova", "Vortex", "Echo", "Titan", "Pixel", "Raven", "Orbit",
	"Frost", "Comet", "Ember", "Glitch", "Quasar", "Onyx", "Zephyr", "Jolt",
}

// BotStats are cumulative over a bot's whole persisted lifetime.
type BotStats struct {
	Kills       int     `msgpack:"kills" json:"kills"`
	Deaths      int     `msgpack:"deaths" json:"deaths"`
	FoodEaten   int     `msgpack:"food_eaten" json:"foodEaten"`
	BestScore   float64 `msgpack:"best_score" json:"bestScore"`
	TrainSteps  int64   `msgpack:"train_steps" json:"trainSteps"`
	TotalReward float64 `msgpack:"total_reward" json:"totalReward"`
}

// Bot is a self-learning computer player. The brain, replay memory,
// epsilon and stats are shared with the bot's trainer and guarded by mu;
// everything else belongs to the physics tick.
type Bot struct {
	Name        string
	Personality string
	Color       string
	PlayerID    string

	mu      sync.Mutex
	brain   *Network
	replay  *ReplayBuffer
	epsilon float64
	rng     *rand.Rand
	stats   BotStats

	prevState  []float64
	prevAction []float64
	reward     float64
	thinkIn    int
	respawnAt  time.Time
	anchorX    float64
	anchorY    float64
	stallFor   int
}

// NewBot creates a bot with fresh weights.
func NewBot(name, personality, color string, cfg *BotConfig, seed int64) *Bot {
	rng := rand.New(rand.NewSource(seed))
	return &Bot{
		Name:        name,
		Personality: personality,
		Color:       color,
		brain:       NewNetwork(networkSizes(cfg), rng),
		replay:      NewReplayBuffer(cfg.ReplayCapacity, cfg.PriorityEpsilon),
		epsilon:     cfg.EpsilonStart,
		rng:         rng,
	}
}

func networkSizes(cfg *BotConfig) []int {
	return []int{NumFeatures, cfg.Hidden1, cfg.Hidden2, NumOutputs}
}

func (b *Bot) Epsilon() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.epsilon
}

func (b *Bot) Stats() BotStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

func (b *Bot) ReplayLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.replay.Len()
}

// Forward runs the bot's network without exploration.
func (b *Bot) Forward(state []float64) []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.brain.Forward(state)
}

// chooseAction is epsilon-greedy over the network output.
func (b *Bot) chooseAction(state []float64) []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rng.Float64() < b.epsilon {
		a := make([]float64, NumOutputs)
		for i := range a {
			lo, hi := outputRange(i)
			a[i] = lo + b.rng.Float64()*(hi-lo)
		}
		return a
	}
	return b.brain.Forward(state)
}

func (b *Bot) remember(s Sample) {
	b.mu.Lock()
	b.replay.Push(s)
	b.stats.TotalReward += s.Reward
	b.mu.Unlock()
}

// observe folds one event into the pending reward and the stats.
func (b *Bot) observe(ev GameEvent, rc *RewardConfig) {
	b.reward += rc.EventReward(b.Personality, ev)
	switch ev.Kind {
	case EvFoodEaten:
		b.mu.Lock()
		b.stats.FoodEaten++
		b.mu.Unlock()
	case EvKill:
		b.mu.Lock()
		b.stats.Kills++
		b.mu.Unlock()
	case EvDeath:
		b.mu.Lock()
		b.stats.Deaths++
		b.mu.Unlock()
	}
}

// BotFeatures builds the observation vector for self. Only live players and
// the given food are considered.
func BotFeatures(self *Player, players []*Player, food []*Food, cfg *Config) []float64 {
	w, h := cfg.World.Width, cfg.World.Height
	diag := math.Hypot(w, h)
	f := make([]float64, 0, NumFeatures)
	f = append(f,
		self.X/w,
		self.Y/h,
		self.VX/10,
		self.VY/10,
		self.Mass/1000,
		self.HealthRatio(),
		float64(self.Level)/10,
	)

	type near struct {
		p    *Player
		dist float64
	}
	var others []near
	density := 0
	for _, o := range players {
		if o == self || o.IsDead {
			continue
		}
		d := Distance(self.X, self.Y, o.X, o.Y)
		others = append(others, near{o, d})
		if d < 500 {
			density++
		}
	}
	sort.Slice(others, func(i, j int) bool { return others[i].dist < others[j].dist })
	for i := 0; i < 5; i++ {
		if i >= len(others) {
			f = append(f, 0, 0, 0, 0)
			continue
		}
		o := others[i]
		f = append(f,
			math.Atan2(o.p.Y-self.Y, o.p.X-self.X)/math.Pi,
			o.dist/diag,
			float64(o.p.Level-self.Level)/10,
			o.p.HealthRatio(),
		)
	}

	wall := math.Min(math.Min(self.X, w-self.X), math.Min(self.Y, h-self.Y))
	f = append(f, 1-Clamp(wall/500, 0, 1))
	f = append(f, Clamp(float64(density)/10, 0, 1))

	foodNear := 0
	for _, fd := range food {
		dx, dy := fd.X-self.X, fd.Y-self.Y
		if dx*dx+dy*dy < 300*300 {
			foodNear++
		}
	}
	f = append(f, Clamp(float64(foodNear)/50, 0, 1))
	return f
}

// nearestThreat returns the closest live player other than self.
func nearestThreat(self *Player, players []*Player) (*Player, float64) {
	var best *Player
	bestDist := math.Inf(1)
	for _, o := range players {
		if o == self || o.IsDead {
			continue
		}
		if d := Distance(self.X, self.Y, o.X, o.Y); d < bestDist {
			best, bestDist = o, d
		}
	}
	return best, bestDist
}

// applyAction turns a network action into staged intents on p.
func (b *Bot) applyAction(p *Player, a []float64, cfg *BotConfig) {
	p.AimX = p.X + a[OutAimX]*cfg.AimReach
	p.AimY = p.Y + a[OutAimY]*cfg.AimReach
	p.Boosting = a[OutBoost] > 0.5
	if a[OutShoot] > 0.5 {
		ang := a[OutShootAngle] * math.Pi
		p.PendingShot = &shotIntent{
			X: p.X + math.Cos(ang)*cfg.ShootReach,
			Y: p.Y + math.Sin(ang)*cfg.ShootReach,
		}
	}
}

// thinkBots lets every live bot whose think counter ran out record the
// transition since its last decision and pick a new action.
func (g *Game) thinkBots() {
	players := g.store.Players()
	food := g.store.FoodItems()
	for _, b := range g.bots {
		p, ok := g.store.Player(b.PlayerID)
		if !ok || p.IsDead {
			continue
		}
		b.thinkIn--
		if b.thinkIn > 0 {
			continue
		}
		b.thinkIn = g.cfg.Bots.ThinkTicks

		state := BotFeatures(p, players, food, g.cfg)
		if b.prevState != nil {
			b.remember(Sample{State: b.prevState, Action: b.prevAction, Reward: b.reward, Next: state})
		}
		b.reward = 0
		action := b.chooseAction(state)
		b.applyAction(p, action, &g.cfg.Bots)
		b.prevState, b.prevAction = state, action
	}
}

// updateBots routes the tick's events into bot rewards, applies per-tick
// shaping, and handles bot death and respawn.
func (g *Game) updateBots(now time.Time) {
	rc := &g.cfg.Reward
	bc := &g.cfg.Bots
	for _, ev := range g.events {
		b, ok := g.botsByPlayer[ev.PlayerID]
		if !ok {
			continue
		}
		b.observe(ev, rc)
		if ev.Kind == EvDeath {
			if b.prevState != nil {
				b.remember(Sample{
					State:    b.prevState,
					Action:   b.prevAction,
					Reward:   b.reward,
					Next:     b.prevState,
					Terminal: true,
				})
			}
			b.prevState, b.prevAction, b.reward = nil, nil, 0
			b.respawnAt = now.Add(bc.RespawnDelay)
		}
	}

	players := g.store.Players()
	for _, b := range g.bots {
		p, ok := g.store.Player(b.PlayerID)
		if !ok {
			continue
		}
		if p.IsDead {
			if !now.Before(b.respawnAt) {
				g.respawnBot(b, p, now)
			}
			continue
		}

		var sh TickShaping
		if Distance(p.X, p.Y, b.anchorX, b.anchorY) > bc.StallDistance {
			b.anchorX, b.anchorY = p.X, p.Y
			b.stallFor = 0
		} else {
			b.stallFor++
			if b.stallFor >= bc.StallTicks {
				sh.Stalled = true
				b.stallFor = 0
			}
		}
		threat, dist := nearestThreat(p, players)
		if p.Boosting && dist > bc.ThreatRadius && p.HealthRatio() > 0.5 {
			sh.BoostNoThreat = true
		}
		if threat != nil && dist < bc.ThreatRadius && p.HealthRatio() < 0.25 {
			if p.VX*(p.X-threat.X)+p.VY*(p.Y-threat.Y) > 0 {
				sh.Retreating = true
			}
		}
		b.reward += rc.TickReward(sh)

		b.mu.Lock()
		if p.Score > b.stats.BestScore {
			b.stats.BestScore = p.Score
		}
		b.mu.Unlock()
	}
}

func (g *Game) respawnBot(b *Bot, p *Player, now time.Time) {
	x, y := g.randomSpawn()
	p.Reset(x, y, g.cfg)
	p.JoinedAt = now
	b.thinkIn = 0
	b.anchorX, b.anchorY = x, y
	b.stallFor = 0
}
