package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"runtime/debug"
	"strconv"
	"sync"
	"time"
)

const intentQueueSize = 4096

var colorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Broadcaster is one connected client as seen by the game
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
	Disconnect(reason string)
}

type IntentKind uint8

const (
	IntentMove IntentKind = iota
	IntentShoot
	IntentBoost
)

// Intent is a client request staged for the next tick. Handlers never touch
// entity state directly.
type Intent struct {
	Kind     IntentKind
	PlayerID string
	X, Y     float64
	Active   bool
	At       time.Time
}

// GameOptions wires optional collaborators into a Game. Zero values are
// fine for tests.
type GameOptions struct {
	Brains    *BrainStore
	Analytics *Analytics
	Metrics   *Metrics
	Seed      int64
	Now       func() time.Time
}

// Game is the authoritative arena simulation
type Game struct {
	cfg *Config

	mu           sync.RWMutex
	store        *EntityStore
	grid         *SpatialGrid
	guard        *AntiCheatGuard
	bots         []*Bot
	botsByPlayer map[string]*Bot
	clients      map[string]Broadcaster // playerID -> client
	rng          *rand.Rand

	tick          uint64
	lastTick      time.Time
	lastFoodSpawn time.Time

	// per-tick scratch, only touched under mu
	events          []GameEvent
	outbox          []outMsg
	deadProjectiles map[string]struct{}
	nearBuf         []EntityRef

	intents   chan Intent
	now       func() time.Time
	seed      int64
	metrics   *Metrics
	analytics *Analytics
	brains    *BrainStore
	saveMu    sync.Mutex

	runMu    sync.Mutex
	running  bool
	stopped  bool
	stop     chan struct{}
	loops    sync.WaitGroup
	trainers *TrainerPool
}

// NewGame creates the world: initial food, bots (restored from the brain
// store when one is configured) and no humans.
func NewGame(cfg *Config, opts GameOptions) *Game {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = &Metrics{}
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	g := &Game{
		cfg:             cfg,
		store:           NewEntityStore(),
		grid:            NewSpatialGrid(cfg.World.CellSize),
		guard:           NewAntiCheatGuard(cfg),
		botsByPlayer:    make(map[string]*Bot),
		clients:         make(map[string]Broadcaster),
		rng:             rand.New(rand.NewSource(opts.Seed)),
		deadProjectiles: make(map[string]struct{}),
		intents:         make(chan Intent, intentQueueSize),
		now:             opts.Now,
		seed:            opts.Seed,
		metrics:         opts.Metrics,
		analytics:       opts.Analytics,
		brains:          opts.Brains,
		stop:            make(chan struct{}),
	}
	now := g.now()
	g.lastFoodSpawn = now
	for i := 0; i < cfg.Food.InitialCount; i++ {
		g.store.AddFood(NewFood(cfg, g.rng))
	}
	for i := 0; i < cfg.Bots.Count; i++ {
		g.addBot(i, now)
	}
	return g
}

func (g *Game) addBot(i int, now time.Time) {
	name := botNames[i%len(botNames)]
	if i >= len(botNames) {
		name = fmt.Sprintf("%s%d", name, i/len(botNames)+1)
	}
	b := NewBot(name, personalities[i%len(personalities)], playerColors[i%len(playerColors)], &g.cfg.Bots, g.seed+int64(i)+1)
	if g.brains != nil {
		rec, err := g.brains.Load(name)
		switch {
		case err == nil:
			if err := b.Restore(rec); err != nil {
				Log.Warnw("bot brain incompatible, starting fresh", "bot", name, "err", err)
			}
		case errors.Is(err, ErrNoRecord):
			Log.Infow("no saved brain, starting fresh", "bot", name)
		default:
			Log.Warnw("bot brain unreadable, starting fresh", "bot", name, "err", err)
		}
	}
	x, y := g.randomSpawn()
	p := NewPlayer(GenerateUUID(), name, b.Color, x, y, g.cfg, now)
	p.IsBot = true
	b.PlayerID = p.ID
	b.anchorX, b.anchorY = x, y
	g.store.AddPlayer(p)
	g.bots = append(g.bots, b)
	g.botsByPlayer[p.ID] = b
}

func (g *Game) randomSpawn() (float64, float64) {
	const margin = 100.0
	w, h := g.cfg.World.Width, g.cfg.World.Height
	return margin + g.rng.Float64()*(w-2*margin), margin + g.rng.Float64()*(h-2*margin)
}

// Run starts the physics loop, the broadcast loop, the brain save loop and
// the bot trainers. It blocks until Stop.
func (g *Game) Run() {
	g.runMu.Lock()
	if g.running || g.stopped {
		g.runMu.Unlock()
		return
	}
	g.running = true
	g.trainers = StartTrainers(context.Background(), g.bots, g.cfg.Bots, g.seed, func() {
		g.metrics.TrainSteps.Add(1)
	})
	g.loops.Add(3)
	go g.broadcastLoop()
	go g.saveLoop()
	g.runMu.Unlock()
	defer g.loops.Done()

	ticker := time.NewTicker(g.cfg.TickDuration())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			g.update()
		case <-g.stop:
			return
		}
	}
}

// Stop halts every loop and trainer, flushes bot brains and tells clients
// the server is going away. No tick is in flight when the final save runs.
// It is safe to call more than once.
func (g *Game) Stop() {
	g.runMu.Lock()
	if g.stopped {
		g.runMu.Unlock()
		return
	}
	g.stopped = true
	close(g.stop)
	trainers := g.trainers
	g.runMu.Unlock()

	g.loops.Wait()
	if trainers != nil {
		trainers.Stop()
	}
	if err := g.SaveBrains(); err != nil {
		Log.Errorw("final brain save failed", "err", err)
	}
	for _, c := range g.clientSnapshot() {
		c.SendJSON(Envelope{T: MsgShutdown, Data: ShutdownMsg{Reason: "server shutting down"}})
	}
}

func (g *Game) saveLoop() {
	defer g.loops.Done()
	if g.brains == nil || g.cfg.Persistence.SaveInterval <= 0 {
		<-g.stop
		return
	}
	ticker := time.NewTicker(g.cfg.Persistence.SaveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := g.SaveBrains(); err != nil {
				Log.Errorw("brain save failed", "err", err)
			}
		case <-g.stop:
			return
		}
	}
}

// SaveBrains writes every bot record to the brain store. Concurrent calls
// are serialized.
func (g *Game) SaveBrains() error {
	if g.brains == nil {
		return nil
	}
	g.saveMu.Lock()
	defer g.saveMu.Unlock()
	records := make([]BotRecord, 0, len(g.bots))
	for _, b := range g.bots {
		records = append(records, b.Record())
	}
	if err := g.brains.Save(records); err != nil {
		return err
	}
	g.metrics.BrainSaves.Add(1)
	g.analytics.Track(EvtBrainSave, "", strconv.Itoa(len(records)))
	Log.Infow("bot brains saved", "bots", len(records))
	return nil
}

// Join adds a human player bound to client and sends the welcome and an
// initial snapshot.
func (g *Game) Join(name, color string, client Broadcaster) *Player {
	name = SanitizeText(name, g.cfg.Player.MaxNameLen)
	if name == "" {
		name = "Player"
	}

	g.mu.Lock()
	if !colorRe.MatchString(color) {
		color = playerColors[g.rng.Intn(len(playerColors))]
	}
	x, y := g.randomSpawn()
	p := NewPlayer(GenerateUUID(), name, color, x, y, g.cfg, g.now())
	g.store.AddPlayer(p)
	if client != nil {
		g.clients[p.ID] = client
	}
	state := g.snapshotLocked()
	clients := g.clientSnapshotLocked()
	g.mu.Unlock()

	if client != nil {
		client.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{
			YourID:    p.ID,
			WorldSize: WorldSize{Width: g.cfg.World.Width, Height: g.cfg.World.Height},
			Config:    clientConfigFrom(g.cfg),
		}})
		if data, err := encodeState(state); err == nil {
			client.SendBinary(data)
		}
	}
	notice := Envelope{T: MsgNotice, Data: NoticeMsg{Text: name + " joined the arena", Color: noticeInfo}}
	for _, c := range clients {
		c.SendJSON(notice)
	}
	g.analytics.Track(EvtJoin, name, "")
	Log.Infow("player joined", "id", p.ID, "name", name)
	return p
}

// RemovePlayer drops a player, its projectiles and its client. Unknown ids
// are ignored.
func (g *Game) RemovePlayer(id string) {
	g.mu.Lock()
	p, ok := g.store.Player(id)
	if ok && p.IsBot {
		g.mu.Unlock()
		return
	}
	if ok {
		g.store.RemovePlayer(id)
		g.store.RemoveProjectilesOf(id)
	}
	delete(g.clients, id)
	clients := g.clientSnapshotLocked()
	g.mu.Unlock()

	if !ok {
		return
	}
	notice := Envelope{T: MsgNotice, Data: NoticeMsg{Text: p.Name + " left the arena", Color: noticeInfo}}
	for _, c := range clients {
		c.SendJSON(notice)
	}
	g.analytics.Track(EvtLeave, p.Name, "")
	Log.Infow("player left", "id", id, "name", p.Name)
}

// SubmitIntent queues an intent for the next tick without blocking. It
// reports false when the queue is full and the intent was dropped.
func (g *Game) SubmitIntent(in Intent) bool {
	if in.At.IsZero() {
		in.At = g.now()
	}
	select {
	case g.intents <- in:
		g.metrics.IntentsQueued.Add(1)
		return true
	default:
		g.metrics.IntentsDropped.Add(1)
		return false
	}
}

// Chat relays sanitized text from playerID to everyone.
func (g *Game) Chat(playerID, text string) {
	text = SanitizeText(text, g.cfg.Player.MaxChatLen)
	if text == "" {
		return
	}
	g.mu.RLock()
	p, ok := g.store.Player(playerID)
	var msg ChatMsg
	if ok {
		msg = ChatMsg{Name: p.Name, Color: p.Color, Text: text}
	}
	clients := g.clientSnapshotLocked()
	g.mu.RUnlock()
	if !ok {
		return
	}
	env := Envelope{T: MsgChat, Data: msg}
	for _, c := range clients {
		c.SendJSON(env)
	}
}

// PlayerCount returns the number of players, bots included
func (g *Game) PlayerCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.store.PlayerCount()
}

// Bots returns the bot population. The slice is fixed after NewGame.
func (g *Game) Bots() []*Bot { return g.bots }

func (g *Game) Metrics() *Metrics { return g.metrics }

func (g *Game) clientSnapshotLocked() map[string]Broadcaster {
	out := make(map[string]Broadcaster, len(g.clients))
	for id, c := range g.clients {
		out[id] = c
	}
	return out
}

func (g *Game) clientSnapshot() map[string]Broadcaster {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.clientSnapshotLocked()
}

// update runs one tick and delivers what it queued
func (g *Game) update() {
	out, clients := g.step(g.now())
	g.deliver(out, clients)
}

// step advances the simulation by one physics tick under the write lock. A
// panic inside the tick is logged, the tick's scratch state is discarded
// and the bot brains are flushed in the background.
func (g *Game) step(now time.Time) (out []outMsg, clients map[string]Broadcaster) {
	g.mu.Lock()
	defer func() {
		if r := recover(); r != nil {
			g.metrics.TickPanics.Add(1)
			Log.Errorw("tick panic", "tick", g.tick, "panic", r, "stack", string(debug.Stack()))
			g.events = g.events[:0]
			clear(g.deadProjectiles)
			g.loops.Add(1)
			go func() {
				defer g.loops.Done()
				if err := g.SaveBrains(); err != nil {
					Log.Errorw("brain flush after tick panic failed", "err", err)
				}
			}()
		}
		out, clients = g.outbox, g.clientSnapshotLocked()
		g.outbox = nil
		g.mu.Unlock()
	}()

	start := time.Now()
	dt := g.cfg.PhysicsDT()
	elapsed := g.cfg.TickDuration()
	if !g.lastTick.IsZero() {
		elapsed = now.Sub(g.lastTick)
	}
	g.lastTick = now

	g.drainIntents()
	g.thinkBots()

	var cheaters []*Player
	for _, p := range g.store.Players() {
		if p.IsDead {
			continue
		}
		if !g.movePlayer(p, now, dt, elapsed) {
			cheaters = append(cheaters, p)
		}
	}
	for _, p := range cheaters {
		g.cheatKick(p)
	}

	g.resolveShots(now)
	g.stepProjectiles()
	g.grid.Rebuild(g.store.Players(), g.store.FoodItems(), g.store.Projectiles())
	g.resolveCollisions(now)
	g.store.RemoveProjectiles(g.deadProjectiles)
	clear(g.deadProjectiles)

	g.updateBots(now)
	g.spawnFood(now)
	g.recomputeDerived()

	g.events = g.events[:0]
	g.tick++
	g.metrics.AddTick(time.Since(start).Nanoseconds())
	return
}

func (g *Game) drainIntents() {
	for {
		select {
		case in := <-g.intents:
			g.applyIntent(in)
		default:
			return
		}
	}
}

func (g *Game) applyIntent(in Intent) {
	p, ok := g.store.Player(in.PlayerID)
	if !ok || p.IsBot || p.IsDead {
		return
	}
	switch in.Kind {
	case IntentMove:
		p.AimX, p.AimY = in.X, in.Y
	case IntentShoot:
		g.guard.RecordShootRequest(p, in.At)
		p.PendingShot = &shotIntent{X: in.X, Y: in.Y}
	case IntentBoost:
		p.Boosting = in.Active
	}
}

// cheatKick removes a player that ran out of movement warnings and queues
// the disconnect of its connection.
func (g *Game) cheatKick(p *Player) {
	g.store.RemovePlayer(p.ID)
	g.store.RemoveProjectilesOf(p.ID)
	g.kick(p.ID, "disconnected: movement validation failed")
	g.metrics.CheatKicks.Add(1)
	g.analytics.Track(EvtCheatKick, p.Name, fmt.Sprintf(`{"warnings":%d}`, p.Warnings))
	Log.Warnw("player kicked by anti-cheat", "id", p.ID, "name", p.Name, "warnings", p.Warnings)
}
