package main

import (
	"sort"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshotLocked builds the broadcast state. Caller holds g.mu.
func (g *Game) snapshotLocked() GameState {
	now := g.now()
	players := g.store.Players()
	st := GameState{
		Players:     make([]PlayerState, 0, len(players)),
		Projectiles: make([]ProjectileState, 0, g.store.ProjectileCount()),
		Food:        make([]FoodState, 0, g.store.FoodCount()),
		Time:        now.UnixMilli(),
		Tick:        g.tick,
	}
	for _, p := range players {
		if p.IsDead {
			continue
		}
		st.Players = append(st.Players, p.ToState(now))
	}
	for _, pr := range g.store.Projectiles() {
		st.Projectiles = append(st.Projectiles, pr.ToState())
	}
	for _, f := range g.store.FoodItems() {
		st.Food = append(st.Food, f.ToState())
	}
	return st
}

// Snapshot returns a consistent copy of the world for broadcast or tests
func (g *Game) Snapshot() GameState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snapshotLocked()
}

func encodeState(st GameState) ([]byte, error) {
	return msgpack.Marshal(&st)
}

// Leaderboard returns the top players by score
func (g *Game) Leaderboard() []LeaderboardEntry {
	g.mu.RLock()
	players := g.store.Players()
	entries := make([]LeaderboardEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, LeaderboardEntry{
			Name:  p.Name,
			Score: round1(p.Score),
			Kills: p.Kills,
			IsBot: p.IsBot,
		})
	}
	g.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	if n := g.cfg.Server.LeaderboardSize; n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// broadcastState sends one msgpack snapshot to every client. The state is
// captured under the read lock and encoded outside it.
func (g *Game) broadcastState() {
	g.mu.RLock()
	if len(g.clients) == 0 {
		g.mu.RUnlock()
		return
	}
	st := g.snapshotLocked()
	clients := g.clientSnapshotLocked()
	g.mu.RUnlock()

	data, err := encodeState(st)
	if err != nil {
		Log.Errorw("state encode failed", "tick", st.Tick, "err", err)
		return
	}
	for _, c := range clients {
		c.SendBinary(data)
	}
}

func (g *Game) broadcastLeaderboard() {
	clients := g.clientSnapshot()
	if len(clients) == 0 {
		return
	}
	env := Envelope{T: MsgLeaderboard, Data: g.Leaderboard()}
	for _, c := range clients {
		c.SendJSON(env)
	}
}

// broadcastLoop runs the network-rate state broadcast and the slower
// leaderboard broadcast, decoupled from the physics rate.
func (g *Game) broadcastLoop() {
	defer g.loops.Done()
	state := time.NewTicker(time.Second / time.Duration(g.cfg.Server.ServerTickRate))
	defer state.Stop()
	board := time.NewTicker(g.cfg.Server.LeaderboardInterval)
	defer board.Stop()
	for {
		select {
		case <-state.C:
			g.broadcastState()
		case <-board.C:
			g.broadcastLeaderboard()
		case <-g.stop:
			return
		}
	}
}
