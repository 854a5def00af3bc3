package main

import "sync/atomic"

// Metrics counts what the server did since start. Every field is safe to
// touch from any goroutine.
type Metrics struct {
	Ticks          atomic.Int64
	TotalTickNs    atomic.Int64
	TickPanics     atomic.Int64
	FoodEaten      atomic.Int64
	Shots          atomic.Int64
	Kills          atomic.Int64
	CheatWarnings  atomic.Int64
	CheatKicks     atomic.Int64
	RateKicks      atomic.Int64
	IntentsQueued  atomic.Int64
	IntentsDropped atomic.Int64
	TrainSteps     atomic.Int64
	BrainSaves     atomic.Int64
}

func (m *Metrics) AddTick(ns int64) {
	m.Ticks.Add(1)
	m.TotalTickNs.Add(ns)
}

// Snapshot returns a read-only copy for HTTP output
func (m *Metrics) Snapshot() map[string]any {
	ticks := m.Ticks.Load()
	total := m.TotalTickNs.Load()
	var avgMs float64
	if ticks > 0 {
		avgMs = float64(total) / float64(ticks) / 1e6
	}
	return map[string]any{
		"tick_count":      ticks,
		"avg_tick_ms":     avgMs,
		"tick_panics":     m.TickPanics.Load(),
		"food_eaten":      m.FoodEaten.Load(),
		"shots":           m.Shots.Load(),
		"kills":           m.Kills.Load(),
		"cheat_warnings":  m.CheatWarnings.Load(),
		"cheat_kicks":     m.CheatKicks.Load(),
		"rate_kicks":      m.RateKicks.Load(),
		"intents_queued":  m.IntentsQueued.Load(),
		"intents_dropped": m.IntentsDropped.Load(),
		"train_steps":     m.TrainSteps.Load(),
		"brain_saves":     m.BrainSaves.Load(),
	}
}
