package main

import (
	"database/sql"
	"sync"
	"time"
)

const (
	EvtJoin      = "join"
	EvtLeave     = "leave"
	EvtKill      = "kill"
	EvtCheatKick = "cheat_kick"
	EvtRateKick  = "rate_kick"
	EvtBrainSave = "brain_save"
)

const (
	analyticsQueue      = 1024
	analyticsBatch      = 50
	analyticsFlushEvery = 5 * time.Second
)

// AnalyticsEvent is one row of the analytics_events table. Actor is the
// player name or IP the event is about; Subject is the other party, if any.
type AnalyticsEvent struct {
	Kind    string
	Actor   string
	Subject string
	At      time.Time
}

// Analytics records arena events off the tick goroutine. Events are queued
// on a channel and written in batches. A nil *Analytics discards everything.
type Analytics struct {
	db      *DB
	queue   chan AnalyticsEvent
	done    chan struct{}
	closing sync.Once
	wg      sync.WaitGroup
}

func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:    db,
		queue: make(chan AnalyticsEvent, analyticsQueue),
		done:  make(chan struct{}),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

// Track never blocks.
func (a *Analytics) Track(kind, actor, subject string) {
	if a == nil {
		return
	}
	ev := AnalyticsEvent{Kind: kind, Actor: actor, Subject: subject, At: time.Now().UTC()}
	select {
	case a.queue <- ev:
	default:
		// Queue full: drop the event rather than stall the tick
	}
}

// Stop writes whatever is still queued and waits for the writer to exit.
func (a *Analytics) Stop() {
	if a == nil {
		return
	}
	a.closing.Do(func() { close(a.done) })
	a.wg.Wait()
}

func (a *Analytics) run() {
	defer a.wg.Done()

	pending := make([]AnalyticsEvent, 0, analyticsBatch)
	ticker := time.NewTicker(analyticsFlushEvery)
	defer ticker.Stop()

	for {
		select {
		case ev := <-a.queue:
			pending = append(pending, ev)
			if len(pending) < analyticsBatch {
				continue
			}
		case <-ticker.C:
		case <-a.done:
			for n := len(a.queue); n > 0; n-- {
				pending = append(pending, <-a.queue)
			}
			a.write(pending)
			return
		}
		a.write(pending)
		pending = pending[:0]
	}
}

func (a *Analytics) write(events []AnalyticsEvent) {
	if a.db == nil || len(events) == 0 {
		return
	}
	tx, err := a.db.conn.Begin()
	if err != nil {
		Log.Errorw("analytics: begin", "err", err)
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO analytics_events (event_type, actor, data, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		Log.Errorw("analytics: prepare", "err", err)
		return
	}
	defer stmt.Close()

	for _, ev := range events {
		_, err := stmt.Exec(ev.Kind, nullable(ev.Actor), nullable(ev.Subject), ev.At.Format(time.RFC3339))
		if err != nil {
			Log.Errorw("analytics: insert", "kind", ev.Kind, "err", err)
		}
	}
	if err := tx.Commit(); err != nil {
		Log.Errorw("analytics: commit", "err", err)
		return
	}
	Log.Debugw("analytics flushed", "events", len(events))
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func analyticsSince(days int) string {
	return time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)
}

// EventCounts returns how often each event kind was seen in the last days.
func (a *Analytics) EventCounts(days int) (map[string]int, error) {
	counts := make(map[string]int)
	if a == nil || a.db == nil {
		return counts, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT event_type, COUNT(*) FROM analytics_events
		WHERE created_at >= ?
		GROUP BY event_type
	`, analyticsSince(days))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

// ActorCount is one row of a leaderboard built from analytics events.
type ActorCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TopActors ranks actors of one event kind over the last days, e.g. the
// players with the most kills.
func (a *Analytics) TopActors(kind string, days, limit int) ([]ActorCount, error) {
	top := []ActorCount{}
	if a == nil || a.db == nil {
		return top, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT actor, COUNT(*) AS n FROM analytics_events
		WHERE event_type = ? AND created_at >= ? AND actor IS NOT NULL
		GROUP BY actor ORDER BY n DESC, actor ASC LIMIT ?
	`, kind, analyticsSince(days), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ac ActorCount
		if err := rows.Scan(&ac.Name, &ac.Count); err != nil {
			return nil, err
		}
		top = append(top, ac)
	}
	return top, rows.Err()
}
