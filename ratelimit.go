package main

import (
	"sync"
	"time"
)

// RateLimiter admits at most limit events in any rolling window. It is
// owned by a single connection's read loop and is not safe for concurrent
// use.
type RateLimiter struct {
	limit  int
	window time.Duration
	stamps []time.Time
	head   int
	n      int
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	return &RateLimiter{limit: limit, window: window, stamps: make([]time.Time, limit)}
}

// Allow records an event at now and reports whether it fits the window.
// Rejected events are not recorded.
func (rl *RateLimiter) Allow(now time.Time) bool {
	rl.expire(now)
	if rl.n >= rl.limit {
		return false
	}
	rl.stamps[(rl.head+rl.n)%rl.limit] = now
	rl.n++
	return true
}

// Idle reports whether no recorded event is still inside the window at now.
func (rl *RateLimiter) Idle(now time.Time) bool {
	rl.expire(now)
	return rl.n == 0
}

func (rl *RateLimiter) expire(now time.Time) {
	for rl.n > 0 && now.Sub(rl.stamps[rl.head]) >= rl.window {
		rl.head = (rl.head + 1) % rl.limit
		rl.n--
	}
}

// BanList holds temporary IP bans
type BanList struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewBanList() *BanList {
	return &BanList{until: make(map[string]time.Time), now: time.Now}
}

// Ban blocks ip for d. An existing longer ban is kept.
func (b *BanList) Ban(ip string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.now().Add(d)
	if cur, ok := b.until[ip]; ok && cur.After(t) {
		return
	}
	b.until[ip] = t
}

func (b *BanList) IsBanned(ip string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.until[ip]
	if !ok {
		return false
	}
	if !b.now().Before(t) {
		delete(b.until, ip)
		return false
	}
	return true
}

// Bans returns the active bans and drops expired ones
func (b *BanList) Bans() map[string]time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	out := make(map[string]time.Time, len(b.until))
	for ip, t := range b.until {
		if !now.Before(t) {
			delete(b.until, ip)
			continue
		}
		out[ip] = t
	}
	return out
}

// Lift removes a ban. It reports whether one was active.
func (b *BanList) Lift(ip string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.until[ip]
	delete(b.until, ip)
	return ok && b.now().Before(t)
}
