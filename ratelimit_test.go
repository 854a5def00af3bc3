package main

import (
	"testing"
	"time"
)

func TestRateLimiterRollingWindow(t *testing.T) {
	rl := NewRateLimiter(3, time.Second)
	t0 := time.Unix(100, 0)

	for i := 0; i < 3; i++ {
		if !rl.Allow(t0.Add(time.Duration(i) * 100 * time.Millisecond)) {
			t.Fatalf("event %d should be allowed", i)
		}
	}
	if rl.Allow(t0.Add(500 * time.Millisecond)) {
		t.Error("fourth event inside the window should be rejected")
	}
	// the first stamp leaves the window at t0+1s
	if !rl.Allow(t0.Add(time.Second)) {
		t.Error("window should roll forward")
	}
	if rl.Allow(t0.Add(time.Second + 50*time.Millisecond)) {
		t.Error("only one slot should have opened")
	}
	if !rl.Allow(t0.Add(5 * time.Second)) {
		t.Error("an idle connection should be allowed again")
	}
}

func TestRateLimiterRejectedNotRecorded(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)
	t0 := time.Unix(100, 0)
	rl.Allow(t0)
	for i := 1; i < 10; i++ {
		rl.Allow(t0.Add(time.Duration(i) * 50 * time.Millisecond))
	}
	if !rl.Allow(t0.Add(time.Second)) {
		t.Error("rejected events must not extend the window")
	}
}

func TestBanListExpiry(t *testing.T) {
	bans := NewBanList()
	now := time.Unix(100, 0)
	bans.now = func() time.Time { return now }

	bans.Ban("1.2.3.4", time.Minute)
	if !bans.IsBanned("1.2.3.4") {
		t.Fatal("ip should be banned")
	}
	if bans.IsBanned("5.6.7.8") {
		t.Error("other ips should not be banned")
	}

	// a shorter ban does not cut a longer one
	bans.Ban("1.2.3.4", time.Second)
	now = now.Add(30 * time.Second)
	if !bans.IsBanned("1.2.3.4") {
		t.Error("longer ban should be kept")
	}

	now = now.Add(30 * time.Second)
	if bans.IsBanned("1.2.3.4") {
		t.Error("ban should expire")
	}
	if len(bans.Bans()) != 0 {
		t.Error("expired bans should not be listed")
	}
}

func TestBanListLift(t *testing.T) {
	bans := NewBanList()
	bans.Ban("1.2.3.4", time.Hour)
	if got := bans.Bans(); len(got) != 1 {
		t.Fatalf("expected 1 active ban, got %d", len(got))
	}
	if !bans.Lift("1.2.3.4") {
		t.Error("lift should report the active ban")
	}
	if bans.IsBanned("1.2.3.4") {
		t.Error("lifted ip should be allowed")
	}
	if bans.Lift("1.2.3.4") {
		t.Error("second lift should report false")
	}
}

func TestRateLimiterIdle(t *testing.T) {
	rl := NewRateLimiter(2, time.Second)
	t0 := time.Unix(100, 0)
	if !rl.Idle(t0) {
		t.Error("a fresh limiter is idle")
	}
	rl.Allow(t0)
	if rl.Idle(t0.Add(999 * time.Millisecond)) {
		t.Error("an event inside the window keeps it busy")
	}
	if !rl.Idle(t0.Add(time.Second)) {
		t.Error("limiter should be idle once the window passes")
	}
}
