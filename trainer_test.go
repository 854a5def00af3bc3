package main

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestTrainersStopCleanly(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig()
	cfg.Bots.TrainInterval = 20 * time.Millisecond
	cfg.Bots.TrainJitter = 5 * time.Millisecond
	cfg.Bots.TrainBatch = 4

	rng := rand.New(rand.NewSource(3))
	var bots []*Bot
	for i := 0; i < 3; i++ {
		b := NewBot(botNames[i], personalities[i], playerColors[i], &cfg.Bots, int64(i+1))
		for j := 0; j < 8; j++ {
			b.remember(Sample{State: randomInput(rng), Action: make([]float64, NumOutputs), Reward: 1, Next: randomInput(rng)})
		}
		bots = append(bots, b)
	}

	var steps atomic.Int64
	pool := StartTrainers(context.Background(), bots, cfg.Bots, 7, func() { steps.Add(1) })
	require.Eventually(t, func() bool {
		for _, b := range bots {
			if b.Stats().TrainSteps == 0 {
				return false
			}
		}
		return true
	}, 2*time.Second, 5*time.Millisecond)
	pool.Stop()

	after := steps.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, steps.Load(), "no training after Stop")
	for _, b := range bots {
		assert.Less(t, b.Epsilon(), 1.0)
	}
}

func TestTrainersHonorParentContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig()
	ctx, cancel := context.WithCancel(context.Background())
	b := NewBot("Nova", PersonalityCautious, "#4ECDC4", &cfg.Bots, 1)
	pool := StartTrainers(ctx, []*Bot{b}, cfg.Bots, 1, nil)
	cancel()
	pool.Stop()
}

func TestNextTrainDelayJitter(t *testing.T) {
	cfg := testConfig().Bots
	rng := rand.New(rand.NewSource(9))
	seen := map[time.Duration]bool{}
	for i := 0; i < 200; i++ {
		d := nextTrainDelay(&cfg, rng)
		assert.GreaterOrEqual(t, d, cfg.TrainInterval-cfg.TrainJitter)
		assert.Less(t, d, cfg.TrainInterval+cfg.TrainJitter)
		seen[d] = true
	}
	assert.Greater(t, len(seen), 1, "delays should vary")

	cfg.TrainInterval = 0
	cfg.TrainJitter = 0
	assert.Equal(t, minTrainDelay, nextTrainDelay(&cfg, rng))
}
