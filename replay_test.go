package main

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayEvictsOldestFirst(t *testing.T) {
	r := NewReplayBuffer(3, 0.01)
	for i := 1; i <= 5; i++ {
		r.Push(Sample{Reward: float64(i)})
	}
	require.Equal(t, 3, r.Len())
	assert.Equal(t, 3, r.Cap())
	for i, want := range []float64{3, 4, 5} {
		assert.Equal(t, want, r.At(i).Reward)
	}
}

func TestReplayPriorityFromReward(t *testing.T) {
	r := NewReplayBuffer(4, 0.01)
	r.Push(Sample{Reward: -2})
	r.Push(Sample{Reward: 0})
	assert.InDelta(t, 2.01, r.At(0).Priority, 1e-12)
	assert.InDelta(t, 0.01, r.At(1).Priority, 1e-12, "zero reward keeps a nonzero priority")
}

func TestReplaySampleFavorsHighPriority(t *testing.T) {
	r := NewReplayBuffer(10, 0.01)
	r.Push(Sample{Reward: 10})
	for i := 0; i < 9; i++ {
		r.Push(Sample{Reward: 0})
	}
	rng := rand.New(rand.NewSource(7))
	big := 0
	batch := r.Sample(1000, rng)
	require.Len(t, batch, 1000)
	for _, s := range batch {
		if s.Reward == 10 {
			big++
		}
	}
	// 10.01 of 10.1 total priority
	assert.Greater(t, big, 950)
}

func TestReplaySampleEmpty(t *testing.T) {
	r := NewReplayBuffer(4, 0.01)
	assert.Nil(t, r.Sample(8, rand.New(rand.NewSource(1))))
}
