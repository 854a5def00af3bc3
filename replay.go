package main

import (
	"math"
	"math/rand"
)

// Sample is one transition in a bot's replay memory.
type Sample struct {
	State    []float64
	Action   []float64
	Reward   float64
	Next     []float64
	Terminal bool
	Priority float64
}

// ReplayBuffer is a fixed-capacity FIFO ring. Once full, each push evicts
// the oldest sample.
type ReplayBuffer struct {
	buf  []Sample
	head int // index of the oldest sample
	size int
	eps  float64
}

func NewReplayBuffer(capacity int, priorityEps float64) *ReplayBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ReplayBuffer{buf: make([]Sample, capacity), eps: priorityEps}
}

// Push stores s with priority |reward| + eps.
func (r *ReplayBuffer) Push(s Sample) {
	s.Priority = math.Abs(s.Reward) + r.eps
	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = s
		r.size++
		return
	}
	r.buf[r.head] = s
	r.head = (r.head + 1) % len(r.buf)
}

func (r *ReplayBuffer) Len() int { return r.size }

func (r *ReplayBuffer) Cap() int { return len(r.buf) }

// At returns the i-th oldest sample.
func (r *ReplayBuffer) At(i int) Sample {
	return r.buf[(r.head+i)%len(r.buf)]
}

// Sample draws n samples with replacement, each with probability
// proportional to its priority.
func (r *ReplayBuffer) Sample(n int, rng *rand.Rand) []Sample {
	if r.size == 0 || n <= 0 {
		return nil
	}
	cum := make([]float64, r.size)
	total := 0.0
	for i := 0; i < r.size; i++ {
		total += r.At(i).Priority
		cum[i] = total
	}
	out := make([]Sample, 0, n)
	for k := 0; k < n; k++ {
		x := rng.Float64() * total
		lo, hi := 0, r.size-1
		for lo < hi {
			mid := (lo + hi) / 2
			if cum[mid] > x {
				hi = mid
			} else {
				lo = mid + 1
			}
		}
		out = append(out, r.At(lo))
	}
	return out
}
