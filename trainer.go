package main

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

const minTrainDelay = 10 * time.Millisecond

// TrainBatch runs one training batch from the bot's replay memory. It
// reports false when there are not enough samples yet.
func (b *Bot) TrainBatch(cfg *BotConfig) (float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.replay.Len() < cfg.TrainBatch {
		return 0, false
	}
	batch := b.replay.Sample(cfg.TrainBatch, b.rng)
	loss := 0.0
	target := make([]float64, NumOutputs)
	for _, s := range batch {
		q := s.Reward
		if !s.Terminal {
			q += cfg.Discount * maxOf(b.brain.Forward(s.Next))
		}
		// Pull the output toward the taken action when q is positive and
		// away from it when negative, bounded by the unit's range.
		step := math.Tanh(q)
		out := b.brain.Forward(s.State)
		for i := range target {
			lo, hi := outputRange(i)
			target[i] = Clamp(out[i]+step*(s.Action[i]-out[i]), lo, hi)
		}
		loss += b.brain.Train(s.State, target, cfg.LearningRate)
	}
	b.epsilon = math.Max(cfg.EpsilonMin, b.epsilon*cfg.EpsilonDecay)
	b.stats.TrainSteps++
	return loss / float64(len(batch)), true
}

func maxOf(v []float64) float64 {
	m := math.Inf(-1)
	for _, x := range v {
		if x > m {
			m = x
		}
	}
	return m
}

// TrainerPool runs one training goroutine per bot. Each trainer starts at a
// random phase within the interval and jitters every subsequent delay, so
// the population never trains in lockstep.
type TrainerPool struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// StartTrainers launches a trainer for every bot. onStep, if set, is called
// after each completed batch.
func StartTrainers(parent context.Context, bots []*Bot, cfg BotConfig, seed int64, onStep func()) *TrainerPool {
	ctx, cancel := context.WithCancel(parent)
	tp := &TrainerPool{cancel: cancel}
	for i, b := range bots {
		rng := rand.New(rand.NewSource(seed + int64(i)*7919))
		tp.wg.Add(1)
		go func(b *Bot, rng *rand.Rand) {
			defer tp.wg.Done()
			runTrainer(ctx, b, &cfg, rng, onStep)
		}(b, rng)
	}
	return tp
}

// Stop cancels every trainer and waits for them to exit.
func (tp *TrainerPool) Stop() {
	tp.cancel()
	tp.wg.Wait()
}

func runTrainer(ctx context.Context, b *Bot, cfg *BotConfig, rng *rand.Rand, onStep func()) {
	phase := time.Duration(0)
	if cfg.TrainInterval > 0 {
		phase = time.Duration(rng.Int63n(int64(cfg.TrainInterval)))
	}
	timer := time.NewTimer(phase)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, ok := b.TrainBatch(cfg); ok && onStep != nil {
				onStep()
			}
			timer.Reset(nextTrainDelay(cfg, rng))
		}
	}
}

func nextTrainDelay(cfg *BotConfig, rng *rand.Rand) time.Duration {
	d := cfg.TrainInterval
	if cfg.TrainJitter > 0 {
		d += time.Duration(rng.Int63n(int64(2*cfg.TrainJitter))) - cfg.TrainJitter
	}
	if d < minTrainDelay {
		d = minTrainDelay
	}
	return d
}
