package main

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomInput(rng *rand.Rand) []float64 {
	in := make([]float64, NumFeatures)
	for i := range in {
		in[i] = rng.Float64()*2 - 1
	}
	return in
}

func TestNetworkOutputRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n := NewNetwork([]int{NumFeatures, 32, 16, NumOutputs}, rng)
	assert.Equal(t, []int{NumFeatures, 32, 16, NumOutputs}, n.Sizes())

	for i := 0; i < 200; i++ {
		out := n.Forward(randomInput(rng))
		require.Len(t, out, NumOutputs)
		for u, v := range out {
			lo, hi := outputRange(u)
			assert.GreaterOrEqual(t, v, lo, "unit %d", u)
			assert.LessOrEqual(t, v, hi, "unit %d", u)
		}
	}
}

func TestNetworkTrainReducesLoss(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	n := NewNetwork([]int{NumFeatures, 32, 16, NumOutputs}, rng)
	in := randomInput(rng)
	target := []float64{0.5, -0.5, 0.9, 0.1, 0.2}

	first := n.Train(in, target, 0.01)
	var last float64
	for i := 0; i < 300; i++ {
		last = n.Train(in, target, 0.01)
	}
	assert.Less(t, last, first)
}

func TestWeightsAreDeepCopies(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n := NewNetwork([]int{NumFeatures, 8, NumOutputs}, rng)
	in := randomInput(rng)
	before := n.Forward(in)

	w := n.Weights()
	w[0].W[0] += 100
	w[1].B[0] = 42
	assert.Equal(t, before, n.Forward(in), "mutating a copy must not touch the network")
}

func TestSetWeightsRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	a := NewNetwork([]int{NumFeatures, 8, NumOutputs}, rng)
	b := NewNetwork([]int{NumFeatures, 8, NumOutputs}, rng)
	in := randomInput(rng)

	require.NoError(t, b.SetWeights(a.Weights()))
	assert.Equal(t, a.Forward(in), b.Forward(in))
}

func TestSetWeightsShapeMismatch(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	n := NewNetwork([]int{NumFeatures, 8, NumOutputs}, rng)
	other := NewNetwork([]int{NumFeatures, 9, NumOutputs}, rng)
	in := randomInput(rng)
	before := n.Forward(in)

	err := n.SetWeights(other.Weights())
	require.ErrorIs(t, err, ErrShapeMismatch)
	assert.Equal(t, before, n.Forward(in), "failed load must leave the network untouched")

	err = n.SetWeights(other.Weights()[:1])
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
