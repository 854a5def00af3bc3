package main

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// Output unit layout of the bot network.
const (
	OutAimX = iota
	OutAimY
	OutShoot
	OutShootAngle
	OutBoost
	NumOutputs
)

// NumFeatures is the width of the bot observation vector.
const NumFeatures = 30

// LayerWeights is one dense layer: W is Out rows of In columns, row-major.
type LayerWeights struct {
	In  int       `msgpack:"in"`
	Out int       `msgpack:"out"`
	W   []float64 `msgpack:"w"`
	B   []float64 `msgpack:"b"`
}

func (l *LayerWeights) clone() LayerWeights {
	c := LayerWeights{In: l.In, Out: l.Out}
	c.W = append([]float64(nil), l.W...)
	c.B = append([]float64(nil), l.B...)
	return c
}

var ErrShapeMismatch = errors.New("network shape mismatch")

// Network is a small fully connected net: ReLU hidden layers and a per-unit
// output activation (tanh for directions, sigmoid for probabilities). It is
// not safe for concurrent use.
type Network struct {
	layers []LayerWeights
}

// NewNetwork builds a network with the given layer sizes, input first, and
// He-style uniform initialization.
func NewNetwork(sizes []int, rng *rand.Rand) *Network {
	n := &Network{}
	for i := 0; i+1 < len(sizes); i++ {
		in, out := sizes[i], sizes[i+1]
		limit := math.Sqrt(6.0 / float64(in))
		l := LayerWeights{In: in, Out: out, W: make([]float64, in*out), B: make([]float64, out)}
		for j := range l.W {
			l.W[j] = (rng.Float64()*2 - 1) * limit
		}
		n.layers = append(n.layers, l)
	}
	return n
}

// Sizes returns the layer widths, input first.
func (n *Network) Sizes() []int {
	if len(n.layers) == 0 {
		return nil
	}
	s := []int{n.layers[0].In}
	for _, l := range n.layers {
		s = append(s, l.Out)
	}
	return s
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func outputIsSigmoid(unit int) bool { return unit == OutShoot || unit == OutBoost }

// outputRange is the codomain of an output unit's activation.
func outputRange(unit int) (float64, float64) {
	if outputIsSigmoid(unit) {
		return 0, 1
	}
	return -1, 1
}

// forward returns the activations of every layer, input included.
func (n *Network) forward(input []float64) [][]float64 {
	acts := make([][]float64, 0, len(n.layers)+1)
	acts = append(acts, input)
	x := input
	for li := range n.layers {
		l := &n.layers[li]
		last := li == len(n.layers)-1
		y := make([]float64, l.Out)
		for o := 0; o < l.Out; o++ {
			sum := l.B[o]
			row := l.W[o*l.In : (o+1)*l.In]
			for i, w := range row {
				sum += w * x[i]
			}
			switch {
			case !last:
				if sum < 0 {
					sum = 0
				}
			case outputIsSigmoid(o):
				sum = sigmoid(sum)
			default:
				sum = math.Tanh(sum)
			}
			y[o] = sum
		}
		acts = append(acts, y)
		x = y
	}
	return acts
}

// Forward runs the network on input and returns the output activations.
func (n *Network) Forward(input []float64) []float64 {
	acts := n.forward(input)
	return acts[len(acts)-1]
}

// Train does one step of gradient descent on squared error toward target
// and returns the loss before the update.
func (n *Network) Train(input, target []float64, lr float64) float64 {
	acts := n.forward(input)
	out := acts[len(acts)-1]

	delta := make([]float64, len(out))
	loss := 0.0
	for o, y := range out {
		diff := y - target[o]
		loss += diff * diff
		if outputIsSigmoid(o) {
			delta[o] = diff * y * (1 - y)
		} else {
			delta[o] = diff * (1 - y*y)
		}
	}

	for li := len(n.layers) - 1; li >= 0; li-- {
		l := &n.layers[li]
		x := acts[li]
		var prev []float64
		if li > 0 {
			prev = make([]float64, l.In)
			for o := 0; o < l.Out; o++ {
				row := l.W[o*l.In : (o+1)*l.In]
				for i, w := range row {
					prev[i] += w * delta[o]
				}
			}
			// ReLU derivative of the layer below
			for i := range prev {
				if x[i] <= 0 {
					prev[i] = 0
				}
			}
		}
		for o := 0; o < l.Out; o++ {
			row := l.W[o*l.In : (o+1)*l.In]
			for i := range row {
				row[i] -= lr * delta[o] * x[i]
			}
			l.B[o] -= lr * delta[o]
		}
		delta = prev
	}
	return loss / float64(len(out))
}

// Weights returns a deep copy of every layer.
func (n *Network) Weights() []LayerWeights {
	out := make([]LayerWeights, len(n.layers))
	for i := range n.layers {
		out[i] = n.layers[i].clone()
	}
	return out
}

// SetWeights replaces every layer with a copy of layers. The shapes must
// match the network exactly.
func (n *Network) SetWeights(layers []LayerWeights) error {
	if len(layers) != len(n.layers) {
		return fmt.Errorf("%w: %d layers, want %d", ErrShapeMismatch, len(layers), len(n.layers))
	}
	for i, l := range layers {
		cur := n.layers[i]
		if l.In != cur.In || l.Out != cur.Out || len(l.W) != l.In*l.Out || len(l.B) != l.Out {
			return fmt.Errorf("%w: layer %d is %dx%d", ErrShapeMismatch, i, l.In, l.Out)
		}
	}
	for i := range layers {
		n.layers[i] = layers[i].clone()
	}
	return nil
}
