package main

import (
	"math"
	"math/rand"
)

// FoodShape is cosmetic; clients pick the polygon to draw from it.
type FoodShape string

const (
	ShapeCircle   FoodShape = "circle"
	ShapeSquare   FoodShape = "square"
	ShapeTriangle FoodShape = "triangle"
	ShapePentagon FoodShape = "pentagon"
)

var foodShapes = []FoodShape{ShapeCircle, ShapeSquare, ShapeTriangle, ShapePentagon}

var powerUpColors = map[PowerUpKind]string{
	PowerUpShield: "#4FC3F7",
	PowerUpDamage: "#FF5252",
	PowerUpSpeed:  "#FFEB3B",
}

// Food is a pellet. Value is derived from Radius at creation.
type Food struct {
	ID      string
	X, Y    float64
	Radius  float64
	Value   float64
	Shape   FoodShape
	Color   string
	PowerUp PowerUpKind
}

// FoodValue returns the mass/score grant for a pellet of the given radius.
// It is monotonic in radius.
func FoodValue(radius, perRadius float64) float64 {
	return math.Floor(radius * perRadius)
}

// NewFood places a random pellet somewhere in the world. A PowerUpChance
// fraction of pellets carry a power-up instead of mass.
func NewFood(cfg *Config, rng *rand.Rand) *Food {
	fc := cfg.Food
	r := fc.MinRadius + rng.Float64()*(fc.MaxRadius-fc.MinRadius)
	f := &Food{
		ID:     GenerateUUID(),
		X:      rng.Float64() * cfg.World.Width,
		Y:      rng.Float64() * cfg.World.Height,
		Radius: r,
		Value:  FoodValue(r, fc.ValuePerRadius),
		Shape:  foodShapes[rng.Intn(len(foodShapes))],
		Color:  playerColors[rng.Intn(len(playerColors))],
	}
	if rng.Float64() < fc.PowerUpChance {
		f.PowerUp = powerUpKinds[rng.Intn(len(powerUpKinds))]
		f.Color = powerUpColors[f.PowerUp]
	}
	return f
}

// ToState converts to protocol state
func (f *Food) ToState() FoodState {
	return FoodState{
		ID:      f.ID,
		X:       round1(f.X),
		Y:       round1(f.Y),
		Radius:  round1(f.Radius),
		Shape:   string(f.Shape),
		Color:   f.Color,
		PowerUp: string(f.PowerUp),
	}
}
