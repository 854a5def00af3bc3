package main

import "encoding/json"

// Client -> Server message types
const (
	MsgJoin  = "join"
	MsgMove  = "move"
	MsgShoot = "shoot"
	MsgBoost = "boost"
	MsgChat  = "chat"
)

// Server -> Client message types
const (
	MsgState       = "state"
	MsgWelcome     = "welcome"
	MsgLeaderboard = "leaderboard"
	MsgDeath       = "death"
	MsgYouDied     = "youDied"
	MsgNotice      = "notice"
	MsgShutdown    = "shutdown"
	MsgError       = "error"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; D stays raw until the type is known
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// JoinMsg is sent when a client wants an avatar
type JoinMsg struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// MoveMsg carries the absolute world-space aim point
type MoveMsg struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

type ShootMsg struct {
	TargetX *float64 `json:"targetX"`
	TargetY *float64 `json:"targetY"`
}

type BoostMsg struct {
	Active bool `json:"active"`
}

type ChatInMsg struct {
	Text string `json:"text"`
}

// PlayerState is broadcast per live player
type PlayerState struct {
	ID       string   `json:"id" msgpack:"id"`
	Name     string   `json:"name" msgpack:"name"`
	Color    string   `json:"color" msgpack:"color"`
	X        float64  `json:"x" msgpack:"x"`
	Y        float64  `json:"y" msgpack:"y"`
	VX       float64  `json:"vx" msgpack:"vx"`
	VY       float64  `json:"vy" msgpack:"vy"`
	Radius   float64  `json:"radius" msgpack:"radius"`
	Mass     float64  `json:"mass" msgpack:"mass"`
	Health   float64  `json:"health" msgpack:"health"`
	Score    float64  `json:"score" msgpack:"score"`
	Kills    int      `json:"kills" msgpack:"kills"`
	Level    int      `json:"level" msgpack:"level"`
	Boost    bool     `json:"boost,omitempty" msgpack:"boost,omitempty"`
	OnFire   bool     `json:"onFire,omitempty" msgpack:"onFire,omitempty"`
	PowerUps []string `json:"powerUps,omitempty" msgpack:"powerUps,omitempty"`
}

// ProjectileState is broadcast per projectile
type ProjectileState struct {
	ID     string  `json:"id" msgpack:"id"`
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	Radius float64 `json:"radius" msgpack:"radius"`
	Color  string  `json:"color" msgpack:"color"`
}

// FoodState is broadcast per pellet
type FoodState struct {
	ID      string  `json:"id" msgpack:"id"`
	X       float64 `json:"x" msgpack:"x"`
	Y       float64 `json:"y" msgpack:"y"`
	Radius  float64 `json:"radius" msgpack:"radius"`
	Shape   string  `json:"shape" msgpack:"shape"`
	Color   string  `json:"color" msgpack:"color"`
	PowerUp string  `json:"powerUp,omitempty" msgpack:"powerUp,omitempty"`
}

// GameState is the full state broadcast, sent as a msgpack binary frame
type GameState struct {
	Players     []PlayerState     `json:"players" msgpack:"players"`
	Projectiles []ProjectileState `json:"projectiles" msgpack:"projectiles"`
	Food        []FoodState       `json:"food" msgpack:"food"`
	Time        int64             `json:"ts" msgpack:"ts"`
	Tick        uint64            `json:"tick" msgpack:"tick"`
}

type WorldSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ClientConfig is the subset of tuning the client needs for prediction
type ClientConfig struct {
	PhysicsRate      int     `json:"physicsRate"`
	ServerTickRate   int     `json:"serverTickRate"`
	BaseSpeed        float64 `json:"baseSpeed"`
	BoostMultiplier  float64 `json:"boostMultiplier"`
	ProjectileSpeed  float64 `json:"projectileSpeed"`
	ShootCooldownMs  int64   `json:"shootCooldownMs"`
	MaxChatLen       int     `json:"maxChatLen"`
	LevelXPRatio     float64 `json:"levelXpRatio"`
	BaseRadius       float64 `json:"baseRadius"`
	LevelRadiusScale float64 `json:"levelRadiusFactor"`
}

// WelcomeMsg is sent to a player when they join
type WelcomeMsg struct {
	YourID    string       `json:"yourId"`
	WorldSize WorldSize    `json:"worldSize"`
	Config    ClientConfig `json:"config"`
}

type LeaderboardEntry struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	Kills int     `json:"kills"`
	IsBot bool    `json:"isBot"`
}

type DeathStats struct {
	Score float64 `json:"score"`
	Kills int     `json:"kills"`
}

// DeathMsg is broadcast to everyone when a player dies
type DeathMsg struct {
	ID         string     `json:"id"`
	KillerName string     `json:"killerName"`
	Stats      DeathStats `json:"stats"`
}

// YouDiedMsg goes only to the victim
type YouDiedMsg struct {
	KillerName  string  `json:"killerName"`
	SurvivedSec float64 `json:"survivedSec"`
	Score       float64 `json:"score"`
	Kills       int     `json:"kills"`
}

type NoticeMsg struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

type ChatMsg struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Text  string `json:"text"`
}

type ShutdownMsg struct {
	Reason string `json:"reason"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

func clientConfigFrom(cfg *Config) ClientConfig {
	return ClientConfig{
		PhysicsRate:      cfg.Server.PhysicsRate,
		ServerTickRate:   cfg.Server.ServerTickRate,
		BaseSpeed:        cfg.Player.BaseSpeed,
		BoostMultiplier:  cfg.Player.BoostMultiplier,
		ProjectileSpeed:  cfg.Projectile.Speed,
		ShootCooldownMs:  cfg.Projectile.Cooldown.Milliseconds(),
		MaxChatLen:       cfg.Player.MaxChatLen,
		LevelXPRatio:     cfg.Player.LevelXPRatio,
		BaseRadius:       cfg.Player.BaseRadius,
		LevelRadiusScale: cfg.Player.LevelRadiusFactor,
	}
}
