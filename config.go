package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the arena. Loaded from YAML over Defaults().
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	World       WorldConfig       `yaml:"world"`
	Player      PlayerConfig      `yaml:"player"`
	Projectile  ProjectileConfig  `yaml:"projectile"`
	Food        FoodConfig        `yaml:"food"`
	PowerUps    PowerUpConfig     `yaml:"powerups"`
	AntiCheat   AntiCheatConfig   `yaml:"anticheat"`
	Bots        BotConfig         `yaml:"bots"`
	Reward      RewardConfig      `yaml:"reward"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Admin       AdminConfig       `yaml:"admin"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Addr                string        `yaml:"addr"`
	ClientDir           string        `yaml:"client_dir"`
	DataDir             string        `yaml:"data_dir"`
	PublicURL           string        `yaml:"public_url"`
	PhysicsRate         int           `yaml:"physics_rate"`
	ServerTickRate      int           `yaml:"server_tick_rate"`
	LeaderboardInterval time.Duration `yaml:"leaderboard_interval"`
	LeaderboardSize     int           `yaml:"leaderboard_size"`
	MaxConnsPerIP       int           `yaml:"max_conns_per_ip"`
	MaxTotalConns       int           `yaml:"max_total_conns"`
	MaxMessagesPerSec   int           `yaml:"max_messages_per_sec"`
	BanDuration         time.Duration `yaml:"ban_duration"`
}

type WorldConfig struct {
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	CellSize float64 `yaml:"cell_size"`
}

type PlayerConfig struct {
	StartMass         float64 `yaml:"start_mass"`
	MinMass           float64 `yaml:"min_mass"`
	BaseRadius        float64 `yaml:"base_radius"`
	LevelRadiusFactor float64 `yaml:"level_radius_factor"`
	LevelXPRatio      float64 `yaml:"level_xp_ratio"`
	BaseSpeed         float64 `yaml:"base_speed"`
	MassDivisor       float64 `yaml:"mass_divisor"`
	SteerLerp         float64 `yaml:"steer_lerp"`
	Damping           float64 `yaml:"damping"`
	AimDeadzone       float64 `yaml:"aim_deadzone"`
	BoostMultiplier   float64 `yaml:"boost_multiplier"`
	BoostCostPerSec   float64 `yaml:"boost_cost_per_sec"`
	BoostMinMass      float64 `yaml:"boost_min_mass"`
	KillScoreFactor   float64 `yaml:"kill_score_factor"`
	OnFireStreak      int     `yaml:"on_fire_streak"`
	MaxNameLen        int     `yaml:"max_name_len"`
	MaxChatLen        int     `yaml:"max_chat_len"`
}

type ProjectileConfig struct {
	Speed          float64       `yaml:"speed"`
	Damage         float64       `yaml:"damage"`
	DamagePerLevel float64       `yaml:"damage_per_level"`
	BaseRadius     float64       `yaml:"base_radius"`
	RadiusPerLevel float64       `yaml:"radius_per_level"`
	Cost           float64       `yaml:"cost"`
	MinShootMass   float64       `yaml:"min_shoot_mass"`
	Cooldown       time.Duration `yaml:"cooldown"`
	LifespanTicks  int           `yaml:"lifespan_ticks"`
	SpawnOffset    float64       `yaml:"spawn_offset"`
	MaxLive        int           `yaml:"max_live"`
	Recoil         float64       `yaml:"recoil"`
}

type FoodConfig struct {
	InitialCount    int           `yaml:"initial_count"`
	Floor           int           `yaml:"floor"`
	RespawnBatch    int           `yaml:"respawn_batch"`
	RespawnInterval time.Duration `yaml:"respawn_interval"`
	MinRadius       float64       `yaml:"min_radius"`
	MaxRadius       float64       `yaml:"max_radius"`
	ValuePerRadius  float64       `yaml:"value_per_radius"`
	PowerUpChance   float64       `yaml:"powerup_chance"`
}

type PowerUpConfig struct {
	ShieldDuration   time.Duration `yaml:"shield_duration"`
	DamageDuration   time.Duration `yaml:"damage_duration"`
	SpeedDuration    time.Duration `yaml:"speed_duration"`
	DamageMultiplier float64       `yaml:"damage_multiplier"`
	SpeedMultiplier  float64       `yaml:"speed_multiplier"`
}

type AntiCheatConfig struct {
	Tolerance               float64       `yaml:"tolerance"`
	MaxWarnings             int           `yaml:"max_warnings"`
	SuspiciousShootInterval time.Duration `yaml:"suspicious_shoot_interval"`
	ShootStrikeLimit        int           `yaml:"shoot_strike_limit"`
	ShootPenalty            time.Duration `yaml:"shoot_penalty"`
	ShootPenaltyFactor      float64       `yaml:"shoot_penalty_factor"`
}

type BotConfig struct {
	Count           int           `yaml:"count"`
	ThinkTicks      int           `yaml:"think_ticks"`
	RespawnDelay    time.Duration `yaml:"respawn_delay"`
	Hidden1         int           `yaml:"hidden1"`
	Hidden2         int           `yaml:"hidden2"`
	LearningRate    float64       `yaml:"learning_rate"`
	Discount        float64       `yaml:"discount"`
	EpsilonStart    float64       `yaml:"epsilon_start"`
	EpsilonMin      float64       `yaml:"epsilon_min"`
	EpsilonDecay    float64       `yaml:"epsilon_decay"`
	ReplayCapacity  int           `yaml:"replay_capacity"`
	PriorityEpsilon float64       `yaml:"priority_epsilon"`
	TrainBatch      int           `yaml:"train_batch"`
	TrainInterval   time.Duration `yaml:"train_interval"`
	TrainJitter     time.Duration `yaml:"train_jitter"`
	StallTicks      int           `yaml:"stall_ticks"`
	StallDistance   float64       `yaml:"stall_distance"`
	ThreatRadius    float64       `yaml:"threat_radius"`
	AimReach        float64       `yaml:"aim_reach"`
	ShootReach      float64       `yaml:"shoot_reach"`
}

// RewardConfig holds reward shaping constants. Only sign and relative
// ordering matter; magnitudes are tuning.
type RewardConfig struct {
	Survival      float64                          `yaml:"survival"`
	Food          float64                          `yaml:"food"`
	PowerUp       float64                          `yaml:"powerup"`
	Hit           float64                          `yaml:"hit"`
	Kill          float64                          `yaml:"kill"`
	Death         float64                          `yaml:"death"`
	Miss          float64                          `yaml:"miss"`
	Wall          float64                          `yaml:"wall"`
	Stall         float64                          `yaml:"stall"`
	IdleBoost     float64                          `yaml:"idle_boost"`
	Retreat       float64                          `yaml:"retreat"`
	Personalities map[string]PersonalityMultiplier `yaml:"personalities"`
}

type PersonalityMultiplier struct {
	Food  float64 `yaml:"food"`
	Hit   float64 `yaml:"hit"`
	Kill  float64 `yaml:"kill"`
	Death float64 `yaml:"death"`
}

type PersistenceConfig struct {
	DBPath            string        `yaml:"db_path"`
	SnapshotDir       string        `yaml:"snapshot_dir"`
	SaveInterval      time.Duration `yaml:"save_interval"`
	SnapshotRetention time.Duration `yaml:"snapshot_retention"`
}

type AdminConfig struct {
	PasswordHash string        `yaml:"password_hash"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Defaults returns the stock arena tuning.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:                ":3000",
			ClientDir:           "public",
			DataDir:             "data",
			PhysicsRate:         60,
			ServerTickRate:      20,
			LeaderboardInterval: 2 * time.Second,
			LeaderboardSize:     10,
			MaxConnsPerIP:       5,
			MaxTotalConns:       1000,
			MaxMessagesPerSec:   100,
			BanDuration:         time.Minute,
		},
		World: WorldConfig{Width: 3000, Height: 3000, CellSize: 200},
		Player: PlayerConfig{
			StartMass:         100,
			MinMass:           10,
			BaseRadius:        20,
			LevelRadiusFactor: 3,
			LevelXPRatio:      100,
			BaseSpeed:         4,
			MassDivisor:       500,
			SteerLerp:         0.1,
			Damping:           0.95,
			AimDeadzone:       5,
			BoostMultiplier:   2.5,
			BoostCostPerSec:   0.5,
			BoostMinMass:      30,
			KillScoreFactor:   1,
			OnFireStreak:      3,
			MaxNameLen:        15,
			MaxChatLen:        50,
		},
		Projectile: ProjectileConfig{
			Speed:          12,
			Damage:         15,
			DamagePerLevel: 2,
			BaseRadius:     5,
			RadiusPerLevel: 0.5,
			Cost:           5,
			MinShootMass:   20,
			Cooldown:       300 * time.Millisecond,
			LifespanTicks:  120,
			SpawnOffset:    10,
			MaxLive:        1000,
			Recoil:         8,
		},
		Food: FoodConfig{
			InitialCount:    400,
			Floor:           300,
			RespawnBatch:    10,
			RespawnInterval: time.Second,
			MinRadius:       3,
			MaxRadius:       8,
			ValuePerRadius:  2,
			PowerUpChance:   0.03,
		},
		PowerUps: PowerUpConfig{
			ShieldDuration:   5 * time.Second,
			DamageDuration:   8 * time.Second,
			SpeedDuration:    6 * time.Second,
			DamageMultiplier: 1.5,
			SpeedMultiplier:  1.5,
		},
		AntiCheat: AntiCheatConfig{
			Tolerance:               1.5,
			MaxWarnings:             5,
			SuspiciousShootInterval: 100 * time.Millisecond,
			ShootStrikeLimit:        3,
			ShootPenalty:            5 * time.Second,
			ShootPenaltyFactor:      2,
		},
		Bots: BotConfig{
			Count:           8,
			ThinkTicks:      6,
			RespawnDelay:    3 * time.Second,
			Hidden1:         32,
			Hidden2:         16,
			LearningRate:    0.01,
			Discount:        0.9,
			EpsilonStart:    1.0,
			EpsilonMin:      0.05,
			EpsilonDecay:    0.995,
			ReplayCapacity:  5000,
			PriorityEpsilon: 0.01,
			TrainBatch:      32,
			TrainInterval:   2 * time.Second,
			TrainJitter:     time.Second,
			StallTicks:      180,
			StallDistance:   2,
			ThreatRadius:    400,
			AimReach:        200,
			ShootReach:      300,
		},
		Reward: RewardConfig{
			Survival:  0.01,
			Food:      0.1,
			PowerUp:   0.5,
			Hit:       1,
			Kill:      10,
			Death:     -10,
			Miss:      -0.2,
			Wall:      -0.5,
			Stall:     -0.5,
			IdleBoost: -0.1,
			Retreat:   0.3,
			Personalities: map[string]PersonalityMultiplier{
				PersonalityBalanced:   {Food: 1, Hit: 1, Kill: 1, Death: 1},
				PersonalityAggressive: {Food: 0.5, Hit: 1.5, Kill: 2, Death: 1},
				PersonalityCautious:   {Food: 1.5, Hit: 1, Kill: 0.5, Death: 2},
			},
		},
		Persistence: PersistenceConfig{
			DBPath:            "arena.db",
			SnapshotDir:       "snapshots",
			SaveInterval:      time.Minute,
			SnapshotRetention: 24 * time.Hour,
		},
		Admin: AdminConfig{TokenTTL: 12 * time.Hour},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// PhysicsDT is the simulated duration of one physics tick in seconds.
func (c *Config) PhysicsDT() float64 {
	return 1.0 / float64(c.Server.PhysicsRate)
}

// TickDuration is the wall-clock period of the physics ticker.
func (c *Config) TickDuration() time.Duration {
	return time.Second / time.Duration(c.Server.PhysicsRate)
}

// configSchema rejects unknown sections and obviously broken rates before
// the document is decoded over the defaults.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "server": {
      "type": "object",
      "properties": {
        "addr": {"type": "string"},
        "physics_rate": {"type": "integer", "minimum": 1, "maximum": 240},
        "server_tick_rate": {"type": "integer", "minimum": 1, "maximum": 120},
        "leaderboard_size": {"type": "integer", "minimum": 1},
        "max_messages_per_sec": {"type": "integer", "minimum": 1}
      }
    },
    "world": {
      "type": "object",
      "properties": {
        "width": {"type": "number", "exclusiveMinimum": 0},
        "height": {"type": "number", "exclusiveMinimum": 0},
        "cell_size": {"type": "number", "exclusiveMinimum": 0}
      }
    },
    "player": {"type": "object"},
    "projectile": {
      "type": "object",
      "properties": {
        "lifespan_ticks": {"type": "integer", "minimum": 1},
        "recoil": {"type": "number", "minimum": 0}
      }
    },
    "food": {
      "type": "object",
      "properties": {
        "powerup_chance": {"type": "number", "minimum": 0, "maximum": 1}
      }
    },
    "powerups": {"type": "object"},
    "anticheat": {
      "type": "object",
      "properties": {
        "tolerance": {"type": "number", "minimum": 1},
        "max_warnings": {"type": "integer", "minimum": 1}
      }
    },
    "bots": {
      "type": "object",
      "properties": {
        "count": {"type": "integer", "minimum": 0, "maximum": 64},
        "think_ticks": {"type": "integer", "minimum": 1},
        "replay_capacity": {"type": "integer", "minimum": 1},
        "train_batch": {"type": "integer", "minimum": 1},
        "discount": {"type": "number", "minimum": 0, "maximum": 1},
        "epsilon_min": {"type": "number", "minimum": 0, "maximum": 1},
        "epsilon_decay": {"type": "number", "exclusiveMinimum": 0, "maximum": 1}
      }
    },
    "reward": {"type": "object"},
    "persistence": {"type": "object"},
    "admin": {"type": "object"},
    "log": {
      "type": "object",
      "properties": {
        "level": {"enum": ["debug", "info", "warn", "error"]}
      }
    }
  }
}`

var compiledConfigSchema = jsonschema.MustCompileString("config.schema.json", configSchema)

// LoadConfig reads a YAML config file over Defaults(). An empty path yields
// the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := validateConfig(raw); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// validateConfig round-trips the YAML document through JSON so the schema
// validator sees plain JSON types.
func validateConfig(raw []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config not representable as json: %w", err)
	}
	var v interface{}
	if err := json.Unmarshal(js, &v); err != nil {
		return err
	}
	if err := compiledConfigSchema.Validate(v); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
