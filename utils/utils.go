package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"

	"github.com/eikrt/dimensioner/world"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Addr            string   `toml:"addr"`
	WSAddr          string   `toml:"ws_addr"`
	TickRate        int      `toml:"tick_rate"`
	MaxFrame        int      `toml:"max_frame"`
	IntentQueue     int      `toml:"intent_queue"`
	CacheMaxCost    int64    `toml:"cache_max_cost"`
	DetectDeadlocks bool     `toml:"detect_deadlocks"`
	OriginPatterns  []string `toml:"origin_patterns"` // browser origins allowed to open a websocket
}

type WorldConfig struct {
	WorldSize int    `toml:"world_size"`
	ChunkSize int    `toml:"chunk_size"`
	TileSize  int    `toml:"tile_size"`
	Seed      uint32 `toml:"seed"`
	Heightmap string `toml:"heightmap"`
}

type RulesConfig struct {
	VicinityDist    float64 `toml:"vicinity_dist"`
	Gravity         float32 `toml:"gravity"`
	ShellSpeed      float64 `toml:"shell_speed"`
	ShellLift       float64 `toml:"shell_lift"`
	ExplosionDecay  int32   `toml:"explosion_decay"`
	ExplosionDamage int32   `toml:"explosion_damage"`
	FightThreshold  uint8   `toml:"fight_threshold"`
	FightRoll       int     `toml:"fight_roll"`
	CannonPeriod    int64   `toml:"cannon_period"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

type MathConfig struct {
	Float64EqualityThreshold float64 `toml:"float64_equality_threshold"`
}

type Config struct {
	Server ServerConfig `toml:"server"`
	World  WorldConfig  `toml:"world"`
	Rules  RulesConfig  `toml:"rules"`
	Log    LogConfig    `toml:"log"`
	Math   MathConfig   `toml:"math"`
}

func DefaultConfig() *Config {
	r := world.DefaultRules()
	return &Config{
		Server: ServerConfig{
			Addr:           "127.0.0.1:3000",
			WSAddr:         "127.0.0.1:4242",
			TickRate:       120,
			MaxFrame:       65536,
			IntentQueue:    1024,
			CacheMaxCost:   64 << 20,
			OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
		},
		World: WorldConfig{
			WorldSize: r.WorldSize,
			ChunkSize: r.ChunkSize,
			TileSize:  r.TileSize,
		},
		Rules: RulesConfig{
			VicinityDist:    r.VicinityDist,
			Gravity:         r.Gravity,
			ShellSpeed:      r.ShellSpeed,
			ShellLift:       r.ShellLift,
			ExplosionDecay:  r.ExplosionDecay,
			ExplosionDamage: r.ExplosionDamage,
			FightThreshold:  r.FightThreshold,
			FightRoll:       r.FightRoll,
			CannonPeriod:    r.CannonPeriod,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		Math: MathConfig{Float64EqualityThreshold: 1e-6},
	}
}

// ReadTOML decodes fileName over the defaults. Unknown keys are an error.
func ReadTOML(fileName string) (*Config, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := DefaultConfig()
	d := toml.NewDecoder(file)
	d.DisallowUnknownFields()
	if err := d.Decode(config); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%s: %s", fileName, strict.String())
		}
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	return config, nil
}

// Load reads an optional .env file, then fileName if it exists, then applies
// DIMENSIONER_* environment overrides.
func Load(fileName string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	config, err := ReadTOML(fileName)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		config = DefaultConfig()
	case err != nil:
		return nil, err
	}

	if v, ok := os.LookupEnv("DIMENSIONER_ADDR"); ok {
		config.Server.Addr = v
	}
	if v, ok := os.LookupEnv("DIMENSIONER_WS_ADDR"); ok {
		config.Server.WSAddr = v
	}
	if v, ok := os.LookupEnv("DIMENSIONER_SEED"); ok {
		seed, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("DIMENSIONER_SEED: %w", err)
		}
		config.World.Seed = uint32(seed)
	}
	if v, ok := os.LookupEnv("DIMENSIONER_LOG_LEVEL"); ok {
		config.Log.Level = v
	}
	if v, ok := os.LookupEnv("DIMENSIONER_HEIGHTMAP"); ok {
		config.World.Heightmap = v
	}
	return config, config.Validate()
}

func (c *Config) Validate() error {
	switch {
	case c.Server.TickRate <= 0:
		return errors.New("server.tick_rate must be positive")
	case c.Server.MaxFrame <= 0:
		return errors.New("server.max_frame must be positive")
	case c.Server.IntentQueue <= 0:
		return errors.New("server.intent_queue must be positive")
	case c.World.WorldSize <= 0 || c.World.ChunkSize <= 0 || c.World.TileSize <= 0:
		return errors.New("world sizes must be positive")
	case c.Rules.FightRoll <= 0:
		return errors.New("rules.fight_roll must be positive")
	}
	return nil
}

// Rules assembles the simulation rules from the world and rules sections.
func (c *Config) Rules() world.Rules {
	return world.Rules{
		WorldSize:       c.World.WorldSize,
		ChunkSize:       c.World.ChunkSize,
		TileSize:        c.World.TileSize,
		VicinityDist:    c.Rules.VicinityDist,
		Gravity:         c.Rules.Gravity,
		ShellSpeed:      c.Rules.ShellSpeed,
		ShellLift:       c.Rules.ShellLift,
		ExplosionDecay:  c.Rules.ExplosionDecay,
		ExplosionDamage: c.Rules.ExplosionDamage,
		FightThreshold:  c.Rules.FightThreshold,
		FightRoll:       c.Rules.FightRoll,
		CannonPeriod:    c.Rules.CannonPeriod,
	}
}

func AlmostEqual(a, b, threshold float64) bool {
	return math.Abs(a-b) <= threshold
}
