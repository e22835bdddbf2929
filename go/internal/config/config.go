// Package config loads server configuration from an optional YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/penaltyarena/go/internal/game"
	"github.com/mcdev12/penaltyarena/go/internal/room"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Registry RegistryConfig `yaml:"registry"`
	Rules    game.Rules     `yaml:"rules"`
	Robot    RobotConfig    `yaml:"robot"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// AssetDir holds the legacy client binary and anything else served
	// verbatim.
	AssetDir string `yaml:"asset_dir"`
	// MaxConns caps concurrently open client connections.
	MaxConns int `yaml:"max_conns"`
}

// RegistryConfig holds room lifecycle knobs.
type RegistryConfig struct {
	MaxRooms       int           `yaml:"max_rooms"`
	PairingTimeout time.Duration `yaml:"-"`
	LeaveGrace     time.Duration `yaml:"-"`
	IdleExpiry     time.Duration `yaml:"-"`
	FinishedExpiry time.Duration `yaml:"-"`
	SweepEvery     time.Duration `yaml:"-"`
}

// UnmarshalYAML accepts durations in time.ParseDuration notation ("10s");
// omitted keys keep their previous values.
func (c *RegistryConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MaxRooms       int    `yaml:"max_rooms"`
		PairingTimeout string `yaml:"pairing_timeout"`
		LeaveGrace     string `yaml:"leave_grace"`
		IdleExpiry     string `yaml:"idle_expiry"`
		FinishedExpiry string `yaml:"finished_expiry"`
		SweepEvery     string `yaml:"sweep_every"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.MaxRooms != 0 {
		c.MaxRooms = raw.MaxRooms
	}
	pairs := []struct {
		s string
		d *time.Duration
	}{
		{raw.PairingTimeout, &c.PairingTimeout},
		{raw.LeaveGrace, &c.LeaveGrace},
		{raw.IdleExpiry, &c.IdleExpiry},
		{raw.FinishedExpiry, &c.FinishedExpiry},
		{raw.SweepEvery, &c.SweepEvery},
	}
	for _, p := range pairs {
		if p.s == "" {
			continue
		}
		d, err := time.ParseDuration(p.s)
		if err != nil {
			return fmt.Errorf("config: bad duration %q: %w", p.s, err)
		}
		*p.d = d
	}
	return nil
}

// RobotConfig bounds the robot's artificial think delay.
type RobotConfig struct {
	MinThink time.Duration `yaml:"-"`
	MaxThink time.Duration `yaml:"-"`
}

func (c *RobotConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MinThink string `yaml:"min_think"`
		MaxThink string `yaml:"max_think"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.MinThink != "" {
		d, err := time.ParseDuration(raw.MinThink)
		if err != nil {
			return fmt.Errorf("config: bad duration %q: %w", raw.MinThink, err)
		}
		c.MinThink = d
	}
	if raw.MaxThink != "" {
		d, err := time.ParseDuration(raw.MaxThink)
		if err != nil {
			return fmt.Errorf("config: bad duration %q: %w", raw.MaxThink, err)
		}
		c.MaxThink = d
	}
	return nil
}

// Default returns the production defaults.
func Default() Config {
	rc := room.DefaultConfig()
	return Config{
		Server: ServerConfig{
			Addr:     ":8080",
			AssetDir: "assets",
			MaxConns: 512,
		},
		Registry: RegistryConfig{
			MaxRooms:       rc.MaxRooms,
			PairingTimeout: rc.PairingTimeout,
			LeaveGrace:     rc.LeaveGrace,
			IdleExpiry:     rc.IdleExpiry,
			FinishedExpiry: rc.FinishedExpiry,
			SweepEvery:     rc.SweepEvery,
		},
		Rules: rc.Rules,
		Robot: RobotConfig{
			MinThink: rc.RobotMinThink,
			MaxThink: rc.RobotMaxThink,
		},
	}
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides and validates. An empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// optional file; env and defaults carry it
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("ARENA_ADDR", c.Server.Addr)
	c.Server.AssetDir = getEnv("ARENA_ASSET_DIR", c.Server.AssetDir)
	c.Server.MaxConns = getEnvAsInt("ARENA_MAX_CONNS", c.Server.MaxConns)

	c.Registry.MaxRooms = getEnvAsInt("ARENA_MAX_ROOMS", c.Registry.MaxRooms)
	c.Registry.PairingTimeout = getEnvAsDuration("ARENA_PAIRING_TIMEOUT", c.Registry.PairingTimeout)
	c.Registry.LeaveGrace = getEnvAsDuration("ARENA_LEAVE_GRACE", c.Registry.LeaveGrace)
	c.Registry.IdleExpiry = getEnvAsDuration("ARENA_IDLE_EXPIRY", c.Registry.IdleExpiry)
	c.Registry.FinishedExpiry = getEnvAsDuration("ARENA_FINISHED_EXPIRY", c.Registry.FinishedExpiry)
	c.Registry.SweepEvery = getEnvAsDuration("ARENA_SWEEP_EVERY", c.Registry.SweepEvery)

	c.Rules.KicksPerSide = getEnvAsInt("ARENA_KICKS_PER_SIDE", c.Rules.KicksPerSide)
	c.Rules.SaveTolerance = getEnvAsInt("ARENA_SAVE_TOLERANCE", c.Rules.SaveTolerance)

	c.Robot.MinThink = getEnvAsDuration("ARENA_ROBOT_MIN_THINK", c.Robot.MinThink)
	c.Robot.MaxThink = getEnvAsDuration("ARENA_ROBOT_MAX_THINK", c.Robot.MaxThink)
}

func (c Config) validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server addr is required")
	}
	if c.Server.MaxConns <= 0 {
		return fmt.Errorf("config: max_conns must be positive")
	}
	if c.Registry.MaxRooms <= 0 {
		return fmt.Errorf("config: max_rooms must be positive")
	}
	if c.Registry.PairingTimeout <= 0 {
		return fmt.Errorf("config: pairing_timeout must be positive")
	}
	if c.Rules.KicksPerSide <= 0 {
		return fmt.Errorf("config: kicks_per_side must be positive")
	}
	if c.Rules.SaveTolerance < 0 {
		return fmt.Errorf("config: save_tolerance must not be negative")
	}
	if c.Robot.MinThink <= 0 || c.Robot.MaxThink < c.Robot.MinThink {
		return fmt.Errorf("config: robot think bounds invalid (min %s, max %s)", c.Robot.MinThink, c.Robot.MaxThink)
	}
	return nil
}

// RoomConfig assembles the room package's config from the loaded sections.
func (c Config) RoomConfig() room.Config {
	return room.Config{
		MaxRooms:       c.Registry.MaxRooms,
		PairingTimeout: c.Registry.PairingTimeout,
		LeaveGrace:     c.Registry.LeaveGrace,
		IdleExpiry:     c.Registry.IdleExpiry,
		FinishedExpiry: c.Registry.FinishedExpiry,
		SweepEvery:     c.Registry.SweepEvery,
		Rules:          c.Rules,
		RobotMinThink:  c.Robot.MinThink,
		RobotMaxThink:  c.Robot.MaxThink,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
