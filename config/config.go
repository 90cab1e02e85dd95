// Package config loads rpsarena settings from YAML files and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/vl4deee11/rpsarena/logging"
	"github.com/vl4deee11/rpsarena/sim"
)

// Config contains all rpsarena settings.
type Config struct {
	// Sim seeds every new match.
	Sim SimConfig `json:"sim" yaml:"sim"`

	// Render controls frame rate and presentation extras.
	Render RenderConfig `json:"render" yaml:"render"`

	// Server configures the websocket spectator server.
	Server ServerConfig `json:"server" yaml:"server"`

	// History configures the match outcome database.
	History HistoryConfig `json:"history" yaml:"history"`

	// Logging configures operational logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SimConfig holds the starting population and arena.
type SimConfig struct {
	// PerType is the number of agents of each type at the start.
	PerType int `json:"per_type" yaml:"per_type"`

	// Width and Height are the arena size in arena units. Interactive
	// renderers override them with the viewport size.
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`

	// AgentSize is the side of the square each agent occupies.
	AgentSize float64 `json:"agent_size" yaml:"agent_size"`

	// MaxSpeed bounds each velocity component at spawn.
	MaxSpeed float64 `json:"max_speed" yaml:"max_speed"`

	// Seed makes placement repeatable. 0 seeds from the clock.
	Seed int64 `json:"seed" yaml:"seed"`
}

// RenderConfig controls presentation.
type RenderConfig struct {
	// FPS is the number of ticks per second.
	FPS int `json:"fps" yaml:"fps"`

	// Sound plays a blip whenever agents convert.
	Sound bool `json:"sound" yaml:"sound"`

	// GraphPoints is how many past counts the population graph keeps.
	GraphPoints int `json:"graph_points" yaml:"graph_points"`
}

// ServerConfig configures `rpsarena serve`.
type ServerConfig struct {
	// Addr is the host to bind; empty binds all interfaces.
	Addr string `json:"addr" yaml:"addr"`

	// Port is the first port tried.
	Port int `json:"port" yaml:"port"`

	// PortAttempts is how many consecutive ports are tried before giving up.
	PortAttempts int `json:"port_attempts" yaml:"port_attempts"`
}

// HistoryConfig configures match outcome recording.
type HistoryConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// LoggingConfig configures operational logging.
type LoggingConfig struct {
	// Level is "debug", "info" (default), "warn" or "error".
	Level string `json:"level" yaml:"level"`

	// File redirects logs to a file. The terminal renderer needs this to
	// see any logs at all.
	File string `json:"file" yaml:"file"`
}

// Dir returns ~/.rpsarena, or .rpsarena when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rpsarena"
	}
	return filepath.Join(home, ".rpsarena")
}

// Default returns a Config with the stock match: 20 agents per type, size
// 40, max speed 4.
func Default() *Config {
	return &Config{
		Sim: SimConfig{
			PerType:   20,
			Width:     1200,
			Height:    800,
			AgentSize: 40,
			MaxSpeed:  4,
		},
		Render: RenderConfig{
			FPS:         60,
			GraphPoints: 50,
		},
		Server: ServerConfig{
			Port:         8080,
			PortAttempts: 10,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(Dir(), "history.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path, or from ~/.rpsarena/config.yaml when
// path is empty and that file exists, then applies environment overrides.
// Order: defaults -> file -> environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidate := filepath.Join(Dir(), "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		cfg = fileCfg
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file on top of the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.History.Path = os.ExpandEnv(cfg.History.Path)
	cfg.Logging.File = os.ExpandEnv(cfg.Logging.File)
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.SimConfig().Validate(); err != nil {
		return fmt.Errorf("sim: %w", err)
	}
	if c.Render.FPS <= 0 || c.Render.FPS > 1000 {
		return fmt.Errorf("render.fps must be between 1 and 1000, got %d", c.Render.FPS)
	}
	if c.Render.GraphPoints < 2 {
		return fmt.Errorf("render.graph_points must be at least 2, got %d", c.Render.GraphPoints)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.PortAttempts < 1 {
		return fmt.Errorf("server.port_attempts must be at least 1, got %d", c.Server.PortAttempts)
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path is required when history is enabled")
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}
	return nil
}

// SimConfig converts the sim section for sim.New.
func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		PerType:  c.Sim.PerType,
		Width:    c.Sim.Width,
		Height:   c.Sim.Height,
		Size:     c.Sim.AgentSize,
		MaxSpeed: c.Sim.MaxSpeed,
	}
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RPSARENA_PER_TYPE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sim.PerType = n
		}
	}
	if v := os.Getenv("RPSARENA_AGENT_SIZE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Sim.AgentSize = f
		}
	}
	if v := os.Getenv("RPSARENA_MAX_SPEED"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Sim.MaxSpeed = f
		}
	}
	if v := os.Getenv("RPSARENA_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Sim.Seed = n
		}
	}
	if v := os.Getenv("RPSARENA_FPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Render.FPS = n
		}
	}
	if v := os.Getenv("RPSARENA_SOUND"); v != "" {
		cfg.Render.Sound = v == "true" || v == "1"
	}
	if v := os.Getenv("RPSARENA_HISTORY"); v != "" {
		cfg.History.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("RPSARENA_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
	if v := os.Getenv("RPSARENA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RPSARENA_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	// PORT is what hosting platforms set.
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
}
