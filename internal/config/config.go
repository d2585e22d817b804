package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RedisConfig points the Stream Store and Association Graph at their shared
// Redis instance.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	StreamPrefix string        `yaml:"stream_prefix"`
}

// DefaultRedisConfig is the local-dev default.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		URL:          "redis://127.0.0.1:6379/0",
		DialTimeout:  5 * time.Second,
		StreamPrefix: "daneel:stream:",
	}
}

// APIConfig governs the HTTP injection surface: bind address, rate limits
// and ramp protocol, and auth. Key secrets are never stored in the YAML
// config file — they load from GROK_INJECT_KEY / CLAUDE_INJECT_KEY at
// startup so a checked-in config can't leak them.
type APIConfig struct {
	BindAddr          string        `yaml:"bind_addr"`
	EnableCORS        bool          `yaml:"enable_cors"`
	PerSecondLimit    int           `yaml:"per_second_limit"`
	PerMinuteLimit    int           `yaml:"per_minute_limit"`
	RampEnabled       bool          `yaml:"ramp_enabled"`
	RampDuration      time.Duration `yaml:"ramp_duration"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// DefaultAPIConfig matches the reference deployment's rate limits and the
// 72-hour ramp protocol.
func DefaultAPIConfig() APIConfig {
	return APIConfig{
		BindAddr:        "0.0.0.0:8088",
		EnableCORS:      true,
		PerSecondLimit:  5,
		PerMinuteLimit:  100,
		RampEnabled:     true,
		RampDuration:    72 * time.Hour,
		ShutdownTimeout: 10 * time.Second,
	}
}

// LogConfig governs the zap logger every component shares.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultLogConfig is info-level, production-encoded.
func DefaultLogConfig() LogConfig {
	return LogConfig{Level: "info", Development: false}
}

// Config is the engine's root configuration: everything loaded from a YAML
// file at startup, including the cognitive timing profile.
type Config struct {
	Cognitive CognitiveConfig `yaml:"cognitive"`
	Redis     RedisConfig     `yaml:"redis"`
	API       APIConfig       `yaml:"api"`
	Log       LogConfig       `yaml:"log"`
}

// Default returns the engine's out-of-the-box configuration: human speed,
// local Redis, default rate limits, info logging.
func Default() Config {
	return Config{
		Cognitive: HumanCognitiveConfig(),
		Redis:     DefaultRedisConfig(),
		API:       DefaultAPIConfig(),
		Log:       DefaultLogConfig(),
	}
}

// Load reads a YAML config file and overlays it onto Default(). A missing
// path is not an error: the engine runs fine on defaults alone, the same
// way it does when no config flag was passed.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}
