// Package config holds the service configuration for the twin engine and
// the named server environments used by the remote CLI commands.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ServiceConfig holds the complete twin service configuration.
type ServiceConfig struct {
	Server        ServerConfig        `yaml:"server"`
	Engine        EngineConfig        `yaml:"engine"`
	Stabilization StabilizationConfig `yaml:"stabilization"`
	Feeds         FeedsConfig         `yaml:"feeds"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// EngineConfig holds topology and simulation settings.
type EngineConfig struct {
	Seed              int64   `yaml:"seed"`
	TopologyFile      string  `yaml:"topology_file,omitempty"`
	RiskResolutionDeg float64 `yaml:"risk_resolution_deg"`
}

// StabilizationConfig holds planner settings.
type StabilizationConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// FeedsConfig holds the background hazard monitor settings.
type FeedsConfig struct {
	Enabled          bool          `yaml:"enabled"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	EventProbability float64       `yaml:"event_probability"`
}

// LoggingConfig holds console logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	NoColor bool   `yaml:"no_color"`
}

// GetDefaultConfig returns the configuration used when no file is given.
func GetDefaultConfig() *ServiceConfig {
	return &ServiceConfig{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Engine: EngineConfig{
			Seed:              0,
			RiskResolutionDeg: 0.5,
		},
		Stabilization: StabilizationConfig{
			Threshold: 0.3,
		},
		Feeds: FeedsConfig{
			Enabled:          false,
			PollInterval:     30 * time.Second,
			EventProbability: 0.05,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks if the configuration is valid.
func (c *ServiceConfig) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr must not be empty")
	}
	if c.Stabilization.Threshold < 0 || c.Stabilization.Threshold > 1 {
		return fmt.Errorf("stabilization threshold must be in [0,1], got %f", c.Stabilization.Threshold)
	}
	if c.Engine.RiskResolutionDeg < 0 {
		return fmt.Errorf("risk resolution must be non-negative, got %f", c.Engine.RiskResolutionDeg)
	}
	if c.Feeds.EventProbability < 0 || c.Feeds.EventProbability > 1 {
		return fmt.Errorf("feed event probability must be in [0,1], got %f", c.Feeds.EventProbability)
	}
	if c.Feeds.Enabled && c.Feeds.PollInterval <= 0 {
		return fmt.Errorf("feed poll interval must be positive when feeds are enabled")
	}
	return nil
}

// LoadService loads the service configuration from a YAML file.
func LoadService(path string) (*ServiceConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Start from defaults so partial files stay valid
	config := GetDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadServiceOrDefault loads config from a file or falls back to defaults,
// then applies environment variable overrides.
func LoadServiceOrDefault(path string) (*ServiceConfig, error) {
	var config *ServiceConfig

	if path != "" {
		loaded, err := LoadService(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	} else {
		config = GetDefaultConfig()
	}

	MergeWithEnvironment(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// MergeWithEnvironment applies GRIDTWIN_* environment overrides.
func MergeWithEnvironment(config *ServiceConfig) {
	if addr := os.Getenv("GRIDTWIN_SERVER_ADDR"); addr != "" {
		config.Server.Addr = addr
	}
	if seed := os.Getenv("GRIDTWIN_SEED"); seed != "" {
		if v, err := strconv.ParseInt(seed, 10, 64); err == nil {
			config.Engine.Seed = v
		}
	}
	if file := os.Getenv("GRIDTWIN_TOPOLOGY_FILE"); file != "" {
		config.Engine.TopologyFile = file
	}
	if threshold := os.Getenv("GRIDTWIN_STABILIZATION_THRESHOLD"); threshold != "" {
		if v, err := strconv.ParseFloat(threshold, 64); err == nil {
			config.Stabilization.Threshold = v
		}
	}
	if interval := os.Getenv("GRIDTWIN_FEED_INTERVAL"); interval != "" {
		if v, err := time.ParseDuration(interval); err == nil {
			config.Feeds.PollInterval = v
		}
	}
	if enabled := os.Getenv("GRIDTWIN_FEEDS_ENABLED"); enabled != "" {
		if v, err := strconv.ParseBool(enabled); err == nil {
			config.Feeds.Enabled = v
		}
	}
	if level := os.Getenv("GRIDTWIN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}
