package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	IPSGuard IPSGuardConfig `yaml:"ipsguard"`
}

// IPSGuardConfig is the project configuration.
type IPSGuardConfig struct {
	Bus     BusConfig     `yaml:"bus"`
	Session SessionConfig `yaml:"session"`
	Rules   RulesConfig   `yaml:"rules"`
	API     APIConfig     `yaml:"api"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// BusConfig selects and configures the event bus.
type BusConfig struct {
	Mode       string      `yaml:"mode"` // redis|memory
	Redis      RedisConfig `yaml:"redis"`
	OutboxSize int         `yaml:"outbox_size"`
}

// RedisConfig controls the Redis pub/sub transport.
type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	Prefix      string        `yaml:"prefix"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// SessionConfig controls alert aging and the dispatch loop.
type SessionConfig struct {
	SweepInterval    time.Duration `yaml:"sweep_interval"`
	StaleAfter       time.Duration `yaml:"stale_after"`
	PassiveRetention time.Duration `yaml:"passive_retention"`
	QueueSize        int           `yaml:"queue_size"`
}

// RulesConfig controls Sigma suppression rules.
type RulesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// APIConfig controls the dashboard API.
type APIConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	TimeZone string `yaml:"time_zone"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
