// Package config loads the uwbpan configuration: defaults, then a YAML
// file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ystepanoff/uwbpan/pan"
	proto "github.com/ystepanoff/uwbpan/protocol"
)

// Config is the complete configuration.
type Config struct {
	PAN         PANConfig         `yaml:"pan" json:"pan"`
	Coordinator CoordinatorConfig `yaml:"coordinator" json:"coordinator"`
	Simulation  SimulationConfig  `yaml:"simulation" json:"simulation"`
	Log         LogConfig         `yaml:"log" json:"log"`
}

// PANConfig holds the discovery timing.
type PANConfig struct {
	TxHoldoffDelay  uint16 `yaml:"tx_holdoff_delay" json:"tx_holdoff_delay"`   // µs
	RxTimeoutPeriod uint16 `yaml:"rx_timeout_period" json:"rx_timeout_period"` // µs
	Period          uint32 `yaml:"period" json:"period"`
	PoolSize        int    `yaml:"pool_size" json:"pool_size"`
}

// CoordinatorConfig holds the PAN master's allocation settings.
type CoordinatorConfig struct {
	PANID     uint16 `yaml:"pan_id" json:"pan_id"`
	ShortBase uint16 `yaml:"short_base" json:"short_base"`
	SlotCount int    `yaml:"slot_count" json:"slot_count"`
	WindowUs  uint16 `yaml:"window_us" json:"window_us"`
	// Registry is the SQLite file; empty keeps allocations in memory.
	Registry string `yaml:"registry" json:"registry"`
}

// SimulationConfig drives `panctl simulate`.
type SimulationConfig struct {
	Tags        int           `yaml:"tags" json:"tags"`
	Interval    time.Duration `yaml:"interval" json:"interval"`
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	TimeScale   float64       `yaml:"time_scale" json:"time_scale"`
}

// LogConfig selects the level and, when File is set, a rotating log file.
type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		PAN: PANConfig{
			TxHoldoffDelay:  proto.DefaultTxHoldoffDelay,
			RxTimeoutPeriod: proto.DefaultRxTimeoutPeriod,
			Period:          proto.DefaultPeriod,
			PoolSize:        proto.DefaultPoolSize,
		},
		Coordinator: CoordinatorConfig{
			PANID:     0xDECA,
			ShortBase: 0x0001,
			SlotCount: 16,
			WindowUs:  50000,
		},
		Simulation: SimulationConfig{
			Tags:        3,
			Interval:    5 * time.Millisecond,
			MaxAttempts: 50,
			TimeScale:   1,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("UWBPAN_TX_HOLDOFF"); v != "" {
		n, err := strconv.ParseUint(v, 0, 16)
		if err != nil {
			return fmt.Errorf("config: UWBPAN_TX_HOLDOFF: %w", err)
		}
		cfg.PAN.TxHoldoffDelay = uint16(n)
	}
	if v := os.Getenv("UWBPAN_RX_TIMEOUT"); v != "" {
		n, err := strconv.ParseUint(v, 0, 16)
		if err != nil {
			return fmt.Errorf("config: UWBPAN_RX_TIMEOUT: %w", err)
		}
		cfg.PAN.RxTimeoutPeriod = uint16(n)
	}
	if v := os.Getenv("UWBPAN_PERIOD"); v != "" {
		n, err := strconv.ParseUint(v, 0, 32)
		if err != nil {
			return fmt.Errorf("config: UWBPAN_PERIOD: %w", err)
		}
		cfg.PAN.Period = uint32(n)
	}
	if v := os.Getenv("UWBPAN_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("UWBPAN_REGISTRY"); v != "" {
		cfg.Coordinator.Registry = v
	}
	return nil
}

// Validate reports the first setting the PAN core cannot run with.
func (c *Config) Validate() error {
	if c.PAN.Period == 0 {
		return fmt.Errorf("config: pan.period must be positive")
	}
	if c.PAN.PoolSize < 1 {
		return fmt.Errorf("config: pan.pool_size %d, need at least 1", c.PAN.PoolSize)
	}
	if c.Coordinator.SlotCount < 1 {
		return fmt.Errorf("config: coordinator.slot_count %d, need at least 1", c.Coordinator.SlotCount)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	return nil
}

// PANTiming converts the pan section for pan.New.
func (c *Config) PANTiming() pan.Config {
	return pan.Config{
		TxHoldoffDelay:  c.PAN.TxHoldoffDelay,
		RxTimeoutPeriod: c.PAN.RxTimeoutPeriod,
		Period:          c.PAN.Period,
	}
}
