package healthmon

import (
	"time"

	"github.com/smallbiznis/printfan/internal/config"
)

// Config controls probe cadence and per-probe deadline.
type Config struct {
	Interval     time.Duration
	ProbeTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval:     90 * time.Second,
		ProbeTimeout: 3 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = defaults.Interval
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = defaults.ProbeTimeout
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Interval:     cfg.HealthInterval,
		ProbeTimeout: cfg.HealthProbeTimeout,
	}
}
