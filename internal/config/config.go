package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Noquela/duat-server/internal/hourglass"
	"github.com/Noquela/duat-server/internal/initiative"
)

type rawConfig struct {
	Server *struct {
		Address string `json:"address"`
	} `json:"server"`
	// Scheduler and pool blocks override the engine reference values. Both
	// are optional; omitted fields fall back to the defaults.
	Scheduler *initiative.Config `json:"scheduler"`
	Pool      *hourglass.Config  `json:"pool"`
	// TickIntervalMS is the wall-clock cadence the session runner advances
	// virtual time at.
	TickIntervalMS int `json:"tick_interval_ms"`
	// WaitingTTLMinutes is how long an un-started lobby may idle before the
	// background scanner abandons it.
	WaitingTTLMinutes int `json:"waiting_ttl_minutes"`
}

// LoadedConfig contains the server address, engine tuning and runner cadence.
type LoadedConfig struct {
	ServerAddress string
	Scheduler     initiative.Config
	// PlayerPool is the pool every human participant starts with unless the
	// encounter profile overrides it.
	PlayerPool   hourglass.Config
	TickInterval time.Duration
	WaitingTTL   time.Duration
}

// LoadConfig reads the configuration file at path and returns the merged
// server settings. Every block is optional; an empty file yields the
// reference tuning on address :8080.
func LoadConfig(path string) (*LoadedConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var rc rawConfig
	if err := json.Unmarshal(b, &rc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	out := &LoadedConfig{
		ServerAddress: ":8080",
		Scheduler:     initiative.DefaultConfig(),
		PlayerPool:    hourglass.DefaultConfig(),
		TickInterval:  100 * time.Millisecond,
		WaitingTTL:    10 * time.Minute,
	}
	if rc.Server != nil && rc.Server.Address != "" {
		out.ServerAddress = rc.Server.Address
	}
	if rc.Scheduler != nil {
		out.Scheduler = *rc.Scheduler
	}
	if rc.Pool != nil {
		out.PlayerPool = *rc.Pool
	}
	if rc.TickIntervalMS != 0 {
		out.TickInterval = time.Duration(rc.TickIntervalMS) * time.Millisecond
	}
	if rc.WaitingTTLMinutes != 0 {
		out.WaitingTTL = time.Duration(rc.WaitingTTLMinutes) * time.Minute
	}

	if err := validateScheduler(path, out.Scheduler); err != nil {
		return nil, err
	}
	if err := validatePool(path, "pool", out.PlayerPool); err != nil {
		return nil, err
	}
	if out.TickInterval <= 0 {
		return nil, fmt.Errorf("config file %s: tick_interval_ms must be positive", path)
	}
	return out, nil
}

func validateScheduler(path string, c initiative.Config) error {
	if c.WindowDuration <= 0 {
		return fmt.Errorf("config file %s: scheduler.window_duration must be positive", path)
	}
	if c.EnqueueHorizon <= 0 {
		return fmt.Errorf("config file %s: scheduler.enqueue_horizon must be positive", path)
	}
	return nil
}

func validatePool(path, block string, c hourglass.Config) error {
	if c.Capacity < 1 {
		return fmt.Errorf("config file %s: %s.capacity must be at least 1", path, block)
	}
	if c.StartingAmount < 0 || c.StartingAmount > c.Capacity {
		return fmt.Errorf("config file %s: %s.starting_amount must be in [0, capacity]", path, block)
	}
	if c.RegenRate < 0 {
		return fmt.Errorf("config file %s: %s.regen_rate must not be negative", path, block)
	}
	if c.CapacityCeiling < c.Capacity {
		return fmt.Errorf("config file %s: %s.capacity_ceiling must be at least capacity", path, block)
	}
	if c.MomentumCap < 0 || c.ResonanceTolerance < 0 {
		return fmt.Errorf("config file %s: %s momentum_cap and resonance_tolerance must not be negative", path, block)
	}
	return nil
}
