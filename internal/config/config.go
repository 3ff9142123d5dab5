package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
)

// CombatConfig tunes the turn-order rules and the host runtime.
type CombatConfig struct {
	SentinelMagnitude int            `json:"sentinel_magnitude"`
	Locale            string         `json:"locale"`
	RoleRanks         map[string]int `json:"role_ranks"`
	UnknownRoleRank   int            `json:"unknown_role_rank"`
	// TurnTimeoutSeconds auto-ends an idle turn; 0 disables the timeout.
	TurnTimeoutSeconds int `json:"turn_timeout_seconds"`
	TickRate           int `json:"tick_rate"`
	// RecentIntentWindow bounds how many intent ids a host remembers for duplicate suppression.
	RecentIntentWindow int `json:"recent_intent_window"`
}

// Env keys read from the Nakama runtime environment.
const (
	EnvSentinelMagnitude  = "turnkeeper_sentinel_magnitude"
	EnvLocale             = "turnkeeper_locale"
	EnvTurnTimeoutSeconds = "turnkeeper_turn_timeout_sec"
	EnvTickRate           = "turnkeeper_tick_rate"
	EnvRelaySecret        = "turnkeeper_relay_secret"
	EnvRelayIssuer        = "turnkeeper_relay_issuer"
)

var (
	cfg      *CombatConfig
	loadOnce sync.Once
	loadErr  error
)

// Default returns the stock configuration.
func Default() *CombatConfig {
	return &CombatConfig{
		SentinelMagnitude: 9999,
		Locale:            "en",
		RoleRanks: map[string]int{
			"primary": 1,
			"hostile": 2,
			"ally":    3,
			"group":   4,
			"minor":   5,
		},
		UnknownRoleRank:    99,
		TurnTimeoutSeconds: 0,
		TickRate:           1,
		RecentIntentWindow: 256,
	}
}

// Parse decodes a JSON config, filling unset fields from Default.
func Parse(data []byte) (*CombatConfig, error) {
	c := Default()
	c.RoleRanks = nil
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal combat config: %w", err)
	}
	c.fillDefaults()
	return c, nil
}

// LoadCombatConfig loads the global combat configuration from path once.
func LoadCombatConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read combat config: %w", err)
			return
		}
		c, err := Parse(data)
		if err != nil {
			loadErr = err
			return
		}
		cfg = c
	})
	return loadErr
}

// Get returns a copy of the global configuration, or Default when none was loaded.
func Get() *CombatConfig {
	if cfg == nil {
		return Default()
	}
	c := *cfg
	c.RoleRanks = make(map[string]int, len(cfg.RoleRanks))
	for k, v := range cfg.RoleRanks {
		c.RoleRanks[k] = v
	}
	return &c
}

// ApplyEnv overlays values from a runtime env map. Unparsable values are ignored.
func (c *CombatConfig) ApplyEnv(env map[string]string) {
	if val, ok := env[EnvSentinelMagnitude]; ok {
		if i, err := strconv.Atoi(val); err == nil && i > 1 {
			c.SentinelMagnitude = i
		}
	}
	if val, ok := env[EnvLocale]; ok && val != "" {
		c.Locale = val
	}
	if val, ok := env[EnvTurnTimeoutSeconds]; ok {
		if i, err := strconv.Atoi(val); err == nil && i >= 0 {
			c.TurnTimeoutSeconds = i
		}
	}
	if val, ok := env[EnvTickRate]; ok {
		if i, err := strconv.Atoi(val); err == nil && i > 0 {
			c.TickRate = i
		}
	}
}

func (c *CombatConfig) fillDefaults() {
	d := Default()
	if c.SentinelMagnitude <= 1 {
		c.SentinelMagnitude = d.SentinelMagnitude
	}
	if c.Locale == "" {
		c.Locale = d.Locale
	}
	if len(c.RoleRanks) == 0 {
		c.RoleRanks = d.RoleRanks
	}
	if c.UnknownRoleRank == 0 {
		c.UnknownRoleRank = d.UnknownRoleRank
	}
	if c.TurnTimeoutSeconds < 0 {
		c.TurnTimeoutSeconds = 0
	}
	if c.TickRate <= 0 {
		c.TickRate = d.TickRate
	}
	if c.RecentIntentWindow <= 0 {
		c.RecentIntentWindow = d.RecentIntentWindow
	}
}
