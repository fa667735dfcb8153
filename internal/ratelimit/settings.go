package ratelimit

import (
	"strings"

	internalsettings "github.com/adcopysurge/backend/internal/settings"
)

// SettingsConfig captures the rate limit section of the config file.
type SettingsConfig struct {
	Limit         int            `yaml:"limit"`
	TierLimits    map[string]int `yaml:"tiers"`
	OpLimits      map[string]int `yaml:"operations"`
	RedisEnabled  bool           `yaml:"redis-enabled"`
	RedisAddr     string         `yaml:"redis-addr"`
	RedisPassword string         `yaml:"redis-password"`
	RedisDB       int            `yaml:"redis-db"`
	RedisPrefix   string         `yaml:"redis-prefix"`
}

// DefaultSettingsConfig returns the built-in rate limit settings.
func DefaultSettingsConfig() SettingsConfig {
	return SettingsConfig{
		Limit:       internalsettings.DefaultRateLimit,
		RedisPrefix: internalsettings.DefaultRateLimitRedisPrefix,
	}
}

// Normalize trims strings, lowercases tier keys, uppercases operation keys
// and drops negative values.
func (cfg SettingsConfig) Normalize() SettingsConfig {
	cfg.RedisAddr = strings.TrimSpace(cfg.RedisAddr)
	cfg.RedisPassword = strings.TrimSpace(cfg.RedisPassword)
	cfg.RedisPrefix = strings.TrimSpace(cfg.RedisPrefix)
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = internalsettings.DefaultRateLimitRedisPrefix
	}
	if cfg.RedisDB < 0 {
		cfg.RedisDB = 0
	}
	if cfg.Limit < 0 {
		cfg.Limit = 0
	}
	cfg.TierLimits = normalizeLimits(cfg.TierLimits, strings.ToLower)
	cfg.OpLimits = normalizeLimits(cfg.OpLimits, strings.ToUpper)
	return cfg
}

func normalizeLimits(in map[string]int, fold func(string) string) map[string]int {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]int, len(in))
	for key, limit := range in {
		key = fold(strings.TrimSpace(key))
		if key == "" || limit <= 0 {
			continue
		}
		out[key] = limit
	}
	return out
}
