// Package settings holds process-wide defaults shared by config and its consumers.
package settings

import "time"

// Defaults applied when the config file leaves a value unset.
const (
	// DefaultConfigPath is the YAML config path used when neither flag nor env sets one.
	DefaultConfigPath = "config.yaml"
	// DefaultPort is the HTTP listen port.
	DefaultPort = 8080
	// DefaultLogLevel is the logrus level name.
	DefaultLogLevel = "info"
	// DefaultRateLimit is the per-user analysis rate limit per second (0 means unlimited).
	DefaultRateLimit = 0
	// DefaultRateLimitRedisPrefix is the fallback Redis key prefix.
	DefaultRateLimitRedisPrefix = "adcopysurge:rl"
	// DefaultCreditResetInterval is how often the monthly reset loop looks for due accounts.
	DefaultCreditResetInterval = time.Hour
)
