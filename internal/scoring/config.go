// Package scoring turns analyzer sub-scores and ad text into a calibrated overall score.
package scoring

// Default calibration bounds.
const (
	// DefaultFloor is the lowest overall score ever reported.
	DefaultFloor = 10.0
	// DefaultCeiling is the highest overall score ever reported.
	DefaultCeiling = 100.0
	// DefaultPenaltyCap bounds the total penalty deducted from one ad.
	DefaultPenaltyCap = 40.0
	// DefaultBonusCap bounds the total excellence bonus.
	DefaultBonusCap = 15.0
	// DefaultBonusThreshold is the post-penalty score an ad needs before it can earn a bonus.
	DefaultBonusThreshold = 70.0
)

// Config holds the tunable bounds of the calibrator.
type Config struct {
	Floor          float64 `yaml:"floor" json:"floor"`
	Ceiling        float64 `yaml:"ceiling" json:"ceiling"`
	PenaltyCap     float64 `yaml:"penalty-cap" json:"penalty_cap"`
	BonusCap       float64 `yaml:"bonus-cap" json:"bonus_cap"`
	BonusThreshold float64 `yaml:"bonus-threshold" json:"bonus_threshold"`
}

// DefaultConfig returns the production calibration bounds.
func DefaultConfig() Config {
	return Config{
		Floor:          DefaultFloor,
		Ceiling:        DefaultCeiling,
		PenaltyCap:     DefaultPenaltyCap,
		BonusCap:       DefaultBonusCap,
		BonusThreshold: DefaultBonusThreshold,
	}
}

// normalized fills unset caps and repairs inverted bounds.
// A zero floor is honoured; every other zero field takes its default.
func (c Config) normalized() Config {
	if c.Ceiling <= 0 || c.Ceiling > DefaultCeiling {
		c.Ceiling = DefaultCeiling
	}
	if c.Floor < 0 || c.Floor >= c.Ceiling {
		c.Floor = DefaultFloor
	}
	if c.PenaltyCap <= 0 {
		c.PenaltyCap = DefaultPenaltyCap
	}
	if c.BonusCap <= 0 {
		c.BonusCap = DefaultBonusCap
	}
	if c.BonusThreshold <= 0 {
		c.BonusThreshold = DefaultBonusThreshold
	}
	return c
}
