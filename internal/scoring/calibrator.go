package scoring

import (
	"math"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Component names a sub-score.
type Component string

// Sub-score components.
const (
	ComponentClarity     Component = "clarity"
	ComponentPersuasion  Component = "persuasion"
	ComponentEmotion     Component = "emotion"
	ComponentCTA         Component = "cta"
	ComponentPlatformFit Component = "platform_fit"
)

// weights are whole percentages and must sum to 100.
var weights = []struct {
	component Component
	percent   int
}{
	{ComponentClarity, 20},
	{ComponentPersuasion, 30},
	{ComponentEmotion, 25},
	{ComponentCTA, 20},
	{ComponentPlatformFit, 5},
}

// curve maps raw scores onto calibrated scores. Each segment starts where the
// previous one ends, so the mapping is continuous and non-decreasing.
var curve = []struct {
	from, to, base, slope float64
}{
	{from: 0, to: 30, base: 0, slope: 0.8},
	{from: 30, to: 50, base: 24, slope: 0.9},
	{from: 50, to: 70, base: 42, slope: 0.9},
	{from: 70, to: 85, base: 60, slope: 1.0},
	{from: 85, to: 100, base: 75, slope: 1.5},
}

// SubScores are the five analyzer outputs, each expected in [0,100].
type SubScores struct {
	Clarity     float64 `json:"clarity"`
	Persuasion  float64 `json:"persuasion"`
	Emotion     float64 `json:"emotion"`
	CTA         float64 `json:"cta"`
	PlatformFit float64 `json:"platform_fit"`
}

func (s SubScores) value(c Component) float64 {
	switch c {
	case ComponentClarity:
		return s.Clarity
	case ComponentPersuasion:
		return s.Persuasion
	case ComponentEmotion:
		return s.Emotion
	case ComponentCTA:
		return s.CTA
	case ComponentPlatformFit:
		return s.PlatformFit
	default:
		return 0
	}
}

// PhraseMatch records a banned phrase found in the ad text.
type PhraseMatch struct {
	Category PenaltyCategory `json:"category"`
	Phrase   string          `json:"phrase"`
	Count    int             `json:"count"`
	Points   float64         `json:"points"`
}

// Penalties is the itemized penalty pass.
type Penalties struct {
	Matches           []PhraseMatch `json:"matches"`
	ExclamationCount  int           `json:"exclamation_count"`
	ExclamationPoints float64       `json:"exclamation_points"`
	CapsWords         []string      `json:"caps_words"`
	CapsPoints        float64       `json:"caps_points"`
	Uncapped          float64       `json:"uncapped"`
	Total             float64       `json:"total"`
	Capped            bool          `json:"capped"`
}

// BonusSignal records one awarded excellence signal.
type BonusSignal struct {
	Kind     BonusKind `json:"kind"`
	Evidence []string  `json:"evidence"`
	Points   float64   `json:"points"`
}

// Bonus is the itemized excellence bonus.
type Bonus struct {
	Eligible  bool          `json:"eligible"`
	Threshold float64       `json:"threshold"`
	Signals   []BonusSignal `json:"signals"`
	Total     float64       `json:"total"`
}

// Result carries every intermediate value of a calibration run.
type Result struct {
	Scores         SubScores `json:"scores"`
	RawScore       float64   `json:"raw_score"`
	CalibratedBase float64   `json:"calibrated_base"`
	PostPenalty    float64   `json:"post_penalty"`
	OverallScore   float64   `json:"overall_score"`
	Penalties      Penalties `json:"penalties_applied"`
	Bonus          Bonus     `json:"excellence_bonus"`
}

// Calibrator is stateless and safe for concurrent use.
type Calibrator struct {
	cfg Config
}

// NewCalibrator constructs a calibrator over cfg.
func NewCalibrator(cfg Config) *Calibrator {
	return &Calibrator{cfg: cfg.normalized()}
}

// Config returns the effective bounds.
func (c *Calibrator) Config() Config { return c.cfg }

// Score runs the full calibration pipeline. It never fails: out of range
// sub-scores are clamped and the result always lies within the configured bounds.
func (c *Calibrator) Score(scores SubScores, text string) Result {
	clamped := clampSubScores(scores)
	raw := WeightedScore(clamped)
	calibrated := Calibrate(raw)

	penalties := c.penalize(text)
	post := calibrated - penalties.Total

	bonus := Bonus{Eligible: post >= c.cfg.BonusThreshold}
	if bonus.Eligible {
		bonus = c.reward(text)
	}
	bonus.Threshold = c.cfg.BonusThreshold

	return Result{
		Scores:         clamped,
		RawScore:       raw,
		CalibratedBase: calibrated,
		PostPenalty:    post,
		OverallScore:   clamp(post+bonus.Total, c.cfg.Floor, c.cfg.Ceiling),
		Penalties:      penalties,
		Bonus:          bonus,
	}
}

// WeightedScore combines sub-scores using the fixed component weights.
func WeightedScore(s SubScores) float64 {
	var sum float64
	for _, w := range weights {
		sum += s.value(w.component) * float64(w.percent)
	}
	return sum / 100
}

// WeightPercents returns the component weights as whole percentages.
func WeightPercents() map[Component]int {
	out := make(map[Component]int, len(weights))
	for _, w := range weights {
		out[w.component] = w.percent
	}
	return out
}

// Calibrate maps a raw score through the calibration curve.
// Inputs outside [0,100] are clamped first.
func Calibrate(raw float64) float64 {
	if math.IsNaN(raw) {
		raw = 0
	}
	raw = clamp(raw, 0, 100)
	for _, seg := range curve {
		if raw <= seg.to {
			return seg.base + (raw-seg.from)*seg.slope
		}
	}
	last := curve[len(curve)-1]
	return last.base + (last.to-last.from)*last.slope
}

func (c *Calibrator) penalize(text string) Penalties {
	var p Penalties
	lower := strings.ToLower(text)
	for _, list := range penaltyPhrases {
		for _, phrase := range list.phrases {
			n := strings.Count(lower, phrase)
			if n == 0 {
				continue
			}
			points := float64(n) * list.points
			p.Matches = append(p.Matches, PhraseMatch{
				Category: list.category,
				Phrase:   phrase,
				Count:    n,
				Points:   points,
			})
			p.Uncapped += points
		}
	}

	p.ExclamationCount = strings.Count(text, "!")
	if extra := p.ExclamationCount - exclamationAllowance; extra > 0 {
		p.ExclamationPoints = float64(extra) * exclamationPoints
		p.Uncapped += p.ExclamationPoints
	}

	p.CapsWords = capsWordPattern.FindAllString(text, -1)
	p.CapsPoints = float64(len(p.CapsWords)) * capsWordPoints
	p.Uncapped += p.CapsPoints

	p.Total = p.Uncapped
	if p.Total > c.cfg.PenaltyCap {
		p.Total = c.cfg.PenaltyCap
		p.Capped = true
	}
	return p
}

func (c *Calibrator) reward(text string) Bonus {
	b := Bonus{Eligible: true}
	lower := strings.ToLower(text)

	if claims := numericClaimPattern.FindAllString(text, -1); len(claims) > 0 {
		b.Signals = append(b.Signals, BonusSignal{Kind: BonusNumericClaims, Evidence: claims, Points: numericClaimPoints})
	}
	if found := containsAny(lower, socialProofKeywords); len(found) > 0 {
		b.Signals = append(b.Signals, BonusSignal{Kind: BonusSocialProof, Evidence: found, Points: socialProofPoints})
	}
	if found := containsAny(lower, valuePropKeywords); len(found) >= valuePropMinimum {
		b.Signals = append(b.Signals, BonusSignal{Kind: BonusValueProps, Evidence: found, Points: valuePropPoints})
	}

	for _, s := range b.Signals {
		b.Total += s.Points
	}
	if b.Total > c.cfg.BonusCap {
		b.Total = c.cfg.BonusCap
	}
	return b
}

func containsAny(lower string, keywords []string) []string {
	var found []string
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}

func clampSubScores(s SubScores) SubScores {
	return SubScores{
		Clarity:     clampComponent(ComponentClarity, s.Clarity),
		Persuasion:  clampComponent(ComponentPersuasion, s.Persuasion),
		Emotion:     clampComponent(ComponentEmotion, s.Emotion),
		CTA:         clampComponent(ComponentCTA, s.CTA),
		PlatformFit: clampComponent(ComponentPlatformFit, s.PlatformFit),
	}
}

func clampComponent(c Component, v float64) float64 {
	if math.IsNaN(v) {
		log.WithField("component", c).Debug("scoring: NaN sub-score clamped to 0")
		return 0
	}
	if v < 0 || v > 100 {
		out := clamp(v, 0, 100)
		log.WithFields(log.Fields{"component": c, "value": v, "clamped": out}).Debug("scoring: sub-score out of range")
		return out
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
