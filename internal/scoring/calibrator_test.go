package scoring

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightsSumToOneHundredPercent(t *testing.T) {
	total := 0
	for _, pct := range WeightPercents() {
		total += pct
	}
	require.Equal(t, 100, total)
	require.Len(t, WeightPercents(), 5)
}

func TestCalibrate_Breakpoints(t *testing.T) {
	cases := []struct {
		raw  float64
		want float64
	}{
		{0, 0},
		{15, 12},
		{30, 24},
		{50, 42},
		{60, 51},
		{70, 60},
		{85, 75},
		{100, 97.5},
		{-20, 0},
		{140, 97.5},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, Calibrate(tc.raw), 1e-9, "raw=%v", tc.raw)
	}
}

func TestCalibrate_MonotoneAndContinuous(t *testing.T) {
	prev := Calibrate(0)
	for i := 1; i <= 10000; i++ {
		raw := float64(i) / 100
		got := Calibrate(raw)
		require.GreaterOrEqual(t, got, prev, "curve decreased at raw=%v", raw)
		prev = got
	}
	for _, seg := range curve[1:] {
		left := Calibrate(seg.from - 1e-9)
		right := Calibrate(seg.from + 1e-9)
		assert.InDelta(t, left, right, 1e-6, "discontinuity at %v", seg.from)
	}
}

func TestScore_RegressionFixture(t *testing.T) {
	c := NewCalibrator(DefaultConfig())
	res := c.Score(SubScores{Clarity: 65, Persuasion: 70, Emotion: 60, CTA: 65, PlatformFit: 75},
		"Plan meals in minutes. Fresh recipes delivered weekly. Start cooking tonight.")

	assert.InDelta(t, 65.75, res.RawScore, 1e-9)
	assert.InDelta(t, 56.175, res.CalibratedBase, 1e-9)
	assert.Zero(t, res.Penalties.Total)
	assert.False(t, res.Bonus.Eligible)
	assert.Zero(t, res.Bonus.Total)
	assert.InDelta(t, 56.175, res.OverallScore, 1e-9)
}

func TestScore_PenaltyCountsEveryOccurrence(t *testing.T) {
	c := NewCalibrator(DefaultConfig())
	res := c.Score(SubScores{Clarity: 80, Persuasion: 80, Emotion: 80, CTA: 80, PlatformFit: 80},
		"Amazing deals. Truly amazing. Get FREE access NOW!!!!")

	require.Len(t, res.Penalties.Matches, 1)
	assert.Equal(t, CategoryHype, res.Penalties.Matches[0].Category)
	assert.Equal(t, 2, res.Penalties.Matches[0].Count)
	assert.Equal(t, 16.0, res.Penalties.Matches[0].Points)
	assert.Equal(t, 4, res.Penalties.ExclamationCount)
	assert.Equal(t, 4.0, res.Penalties.ExclamationPoints)
	assert.Equal(t, []string{"FREE", "NOW"}, res.Penalties.CapsWords)
	assert.Equal(t, 6.0, res.Penalties.CapsPoints)
	assert.Equal(t, 26.0, res.Penalties.Total)
	assert.False(t, res.Penalties.Capped)
	assert.InDelta(t, res.CalibratedBase-26, res.PostPenalty, 1e-9)
}

func TestScore_PenaltyCap(t *testing.T) {
	c := NewCalibrator(DefaultConfig())
	text := strings.Repeat("Amazing revolutionary offer, click here. ", 10)
	res := c.Score(SubScores{Clarity: 50, Persuasion: 50, Emotion: 50, CTA: 50, PlatformFit: 50}, text)

	assert.Equal(t, 200.0, res.Penalties.Uncapped)
	assert.Equal(t, DefaultPenaltyCap, res.Penalties.Total)
	assert.True(t, res.Penalties.Capped)
	assert.Equal(t, DefaultFloor, res.OverallScore)
}

func TestScore_BonusRequiresThreshold(t *testing.T) {
	c := NewCalibrator(DefaultConfig())
	text := "Join 10,000 customers who save 40% with free shipping and easy returns."

	strong := c.Score(SubScores{Clarity: 100, Persuasion: 100, Emotion: 100, CTA: 100, PlatformFit: 100}, text)
	require.True(t, strong.Bonus.Eligible)
	assert.Len(t, strong.Bonus.Signals, 3)
	assert.Equal(t, DefaultBonusCap, strong.Bonus.Total)
	assert.Equal(t, DefaultCeiling, strong.OverallScore)

	mid := c.Score(SubScores{Clarity: 70, Persuasion: 70, Emotion: 70, CTA: 70, PlatformFit: 70}, text)
	assert.InDelta(t, 60.0, mid.PostPenalty, 1e-9)
	assert.False(t, mid.Bonus.Eligible)
	assert.Zero(t, mid.Bonus.Total)
	assert.InDelta(t, 60.0, mid.OverallScore, 1e-9)
}

func TestScore_ClampInvariant(t *testing.T) {
	c := NewCalibrator(DefaultConfig())
	rng := rand.New(rand.NewSource(42))
	odd := []float64{math.NaN(), math.Inf(1), math.Inf(-1), -1e9, 1e9, -0.5, 100.5}
	texts := []string{"", "!!!!!!!!!!", strings.Repeat("AMAZING ", 30), "Save 50% today, trusted by 2x more teams"}

	pick := func() float64 {
		if rng.Intn(3) == 0 {
			return odd[rng.Intn(len(odd))]
		}
		return rng.Float64()*400 - 150
	}
	for i := 0; i < 2000; i++ {
		s := SubScores{Clarity: pick(), Persuasion: pick(), Emotion: pick(), CTA: pick(), PlatformFit: pick()}
		res := c.Score(s, texts[i%len(texts)])
		require.False(t, math.IsNaN(res.OverallScore), "NaN overall for %+v", s)
		require.GreaterOrEqual(t, res.OverallScore, DefaultFloor, "scores %+v", s)
		require.LessOrEqual(t, res.OverallScore, DefaultCeiling, "scores %+v", s)
		require.GreaterOrEqual(t, res.Scores.Clarity, 0.0)
		require.LessOrEqual(t, res.Scores.Clarity, 100.0)
	}
}

func TestNewCalibrator_NormalizesConfig(t *testing.T) {
	c := NewCalibrator(Config{Floor: 0})
	cfg := c.Config()
	assert.Equal(t, 0.0, cfg.Floor)
	assert.Equal(t, DefaultCeiling, cfg.Ceiling)
	assert.Equal(t, DefaultPenaltyCap, cfg.PenaltyCap)
	assert.Equal(t, DefaultBonusCap, cfg.BonusCap)
	assert.Equal(t, DefaultBonusThreshold, cfg.BonusThreshold)

	inverted := NewCalibrator(Config{Floor: 150, Ceiling: 100}).Config()
	assert.Equal(t, DefaultFloor, inverted.Floor)
}

func TestExplain(t *testing.T) {
	c := NewCalibrator(DefaultConfig())
	res := c.Score(SubScores{Clarity: 80, Persuasion: 75, Emotion: 30, CTA: 70, PlatformFit: 90},
		"An amazing offer. Click here to BUY!!!")
	lines := Explain(res)

	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "Weakest area: emotion at 30/100")
	assert.Contains(t, joined, `Remove "amazing" (generic hype): -8.`)
	assert.Contains(t, joined, `Remove "click here" (overused call to action): -4.`)
	assert.Contains(t, joined, "found 3")
	assert.Contains(t, joined, "BUY")
	assert.Contains(t, joined, "Excellence bonuses unlock once the score reaches 70")
}

func TestExplain_UsesConfiguredBonusThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BonusThreshold = 90
	c := NewCalibrator(cfg)
	res := c.Score(SubScores{Clarity: 85, Persuasion: 85, Emotion: 85, CTA: 85, PlatformFit: 85},
		"Join 10,000 marketers who save 5 hours a week.")
	require.False(t, res.Bonus.Eligible)
	assert.Equal(t, 90.0, res.Bonus.Threshold)

	joined := strings.Join(Explain(res), "\n")
	assert.Contains(t, joined, "Excellence bonuses unlock once the score reaches 90 after penalties.")
	assert.NotContains(t, joined, "reaches 70")
}
