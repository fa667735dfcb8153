package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/adcopysurge/backend/internal/credits"
	"github.com/adcopysurge/backend/internal/db"
	"github.com/adcopysurge/backend/internal/generator"
	"github.com/adcopysurge/backend/internal/models"
	"github.com/adcopysurge/backend/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeGenerator struct {
	alts  []generator.Alternative
	err   error
	calls int
	last  generator.Request
}

func (f *fakeGenerator) Alternatives(_ context.Context, req generator.Request) ([]generator.Alternative, error) {
	f.calls++
	f.last = req
	return f.alts, f.err
}

func newTestService(t *testing.T, tier credits.Tier, gen generator.Generator) (*Service, *credits.Ledger, *gorm.DB) {
	t.Helper()
	conn, err := db.Open(db.BuildSQLiteDSN(filepath.Join(t.TempDir(), "analysis.db")))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))

	ledger := credits.NewLedger(conn, credits.StaticTier(tier))
	svc := NewService(conn, ledger, scoring.NewCalibrator(scoring.DefaultConfig()), gen)
	return svc, ledger, conn
}

func sampleInput() AdInput {
	return AdInput{
		Headline: "Cook dinner in 15 minutes",
		BodyText: "Fresh ingredients and simple recipes delivered to your door. Save 20% on your first box.",
		CTA:      "Get your first box",
		Platform: "Facebook",
		Industry: "food delivery",
	}
}

func balanceOf(t *testing.T, ledger *credits.Ledger, userID string) int64 {
	t.Helper()
	snap, err := ledger.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	n, ok := snap.Balance.Credits()
	require.True(t, ok)
	return n
}

func TestAnalyze_ChargesAndPersists(t *testing.T) {
	svc, ledger, conn := newTestService(t, credits.TierFree, nil)

	out, err := svc.Analyze(context.Background(), "user-1", AnalyzeRequest{Input: sampleInput()})
	require.NoError(t, err)

	assert.Equal(t, "facebook", out.Analysis.Platform)
	assert.Equal(t, int64(1), out.Analysis.CreditsCharged)
	assert.NotEmpty(t, out.Feedback)
	assert.GreaterOrEqual(t, out.Analysis.OverallScore, scoring.DefaultFloor)
	remaining, _ := out.Balance.Credits()
	assert.Equal(t, int64(4), remaining)
	assert.Equal(t, int64(4), balanceOf(t, ledger, "user-1"))

	var stored models.AdAnalysis
	require.NoError(t, conn.Where("id = ?", out.Analysis.ID).Take(&stored).Error)
	var feedback []string
	require.NoError(t, json.Unmarshal(stored.Feedback, &feedback))
	assert.Equal(t, out.Feedback, feedback)
	var breakdown scoring.Result
	require.NoError(t, json.Unmarshal(stored.ScoreBreakdown, &breakdown))
	assert.InDelta(t, out.Score.OverallScore, breakdown.OverallScore, 1e-9)
}

func TestAnalyze_InsufficientCredits(t *testing.T) {
	svc, ledger, conn := newTestService(t, credits.TierFree, nil)
	ctx := context.Background()
	res, err := ledger.Consume(ctx, "broke", credits.OpWhiteLabelReport, 1, "")
	require.NoError(t, err)
	require.True(t, res.Success)

	_, err = svc.Analyze(ctx, "broke", AnalyzeRequest{Input: sampleInput()})
	var insufficient *InsufficientCreditsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(1), insufficient.Required)
	assert.Equal(t, int64(0), insufficient.Available)

	var count int64
	conn.Model(&models.AdAnalysis{}).Count(&count)
	assert.Zero(t, count)
}

func TestAnalyze_InvalidInputIsFree(t *testing.T) {
	svc, ledger, _ := newTestService(t, credits.TierFree, nil)
	cases := []AdInput{
		{BodyText: "body", Platform: "google"},
		{Headline: "head", Platform: "google"},
		{Headline: "head", BodyText: "body", Platform: "myspace"},
	}
	for _, in := range cases {
		_, err := svc.Analyze(context.Background(), "u", AnalyzeRequest{Input: in})
		require.ErrorIs(t, err, ErrInvalidInput)
	}
	assert.Equal(t, int64(5), balanceOf(t, ledger, "u"))
}

func TestAnalyze_WithAlternatives(t *testing.T) {
	gen := &fakeGenerator{alts: []generator.Alternative{
		{Headline: "Dinner in 15", BodyText: "Skip the planning.", CTA: "Pick meals", Strategy: "time"},
		{Headline: "Save 20% tonight", BodyText: "Fresh kits delivered.", CTA: "Claim offer", Strategy: "price"},
	}}
	svc, ledger, conn := newTestService(t, credits.TierGrowth, gen)

	out, err := svc.Analyze(context.Background(), "u", AnalyzeRequest{
		Input:               sampleInput(),
		IncludeAlternatives: true,
		Controls:            generator.CreativeControls{Tone: generator.TonePlayful},
	})
	require.NoError(t, err)
	assert.Len(t, out.Alternatives, 2)
	assert.Empty(t, out.Notice)
	assert.Equal(t, int64(3), out.Analysis.CreditsCharged)
	assert.Equal(t, int64(97), balanceOf(t, ledger, "u"))
	assert.Equal(t, generator.TonePlayful, gen.last.Controls.Tone)
	assert.Equal(t, "facebook", gen.last.Platform)

	var stored models.AdAnalysis
	require.NoError(t, conn.Where("id = ?", out.Analysis.ID).Take(&stored).Error)
	var alts []generator.Alternative
	require.NoError(t, json.Unmarshal(stored.Alternatives, &alts))
	assert.Len(t, alts, 2)
}

func TestAnalyze_GeneratorFailureRefunds(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("upstream timeout")}
	svc, ledger, _ := newTestService(t, credits.TierGrowth, gen)

	out, err := svc.Analyze(context.Background(), "u", AnalyzeRequest{Input: sampleInput(), IncludeAlternatives: true})
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)
	assert.Empty(t, out.Alternatives)
	assert.Contains(t, out.Notice, "refunded")
	assert.Equal(t, int64(1), out.Analysis.CreditsCharged)
	assert.Equal(t, int64(99), balanceOf(t, ledger, "u"))
}

func TestAnalyze_AlternativesNeedCredits(t *testing.T) {
	gen := &fakeGenerator{alts: []generator.Alternative{{Headline: "x", BodyText: "y"}}}
	svc, ledger, _ := newTestService(t, credits.TierFree, gen)
	ctx := context.Background()
	_, err := ledger.Consume(ctx, "u", credits.OpBatchAnalysisPerAd, 4, "")
	require.NoError(t, err)

	out, err := svc.Analyze(ctx, "u", AnalyzeRequest{Input: sampleInput(), IncludeAlternatives: true})
	require.NoError(t, err)
	assert.Zero(t, gen.calls)
	assert.Equal(t, "alternatives need 2 credits; 0 available", out.Notice)
	assert.Equal(t, int64(1), out.Analysis.CreditsCharged)
}

func TestAnalyze_SaveFailureRefundsEverything(t *testing.T) {
	gen := &fakeGenerator{alts: []generator.Alternative{{Headline: "x", BodyText: "y"}}}
	svc, ledger, conn := newTestService(t, credits.TierGrowth, gen)
	ctx := context.Background()
	require.Equal(t, int64(100), balanceOf(t, ledger, "u"))
	require.NoError(t, conn.Migrator().DropTable(&models.AdAnalysis{}))

	_, err := svc.Analyze(ctx, "u", AnalyzeRequest{Input: sampleInput(), IncludeAlternatives: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis: save")
	assert.Equal(t, int64(100), balanceOf(t, ledger, "u"))

	snap, err := ledger.GetBalance(ctx, "u")
	require.NoError(t, err)
	assert.Zero(t, snap.TotalUsed)
}

func TestListAndGet(t *testing.T) {
	svc, _, _ := newTestService(t, credits.TierGrowth, nil)
	ctx := context.Background()
	tick := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}

	inputs := []AdInput{
		sampleInput(),
		{Headline: "Yoga for busy people", BodyText: "Ten minute flows you can do at your desk.", CTA: "Start free", Platform: "instagram"},
		{Headline: "100% off_peak pricing", BodyText: "Book rooms for less.", CTA: "Book now", Platform: "google"},
	}
	var ids []string
	for _, in := range inputs {
		out, err := svc.Analyze(ctx, "owner", AnalyzeRequest{Input: in})
		require.NoError(t, err)
		ids = append(ids, out.Analysis.ID)
	}

	rows, total, err := svc.List(ctx, "owner", ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, rows, 3)
	assert.Equal(t, ids[2], rows[0].ID)

	rows, total, err = svc.List(ctx, "owner", ListOptions{Query: "YOGA"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, ids[1], rows[0].ID)

	rows, _, err = svc.List(ctx, "owner", ListOptions{Query: "off_peak"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, total, err = svc.List(ctx, "owner", ListOptions{Query: "_"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = svc.List(ctx, "owner", ListOptions{Platform: "GOOGLE"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	rows, _, err = svc.List(ctx, "owner", ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ids[1], rows[0].ID)

	got, err := svc.Get(ctx, "owner", ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Cook dinner in 15 minutes", got.Headline)

	_, err = svc.Get(ctx, "someone-else", ids[0])
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(ctx, "owner", "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}
