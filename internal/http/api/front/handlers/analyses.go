package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/adcopysurge/backend/internal/analysis"
	"github.com/adcopysurge/backend/internal/credits"
	"github.com/adcopysurge/backend/internal/generator"
	"github.com/adcopysurge/backend/internal/models"
	"github.com/adcopysurge/backend/internal/ratelimit"
	"github.com/adcopysurge/backend/internal/scoring"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Analyzer runs and reads ad analyses.
type Analyzer interface {
	Analyze(ctx context.Context, userID string, req analysis.AnalyzeRequest) (*analysis.Outcome, error)
	List(ctx context.Context, userID string, opts analysis.ListOptions) ([]models.AdAnalysis, int64, error)
	Get(ctx context.Context, userID, id string) (*models.AdAnalysis, error)
}

// RateLimiter checks one request against a per-key window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int) (ratelimit.Result, error)
}

// LimitResolver picks the limit for a user and operation.
type LimitResolver interface {
	ResolveLimit(ctx context.Context, userID string, op credits.Operation) (ratelimit.Decision, error)
}

// AnalysisFrontHandler serves the caller's ad analyses.
type AnalysisFrontHandler struct {
	analyzer Analyzer
	limiter  RateLimiter
	resolver LimitResolver
}

// NewAnalysisFrontHandler constructs an AnalysisFrontHandler. Rate limiting is skipped when limiter or resolver is nil.
func NewAnalysisFrontHandler(analyzer Analyzer, limiter RateLimiter, resolver LimitResolver) *AnalysisFrontHandler {
	return &AnalysisFrontHandler{analyzer: analyzer, limiter: limiter, resolver: resolver}
}

type createAnalysisRequest struct {
	Headline            string                     `json:"headline"`
	BodyText            string                     `json:"body_text"`
	CTA                 string                     `json:"cta"`
	Platform            string                     `json:"platform"`
	Industry            string                     `json:"industry"`
	TargetAudience      string                     `json:"target_audience"`
	IncludeAlternatives bool                       `json:"include_alternatives"`
	Controls            generator.CreativeControls `json:"controls"`
}

func (r createAnalysisRequest) toAnalyzeRequest() analysis.AnalyzeRequest {
	return analysis.AnalyzeRequest{
		Input: analysis.AdInput{
			Headline:       r.Headline,
			BodyText:       r.BodyText,
			CTA:            r.CTA,
			Platform:       r.Platform,
			Industry:       r.Industry,
			TargetAudience: r.TargetAudience,
		},
		IncludeAlternatives: r.IncludeAlternatives,
		Controls:            r.Controls,
	}
}

type analysisView struct {
	ID               string            `json:"id"`
	Platform         string            `json:"platform"`
	Headline         string            `json:"headline"`
	BodyText         string            `json:"body_text"`
	CTA              string            `json:"cta"`
	Industry         string            `json:"industry,omitempty"`
	TargetAudience   string            `json:"target_audience,omitempty"`
	Scores           scoring.SubScores `json:"scores"`
	OverallScore     float64           `json:"overall_score"`
	CalibratedBase   float64           `json:"calibrated_base"`
	ExcellenceBonus  float64           `json:"excellence_bonus"`
	PenaltyPoints    float64           `json:"penalty_points"`
	CreditsCharged   int64             `json:"credits_charged"`
	PenaltiesApplied json.RawMessage   `json:"penalties_applied,omitempty"`
	Feedback         json.RawMessage   `json:"feedback,omitempty"`
	Alternatives     json.RawMessage   `json:"alternatives,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

func newAnalysisView(row models.AdAnalysis) analysisView {
	return analysisView{
		ID:             row.ID,
		Platform:       row.Platform,
		Headline:       row.Headline,
		BodyText:       row.BodyText,
		CTA:            row.CTA,
		Industry:       row.Industry,
		TargetAudience: row.TargetAudience,
		Scores: scoring.SubScores{
			Clarity:     row.ClarityScore,
			Persuasion:  row.PersuasionScore,
			Emotion:     row.EmotionScore,
			CTA:         row.CTAScore,
			PlatformFit: row.PlatformFitScore,
		},
		OverallScore:     row.OverallScore,
		CalibratedBase:   row.CalibratedBase,
		ExcellenceBonus:  row.ExcellenceBonus,
		PenaltyPoints:    row.PenaltyPoints,
		CreditsCharged:   row.CreditsCharged,
		PenaltiesApplied: rawJSON(row.PenaltiesApplied),
		Feedback:         rawJSON(row.Feedback),
		Alternatives:     rawJSON(row.Alternatives),
		CreatedAt:        row.CreatedAt,
	}
}

func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

// Create scores an ad, optionally generating alternatives.
func (h *AnalysisFrontHandler) Create(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body createAnalysisRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	op := credits.OpBasicAnalysis
	if body.IncludeAlternatives {
		op = credits.OpAIAlternatives
	}
	if !h.allow(c, userID, op) {
		return
	}

	outcome, err := h.analyzer.Analyze(c.Request.Context(), userID, body.toAnalyzeRequest())
	if err != nil {
		var insufficient *analysis.InsufficientCreditsError
		switch {
		case errors.Is(err, analysis.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.As(err, &insufficient):
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":     "insufficient credits",
				"operation": string(insufficient.Operation),
				"required":  insufficient.Required,
				"available": insufficient.Available,
			})
		case errors.Is(err, credits.ErrInvalidUser):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		default:
			log.WithError(err).WithField("user_id", userID).Error("analysis: analyze failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		}
		return
	}

	resp := gin.H{
		"analysis":          newAnalysisView(outcome.Analysis),
		"feedback":          outcome.Feedback,
		"score":             outcome.Score,
		"remaining_credits": outcome.Balance.DisplayCredits(),
		"unlimited":         outcome.Balance.IsUnlimited(),
	}
	if len(outcome.Alternatives) > 0 {
		resp["alternatives"] = outcome.Alternatives
	}
	if outcome.Notice != "" {
		resp["notice"] = outcome.Notice
	}
	c.JSON(http.StatusCreated, resp)
}

// List returns the caller's analyses, newest first.
func (h *AnalysisFrontHandler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	opts := analysis.ListOptions{
		Limit:    queryInt(c, "limit", 0),
		Offset:   queryInt(c, "offset", 0),
		Query:    c.Query("q"),
		Platform: c.Query("platform"),
	}
	rows, total, err := h.analyzer.List(c.Request.Context(), userID, opts)
	if err != nil {
		if errors.Is(err, analysis.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.WithError(err).WithField("user_id", userID).Error("analysis: list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list analyses failed"})
		return
	}
	items := make([]analysisView, 0, len(rows))
	for _, row := range rows {
		items = append(items, newAnalysisView(row))
	}
	c.JSON(http.StatusOK, gin.H{"analyses": items, "total": total})
}

// Get returns one of the caller's analyses.
func (h *AnalysisFrontHandler) Get(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	row, err := h.analyzer.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, analysis.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
			return
		}
		log.WithError(err).WithField("user_id", userID).Error("analysis: get failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get analysis failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": newAnalysisView(*row)})
}

// allow applies the resolved rate limit and writes a 429 when exceeded.
// Limiter errors fail open.
func (h *AnalysisFrontHandler) allow(c *gin.Context, userID string, op credits.Operation) bool {
	if h.limiter == nil || h.resolver == nil {
		return true
	}
	ctx := c.Request.Context()
	decision, errResolve := h.resolver.ResolveLimit(ctx, userID, op)
	if errResolve != nil {
		log.WithError(errResolve).WithField("user_id", userID).Warn("ratelimit: resolve failed")
		return true
	}
	if decision.Limit <= 0 {
		return true
	}
	res, errAllow := h.limiter.Allow(ctx, ratelimit.KeyForDecision(userID, decision), decision.Limit)
	if errAllow != nil {
		log.WithError(errAllow).WithField("user_id", userID).Warn("ratelimit: check failed")
		return true
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	if res.Allowed {
		return true
	}
	retryAfter := int(time.Until(res.Reset).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	return false
}
