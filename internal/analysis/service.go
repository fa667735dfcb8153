package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adcopysurge/backend/internal/credits"
	"github.com/adcopysurge/backend/internal/db"
	"github.com/adcopysurge/backend/internal/generator"
	"github.com/adcopysurge/backend/internal/metrics"
	"github.com/adcopysurge/backend/internal/models"
	"github.com/adcopysurge/backend/internal/scoring"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrNotFound is returned when an analysis does not exist for the user.
var ErrNotFound = errors.New("analysis: not found")

const (
	defaultListLimit = 20
	maxListLimit     = 100

	outcomeOK           = "ok"
	outcomeInsufficient = "insufficient_credits"
	outcomeInvalid      = "invalid"
	outcomeError        = "error"
)

// InsufficientCreditsError reports a request the user's balance could not cover.
type InsufficientCreditsError struct {
	Operation credits.Operation
	Required  int64
	Available int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("analysis: insufficient credits for %s: required %d, available %d", e.Operation, e.Required, e.Available)
}

// CreditLedger is the subset of the ledger the service charges against.
type CreditLedger interface {
	Consume(ctx context.Context, userID string, op credits.Operation, quantity int, description string) (credits.Result, error)
	Refund(ctx context.Context, userID string, op credits.Operation, quantity int, reason string) (credits.Result, error)
}

// AnalyzeRequest is one analysis submission.
type AnalyzeRequest struct {
	Input               AdInput
	IncludeAlternatives bool
	Controls            generator.CreativeControls
}

// Outcome is the persisted analysis plus request-scoped details.
type Outcome struct {
	Analysis     models.AdAnalysis
	Score        scoring.Result
	Feedback     []string
	Alternatives []generator.Alternative
	Notice       string
	Balance      credits.Balance
}

// ListOptions filters a user's analysis history.
type ListOptions struct {
	Limit    int
	Offset   int
	Query    string
	Platform string
}

// Service orchestrates credit metering, scoring and persistence.
type Service struct {
	db         *gorm.DB
	ledger     CreditLedger
	calibrator *scoring.Calibrator
	generator  generator.Generator
	now        func() time.Time
}

// NewService constructs the analysis service. gen may be nil when no model is configured.
func NewService(conn *gorm.DB, ledger CreditLedger, calibrator *scoring.Calibrator, gen generator.Generator) *Service {
	if calibrator == nil {
		calibrator = scoring.NewCalibrator(scoring.DefaultConfig())
	}
	return &Service{db: conn, ledger: ledger, calibrator: calibrator, generator: gen, now: time.Now}
}

// Analyze charges for, scores and stores one ad.
func (s *Service) Analyze(ctx context.Context, userID string, req AnalyzeRequest) (*Outcome, error) {
	in := req.Input.Normalize()
	if err := in.Validate(); err != nil {
		metrics.Analyses.WithLabelValues(platformLabel(in.Platform), outcomeInvalid).Inc()
		return nil, err
	}
	platform := in.Platform

	charged, balance, err := s.charge(ctx, userID, credits.OpBasicAnalysis, "ad analysis ("+platform+")")
	if err != nil {
		s.observeFailure(platform, err)
		return nil, err
	}
	charges := []credits.Operation{credits.OpBasicAnalysis}

	result := s.calibrator.Score(ScoreComponents(in), in.FullText())
	metrics.OverallScores.Observe(result.OverallScore)
	feedback := scoring.Explain(result)

	out := &Outcome{Score: result, Feedback: feedback, Balance: balance}
	if req.IncludeAlternatives {
		alts, altCharge, altBalance, notice := s.alternatives(ctx, userID, in, req.Controls)
		out.Alternatives = alts
		out.Notice = notice
		if altCharge > 0 {
			charged += altCharge
			charges = append(charges, credits.OpAIAlternatives)
			out.Balance = altBalance
		}
	}

	record, err := buildRecord(userID, in, result, feedback, out.Alternatives, charged, s.now().UTC())
	if err == nil {
		err = s.db.WithContext(ctx).Create(&record).Error
	}
	if err != nil {
		errRefund := s.refundAll(ctx, userID, charges, "analysis not saved")
		metrics.Analyses.WithLabelValues(platform, outcomeError).Inc()
		return nil, errors.Join(fmt.Errorf("analysis: save: %w", err), errRefund)
	}

	metrics.Analyses.WithLabelValues(platform, outcomeOK).Inc()
	out.Analysis = record
	return out, nil
}

// alternatives charges for and generates alternative copy. Failures after the
// charge are refunded and reported as a notice; the analysis itself proceeds.
func (s *Service) alternatives(ctx context.Context, userID string, in AdInput, controls generator.CreativeControls) ([]generator.Alternative, int64, credits.Balance, string) {
	if s.generator == nil {
		return nil, 0, credits.Balance{}, "alternatives are not available"
	}

	cost, balance, err := s.charge(ctx, userID, credits.OpAIAlternatives, "ai alternatives ("+in.Platform+")")
	if err != nil {
		var insufficient *InsufficientCreditsError
		if errors.As(err, &insufficient) {
			return nil, 0, balance, fmt.Sprintf("alternatives need %d credits; %d available", insufficient.Required, insufficient.Available)
		}
		log.WithError(err).WithField("user_id", userID).Warn("analysis: charge for alternatives failed")
		return nil, 0, balance, "alternatives could not be generated"
	}

	alts, err := s.generator.Alternatives(ctx, generator.Request{
		Platform:       in.Platform,
		Headline:       in.Headline,
		BodyText:       in.BodyText,
		CTA:            in.CTA,
		Industry:       in.Industry,
		TargetAudience: in.TargetAudience,
		Controls:       controls,
	})
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("analysis: generate alternatives failed")
		res, errRefund := s.ledger.Refund(ctx, userID, credits.OpAIAlternatives, 1, "alternative generation failed")
		if errRefund != nil {
			log.WithError(errRefund).WithField("user_id", userID).Error("analysis: refund for alternatives failed")
			return nil, cost, balance, "alternatives could not be generated"
		}
		return nil, 0, res.Balance, "alternatives could not be generated; credits refunded"
	}
	return alts, cost, balance, ""
}

func (s *Service) charge(ctx context.Context, userID string, op credits.Operation, description string) (int64, credits.Balance, error) {
	res, err := s.ledger.Consume(ctx, userID, op, 1, description)
	if err != nil {
		return 0, credits.Balance{}, fmt.Errorf("analysis: charge %s: %w", op, err)
	}
	if !res.Success {
		return 0, res.Balance, &InsufficientCreditsError{Operation: op, Required: res.Required, Available: res.Available}
	}
	return res.Cost, res.Balance, nil
}

func (s *Service) refundAll(ctx context.Context, userID string, ops []credits.Operation, reason string) error {
	var errs []error
	for _, op := range ops {
		if _, err := s.ledger.Refund(ctx, userID, op, 1, reason); err != nil {
			errs = append(errs, fmt.Errorf("analysis: refund %s: %w", op, err))
		}
	}
	return errors.Join(errs...)
}

// platformLabel keeps metric label values bounded to the known platforms.
func platformLabel(raw string) string {
	if p, ok := ParsePlatform(raw); ok {
		return string(p)
	}
	return "unknown"
}

func (s *Service) observeFailure(platform string, err error) {
	var insufficient *InsufficientCreditsError
	if errors.As(err, &insufficient) {
		metrics.Analyses.WithLabelValues(platform, outcomeInsufficient).Inc()
		return
	}
	metrics.Analyses.WithLabelValues(platform, outcomeError).Inc()
}

// List returns a page of the user's analyses, newest first, and the total match count.
func (s *Service) List(ctx context.Context, userID string, opts ListOptions) ([]models.AdAnalysis, int64, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	q := s.db.WithContext(ctx).Model(&models.AdAnalysis{}).Where("user_id = ?", userID)
	if platform := strings.TrimSpace(opts.Platform); platform != "" {
		q = q.Where("platform = ?", strings.ToLower(platform))
	}
	if search := strings.TrimSpace(opts.Query); search != "" {
		pattern := db.NormalizeLikePattern(s.db, "%"+db.EscapeLike(search)+"%")
		q = q.Where(
			"("+db.CaseInsensitiveLikeExpr(s.db, "headline")+" OR "+db.CaseInsensitiveLikeExpr(s.db, "body_text")+")",
			pattern, pattern,
		)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("analysis: count: %w", err)
	}
	var rows []models.AdAnalysis
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("analysis: list: %w", err)
	}
	return rows, total, nil
}

// Get loads one of the user's analyses.
func (s *Service) Get(ctx context.Context, userID, id string) (*models.AdAnalysis, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var row models.AdAnalysis
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("analysis: get: %w", err)
	}
	return &row, nil
}

func buildRecord(userID string, in AdInput, result scoring.Result, feedback []string, alts []generator.Alternative, charged int64, createdAt time.Time) (models.AdAnalysis, error) {
	if alts == nil {
		alts = []generator.Alternative{}
	}
	penalties, err := json.Marshal(result.Penalties)
	if err != nil {
		return models.AdAnalysis{}, err
	}
	breakdown, err := json.Marshal(result)
	if err != nil {
		return models.AdAnalysis{}, err
	}
	feedbackJSON, err := json.Marshal(feedback)
	if err != nil {
		return models.AdAnalysis{}, err
	}
	altsJSON, err := json.Marshal(alts)
	if err != nil {
		return models.AdAnalysis{}, err
	}

	return models.AdAnalysis{
		ID:               uuid.NewString(),
		UserID:           userID,
		Platform:         in.Platform,
		Headline:         in.Headline,
		BodyText:         in.BodyText,
		CTA:              in.CTA,
		Industry:         in.Industry,
		TargetAudience:   in.TargetAudience,
		ClarityScore:     result.Scores.Clarity,
		PersuasionScore:  result.Scores.Persuasion,
		EmotionScore:     result.Scores.Emotion,
		CTAScore:         result.Scores.CTA,
		PlatformFitScore: result.Scores.PlatformFit,
		OverallScore:     result.OverallScore,
		CalibratedBase:   result.CalibratedBase,
		ExcellenceBonus:  result.Bonus.Total,
		PenaltyPoints:    result.Penalties.Total,
		CreditsCharged:   charged,
		PenaltiesApplied: datatypes.JSON(penalties),
		ScoreBreakdown:   datatypes.JSON(breakdown),
		Feedback:         datatypes.JSON(feedbackJSON),
		Alternatives:     datatypes.JSON(altsJSON),
		CreatedAt:        createdAt,
	}, nil
}
