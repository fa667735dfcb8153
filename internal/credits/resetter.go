package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adcopysurge/backend/internal/models"

	log "github.com/sirupsen/logrus"
)

const (
	defaultResetInterval = time.Hour
	resetBatchSize       = 200
)

// ResetDue starts a new cycle for every account whose last reset is at least
// one calendar month before now. Per-user failures are logged and joined.
func (l *Ledger) ResetDue(ctx context.Context, now time.Time) (int, error) {
	if l == nil || l.db == nil {
		return 0, fmt.Errorf("credits: nil ledger")
	}
	cutoff := now.UTC().AddDate(0, -1, 0)

	var (
		lastID uint64
		reset  int
		errs   []error
	)
	for {
		if errCtx := ctx.Err(); errCtx != nil {
			return reset, errCtx
		}
		var batch []models.CreditAccount
		if errFind := l.db.WithContext(ctx).
			Select("id", "user_id").
			Where("id > ? AND last_reset <= ?", lastID, cutoff).
			Order("id ASC").
			Limit(resetBatchSize).
			Find(&batch).Error; errFind != nil {
			return reset, fmt.Errorf("credits: list due accounts: %w", errFind)
		}
		if len(batch) == 0 {
			break
		}
		for _, acct := range batch {
			lastID = acct.ID
			tier, errTier := l.tierOf(ctx, acct.UserID)
			if errTier != nil {
				log.WithError(errTier).WithField("user_id", acct.UserID).Warn("credits: resolve tier for reset failed")
				errs = append(errs, fmt.Errorf("%s: %w", acct.UserID, errTier))
				continue
			}
			if !tier.Valid() {
				tier = TierFree
			}
			if _, errReset := l.resetMonthlyAt(ctx, acct.UserID, tier, now); errReset != nil {
				log.WithError(errReset).WithField("user_id", acct.UserID).Warn("credits: monthly reset failed")
				errs = append(errs, fmt.Errorf("%s: %w", acct.UserID, errReset))
				continue
			}
			reset++
		}
		if len(batch) < resetBatchSize {
			break
		}
	}
	return reset, errors.Join(errs...)
}

// Resetter periodically applies due monthly resets.
type Resetter struct {
	ledger   *Ledger
	interval time.Duration
	now      func() time.Time
}

// NewResetter constructs a monthly reset loop.
func NewResetter(ledger *Ledger, interval time.Duration) *Resetter {
	if ledger == nil {
		return nil
	}
	if interval <= 0 {
		interval = defaultResetInterval
	}
	return &Resetter{ledger: ledger, interval: interval, now: time.Now}
}

// Start runs the reset loop in the background.
func (r *Resetter) Start(ctx context.Context) {
	if r == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go r.run(ctx)
	log.Infof("credit resetter started (interval=%s)", r.interval)
}

func (r *Resetter) run(ctx context.Context) {
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce applies every due reset and returns how many accounts were reset.
func (r *Resetter) RunOnce(ctx context.Context) int {
	clock := r.now
	if clock == nil {
		clock = time.Now
	}
	n, err := r.ledger.ResetDue(ctx, clock())
	if err != nil {
		log.WithError(err).Warn("credit resetter: some resets failed")
	}
	if n > 0 {
		log.Infof("credit resetter: reset %d accounts", n)
	}
	return n
}
