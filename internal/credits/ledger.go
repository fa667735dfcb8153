package credits

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/adcopysurge/backend/internal/metrics"
	"github.com/adcopysurge/backend/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	logSavepoint            = "credit_log"
	defaultHistoryLimit     = 50
	maxHistoryLimit         = 200
	initialGrantDescription = "initial allowance"
)

// Ledger meters credits with single-statement conditional updates.
// It holds no in-process locks; the database row update is the only
// synchronization point between concurrent requests.
type Ledger struct {
	db     *gorm.DB
	tierOf TierLookup
	now    func() time.Time
}

// NewLedger constructs a Ledger. A nil tier lookup treats every new account as free.
func NewLedger(db *gorm.DB, tierOf TierLookup) *Ledger {
	if tierOf == nil {
		tierOf = StaticTier(TierFree)
	}
	return &Ledger{db: db, tierOf: tierOf, now: time.Now}
}

// GetBalance returns the account state, creating the account on first touch.
func (l *Ledger) GetBalance(ctx context.Context, userID string) (Snapshot, error) {
	userID, errUser := normalizeUserID(userID)
	if errUser != nil {
		return Snapshot{}, errUser
	}
	acct, err := l.ensureAccount(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(acct), nil
}

// Consume debits quantity units of op. A balance that cannot cover the
// cost yields a Result with ReasonInsufficientCredits and no mutation.
func (l *Ledger) Consume(ctx context.Context, userID string, op Operation, quantity int, description string) (Result, error) {
	cost, errCost := costFor(op, quantity)
	if errCost != nil {
		return Result{}, errCost
	}
	userID, errUser := normalizeUserID(userID)
	if errUser != nil {
		return Result{}, errUser
	}

	acct, errEnsure := l.ensureAccount(ctx, userID)
	if errEnsure != nil {
		return Result{}, errEnsure
	}
	if cost == 0 {
		return Result{Success: true, Operation: op, Balance: balanceOf(acct)}, nil
	}

	now := l.now().UTC()
	var result Result
	errTx := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.CreditAccount
		if errFind := tx.Select("is_unlimited").Where("user_id = ?", userID).Take(&current).Error; errFind != nil {
			return errFind
		}

		if current.IsUnlimited {
			if errUpdate := tx.Model(&models.CreditAccount{}).
				Where("user_id = ?", userID).
				Updates(map[string]any{
					"total_used": gorm.Expr("total_used + ?", cost),
					"updated_at": now,
				}).Error; errUpdate != nil {
				return errUpdate
			}
			l.appendLog(tx, models.CreditTransaction{
				UserID:        userID,
				Operation:     models.CreditOperationCharge,
				OperationKind: string(op),
				Amount:        -cost,
				Unmetered:     true,
				Description:   description,
				CreatedAt:     now,
			})
			result = Result{Success: true, Operation: op, Cost: cost, Balance: Unlimited()}
			return nil
		}

		res := tx.Model(&models.CreditAccount{}).
			Where("user_id = ? AND is_unlimited = ? AND current_credits >= ?", userID, false, cost).
			Updates(map[string]any{
				"current_credits": gorm.Expr("current_credits - ?", cost),
				"total_used":      gorm.Expr("total_used + ?", cost),
				"updated_at":      now,
			})
		if res.Error != nil {
			return res.Error
		}

		var after models.CreditAccount
		if errFind := tx.Select("current_credits").Where("user_id = ?", userID).Take(&after).Error; errFind != nil {
			return errFind
		}

		if res.RowsAffected == 0 {
			result = Result{
				Reason:    ReasonInsufficientCredits,
				Operation: op,
				Cost:      cost,
				Required:  cost,
				Available: after.CurrentCredits,
				Balance:   Limited(after.CurrentCredits),
			}
			return nil
		}

		l.appendLog(tx, models.CreditTransaction{
			UserID:        userID,
			Operation:     models.CreditOperationCharge,
			OperationKind: string(op),
			Amount:        -cost,
			Description:   description,
			CreatedAt:     now,
		})
		result = Result{Success: true, Operation: op, Cost: cost, Balance: Limited(after.CurrentCredits)}
		return nil
	})
	if errTx != nil {
		return Result{}, fmt.Errorf("credits: consume: %w", errTx)
	}

	if result.Success {
		metrics.CreditsConsumed.WithLabelValues(string(op)).Add(float64(cost))
	} else {
		metrics.CreditDenials.WithLabelValues(string(op)).Inc()
	}
	return result, nil
}

// Refund restores the cost of quantity units of op. total_used never drops below zero.
// Callers must not refund the same failure twice; the floor only protects the counter.
func (l *Ledger) Refund(ctx context.Context, userID string, op Operation, quantity int, reason string) (Result, error) {
	cost, errCost := costFor(op, quantity)
	if errCost != nil {
		return Result{}, errCost
	}
	userID, errUser := normalizeUserID(userID)
	if errUser != nil {
		return Result{}, errUser
	}

	now := l.now().UTC()
	var result Result
	errTx := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.CreditAccount
		if errFind := tx.Select("is_unlimited", "current_credits").Where("user_id = ?", userID).Take(&current).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return errFind
		}
		if current.IsUnlimited {
			result = Result{Success: true, Operation: op, Balance: Unlimited()}
			return nil
		}
		if cost == 0 {
			result = Result{Success: true, Operation: op, Balance: Limited(current.CurrentCredits)}
			return nil
		}

		res := tx.Model(&models.CreditAccount{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"current_credits": gorm.Expr("current_credits + ?", cost),
				"total_used":      gorm.Expr("CASE WHEN total_used >= ? THEN total_used - ? ELSE 0 END", cost, cost),
				"updated_at":      now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAccountNotFound
		}

		l.appendLog(tx, models.CreditTransaction{
			UserID:        userID,
			Operation:     models.CreditOperationRefund,
			OperationKind: string(op),
			Amount:        cost,
			Description:   reason,
			CreatedAt:     now,
		})

		var after models.CreditAccount
		if errFind := tx.Select("current_credits").Where("user_id = ?", userID).Take(&after).Error; errFind != nil {
			return errFind
		}
		result = Result{Success: true, Operation: op, Cost: cost, Balance: Limited(after.CurrentCredits)}
		return nil
	})
	if errTx != nil {
		if errors.Is(errTx, ErrAccountNotFound) {
			return Result{}, ErrAccountNotFound
		}
		return Result{}, fmt.Errorf("credits: refund: %w", errTx)
	}
	if result.Cost > 0 {
		metrics.CreditsRefunded.WithLabelValues(string(op)).Add(float64(result.Cost))
	}
	return result, nil
}

// AddBonus grants amount credits outside the monthly cycle.
func (l *Ledger) AddBonus(ctx context.Context, userID string, amount int64, reason string) (Result, error) {
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	userID, errUser := normalizeUserID(userID)
	if errUser != nil {
		return Result{}, errUser
	}

	now := l.now().UTC()
	var result Result
	errTx := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CreditAccount{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"current_credits": gorm.Expr("current_credits + ?", amount),
				"bonus_credits":   gorm.Expr("bonus_credits + ?", amount),
				"updated_at":      now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAccountNotFound
		}

		l.appendLog(tx, models.CreditTransaction{
			UserID:      userID,
			Operation:   models.CreditOperationBonus,
			Amount:      amount,
			Description: reason,
			CreatedAt:   now,
		})

		var after models.CreditAccount
		if errFind := tx.Select("current_credits", "is_unlimited").Where("user_id = ?", userID).Take(&after).Error; errFind != nil {
			return errFind
		}
		result = Result{Success: true, Balance: balanceOf(after)}
		return nil
	})
	if errTx != nil {
		if errors.Is(errTx, ErrAccountNotFound) {
			return Result{}, ErrAccountNotFound
		}
		return Result{}, fmt.Errorf("credits: add bonus: %w", errTx)
	}
	return result, nil
}

// ResetMonthly starts a new credit cycle on tier. The new balance is the
// tier allowance plus unused credits up to the tier's rollover cap.
func (l *Ledger) ResetMonthly(ctx context.Context, userID string, tier Tier) (Result, error) {
	return l.resetMonthlyAt(ctx, userID, tier, l.now())
}

// resetMonthlyAt resets the cycle and stamps last_reset with now.
func (l *Ledger) resetMonthlyAt(ctx context.Context, userID string, tier Tier, now time.Time) (Result, error) {
	if !tier.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	userID, errUser := normalizeUserID(userID)
	if errUser != nil {
		return Result{}, errUser
	}
	if _, errEnsure := l.ensureAccount(ctx, userID); errEnsure != nil {
		return Result{}, errEnsure
	}

	now = now.UTC()
	var result Result
	errTx := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acct models.CreditAccount
		if errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			Take(&acct).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return errFind
		}

		previous := acct.CurrentCredits
		next := previous
		var rollover int64
		if !tier.Unlimited() {
			if !acct.IsUnlimited {
				rollover = min(max(previous, 0), tier.RolloverCap())
			}
			next = tier.Allowance() + rollover
		}

		if errUpdate := tx.Model(&models.CreditAccount{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"current_credits":   next,
				"monthly_allowance": tier.Allowance(),
				"subscription_tier": string(tier),
				"is_unlimited":      tier.Unlimited(),
				"last_reset":        now,
				"updated_at":        now,
			}).Error; errUpdate != nil {
			return errUpdate
		}

		l.appendLog(tx, models.CreditTransaction{
			UserID:      userID,
			Operation:   models.CreditOperationMonthlyReset,
			Amount:      next - previous,
			Description: fmt.Sprintf("monthly reset to %s (rollover %d)", tier, rollover),
			CreatedAt:   now,
		})

		balance := Limited(next)
		if tier.Unlimited() {
			balance = Unlimited()
		}
		result = Result{Success: true, Balance: balance}
		return nil
	})
	if errTx != nil {
		if errors.Is(errTx, ErrAccountNotFound) {
			return Result{}, ErrAccountNotFound
		}
		return Result{}, fmt.Errorf("credits: reset monthly: %w", errTx)
	}
	metrics.MonthlyResets.Inc()
	return result, nil
}

// Transactions lists the newest transaction log rows for a user.
func (l *Ledger) Transactions(ctx context.Context, userID string, limit int) ([]models.CreditTransaction, error) {
	userID, errUser := normalizeUserID(userID)
	if errUser != nil {
		return nil, errUser
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	var rows []models.CreditTransaction
	if errFind := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("credits: list transactions: %w", errFind)
	}
	return rows, nil
}

// Reconcile sums the metered transaction log and compares it with the stored balance.
func (l *Ledger) Reconcile(ctx context.Context, userID string) (Reconciliation, error) {
	userID, errUser := normalizeUserID(userID)
	if errUser != nil {
		return Reconciliation{}, errUser
	}
	var acct models.CreditAccount
	if errFind := l.db.WithContext(ctx).Where("user_id = ?", userID).Take(&acct).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return Reconciliation{}, ErrAccountNotFound
		}
		return Reconciliation{}, fmt.Errorf("credits: reconcile: %w", errFind)
	}

	var sum int64
	if errSum := l.db.WithContext(ctx).
		Model(&models.CreditTransaction{}).
		Where("user_id = ? AND unmetered = ?", userID, false).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error; errSum != nil {
		return Reconciliation{}, fmt.Errorf("credits: reconcile: %w", errSum)
	}

	return Reconciliation{
		UserID:         userID,
		Unlimited:      acct.IsUnlimited,
		CurrentCredits: acct.CurrentCredits,
		LedgerSum:      sum,
		Drift:          acct.CurrentCredits - sum,
	}, nil
}

// ensureAccount loads the account row, inserting a tier default when absent.
// Concurrent first touches race on the unique user_id index; losers re-read.
func (l *Ledger) ensureAccount(ctx context.Context, userID string) (models.CreditAccount, error) {
	var acct models.CreditAccount
	errFind := l.db.WithContext(ctx).Where("user_id = ?", userID).Take(&acct).Error
	if errFind == nil {
		return acct, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return models.CreditAccount{}, fmt.Errorf("credits: load account: %w", errFind)
	}

	tier, errTier := l.tierOf(ctx, userID)
	if errTier != nil {
		return models.CreditAccount{}, fmt.Errorf("credits: resolve tier: %w", errTier)
	}
	if !tier.Valid() {
		tier = TierFree
	}

	now := l.now().UTC()
	fresh := models.CreditAccount{
		UserID:           userID,
		SubscriptionTier: string(tier),
		IsUnlimited:      tier.Unlimited(),
		CurrentCredits:   tier.Allowance(),
		MonthlyAllowance: tier.Allowance(),
		LastReset:        now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	errTx := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&fresh)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 || fresh.CurrentCredits == 0 {
			return nil
		}
		l.appendLog(tx, models.CreditTransaction{
			UserID:      userID,
			Operation:   models.CreditOperationMonthlyReset,
			Amount:      fresh.CurrentCredits,
			Description: initialGrantDescription,
			CreatedAt:   now,
		})
		return nil
	})
	if errTx != nil {
		return models.CreditAccount{}, fmt.Errorf("credits: create account: %w", errTx)
	}

	if errReload := l.db.WithContext(ctx).Where("user_id = ?", userID).Take(&acct).Error; errReload != nil {
		return models.CreditAccount{}, fmt.Errorf("credits: reload account: %w", errReload)
	}
	return acct, nil
}

// appendLog writes a transaction row under a savepoint. A failed write rolls
// back only the log row; the surrounding balance change still commits.
func (l *Ledger) appendLog(tx *gorm.DB, row models.CreditTransaction) {
	fields := log.Fields{"user_id": row.UserID, "operation": row.Operation, "amount": row.Amount}
	if errSave := tx.SavePoint(logSavepoint).Error; errSave != nil {
		metrics.LedgerLogFailures.Inc()
		log.WithError(errSave).WithFields(fields).Warn("credits: transaction log savepoint failed")
		return
	}
	if errCreate := tx.Create(&row).Error; errCreate != nil {
		metrics.LedgerLogFailures.Inc()
		log.WithError(errCreate).WithFields(fields).Warn("credits: transaction log write failed")
		if errRollback := tx.RollbackTo(logSavepoint).Error; errRollback != nil {
			log.WithError(errRollback).WithFields(fields).Error("credits: rollback to log savepoint failed")
		}
	}
}

func costFor(op Operation, quantity int) (int64, error) {
	unit, ok := CostOf(op)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
	if quantity < 1 {
		quantity = 1
	}
	if unit > 0 && int64(quantity) > math.MaxInt64/unit {
		return 0, fmt.Errorf("%w: %d units of %s overflow the cost", ErrInvalidAmount, quantity, op)
	}
	return unit * int64(quantity), nil
}

func normalizeUserID(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrInvalidUser
	}
	return userID, nil
}

func balanceOf(acct models.CreditAccount) Balance {
	if acct.IsUnlimited {
		return Unlimited()
	}
	return Limited(acct.CurrentCredits)
}

func snapshotOf(acct models.CreditAccount) Snapshot {
	tier, ok := ParseTier(acct.SubscriptionTier)
	if !ok {
		tier = TierFree
	}
	return Snapshot{
		UserID:           acct.UserID,
		Tier:             tier,
		Balance:          balanceOf(acct),
		MonthlyAllowance: acct.MonthlyAllowance,
		BonusCredits:     acct.BonusCredits,
		TotalUsed:        acct.TotalUsed,
		LastReset:        acct.LastReset,
	}
}
