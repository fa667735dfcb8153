package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/adcopysurge/backend/internal/credits"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// CreditAdmin is the ledger surface used by operators.
type CreditAdmin interface {
	GetBalance(ctx context.Context, userID string) (credits.Snapshot, error)
	Reconcile(ctx context.Context, userID string) (credits.Reconciliation, error)
	AddBonus(ctx context.Context, userID string, amount int64, reason string) (credits.Result, error)
	ResetMonthly(ctx context.Context, userID string, tier credits.Tier) (credits.Result, error)
	ResetDue(ctx context.Context, now time.Time) (int, error)
}

// CreditAdminHandler manages user credit accounts.
type CreditAdminHandler struct {
	ledger CreditAdmin
}

// NewCreditAdminHandler constructs a CreditAdminHandler.
func NewCreditAdminHandler(ledger CreditAdmin) *CreditAdminHandler {
	return &CreditAdminHandler{ledger: ledger}
}

type bonusCreditRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

type resetCreditRequest struct {
	Tier string `json:"tier"`
}

// Get returns an account's balance together with its log reconciliation.
func (h *CreditAdminHandler) Get(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	ctx := c.Request.Context()
	rec, errRec := h.ledger.Reconcile(ctx, userID)
	if errRec != nil {
		h.writeError(c, userID, "reconcile", errRec)
		return
	}
	snap, errSnap := h.ledger.GetBalance(ctx, userID)
	if errSnap != nil {
		h.writeError(c, userID, "get balance", errSnap)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":           snap.UserID,
		"tier":              string(snap.Tier),
		"unlimited":         snap.Balance.IsUnlimited(),
		"credits":           snap.Balance.DisplayCredits(),
		"monthly_allowance": snap.MonthlyAllowance,
		"bonus_credits":     snap.BonusCredits,
		"total_used":        snap.TotalUsed,
		"last_reset":        snap.LastReset,
		"ledger_sum":        rec.LedgerSum,
		"drift":             rec.Drift,
	})
}

// Bonus grants extra credits to a limited account.
func (h *CreditAdminHandler) Bonus(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	var body bonusCreditRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := h.ledger.AddBonus(c.Request.Context(), userID, body.Amount, strings.TrimSpace(body.Reason))
	if err != nil {
		h.writeError(c, userID, "add bonus", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"credits":   res.Balance.DisplayCredits(),
		"unlimited": res.Balance.IsUnlimited(),
	})
}

// Reset runs a monthly reset for one account, optionally switching tier.
func (h *CreditAdminHandler) Reset(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	var body resetCreditRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	tier, ok := credits.ParseTier(body.Tier)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tier"})
		return
	}
	res, err := h.ledger.ResetMonthly(c.Request.Context(), userID, tier)
	if err != nil {
		h.writeError(c, userID, "reset", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tier":      string(tier),
		"credits":   res.Balance.DisplayCredits(),
		"unlimited": res.Balance.IsUnlimited(),
	})
}

// ResetDue resets every account whose cycle has elapsed.
func (h *CreditAdminHandler) ResetDue(c *gin.Context) {
	count, err := h.ledger.ResetDue(c.Request.Context(), time.Now().UTC())
	if err != nil {
		log.WithError(err).Warn("credits: admin reset-due finished with errors")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reset due failed", "reset": count})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": count})
}

func (h *CreditAdminHandler) writeError(c *gin.Context, userID, action string, err error) {
	switch {
	case errors.Is(err, credits.ErrInvalidUser):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
	case errors.Is(err, credits.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
	case errors.Is(err, credits.ErrUnknownTier):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tier"})
	case errors.Is(err, credits.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
	default:
		log.WithError(err).WithField("user_id", userID).Errorf("credits: admin %s failed", action)
		c.JSON(http.StatusInternalServerError, gin.H{"error": action + " failed"})
	}
}
