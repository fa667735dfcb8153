package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/adcopysurge/backend/internal/credits"
	"github.com/adcopysurge/backend/internal/models"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// CreditReader exposes the read side of the credit ledger.
type CreditReader interface {
	GetBalance(ctx context.Context, userID string) (credits.Snapshot, error)
	Transactions(ctx context.Context, userID string, limit int) ([]models.CreditTransaction, error)
}

// CreditFrontHandler serves a user's own credit balance and history.
type CreditFrontHandler struct {
	ledger CreditReader
}

// NewCreditFrontHandler constructs a CreditFrontHandler.
func NewCreditFrontHandler(ledger CreditReader) *CreditFrontHandler {
	return &CreditFrontHandler{ledger: ledger}
}

type balanceResponse struct {
	UserID           string    `json:"user_id"`
	Tier             string    `json:"tier"`
	Credits          int64     `json:"credits"`
	Unlimited        bool      `json:"unlimited"`
	MonthlyAllowance int64     `json:"monthly_allowance"`
	BonusCredits     int64     `json:"bonus_credits"`
	TotalUsed        int64     `json:"total_used"`
	LastReset        time.Time `json:"last_reset"`
}

// NewBalanceResponse renders a snapshot for clients. Unlimited balances show a display sentinel.
func NewBalanceResponse(s credits.Snapshot) gin.H {
	return gin.H{"balance": balanceResponse{
		UserID:           s.UserID,
		Tier:             string(s.Tier),
		Credits:          s.Balance.DisplayCredits(),
		Unlimited:        s.Balance.IsUnlimited(),
		MonthlyAllowance: s.MonthlyAllowance,
		BonusCredits:     s.BonusCredits,
		TotalUsed:        s.TotalUsed,
		LastReset:        s.LastReset,
	}}
}

// Get returns the caller's balance, creating the account on first use.
func (h *CreditFrontHandler) Get(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	snap, err := h.ledger.GetBalance(c.Request.Context(), userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("credits: get balance failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get balance failed"})
		return
	}
	c.JSON(http.StatusOK, NewBalanceResponse(snap))
}

type transactionResponse struct {
	ID          uint64    `json:"id"`
	Operation   string    `json:"operation"`
	Kind        string    `json:"kind,omitempty"`
	Amount      int64     `json:"amount"`
	Unmetered   bool      `json:"unmetered"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Transactions lists the caller's newest credit transactions.
func (h *CreditFrontHandler) Transactions(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	rows, err := h.ledger.Transactions(c.Request.Context(), userID, queryInt(c, "limit", 0))
	if err != nil {
		if errors.Is(err, credits.ErrInvalidUser) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		log.WithError(err).WithField("user_id", userID).Error("credits: list transactions failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list transactions failed"})
		return
	}
	items := make([]transactionResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, transactionResponse{
			ID:          row.ID,
			Operation:   string(row.Operation),
			Kind:        row.OperationKind,
			Amount:      row.Amount,
			Unmetered:   row.Unmetered,
			Description: row.Description,
			CreatedAt:   row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"transactions": items})
}
