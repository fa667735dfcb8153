package models

import "time"

// CreditOperation tags a credit transaction row.
type CreditOperation string

// CreditOperation constants define ledger entry kinds.
const (
	// CreditOperationCharge records a debit for a metered operation.
	CreditOperationCharge CreditOperation = "charge"
	// CreditOperationRefund records credits returned after a failed operation.
	CreditOperationRefund CreditOperation = "refund"
	// CreditOperationBonus records credits granted outside the monthly cycle.
	CreditOperationBonus CreditOperation = "bonus"
	// CreditOperationMonthlyReset records the balance change of a monthly reset.
	CreditOperationMonthlyReset CreditOperation = "monthly_reset"
)

// CreditTransaction is an append-only credit ledger entry.
type CreditTransaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID        string          `gorm:"type:varchar(255);not null;index:idx_credit_transactions_user_created,priority:1"` // Owning user.
	Operation     CreditOperation `gorm:"type:varchar(32);not null"`                                                        // Entry kind.
	OperationKind string          `gorm:"type:varchar(64)"`                                                                 // Metered operation for charge/refund rows.
	Amount        int64           `gorm:"not null"`                                                                         // Signed credit delta.
	Unmetered     bool            `gorm:"not null;default:false"`                                                           // Charge recorded against an unlimited account.
	Description   string          `gorm:"type:text"`                                                                        // Human readable note.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_credit_transactions_user_created,priority:2"` // Creation timestamp.
}
