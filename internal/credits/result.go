package credits

import (
	"errors"
	"time"
)

// Operational errors returned by the ledger.
var (
	ErrAccountNotFound  = errors.New("credits: account not found")
	ErrUnknownOperation = errors.New("credits: unknown operation")
	ErrUnknownTier      = errors.New("credits: unknown tier")
	ErrInvalidAmount    = errors.New("credits: amount must be positive")
	ErrInvalidUser      = errors.New("credits: user id is required")
)

// Reason explains why a ledger operation did not succeed.
type Reason string

// ReasonInsufficientCredits marks a debit the balance could not cover.
const ReasonInsufficientCredits Reason = "insufficient_credits"

// Result is the outcome of a ledger mutation.
// Insufficient credits is reported here, never as an error.
type Result struct {
	Success   bool
	Reason    Reason
	Operation Operation
	Cost      int64
	Required  int64
	Available int64
	Balance   Balance
}

// Insufficient reports whether the mutation was refused for lack of credits.
func (r Result) Insufficient() bool {
	return !r.Success && r.Reason == ReasonInsufficientCredits
}

// Snapshot is the current state of a credit account.
type Snapshot struct {
	UserID           string
	Tier             Tier
	Balance          Balance
	MonthlyAllowance int64
	BonusCredits     int64
	TotalUsed        int64
	LastReset        time.Time
}

// Reconciliation compares the transaction log with the stored balance.
type Reconciliation struct {
	UserID         string
	Unlimited      bool
	CurrentCredits int64
	LedgerSum      int64
	Drift          int64
}
