package models

import "time"

// CreditAccount holds the metered credit balance for one user.
type CreditAccount struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID string `gorm:"type:varchar(255);not null;uniqueIndex"` // Opaque user identifier.

	SubscriptionTier string `gorm:"type:varchar(64);not null;default:'free'"` // Tier driving allowance and rollover.
	IsUnlimited      bool   `gorm:"not null;default:false"`                  // Unlimited accounts never read CurrentCredits.

	CurrentCredits   int64 `gorm:"not null;default:0"` // Spendable balance for limited accounts.
	MonthlyAllowance int64 `gorm:"not null;default:0"` // Credits restored on monthly reset.
	BonusCredits     int64 `gorm:"not null;default:0"` // Lifetime bonus credits granted.
	TotalUsed        int64 `gorm:"not null;default:0"` // Lifetime credits consumed net of refunds.

	LastReset time.Time `gorm:"not null"` // Last monthly reset timestamp.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
