package models

import "time"

// UserProfile mirrors the subscription state kept by the billing integration.
type UserProfile struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID           string `gorm:"type:varchar(255);not null;uniqueIndex"`   // Opaque user identifier.
	Email            string `gorm:"type:text"`                                // Contact email.
	SubscriptionTier string `gorm:"type:varchar(64);not null;default:'free'"` // Current subscription tier.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
