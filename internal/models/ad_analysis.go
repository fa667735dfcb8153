package models

import (
	"time"

	"gorm.io/datatypes"
)

// AdAnalysis stores one scored ad and its explanation payloads.
type AdAnalysis struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // UUID primary key.

	UserID string `gorm:"type:varchar(255);not null;index"` // Owning user.

	Platform       string `gorm:"type:varchar(32);not null"` // Target ad platform.
	Headline       string `gorm:"type:text;not null"`        // Ad headline.
	BodyText       string `gorm:"type:text;not null"`        // Ad body copy.
	CTA            string `gorm:"type:text"`                 // Call to action.
	Industry       string `gorm:"type:varchar(255)"`         // Optional industry hint.
	TargetAudience string `gorm:"type:text"`                 // Optional audience hint.

	ClarityScore     float64 `gorm:"not null;default:0"` // Clarity component score.
	PersuasionScore  float64 `gorm:"not null;default:0"` // Persuasion component score.
	EmotionScore     float64 `gorm:"not null;default:0"` // Emotion component score.
	CTAScore         float64 `gorm:"not null;default:0"` // CTA component score.
	PlatformFitScore float64 `gorm:"not null;default:0"` // Platform fit component score.

	OverallScore    float64 `gorm:"not null;default:0"` // Calibrated overall score.
	CalibratedBase  float64 `gorm:"not null;default:0"` // Curve output before penalties and bonus.
	ExcellenceBonus float64 `gorm:"not null;default:0"` // Bonus points awarded.
	PenaltyPoints   float64 `gorm:"not null;default:0"` // Penalty points after the cap.
	CreditsCharged  int64   `gorm:"not null;default:0"` // Credits kept after refunds.

	PenaltiesApplied datatypes.JSON `gorm:"type:json"` // Penalty report.
	ScoreBreakdown   datatypes.JSON `gorm:"type:json"` // Full calibrator output.
	Feedback         datatypes.JSON `gorm:"type:json"` // Explanation lines.
	Alternatives     datatypes.JSON `gorm:"type:json"` // Generated alternative copy.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}
