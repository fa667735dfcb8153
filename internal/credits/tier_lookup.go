package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/adcopysurge/backend/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TierLookup resolves the subscription tier applied to a user's account.
type TierLookup func(ctx context.Context, userID string) (Tier, error)

// StaticTier returns a lookup that always answers tier.
func StaticTier(tier Tier) TierLookup {
	return func(context.Context, string) (Tier, error) { return tier, nil }
}

// ProfileTierLookup reads the tier from user_profiles.
// Users without a profile, or with an unrecognized tier, are treated as free.
func ProfileTierLookup(db *gorm.DB) TierLookup {
	return func(ctx context.Context, userID string) (Tier, error) {
		if db == nil {
			return TierFree, nil
		}
		var profile models.UserProfile
		errFind := db.WithContext(ctx).
			Select("subscription_tier").
			Where("user_id = ?", userID).
			Take(&profile).Error
		if errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return TierFree, nil
			}
			return "", fmt.Errorf("credits: load profile: %w", errFind)
		}
		tier, ok := ParseTier(profile.SubscriptionTier)
		if !ok {
			log.WithField("user_id", userID).Warnf("credits: unknown subscription tier %q, using free", profile.SubscriptionTier)
			return TierFree, nil
		}
		return tier, nil
	}
}
