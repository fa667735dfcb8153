package ratelimit

import (
	"context"
	"strings"

	"github.com/adcopysurge/backend/internal/credits"
)

// Resolver picks the rate limit that applies to a user's request.
type Resolver struct {
	provider SettingsProvider
	tierOf   credits.TierLookup
}

// NewResolver constructs a Resolver. tierOf may be nil when tier limits are unused.
func NewResolver(provider SettingsProvider, tierOf credits.TierLookup) *Resolver {
	if provider == nil {
		provider = DefaultSettingsConfig
	}
	return &Resolver{provider: provider, tierOf: tierOf}
}

// ResolveLimit resolves the effective limit in priority order: operation
// limit, subscription tier limit, then the global default.
func (r *Resolver) ResolveLimit(ctx context.Context, userID string, op credits.Operation) (Decision, error) {
	if r == nil || strings.TrimSpace(userID) == "" {
		return Decision{}, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := r.provider().Normalize()

	if op != "" {
		if limit := cfg.OpLimits[string(op)]; limit > 0 {
			return Decision{Limit: limit, Scope: ScopeOperation, Operation: string(op)}, nil
		}
	}

	if len(cfg.TierLimits) > 0 && r.tierOf != nil {
		tier, errTier := r.tierOf(ctx, userID)
		if errTier != nil {
			return Decision{}, errTier
		}
		if limit := cfg.TierLimits[string(tier)]; limit > 0 {
			return Decision{Limit: limit, Scope: ScopeUser}, nil
		}
	}

	if cfg.Limit > 0 {
		return Decision{Limit: cfg.Limit, Scope: ScopeUser}, nil
	}
	return Decision{}, nil
}
