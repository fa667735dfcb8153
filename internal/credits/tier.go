package credits

import (
	"sort"
	"strings"
)

// Tier identifies a subscription level.
type Tier string

// Tier constants define the subscription levels.
const (
	TierFree            Tier = "free"
	TierGrowth          Tier = "growth"
	TierAgencyStandard  Tier = "agency_standard"
	TierAgencyPremium   Tier = "agency_premium"
	TierAgencyUnlimited Tier = "agency_unlimited"
)

type tierPlan struct {
	allowance   int64
	rolloverCap int64
	unlimited   bool
}

// tierPlans maps each tier to its monthly allowance and rollover cap.
var tierPlans = map[Tier]tierPlan{
	TierFree:            {allowance: 5, rolloverCap: 0},
	TierGrowth:          {allowance: 100, rolloverCap: 50},
	TierAgencyStandard:  {allowance: 500, rolloverCap: 250},
	TierAgencyPremium:   {allowance: 1000, rolloverCap: 500},
	TierAgencyUnlimited: {unlimited: true},
}

// ParseTier normalizes a tier name. Hyphens and case are ignored.
func ParseTier(raw string) (Tier, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	tier := Tier(normalized)
	if _, ok := tierPlans[tier]; !ok {
		return "", false
	}
	return tier, true
}

// Valid reports whether the tier is known.
func (t Tier) Valid() bool {
	_, ok := tierPlans[t]
	return ok
}

// Allowance returns the monthly credit allowance; zero for unlimited tiers.
func (t Tier) Allowance() int64 { return tierPlans[t].allowance }

// RolloverCap returns how many unused credits may carry into the next cycle.
func (t Tier) RolloverCap() int64 { return tierPlans[t].rolloverCap }

// Unlimited reports whether the tier is never debited.
func (t Tier) Unlimited() bool { return tierPlans[t].unlimited }

// Tiers lists the known tiers ordered by allowance.
func Tiers() []Tier {
	out := make([]Tier, 0, len(tierPlans))
	for tier := range tierPlans {
		out = append(out, tier)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := tierPlans[out[i]], tierPlans[out[j]]
		if a.unlimited != b.unlimited {
			return !a.unlimited
		}
		return a.allowance < b.allowance
	})
	return out
}
