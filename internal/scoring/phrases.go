package scoring

import "regexp"

// PenaltyCategory groups banned phrases that cost the same number of points.
type PenaltyCategory string

// Penalty categories.
const (
	CategoryHype         PenaltyCategory = "generic_hype"
	CategoryVague        PenaltyCategory = "vague_claim"
	CategoryOverusedCTA  PenaltyCategory = "overused_cta"
	CategoryWeakModifier PenaltyCategory = "weak_modifier"
	CategoryExclamation  PenaltyCategory = "excessive_exclamation"
	CategoryCapsLock     PenaltyCategory = "all_caps"
)

const (
	exclamationAllowance = 2
	exclamationPoints    = 2.0
	capsWordPoints       = 3.0
)

type phraseList struct {
	category PenaltyCategory
	points   float64
	phrases  []string
}

// penaltyPhrases are matched as lowercase substrings; every occurrence counts.
var penaltyPhrases = []phraseList{
	{
		category: CategoryHype,
		points:   8,
		phrases: []string{
			"revolutionary", "game-changer", "game changer", "best in class",
			"world-class", "cutting-edge", "state of the art", "next level",
			"unbelievable", "amazing", "incredible", "mind-blowing",
			"life-changing", "once in a lifetime",
		},
	},
	{
		category: CategoryVague,
		points:   6,
		phrases: []string{
			"the best", "guaranteed results", "proven results", "top quality",
			"high quality", "like never before", "second to none", "unmatched",
			"unparalleled", "industry leading", "industry-leading",
		},
	},
	{
		category: CategoryOverusedCTA,
		points:   4,
		phrases: []string{
			"click here", "learn more", "buy now", "sign up now",
			"don't miss out", "act now", "limited time offer", "order now",
		},
	},
	{
		category: CategoryWeakModifier,
		points:   3,
		phrases: []string{
			"very good", "really great", "pretty good", "kind of",
			"sort of", "somewhat", "basically", "literally",
		},
	},
}

var capsWordPattern = regexp.MustCompile(`\b[A-Z]{3,}\b`)

// BonusKind names an excellence signal.
type BonusKind string

// Excellence signals.
const (
	BonusNumericClaims BonusKind = "numeric_claims"
	BonusSocialProof   BonusKind = "social_proof"
	BonusValueProps    BonusKind = "value_propositions"
)

const (
	numericClaimPoints = 6.0
	socialProofPoints  = 5.0
	valuePropPoints    = 4.0
	valuePropMinimum   = 2
)

// numericClaimPattern finds percentages, dollar amounts and multipliers.
var numericClaimPattern = regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s?%|\$\s?\d[\d,]*(?:\.\d+)?|\b\d+(?:\.\d+)?x\b`)

var socialProofKeywords = []string{
	"customers", "reviews", "rated", "trusted by", "testimonials",
	"clients", "award-winning", "5-star", "five-star", "used by",
}

var valuePropKeywords = []string{
	"free shipping", "free trial", "save", "money-back", "guarantee",
	"no contract", "cancel anytime", "fast", "easy", "secure", "instant",
}
