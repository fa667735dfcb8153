package scoring

import (
	"fmt"
	"strings"
)

var componentAdvice = map[Component]string{
	ComponentClarity:     "shorten sentences and use plainer words",
	ComponentPersuasion:  "lead with a concrete benefit and a reason to act now",
	ComponentEmotion:     "speak to what the reader feels or wants",
	ComponentCTA:         "open the call to action with a specific verb",
	ComponentPlatformFit: "trim copy to the platform's length limits",
}

var categoryLabels = map[PenaltyCategory]string{
	CategoryHype:         "generic hype",
	CategoryVague:        "vague claim",
	CategoryOverusedCTA:  "overused call to action",
	CategoryWeakModifier: "weak modifier",
}

var bonusLabels = map[BonusKind]string{
	BonusNumericClaims: "specific numbers",
	BonusSocialProof:   "social proof",
	BonusValueProps:    "clear value propositions",
}

// Explain renders a calibration result as feedback lines for the user.
func Explain(r Result) []string {
	lines := []string{
		fmt.Sprintf("Overall score %.0f/100 (calibrated base %.1f from raw %.1f).", r.OverallScore, r.CalibratedBase, r.RawScore),
	}

	weakest, weakestScore := weakestComponent(r.Scores)
	lines = append(lines, fmt.Sprintf("Weakest area: %s at %.0f/100; %s.", strings.ReplaceAll(string(weakest), "_", " "), weakestScore, componentAdvice[weakest]))

	for _, m := range r.Penalties.Matches {
		lines = append(lines, fmt.Sprintf("Remove %q (%s): -%.0f.", m.Phrase, categoryLabels[m.Category], m.Points))
	}
	if r.Penalties.ExclamationPoints > 0 {
		lines = append(lines, fmt.Sprintf("Use at most %d exclamation marks (found %d): -%.0f.", exclamationAllowance, r.Penalties.ExclamationCount, r.Penalties.ExclamationPoints))
	}
	if len(r.Penalties.CapsWords) > 0 {
		lines = append(lines, fmt.Sprintf("Avoid all-caps words (%s): -%.0f.", strings.Join(r.Penalties.CapsWords, ", "), r.Penalties.CapsPoints))
	}
	if r.Penalties.Capped {
		lines = append(lines, fmt.Sprintf("Penalties totalled %.0f and were capped at %.0f.", r.Penalties.Uncapped, r.Penalties.Total))
	}

	for _, s := range r.Bonus.Signals {
		lines = append(lines, fmt.Sprintf("Bonus for %s (%s): +%.0f.", bonusLabels[s.Kind], strings.Join(s.Evidence, ", "), s.Points))
	}
	if !r.Bonus.Eligible {
		lines = append(lines, fmt.Sprintf("Excellence bonuses unlock once the score reaches %.0f after penalties.", r.Bonus.Threshold))
	}
	return lines
}

func weakestComponent(s SubScores) (Component, float64) {
	weakest := weights[0].component
	lowest := s.value(weakest)
	for _, w := range weights[1:] {
		if v := s.value(w.component); v < lowest {
			weakest, lowest = w.component, v
		}
	}
	return weakest, lowest
}
