package ratelimit

import "strings"

// KeyForDecision builds a limiter key for the resolved scope.
func KeyForDecision(userID string, decision Decision) string {
	userID = strings.TrimSpace(userID)
	if userID == "" || decision.Limit <= 0 {
		return ""
	}
	switch decision.Scope {
	case ScopeOperation:
		if decision.Operation == "" {
			return ""
		}
		return "u:" + userID + ":op:" + decision.Operation
	case ScopeUser:
		return "u:" + userID
	default:
		return ""
	}
}
