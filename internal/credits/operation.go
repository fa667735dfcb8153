package credits

import (
	"sort"
	"strings"
)

// Operation names a metered action.
type Operation string

// Operation constants define the metered actions.
const (
	OpBasicAnalysis       Operation = "BASIC_ANALYSIS"
	OpAIAlternatives      Operation = "AI_ALTERNATIVES"
	OpPsychologyAnalysis  Operation = "PSYCHOLOGY_ANALYSIS"
	OpBrandVoiceAnalysis  Operation = "BRAND_VOICE_ANALYSIS"
	OpCompetitorBenchmark Operation = "COMPETITOR_BENCHMARK"
	OpWhiteLabelReport    Operation = "WHITE_LABEL_REPORT"
	OpBatchAnalysisPerAd  Operation = "BATCH_ANALYSIS_PER_AD"
	OpHistoryView         Operation = "HISTORY_VIEW"
	OpTemplateBrowse      Operation = "TEMPLATE_BROWSE"
)

// operationCosts is the credit price of one unit of each operation.
var operationCosts = map[Operation]int64{
	OpBasicAnalysis:       1,
	OpAIAlternatives:      2,
	OpPsychologyAnalysis:  3,
	OpBrandVoiceAnalysis:  2,
	OpCompetitorBenchmark: 2,
	OpWhiteLabelReport:    5,
	OpBatchAnalysisPerAd:  1,
	OpHistoryView:         0,
	OpTemplateBrowse:      0,
}

// CostOf returns the unit cost of an operation.
func CostOf(op Operation) (int64, bool) {
	cost, ok := operationCosts[op]
	return cost, ok
}

// ParseOperation normalizes an operation name.
func ParseOperation(raw string) (Operation, bool) {
	op := Operation(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := operationCosts[op]; !ok {
		return "", false
	}
	return op, true
}

// Operations lists every metered operation in name order.
func Operations() []Operation {
	out := make([]Operation, 0, len(operationCosts))
	for op := range operationCosts {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
