package analysis

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/adcopysurge/backend/internal/scoring"
)

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	digitPattern  = regexp.MustCompile(`\d`)
)

var benefitWords = []string{
	"save", "free", "faster", "easier", "results", "without", "guarantee",
	"boost", "grow", "earn", "avoid", "improve", "instant", "simple",
}

var urgencyWords = []string{
	"today", "now", "limited", "ends", "last chance", "only", "tonight",
	"this week", "before", "deadline", "hurry",
}

var emotionWords = []string{
	"love", "happy", "proud", "fear", "worry", "stress", "relief", "enjoy",
	"excited", "confident", "imagine", "dream", "peace", "joy", "frustrat",
	"tired", "overwhelm", "delight", "comfort", "freedom", "calm", "thrill",
}

var actionVerbs = []string{
	"get", "start", "shop", "buy", "try", "book", "join", "download", "claim",
	"discover", "order", "sign", "call", "save", "request", "grab", "explore",
	"subscribe", "pick", "build", "create", "reserve", "apply", "watch",
}

// ScoreComponents runs every sub-analyzer over a validated input.
func ScoreComponents(in AdInput) scoring.SubScores {
	platform, _ := ParsePlatform(in.Platform)
	return scoring.SubScores{
		Clarity:     clarityScore(in.Headline + ". " + in.BodyText),
		Persuasion:  persuasionScore(in.FullText()),
		Emotion:     emotionScore(in.FullText()),
		CTA:         ctaScore(in.CTA),
		PlatformFit: platformFitScore(platform, in),
	}
}

// clarityScore rewards short sentences and short words.
func clarityScore(text string) float64 {
	var sentences []string
	for _, s := range sentenceSplit.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
	}
	words := strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' })
	if len(words) == 0 || len(sentences) == 0 {
		return 0
	}

	var letters int
	for _, w := range words {
		letters += utf8.RuneCountInString(w)
	}
	avgWordLen := float64(letters) / float64(len(words))
	avgSentenceLen := float64(len(words)) / float64(len(sentences))

	score := 100.0
	if avgSentenceLen > 15 {
		score -= math.Min(40, (avgSentenceLen-15)*3)
	}
	if avgWordLen > 5 {
		score -= math.Min(30, (avgWordLen-5)*10)
	}
	if len(words) < 5 {
		score -= 20
	}
	return bounded(score)
}

// persuasionScore rewards benefits, urgency, specificity and direct address.
func persuasionScore(text string) float64 {
	lower := strings.ToLower(text)
	score := 40.0
	score += math.Min(30, float64(countKeywords(lower, benefitWords))*8)
	score += math.Min(20, float64(countKeywords(lower, urgencyWords))*10)
	if digitPattern.MatchString(text) {
		score += 15
	}
	if containsWord(lower, "you") || containsWord(lower, "your") {
		score += 5
	}
	return bounded(score)
}

// emotionScore measures coverage of the emotion lexicon.
func emotionScore(text string) float64 {
	lower := strings.ToLower(text)
	return bounded(30 + float64(countKeywords(lower, emotionWords))*12)
}

// ctaScore rewards a short call to action that opens with a verb.
func ctaScore(cta string) float64 {
	cta = strings.TrimSpace(cta)
	if cta == "" {
		return 20
	}
	lower := strings.ToLower(cta)
	words := strings.Fields(lower)

	score := 50.0
	first := strings.TrimFunc(words[0], func(r rune) bool { return !unicode.IsLetter(r) })
	for _, verb := range actionVerbs {
		if first == verb {
			score += 25
			break
		}
	}
	switch n := len(words); {
	case n >= 2 && n <= 5:
		score += 15
	case n > 7:
		score -= 15
	}
	if countKeywords(lower, urgencyWords) > 0 {
		score += 10
	}
	return bounded(score)
}

// platformFitScore deducts points for copy beyond the platform's recommended lengths.
func platformFitScore(p Platform, in AdInput) float64 {
	limits, ok := platformLimits[p]
	if !ok {
		return 50
	}
	score := 100.0
	if over := utf8.RuneCountInString(in.Headline) - limits.headline; over > 0 {
		score -= math.Min(40, float64(over)*2)
	}
	if over := utf8.RuneCountInString(in.BodyText) - limits.body; over > 0 {
		score -= math.Min(40, float64(over)/2)
	}
	if over := utf8.RuneCountInString(in.CTA) - limits.cta; over > 0 {
		score -= 10
	}
	return bounded(score)
}

func countKeywords(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

func containsWord(lower, word string) bool {
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool { return !unicode.IsLetter(r) }) {
		if w == word {
			return true
		}
	}
	return false
}

func bounded(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
