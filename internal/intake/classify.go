package intake

import "strings"

// Verdict is the three-way outcome of a yes/no confirmation reply.
type Verdict int

const (
	VerdictAmbiguous Verdict = iota
	VerdictYes
	VerdictNo
)

var (
	yesKeywordsEnglish = []string{"yes", "yeah", "correct"}
	noKeywordsEnglish  = []string{"no", "nope", "incorrect"}
	yesKeywordsHindi   = []string{"हाँ", "हां", "जी", "सही"}
	noKeywordsHindi    = []string{"नहीं", "नही", "गलत"}
)

// ClassifyConfirmation maps a free-form reply onto yes/no/ambiguous using
// per-language keyword containment. A reply matching both sets is not-yes, so
// "no, yes that's right" never confirms; a reply matching neither is
// ambiguous and the caller re-asks without changing state. extraNegatives
// widens the negative set for a particular question (the English details
// confirmation also treats "change" as a no).
func ClassifyConfirmation(lang Language, text string, extraNegatives ...string) Verdict {
	lower := strings.ToLower(text)

	yes := yesKeywordsEnglish
	no := noKeywordsEnglish
	if lang == LanguageHindi {
		yes = yesKeywordsHindi
		no = noKeywordsHindi
	}

	isYes := containsAny(lower, yes)
	isNo := containsAny(lower, no) || containsAny(lower, extraNegatives)

	switch {
	case isYes && !isNo:
		return VerdictYes
	case isNo:
		return VerdictNo
	default:
		return VerdictAmbiguous
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
