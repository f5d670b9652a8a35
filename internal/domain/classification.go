package domain

import (
	"strings"
	"time"
)

// Relevance is the campaign verdict for one summary.
type Relevance string

const (
	RelevanceYes     Relevance = "Yes"
	RelevanceNo      Relevance = "No"
	RelevanceUnknown Relevance = "Unknown"
)

// ParseRelevance normalises a free-text verdict value.
// Anything that is not recognisably yes or no maps to RelevanceUnknown.
func ParseRelevance(value string) Relevance {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.Trim(v, "*_`\"'.,;!")
	v = strings.TrimSpace(v)

	switch {
	case v == "yes" || strings.HasPrefix(v, "yes ") || strings.HasPrefix(v, "yes,"):
		return RelevanceYes
	case v == "no" || strings.HasPrefix(v, "no ") || strings.HasPrefix(v, "no,"):
		return RelevanceNo
	default:
		return RelevanceUnknown
	}
}

// Verdict is the structured part of a classification response.
type Verdict struct {
	Relevance   Relevance
	Explanation string
}

// Classification is a persisted verdict, keyed by the summary URL.
type Classification struct {
	URL          string
	Title        string
	Source       string
	Date         time.Time
	Relevance    Relevance
	Explanation  string
	Model        string
	ClassifiedAt time.Time
}
