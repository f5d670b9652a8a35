package usecase

import (
	"fmt"
	"strings"

	"ArticlesPipeline/internal/domain"
)

const (
	relevantLabel    = "- **Relevant**:"
	explanationLabel = "- **Explanation**:"
)

// ParseVerdict reads the labeled relevance and explanation lines of a
// classification reply. The value is whatever follows the first colon of the
// line; when a label repeats, the last occurrence wins. It also returns the
// raw relevance text so callers can report values that map to Unknown.
func ParseVerdict(reply string) (domain.Verdict, string, error) {
	var relevance, explanation string
	for _, line := range strings.Split(reply, "\n") {
		switch {
		case strings.Contains(line, relevantLabel):
			relevance = afterColon(line)
		case strings.Contains(line, explanationLabel):
			explanation = afterColon(line)
		}
	}

	if relevance == "" || explanation == "" {
		return domain.Verdict{}, relevance, fmt.Errorf("%w: relevance=%q explanation=%q",
			domain.ErrUnparsed, relevance, explanation)
	}
	return domain.Verdict{
		Relevance:   domain.ParseRelevance(relevance),
		Explanation: explanation,
	}, relevance, nil
}

func afterColon(line string) string {
	_, value, _ := strings.Cut(line, ":")
	return strings.TrimSpace(value)
}
