package usecase

import (
	"fmt"
	"strings"

	"ArticlesPipeline/internal/domain"
)

// BuildDigest formats relevant classifications as a plain-text message.
func BuildDigest(items []domain.Classification) string {
	if len(items) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Relevant articles: %d\n\n", len(items))
	for _, item := range items {
		title := item.Title
		if title == "" {
			title = item.URL
		}
		fmt.Fprintf(&b, "- %s\n", title)
		if item.Source != "" {
			fmt.Fprintf(&b, "Source: %s\n", item.Source)
		}
		if item.Explanation != "" {
			fmt.Fprintf(&b, "%s\n", item.Explanation)
		}
		fmt.Fprintf(&b, "%s\n\n", item.URL)
	}

	return strings.TrimRight(b.String(), "\n")
}
