package usecase

import "strings"

const (
	// DefaultSummarySystemPrompt frames every summarisation request.
	DefaultSummarySystemPrompt = "You are a helpful assistant that summarizes articles."

	// DefaultSummaryUserPrompt is followed by a blank line and the article text.
	DefaultSummaryUserPrompt = "Please provide a concise summary of the following article:"

	// SummaryPlaceholder is replaced by the summary text in a classification template.
	SummaryPlaceholder = "{summary}"
)

// DefaultClassificationPrompt is the campaign rubric used when none is configured.
const DefaultClassificationPrompt = `You will be provided with **one article summary at a time**. For each article summary, please do the following:

1. **Determine Relevance**: Decide whether the article is relevant to our campaign's topic and objectives. Answer with **"Yes"** or **"No"**.
2. **Provide a Brief Explanation**: If relevant, briefly explain how the article aligns with the campaign's topic and objectives. If not, briefly explain why it does not. Please keep your explanation concise (1-2 sentences).

**Campaign Details:**

- **Topic of the Campaign**: The influence of AI on human lives.
- **Target Audience**: Non-IT professionals.
- **Objectives**:
  - To show the influence of AI on the job market.
  - To show threats and opportunities of AI for IT and Non-IT people.
  - To introduce new models and their features.
  - To show the influence of AI on economics in the world, individual countries, and industries.

**Output Format:**

For each article summary, please provide:

- **Relevant**: Yes/No
- **Explanation**: [Your brief explanation here.]

**Please evaluate the following article summary:**

"""
{summary}
"""`

// BuildSummaryPrompt renders the user turn of a summarisation request.
func BuildSummaryPrompt(instruction, text string) string {
	if instruction == "" {
		instruction = DefaultSummaryUserPrompt
	}
	return instruction + "\n\n" + text
}

// BuildClassificationPrompt substitutes the summary into the template.
// A template without the placeholder gets the summary appended in quotes.
func BuildClassificationPrompt(template, summary string) string {
	if template == "" {
		template = DefaultClassificationPrompt
	}
	if !strings.Contains(template, SummaryPlaceholder) {
		return template + "\n\n\"\"\"\n" + summary + "\n\"\"\""
	}
	return strings.ReplaceAll(template, SummaryPlaceholder, summary)
}

// Truncate cuts text to at most limit characters. A non-positive limit disables it.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
