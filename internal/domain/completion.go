package domain

// Message roles understood by every completion provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a completion request.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest is a single-turn request to a text-completion model.
type CompletionRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}
