package domain

// ChatMessage is the provider-agnostic chat message shape used by the
// chat orchestrator and LLM integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions carries the per-request provider tuning.
type ChatOptions struct {
	Temperature float64
	MaxTokens   int
}

// Chat roles understood by the provider request builder.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
