package dispatch

// Status marks an Envelope as a success or a hard failure. Logical
// failures that still produce a displayable chat line (unknown role,
// cooldown, unsupported language) are successes carrying that line.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Stable numeric error codes for hard failures.
const (
	CodeNone         = 0
	CodeInvalidInput = 1001
	CodeUpstream     = 1002
	CodeInternal     = 1003
	CodeCanceled     = 1004
)

// Envelope is the uniform result wrapper returned by Dispatch. Exactly
// one of {Message, Error} is meaningful per Status. ConversationID
// accompanies a chat reply so the caller can continue the thread.
type Envelope struct {
	Status         Status `json:"status"`
	Message        string `json:"message,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	Code           int    `json:"code,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Success wraps a displayable chat line.
func Success(message string) Envelope {
	return Envelope{Status: StatusSuccess, Message: message}
}

// Failure wraps a hard error with its stable code.
func Failure(code int, message string) Envelope {
	return Envelope{Status: StatusError, Code: code, Error: message}
}
