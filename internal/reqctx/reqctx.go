// Package reqctx carries per-request ambient values (request id, acting
// user, conversation thread) on a context.Context so they are visible to
// every layer of one dispatched operation without parameter threading.
// Each inbound chat event gets a fresh context, so values never leak
// between concurrent operations. Reads never block.
package reqctx

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userIDKey
	conversationIDKey
)

// WithRequestID returns a context carrying the operation's request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the nearest enclosing request id, or "" when unset.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithUserID returns a context carrying the acting user's id.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID returns the acting user's id, or "" when unset.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// WithConversationID returns a context carrying the active conversation
// thread id.
func WithConversationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, conversationIDKey, id)
}

// ConversationID returns the active conversation id and whether one was
// set.
func ConversationID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(conversationIDKey).(string)
	return id, ok && id != ""
}
