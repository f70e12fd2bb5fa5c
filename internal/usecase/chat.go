package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LiquidSpot/TwitchAI-sub001/internal/domain"
	"github.com/LiquidSpot/TwitchAI-sub001/internal/reqctx"
)

const (
	defaultMaxTurns = 10
	maxMessageLen   = 500

	// apologyReply goes to chat when the provider fails or returns
	// nothing usable. A generic line beats a raw error on stream.
	apologyReply = "My brain short-circuited for a second there. Ask me again in a bit!"
)

// ParamGetter fetches a named parameter (secrets, prompt overrides).
type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// LLMClient is the AI-provider collaborator.
type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage, opts domain.ChatOptions) (string, error)
}

// TurnArchiver persists completed turns for the dashboard. Archive
// failures never fail the chat reply.
type TurnArchiver interface {
	ArchiveTurn(ctx context.Context, userID, conversationID, question, answer string, turns int) error
}

// thread is one bounded in-memory conversation. Its mutex serializes
// appends per thread; unrelated threads never contend. replies counts
// every completed turn, including ones eviction has since dropped, so
// the reply limit keeps working for limits above the retention bound.
type thread struct {
	mu      sync.Mutex
	turns   []domain.Turn
	replies int
}

// ChatService is the conversation orchestrator: it resolves per-user
// role/engine/limit settings, composes the provider request, and folds
// the reply plus prior turns into a bounded per-thread history.
type ChatService struct {
	llm         LLMClient
	store       SettingsStore
	params      ParamGetter
	archiver    TurnArchiver
	log         *slog.Logger
	paramPrefix string
	maxTurns    int

	threadsMu sync.Mutex
	threads   map[string]*thread

	promptMu    sync.RWMutex
	promptCache map[string]string
}

// ReplyInput is one chat-reply request. ConversationID continues an
// existing thread; when empty the ambient id on the context (reqctx)
// applies, and failing that a fresh thread starts.
type ReplyInput struct {
	UserID         string
	Message        string
	ConversationID string
}

// ReplyOutput carries the reply text and the thread id the caller may
// pass back to continue the conversation.
type ReplyOutput struct {
	Text           string
	ConversationID string
}

// NewChatService creates a ChatService.
func NewChatService(llm LLMClient, store SettingsStore, params ParamGetter, archiver TurnArchiver, log *slog.Logger, paramPrefix string, maxTurns int) (*ChatService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: settings store must not be nil")
	}
	if params == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	if archiver == nil {
		return nil, errors.New("usecase: turn archiver must not be nil")
	}
	if log == nil {
		return nil, errors.New("usecase: logger must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	return &ChatService{
		llm:         llm,
		store:       store,
		params:      params,
		archiver:    archiver,
		log:         log,
		paramPrefix: paramPrefix,
		maxTurns:    maxTurns,
		threads:     map[string]*thread{},
		promptCache: map[string]string{},
	}, nil
}

// Reply generates an AI chat reply for the user's message, continuing
// the context's conversation thread or starting a new one. Provider
// failures come back as a soft-success apology; hard errors are
// reserved for malformed input and cancellation.
func (s *ChatService) Reply(ctx context.Context, in ReplyInput) (ReplyOutput, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return ReplyOutput{}, newError(ErrorInvalidInput, "missing_user_id", nil)
	}
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return ReplyOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	if len(message) > maxMessageLen {
		return ReplyOutput{}, newError(ErrorInvalidInput, "message_too_long", nil)
	}

	settings, err := resolveSettings(ctx, s.store, in.UserID)
	if err != nil {
		return ReplyOutput{}, err
	}

	convID := strings.TrimSpace(in.ConversationID)
	if convID == "" {
		convID, _ = reqctx.ConversationID(ctx)
	}
	if convID == "" {
		convID = newUUID()
	}
	th := s.threadFor(convID)

	th.mu.Lock()
	replies := th.replies
	history := make([]domain.Turn, len(th.turns))
	copy(history, th.turns)
	th.mu.Unlock()

	if replies >= settings.ReplyLimit {
		return ReplyOutput{
			Text:           fmt.Sprintf("We've hit my %d-reply limit for this thread. Start a fresh one!", settings.ReplyLimit),
			ConversationID: convID,
		}, nil
	}

	messages := buildChatMessages(s.personaPrompt(ctx, settings.Role), history, message)

	answer, err := s.llm.Chat(ctx, settings.Engine, messages, domain.ChatOptions{
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ReplyOutput{}, newError(ErrorCanceled, "chat_canceled", ctx.Err())
		}
		s.log.Error("chat completion failed", "user_id", in.UserID, "engine", settings.Engine, "err", err)
		return ReplyOutput{Text: apologyReply, ConversationID: convID}, nil
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		s.log.Error("chat completion returned empty text", "user_id", in.UserID, "engine", settings.Engine)
		return ReplyOutput{Text: apologyReply, ConversationID: convID}, nil
	}

	// A canceled operation must not leave a partially-appended turn.
	if ctx.Err() != nil {
		return ReplyOutput{}, newError(ErrorCanceled, "chat_canceled", ctx.Err())
	}

	turns := s.appendTurn(th, domain.Turn{Question: message, Answer: answer, At: time.Now()})

	if archiveErr := s.archiver.ArchiveTurn(ctx, in.UserID, convID, message, answer, turns); archiveErr != nil {
		s.log.Warn("turn archive failed", "user_id", in.UserID, "conversation_id", convID, "err", archiveErr)
	}

	return ReplyOutput{Text: answer, ConversationID: convID}, nil
}

// Compliment generates a one-off compliment for targetUser (or the
// acting user when empty). Not part of any thread.
func (s *ChatService) Compliment(ctx context.Context, userID, targetUser string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", newError(ErrorInvalidInput, "missing_user_id", nil)
	}

	settings, err := resolveSettings(ctx, s.store, userID)
	if err != nil {
		return "", err
	}
	if !settings.FeatureEnabled(domain.FeatureCompliment) {
		return "Compliments are switched off for you.", nil
	}

	targetUser = strings.TrimSpace(targetUser)
	if targetUser == "" {
		targetUser = userID
	}

	answer, err := s.llm.Chat(ctx, settings.Engine, buildComplimentMessages(targetUser), domain.ChatOptions{
		Temperature: 1.0,
		MaxTokens:   80,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", newError(ErrorCanceled, "compliment_canceled", ctx.Err())
		}
		s.log.Error("compliment completion failed", "user_id", userID, "err", err)
		return apologyReply, nil
	}
	return strings.TrimSpace(answer), nil
}

// ThreadLen reports how many turns a thread currently retains.
func (s *ChatService) ThreadLen(conversationID string) int {
	th := s.threadFor(conversationID)
	th.mu.Lock()
	defer th.mu.Unlock()
	return len(th.turns)
}

func (s *ChatService) threadFor(conversationID string) *thread {
	s.threadsMu.Lock()
	defer s.threadsMu.Unlock()
	th, ok := s.threads[conversationID]
	if !ok {
		th = &thread{}
		s.threads[conversationID] = th
	}
	return th
}

// appendTurn appends under the thread lock, evicting the oldest turn
// once the retention bound is exceeded, and returns the thread's total
// turn count. The total keeps growing past eviction so it matches what
// the archive holds, not what memory retains.
func (s *ChatService) appendTurn(th *thread, turn domain.Turn) int {
	th.mu.Lock()
	defer th.mu.Unlock()
	th.turns = append(th.turns, turn)
	if len(th.turns) > s.maxTurns {
		th.turns = th.turns[1:]
	}
	th.replies++
	return th.replies
}

// personaPrompt returns the system prompt for a role: an SSM override
// under <prefix>/prompts/<role> when present, the builtin otherwise.
// Resolved once per role per process.
func (s *ChatService) personaPrompt(ctx context.Context, role string) string {
	s.promptMu.RLock()
	if p, ok := s.promptCache[role]; ok {
		s.promptMu.RUnlock()
		return p
	}
	s.promptMu.RUnlock()

	prompt := builtinPersonaPrompt(role)
	override, err := s.params.GetParameter(ctx, s.paramPrefix+"/prompts/"+role)
	switch {
	case err == nil && strings.TrimSpace(override) != "":
		prompt = strings.TrimSpace(override)
	case err != nil && !errors.Is(err, domain.ErrParameterNotFound):
		s.log.Warn("prompt override lookup failed, using builtin", "role", role, "err", err)
	}

	s.promptMu.Lock()
	defer s.promptMu.Unlock()
	if p, ok := s.promptCache[role]; ok {
		return p
	}
	s.promptCache[role] = prompt
	return prompt
}

var newUUID = func() string {
	return uuid.NewString()
}
