package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LiquidSpot/TwitchAI-sub001/internal/domain"
	"github.com/LiquidSpot/TwitchAI-sub001/internal/reqctx"
)

// Shared mocks for the usecase package tests.

type mockStore struct {
	settings map[string]domain.UserAiSettings
	getErr   error
	putErr   error
	saved    *domain.UserAiSettings
}

func (m *mockStore) GetSettings(_ context.Context, userID string) (domain.UserAiSettings, bool, error) {
	if m.getErr != nil {
		return domain.UserAiSettings{}, false, m.getErr
	}
	s, ok := m.settings[userID]
	return s, ok, nil
}

func (m *mockStore) PutSettings(_ context.Context, settings domain.UserAiSettings) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.saved = &settings
	return nil
}

type mockLLM struct {
	answer    string
	err       error
	callCount int

	lastModel    string
	lastMessages []domain.ChatMessage
	lastOpts     domain.ChatOptions
}

func (m *mockLLM) Chat(_ context.Context, model string, messages []domain.ChatMessage, opts domain.ChatOptions) (string, error) {
	m.callCount++
	m.lastModel = model
	m.lastMessages = messages
	m.lastOpts = opts
	return m.answer, m.err
}

// cancelingLLM cancels the operation while the provider call is in
// flight, simulating a caller abort mid-request.
type cancelingLLM struct {
	cancel context.CancelFunc
	answer string
}

func (c *cancelingLLM) Chat(context.Context, string, []domain.ChatMessage, domain.ChatOptions) (string, error) {
	c.cancel()
	return c.answer, nil
}

type mockParams struct {
	vals map[string]string
	err  error
}

func (m *mockParams) GetParameter(_ context.Context, name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.vals[name]
	if !ok {
		return "", fmt.Errorf("param %s: %w", name, domain.ErrParameterNotFound)
	}
	return v, nil
}

type mockArchiver struct {
	err     error
	userID  string
	convID  string
	turns   int
	invoked bool
}

func (m *mockArchiver) ArchiveTurn(_ context.Context, userID, conversationID, _, _ string, turns int) error {
	m.invoked = true
	m.userID = userID
	m.convID = conversationID
	m.turns = turns
	return m.err
}

func emptyParams() *mockParams { return &mockParams{vals: map[string]string{}} }

func expectUsecaseError(t *testing.T, err error, code ErrorCode, reason string) {
	t.Helper()
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, code, ucErr.Code)
	require.Equal(t, reason, ucErr.Reason)
}

func newTestChatService(t *testing.T, llm LLMClient, store SettingsStore, archiver TurnArchiver) *ChatService {
	t.Helper()
	svc, err := NewChatService(llm, store, emptyParams(), archiver, slog.Default(), "/twitchai", 10)
	require.NoError(t, err)
	return svc
}

func TestNewChatService_ValidatesDependencies(t *testing.T) {
	llm := &mockLLM{}
	store := &mockStore{}
	arch := &mockArchiver{}
	log := slog.Default()

	_, err := NewChatService(nil, store, emptyParams(), arch, log, "/p", 10)
	require.Error(t, err)
	_, err = NewChatService(llm, nil, emptyParams(), arch, log, "/p", 10)
	require.Error(t, err)
	_, err = NewChatService(llm, store, nil, arch, log, "/p", 10)
	require.Error(t, err)
	_, err = NewChatService(llm, store, emptyParams(), nil, log, "/p", 10)
	require.Error(t, err)
	_, err = NewChatService(llm, store, emptyParams(), arch, nil, "/p", 10)
	require.Error(t, err)
	_, err = NewChatService(llm, store, emptyParams(), arch, log, "  ", 10)
	require.Error(t, err)
}

func TestReply_ValidationErrors(t *testing.T) {
	svc := newTestChatService(t, &mockLLM{}, &mockStore{}, &mockArchiver{})

	_, err := svc.Reply(context.Background(), ReplyInput{UserID: "", Message: "hi"})
	expectUsecaseError(t, err, ErrorInvalidInput, "missing_user_id")

	_, err = svc.Reply(context.Background(), ReplyInput{UserID: "u1", Message: "   "})
	expectUsecaseError(t, err, ErrorInvalidInput, "empty_message")

	_, err = svc.Reply(context.Background(), ReplyInput{UserID: "u1", Message: strings.Repeat("a", 501)})
	expectUsecaseError(t, err, ErrorInvalidInput, "message_too_long")
}

func TestReply_HappyPathStartsThread(t *testing.T) {
	llm := &mockLLM{answer: "  hello chat!  "}
	arch := &mockArchiver{}
	svc := newTestChatService(t, llm, &mockStore{}, arch)

	out, err := svc.Reply(context.Background(), ReplyInput{UserID: "u1", Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, "hello chat!", out.Text)
	require.NotEmpty(t, out.ConversationID)
	require.Equal(t, 1, svc.ThreadLen(out.ConversationID))

	// Default settings drive the provider request.
	require.Equal(t, domain.KnownEngines[0], llm.lastModel)
	require.InDelta(t, 0.9, llm.lastOpts.Temperature, 0.001)
	require.Equal(t, 300, llm.lastOpts.MaxTokens)

	require.True(t, arch.invoked)
	require.Equal(t, "u1", arch.userID)
	require.Equal(t, out.ConversationID, arch.convID)
	require.Equal(t, 1, arch.turns)
}

func TestReply_ContinuesAmbientThread(t *testing.T) {
	llm := &mockLLM{answer: "reply"}
	svc := newTestChatService(t, llm, &mockStore{}, &mockArchiver{})

	ctx := reqctx.WithConversationID(context.Background(), "conv-1")
	_, err := svc.Reply(ctx, ReplyInput{UserID: "u1", Message: "first"})
	require.NoError(t, err)
	out, err := svc.Reply(ctx, ReplyInput{UserID: "u1", Message: "second"})
	require.NoError(t, err)

	require.Equal(t, "conv-1", out.ConversationID)
	require.Equal(t, 2, svc.ThreadLen("conv-1"))

	// The second request replays the completed first turn.
	require.Equal(t, "first", llm.lastMessages[1].Content)
	require.Equal(t, "reply", llm.lastMessages[2].Content)
	require.Equal(t, "second", llm.lastMessages[3].Content)
}

func TestReply_EvictsOldestBeyondBound(t *testing.T) {
	llm := &mockLLM{answer: "a"}
	store := &mockStore{settings: map[string]domain.UserAiSettings{
		"u1": {UserID: "u1", Role: domain.PersonaDefault, Engine: "gpt-4o", ReplyLimit: 50, Temperature: 0.5, MaxTokens: 100},
	}}
	svc, err := NewChatService(llm, store, emptyParams(), &mockArchiver{}, slog.Default(), "/p", 3)
	require.NoError(t, err)

	ctx := reqctx.WithConversationID(context.Background(), "conv-1")
	for i := 1; i <= 4; i++ {
		_, err := svc.Reply(ctx, ReplyInput{UserID: "u1", Message: fmt.Sprintf("q%d", i)})
		require.NoError(t, err)
	}

	require.Equal(t, 3, svc.ThreadLen("conv-1"))
	th := svc.threadFor("conv-1")
	require.Equal(t, "q2", th.turns[0].Question)
	require.Equal(t, "q4", th.turns[2].Question)
}

func TestReply_StopsAtReplyLimit(t *testing.T) {
	llm := &mockLLM{answer: "a"}
	store := &mockStore{settings: map[string]domain.UserAiSettings{
		"u1": {UserID: "u1", Role: domain.PersonaDefault, Engine: "gpt-4o", ReplyLimit: 2, Temperature: 0.5, MaxTokens: 100},
	}}
	svc := newTestChatService(t, llm, store, &mockArchiver{})

	ctx := reqctx.WithConversationID(context.Background(), "conv-1")
	for i := 0; i < 2; i++ {
		_, err := svc.Reply(ctx, ReplyInput{UserID: "u1", Message: "q"})
		require.NoError(t, err)
	}

	out, err := svc.Reply(ctx, ReplyInput{UserID: "u1", Message: "one more"})
	require.NoError(t, err)
	require.Contains(t, out.Text, "limit")
	require.Equal(t, 2, llm.callCount, "provider must not be called past the limit")
	require.Equal(t, 2, svc.ThreadLen("conv-1"))
}

func TestReply_LimitAboveRetentionBoundStillFires(t *testing.T) {
	llm := &mockLLM{answer: "a"}
	store := &mockStore{settings: map[string]domain.UserAiSettings{
		"u1": {UserID: "u1", Role: domain.PersonaDefault, Engine: "gpt-4o", ReplyLimit: 5, Temperature: 0.5, MaxTokens: 100},
	}}
	svc, err := NewChatService(llm, store, emptyParams(), &mockArchiver{}, slog.Default(), "/p", 3)
	require.NoError(t, err)

	// Eviction keeps only 3 turns in memory, so the limit of 5 must be
	// enforced against turns ever completed, not turns retained.
	ctx := reqctx.WithConversationID(context.Background(), "conv-1")
	for i := 1; i <= 5; i++ {
		out, err := svc.Reply(ctx, ReplyInput{UserID: "u1", Message: fmt.Sprintf("q%d", i)})
		require.NoError(t, err)
		require.Equal(t, "a", out.Text)
	}
	require.Equal(t, 3, svc.ThreadLen("conv-1"))

	out, err := svc.Reply(ctx, ReplyInput{UserID: "u1", Message: "q6"})
	require.NoError(t, err)
	require.Contains(t, out.Text, "5-reply limit")
	require.Equal(t, 5, llm.callCount, "provider must not be called past the limit")
}

func TestReply_ExplicitConversationIDWinsOverAmbient(t *testing.T) {
	llm := &mockLLM{answer: "a"}
	svc := newTestChatService(t, llm, &mockStore{}, &mockArchiver{})

	ctx := reqctx.WithConversationID(context.Background(), "ambient")
	out, err := svc.Reply(ctx, ReplyInput{UserID: "u1", Message: "hi", ConversationID: "explicit"})
	require.NoError(t, err)
	require.Equal(t, "explicit", out.ConversationID)
	require.Equal(t, 1, svc.ThreadLen("explicit"))
	require.Zero(t, svc.ThreadLen("ambient"))
}

func TestReply_ProviderFailureIsSoftApology(t *testing.T) {
	llm := &mockLLM{err: errors.New("openai 500")}
	svc := newTestChatService(t, llm, &mockStore{}, &mockArchiver{})

	out, err := svc.Reply(context.Background(), ReplyInput{UserID: "u1", Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, apologyReply, out.Text)
	require.NotEmpty(t, out.ConversationID)
	require.Zero(t, svc.ThreadLen(out.ConversationID), "failed turn must not be appended")
}

func TestReply_EmptyProviderTextIsSoftApology(t *testing.T) {
	llm := &mockLLM{answer: "   "}
	svc := newTestChatService(t, llm, &mockStore{}, &mockArchiver{})

	out, err := svc.Reply(context.Background(), ReplyInput{UserID: "u1", Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, apologyReply, out.Text)
}

func TestReply_CancellationLeavesNoPartialTurn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	llm := &cancelingLLM{cancel: cancel, answer: "too late"}
	svc := newTestChatService(t, llm, &mockStore{}, &mockArchiver{})

	ctx = reqctx.WithConversationID(ctx, "conv-1")
	_, err := svc.Reply(ctx, ReplyInput{UserID: "u1", Message: "hi"})
	expectUsecaseError(t, err, ErrorCanceled, "chat_canceled")
	require.Zero(t, svc.ThreadLen("conv-1"))
}

func TestReply_ArchiveFailureDoesNotFailTheReply(t *testing.T) {
	arch := &mockArchiver{err: errors.New("dynamodb down")}
	svc := newTestChatService(t, &mockLLM{answer: "ok"}, &mockStore{}, arch)

	out, err := svc.Reply(context.Background(), ReplyInput{UserID: "u1", Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, "ok", out.Text)
	require.True(t, arch.invoked)
}

func TestReply_SettingsReadErrorIsInternal(t *testing.T) {
	store := &mockStore{getErr: errors.New("table missing")}
	svc := newTestChatService(t, &mockLLM{answer: "ok"}, store, &mockArchiver{})

	_, err := svc.Reply(context.Background(), ReplyInput{UserID: "u1", Message: "hi"})
	expectUsecaseError(t, err, ErrorInternal, "settings_read_error")
}

func TestPersonaPrompt_SSMOverrideWins(t *testing.T) {
	llm := &mockLLM{answer: "ok"}
	params := &mockParams{vals: map[string]string{
		"/twitchai/prompts/pirate": "Ye be the saltiest bot afloat.",
	}}
	store := &mockStore{settings: map[string]domain.UserAiSettings{
		"u1": {UserID: "u1", Role: domain.PersonaPirate, Engine: "gpt-4o", ReplyLimit: 5, Temperature: 0.5, MaxTokens: 100},
	}}
	svc, err := NewChatService(llm, store, params, &mockArchiver{}, slog.Default(), "/twitchai", 10)
	require.NoError(t, err)

	_, err = svc.Reply(context.Background(), ReplyInput{UserID: "u1", Message: "ahoy"})
	require.NoError(t, err)
	require.Equal(t, "Ye be the saltiest bot afloat.", llm.lastMessages[0].Content)
}

func TestPersonaPrompt_FallsBackToBuiltin(t *testing.T) {
	llm := &mockLLM{answer: "ok"}
	svc := newTestChatService(t, llm, &mockStore{}, &mockArchiver{})

	_, err := svc.Reply(context.Background(), ReplyInput{UserID: "u1", Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, builtinPersonaPrompt(domain.PersonaDefault), llm.lastMessages[0].Content)
}

func TestCompliment(t *testing.T) {
	llm := &mockLLM{answer: "You have impeccable emote timing, mod_amy."}
	svc := newTestChatService(t, llm, &mockStore{}, &mockArchiver{})

	text, err := svc.Compliment(context.Background(), "u1", "mod_amy")
	require.NoError(t, err)
	require.Contains(t, text, "mod_amy")
	require.InDelta(t, 1.0, llm.lastOpts.Temperature, 0.001)

	// Disabled feature is a soft line, and the provider is not called.
	store := &mockStore{settings: map[string]domain.UserAiSettings{
		"u2": {UserID: "u2", Role: domain.PersonaDefault, Engine: "gpt-4o", ReplyLimit: 5,
			Disabled: map[domain.Feature]bool{domain.FeatureCompliment: true}},
	}}
	svc = newTestChatService(t, llm, store, &mockArchiver{})
	before := llm.callCount
	text, err = svc.Compliment(context.Background(), "u2", "")
	require.NoError(t, err)
	require.Contains(t, text, "switched off")
	require.Equal(t, before, llm.callCount)
}

func TestCompliment_ProviderFailureIsSoftApology(t *testing.T) {
	svc := newTestChatService(t, &mockLLM{err: errors.New("boom")}, &mockStore{}, &mockArchiver{})

	text, err := svc.Compliment(context.Background(), "u1", "mod_amy")
	require.NoError(t, err)
	require.Equal(t, apologyReply, text)
}
