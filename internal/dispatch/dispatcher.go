package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/LiquidSpot/TwitchAI-sub001/internal/domain"
	"github.com/LiquidSpot/TwitchAI-sub001/internal/reqctx"
	"github.com/LiquidSpot/TwitchAI-sub001/internal/usecase"
	"github.com/LiquidSpot/TwitchAI-sub001/internal/viewers"
)

// neutralReply answers verbs the classifier does not recognize. The
// bot always produces a displayable line, never a raw error.
const neutralReply = "I don't know that command, sorry!"

// Result is what a handler hands back on success: the chat line and,
// for threaded replies, the conversation id to continue with.
type Result struct {
	Text           string
	ConversationID string
}

// HandlerFunc is the single piece of logic bound to one command kind.
type HandlerFunc func(ctx context.Context, cmd domain.Command) (Result, error)

// Middleware wraps a HandlerFunc with one cross-cutting behavior.
type Middleware func(HandlerFunc) HandlerFunc

// Service interfaces consumed by the dispatch table. Defined here so
// the dispatcher stays testable with stubs; the usecase package's
// concrete services satisfy them.
type (
	ChatService interface {
		Reply(ctx context.Context, in usecase.ReplyInput) (usecase.ReplyOutput, error)
		Compliment(ctx context.Context, userID, targetUser string) (string, error)
	}
	SettingsService interface {
		ChangeRole(ctx context.Context, userID, roleName string) (string, error)
		SetEngine(ctx context.Context, userID, engineName string) (string, error)
		SetReplyLimit(ctx context.Context, userID string, limit int) (string, error)
	}
	TranslateService interface {
		Translate(ctx context.Context, userID, lang, message string) (string, error)
	}
	HolidayService interface {
		Lookup(ctx context.Context, userID, dateStr string) (string, error)
	}
	SoundService interface {
		Trigger(ctx context.Context, rawMessage string) (string, error)
	}
	StatsService interface {
		Report(ctx context.Context, userID string, stat domain.StatKind) (string, error)
	}
	FactService interface {
		Tell(ctx context.Context, userID string) (string, error)
	}
)

// Deps are the collaborators one Dispatcher routes to.
type Deps struct {
	Log       *slog.Logger
	Chat      ChatService
	Settings  SettingsService
	Translate TranslateService
	Holiday   HolidayService
	Sound     SoundService
	Stats     StatsService
	Facts     FactService
	Tracker   *viewers.Tracker
	Channel   string
}

// Dispatcher classifies inbound chat events and routes each through the
// fixed middleware chain to the one handler registered for its command
// kind. The kind→handler table is static; nothing registers at runtime.
type Dispatcher struct {
	log      *slog.Logger
	handlers map[domain.CommandKind]HandlerFunc
	tracker  *viewers.Tracker
	channel  string
}

// New creates a Dispatcher and builds its static handler table.
func New(deps Deps) (*Dispatcher, error) {
	if deps.Log == nil {
		return nil, errors.New("dispatch: logger must not be nil")
	}
	if deps.Chat == nil || deps.Settings == nil || deps.Translate == nil ||
		deps.Holiday == nil || deps.Sound == nil || deps.Stats == nil || deps.Facts == nil {
		return nil, errors.New("dispatch: all services must be set")
	}
	if deps.Tracker == nil {
		return nil, errors.New("dispatch: tracker must not be nil")
	}
	if deps.Channel == "" {
		return nil, errors.New("dispatch: channel must not be empty")
	}

	d := &Dispatcher{
		log:     deps.Log,
		tracker: deps.Tracker,
		channel: deps.Channel,
	}
	d.handlers = map[domain.CommandKind]HandlerFunc{
		domain.KindAiChat: func(ctx context.Context, cmd domain.Command) (Result, error) {
			out, err := deps.Chat.Reply(ctx, usecase.ReplyInput{
				UserID:         cmd.AiChat.UserID,
				Message:        cmd.AiChat.Message,
				ConversationID: cmd.AiChat.ConversationID,
			})
			return Result{Text: out.Text, ConversationID: out.ConversationID}, err
		},
		domain.KindChangeRole: func(ctx context.Context, cmd domain.Command) (Result, error) {
			text, err := deps.Settings.ChangeRole(ctx, cmd.ChangeRole.UserID, cmd.ChangeRole.RoleName)
			return Result{Text: text}, err
		},
		domain.KindSetEngine: func(ctx context.Context, cmd domain.Command) (Result, error) {
			text, err := deps.Settings.SetEngine(ctx, cmd.SetEngine.UserID, cmd.SetEngine.EngineName)
			return Result{Text: text}, err
		},
		domain.KindSetReplyLimit: func(ctx context.Context, cmd domain.Command) (Result, error) {
			text, err := deps.Settings.SetReplyLimit(ctx, cmd.SetReplyLimit.UserID, cmd.SetReplyLimit.Limit)
			return Result{Text: text}, err
		},
		domain.KindTranslate: func(ctx context.Context, cmd domain.Command) (Result, error) {
			text, err := deps.Translate.Translate(ctx, cmd.Translate.UserID, cmd.Translate.Language, cmd.Translate.Message)
			return Result{Text: text}, err
		},
		domain.KindHolidayLookup: func(ctx context.Context, cmd domain.Command) (Result, error) {
			text, err := deps.Holiday.Lookup(ctx, cmd.HolidayLookup.UserID, cmd.HolidayLookup.Date)
			return Result{Text: text}, err
		},
		domain.KindSoundTrigger: func(ctx context.Context, cmd domain.Command) (Result, error) {
			text, err := deps.Sound.Trigger(ctx, cmd.SoundTrigger.RawMessage)
			return Result{Text: text}, err
		},
		domain.KindFact: func(ctx context.Context, cmd domain.Command) (Result, error) {
			text, err := deps.Facts.Tell(ctx, cmd.Fact.UserID)
			return Result{Text: text}, err
		},
		domain.KindCompliment: func(ctx context.Context, cmd domain.Command) (Result, error) {
			text, err := deps.Chat.Compliment(ctx, cmd.Compliment.UserID, cmd.Compliment.TargetUser)
			return Result{Text: text}, err
		},
		domain.KindViewerStats: func(ctx context.Context, cmd domain.Command) (Result, error) {
			text, err := deps.Stats.Report(ctx, cmd.ViewerStats.UserID, cmd.ViewerStats.Stat)
			return Result{Text: text}, err
		},
	}
	return d, nil
}

// Dispatch is the caller-facing boundary: one inbound chat event in,
// one envelope out. It establishes the operation's ambient context,
// records chat participation, classifies the event, and runs the
// middleware chain. The caller never needs to catch anything.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Envelope {
	ctx = reqctx.WithRequestID(ctx, uuid.NewString())
	ctx = reqctx.WithUserID(ctx, req.UserID)
	if req.ConversationID != "" {
		ctx = reqctx.WithConversationID(ctx, req.ConversationID)
	}

	d.tracker.RecordMessage(d.channel, req.UserID)

	cmd, ok := Classify(req)
	if !ok {
		d.log.Info("unrecognized verb",
			"verb", req.Verb,
			"user_id", req.UserID,
			"request_id", reqctx.RequestID(ctx))
		return Success(neutralReply)
	}

	h := wrap(d.handlers[cmd.Kind], d.withLogging(cmd), withRecovery, withCancellation)
	res, err := h(ctx, cmd)
	return toEnvelope(res, err)
}

// wrap applies middlewares so the first in the list ends up outermost:
// logging, then error containment, then the cancellation check, then
// the handler body. The order is fixed; handlers cannot opt out.
func wrap(h HandlerFunc, mws ...Middleware) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func (d *Dispatcher) withLogging(cmd domain.Command) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, c domain.Command) (Result, error) {
			d.log.Info("command received",
				"kind", string(cmd.Kind),
				"user_id", reqctx.UserID(ctx),
				"request_id", reqctx.RequestID(ctx))
			res, err := next(ctx, c)
			if err != nil {
				d.log.Error("command failed",
					"kind", string(cmd.Kind),
					"user_id", reqctx.UserID(ctx),
					"request_id", reqctx.RequestID(ctx),
					"err", err)
			}
			return res, err
		}
	}
}

// withRecovery contains handler panics so a single bad command cannot
// take the pipeline down; the panic surfaces as an internal error.
func withRecovery(next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, cmd domain.Command) (res Result, err error) {
		defer func() {
			if r := recover(); r != nil {
				res = Result{}
				err = fmt.Errorf("dispatch: handler panic: %v", r)
			}
		}()
		return next(ctx, cmd)
	}
}

// withCancellation observes the cancellation signal before the handler
// runs; handlers observe it again between external calls.
func withCancellation(next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, cmd domain.Command) (Result, error) {
		if err := ctx.Err(); err != nil {
			return Result{}, &usecase.Error{Code: usecase.ErrorCanceled, Reason: "canceled_before_handler", Err: err}
		}
		return next(ctx, cmd)
	}
}

// toEnvelope is the single place any failure becomes an error envelope.
func toEnvelope(res Result, err error) Envelope {
	if err == nil {
		env := Success(res.Text)
		env.ConversationID = res.ConversationID
		return env
	}

	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		switch ucErr.Code {
		case usecase.ErrorInvalidInput:
			return Failure(CodeInvalidInput, ucErr.Reason)
		case usecase.ErrorUpstream:
			return Failure(CodeUpstream, ucErr.Reason)
		case usecase.ErrorCanceled:
			return Failure(CodeCanceled, ucErr.Reason)
		default:
			return Failure(CodeInternal, ucErr.Reason)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Failure(CodeCanceled, "operation canceled")
	}
	return Failure(CodeInternal, "operation failed")
}
