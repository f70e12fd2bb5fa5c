package dispatch

import (
	"strconv"
	"strings"

	"github.com/LiquidSpot/TwitchAI-sub001/internal/domain"
)

// Request is one inbound chat event: the command verb, its argument
// tokens, the acting user, and an optional conversation thread to
// continue.
type Request struct {
	Verb           string
	Args           []string
	UserID         string
	ConversationID string
}

// Classify deterministically maps a request to exactly one Command
// variant, or reports no match. Unrecognized verbs are not errors; the
// dispatcher turns them into a neutral reply. Argument validation
// beyond shape belongs to the handlers.
func Classify(req Request) (domain.Command, bool) {
	verb := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(req.Verb, "!")))

	switch verb {
	case "ai", "chat":
		return domain.Command{Kind: domain.KindAiChat, AiChat: &domain.AiChatCommand{
			UserID:         req.UserID,
			Message:        strings.Join(req.Args, " "),
			ConversationID: req.ConversationID,
		}}, true

	case "role":
		return domain.Command{Kind: domain.KindChangeRole, ChangeRole: &domain.ChangeRoleCommand{
			UserID:   req.UserID,
			RoleName: firstArg(req.Args),
		}}, true

	case "engine":
		return domain.Command{Kind: domain.KindSetEngine, SetEngine: &domain.SetEngineCommand{
			UserID:     req.UserID,
			EngineName: firstArg(req.Args),
		}}, true

	case "limit":
		limit := -1
		if n, err := strconv.Atoi(firstArg(req.Args)); err == nil {
			limit = n
		}
		return domain.Command{Kind: domain.KindSetReplyLimit, SetReplyLimit: &domain.SetReplyLimitCommand{
			UserID: req.UserID,
			Limit:  limit,
		}}, true

	case "translate":
		var lang, message string
		if len(req.Args) > 0 {
			lang = req.Args[0]
			message = strings.Join(req.Args[1:], " ")
		}
		return domain.Command{Kind: domain.KindTranslate, Translate: &domain.TranslateCommand{
			UserID:   req.UserID,
			Language: lang,
			Message:  message,
		}}, true

	case "holiday":
		return domain.Command{Kind: domain.KindHolidayLookup, HolidayLookup: &domain.HolidayLookupCommand{
			UserID: req.UserID,
			Date:   firstArg(req.Args),
		}}, true

	case "sound":
		return domain.Command{Kind: domain.KindSoundTrigger, SoundTrigger: &domain.SoundTriggerCommand{
			RawMessage: strings.Join(req.Args, " "),
		}}, true

	case "fact":
		return domain.Command{Kind: domain.KindFact, Fact: &domain.FactCommand{
			UserID: req.UserID,
		}}, true

	case "compliment":
		return domain.Command{Kind: domain.KindCompliment, Compliment: &domain.ComplimentCommand{
			UserID:     req.UserID,
			TargetUser: firstArg(req.Args),
		}}, true

	case "viewers":
		return statsCommand(req.UserID, domain.StatViewers), true
	case "lurkers":
		return statsCommand(req.UserID, domain.StatLurkers), true
	case "active":
		return statsCommand(req.UserID, domain.StatActive), true
	}

	return domain.Command{}, false
}

func statsCommand(userID string, stat domain.StatKind) domain.Command {
	return domain.Command{Kind: domain.KindViewerStats, ViewerStats: &domain.ViewerStatsCommand{
		Stat:   stat,
		UserID: userID,
	}}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return strings.TrimSpace(args[0])
}
