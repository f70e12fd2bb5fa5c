package domain

// CommandKind identifies one of the closed set of chat command variants.
type CommandKind string

const (
	KindAiChat        CommandKind = "ai_chat"
	KindChangeRole    CommandKind = "change_role"
	KindSetEngine     CommandKind = "set_engine"
	KindSetReplyLimit CommandKind = "set_reply_limit"
	KindTranslate     CommandKind = "translate"
	KindHolidayLookup CommandKind = "holiday_lookup"
	KindSoundTrigger  CommandKind = "sound_trigger"
	KindFact          CommandKind = "fact"
	KindCompliment    CommandKind = "compliment"
	KindViewerStats   CommandKind = "viewer_stats"
)

// StatKind selects which viewer statistic a ViewerStats command reports.
type StatKind string

const (
	StatViewers StatKind = "viewers"
	StatLurkers StatKind = "lurkers"
	StatActive  StatKind = "active"
)

// Command is a typed, immutable description of one unit of requested
// work classified from a raw chat line. Exactly one field is set,
// matching Kind. Variants carry everything their handler needs; none
// carries a live connection or mutable handle.
type Command struct {
	Kind CommandKind

	AiChat        *AiChatCommand
	ChangeRole    *ChangeRoleCommand
	SetEngine     *SetEngineCommand
	SetReplyLimit *SetReplyLimitCommand
	Translate     *TranslateCommand
	HolidayLookup *HolidayLookupCommand
	SoundTrigger  *SoundTriggerCommand
	Fact          *FactCommand
	Compliment    *ComplimentCommand
	ViewerStats   *ViewerStatsCommand
}

// AiChatCommand requests a (possibly multi-turn) AI chat reply.
// ConversationID is optional; when set, the reply continues that thread.
type AiChatCommand struct {
	UserID         string
	Message        string
	ConversationID string
}

type ChangeRoleCommand struct {
	UserID   string
	RoleName string
}

type SetEngineCommand struct {
	UserID     string
	EngineName string
}

type SetReplyLimitCommand struct {
	UserID string
	Limit  int
}

type TranslateCommand struct {
	UserID   string
	Language string
	Message  string
}

// HolidayLookupCommand looks up the holiday for Date ("2006-01-02"),
// or for today when Date is empty.
type HolidayLookupCommand struct {
	UserID string
	Date   string
}

// SoundTriggerCommand carries the raw message text; trigger extraction
// happens in the sound handler against the loaded alert lexicon.
type SoundTriggerCommand struct {
	RawMessage string
}

type FactCommand struct {
	UserID string
}

type ComplimentCommand struct {
	UserID     string
	TargetUser string
}

type ViewerStatsCommand struct {
	Stat   StatKind
	UserID string
}
