package domain

// Feature names a toggleable bot behavior in UserAiSettings.
type Feature string

const (
	FeatureCompliment  Feature = "compliment"
	FeatureFact        Feature = "fact"
	FeatureHoliday     Feature = "holiday"
	FeatureTranslation Feature = "translation"
	FeatureSound       Feature = "sound"
	FeatureViewerStats Feature = "viewer_stats"
)

// Known persona roles. The change-role command validates against this
// set; anything else is rejected with a chat-facing message.
const (
	PersonaDefault   = "default"
	PersonaStreamer  = "streamer"
	PersonaSarcastic = "sarcastic"
	PersonaWholesome = "wholesome"
	PersonaPirate    = "pirate"
)

// KnownRoles lists the valid persona names in display order.
var KnownRoles = []string{
	PersonaDefault,
	PersonaStreamer,
	PersonaSarcastic,
	PersonaWholesome,
	PersonaPirate,
}

// KnownEngines lists the selectable provider models.
var KnownEngines = []string{
	"gpt-4o-mini",
	"gpt-4o",
	"gpt-3.5-turbo",
}

// UserAiSettings is the per-user bot configuration: persona role,
// provider engine, reply limit, and per-feature enable flags. Mutated
// only by the explicit settings commands; read by every handler that
// varies behavior per user.
type UserAiSettings struct {
	UserID      string
	Role        string
	Engine      string
	ReplyLimit  int
	Temperature float64
	MaxTokens   int
	Disabled    map[Feature]bool
}

// DefaultSettings returns the settings applied to a user who has never
// changed anything. All features start enabled.
func DefaultSettings(userID string) UserAiSettings {
	return UserAiSettings{
		UserID:      userID,
		Role:        PersonaDefault,
		Engine:      KnownEngines[0],
		ReplyLimit:  5,
		Temperature: 0.9,
		MaxTokens:   300,
		Disabled:    map[Feature]bool{},
	}
}

// FeatureEnabled reports whether a feature is enabled for this user.
// A nil Disabled map means nothing has been turned off.
func (s UserAiSettings) FeatureEnabled(f Feature) bool {
	if s.Disabled == nil {
		return true
	}
	return !s.Disabled[f]
}

// ValidRole reports whether name is one of the known persona roles.
func ValidRole(name string) bool {
	for _, r := range KnownRoles {
		if r == name {
			return true
		}
	}
	return false
}

// ValidEngine reports whether name is one of the selectable engines.
func ValidEngine(name string) bool {
	for _, e := range KnownEngines {
		if e == name {
			return true
		}
	}
	return false
}
