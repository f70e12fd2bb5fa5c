package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/LiquidSpot/TwitchAI-sub001/internal/domain"
)

// supportedLanguages maps the language codes the bot translates into.
var supportedLanguages = map[string]language.Tag{
	"ru": language.Russian,
	"en": language.English,
	"zh": language.Chinese,
	"ja": language.Japanese,
	"es": language.Spanish,
}

const (
	translateTemperature = 0.2
	translateMaxTokens   = 200
)

// TranslateService turns chat messages into one of the supported
// target languages via the AI provider.
type TranslateService struct {
	llm   LLMClient
	store SettingsStore
	log   *slog.Logger
}

// NewTranslateService creates a TranslateService.
func NewTranslateService(llm LLMClient, store SettingsStore, log *slog.Logger) (*TranslateService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: settings store must not be nil")
	}
	if log == nil {
		return nil, errors.New("usecase: logger must not be nil")
	}
	return &TranslateService{llm: llm, store: store, log: log}, nil
}

// Translate renders message in the target language, prefixed with the
// language's display name. An unsupported code is a soft failure
// listing the supported codes. Translations run with a low temperature
// and a small token budget regardless of the user's chat settings.
func (s *TranslateService) Translate(ctx context.Context, userID, lang, message string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", newError(ErrorInvalidInput, "missing_user_id", nil)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", newError(ErrorInvalidInput, "empty_message", nil)
	}

	settings, err := resolveSettings(ctx, s.store, userID)
	if err != nil {
		return "", err
	}
	if !settings.FeatureEnabled(domain.FeatureTranslation) {
		return "Translation is switched off for you.", nil
	}

	lang = strings.ToLower(strings.TrimSpace(lang))
	tag, ok := supportedLanguages[lang]
	if !ok {
		return fmt.Sprintf("I can only translate into: %s.", strings.Join(SupportedLanguageCodes(), ", ")), nil
	}
	languageName := display.English.Languages().Name(tag)

	translated, err := s.llm.Chat(ctx, settings.Engine, buildTranslationMessages(languageName, message), domain.ChatOptions{
		Temperature: translateTemperature,
		MaxTokens:   translateMaxTokens,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", newError(ErrorCanceled, "translate_canceled", ctx.Err())
		}
		s.log.Error("translation failed", "user_id", userID, "language", lang, "err", err)
		return apologyReply, nil
	}

	return fmt.Sprintf("%s: %s", languageName, strings.TrimSpace(translated)), nil
}

// SupportedLanguageCodes returns the supported codes sorted for stable
// chat output.
func SupportedLanguageCodes() []string {
	codes := make([]string, 0, len(supportedLanguages))
	for code := range supportedLanguages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
