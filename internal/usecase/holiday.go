package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/LiquidSpot/TwitchAI-sub001/internal/domain"
)

const holidayDateLayout = "2006-01-02"

// HolidayClient is the holiday-lookup collaborator. found is false when
// the date has no holiday.
type HolidayClient interface {
	TodayHoliday(ctx context.Context, date time.Time, lang string) (name string, found bool, err error)
}

// HolidayService answers "what holiday is it" for today or a given
// date.
type HolidayService struct {
	client HolidayClient
	store  SettingsStore
	log    *slog.Logger
	lang   string
	now    func() time.Time
}

// NewHolidayService creates a HolidayService. lang selects the name
// language for lookups ("en" for the English name, anything else for
// the local one); empty means "en".
func NewHolidayService(client HolidayClient, store SettingsStore, log *slog.Logger, lang string) (*HolidayService, error) {
	if client == nil {
		return nil, errors.New("usecase: holiday client must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: settings store must not be nil")
	}
	if log == nil {
		return nil, errors.New("usecase: logger must not be nil")
	}
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = "en"
	}
	return &HolidayService{client: client, store: store, log: log, lang: lang, now: time.Now}, nil
}

// Lookup reports the holiday on dateStr ("2006-01-02", today when
// empty). A date with no holiday is a soft outcome, not an error; an
// unparseable date gets a chat-facing usage line.
func (s *HolidayService) Lookup(ctx context.Context, userID, dateStr string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", newError(ErrorInvalidInput, "missing_user_id", nil)
	}

	settings, err := resolveSettings(ctx, s.store, userID)
	if err != nil {
		return "", err
	}
	if !settings.FeatureEnabled(domain.FeatureHoliday) {
		return "Holiday lookups are switched off for you.", nil
	}

	date := s.now()
	if strings.TrimSpace(dateStr) != "" {
		parsed, parseErr := time.Parse(holidayDateLayout, strings.TrimSpace(dateStr))
		if parseErr != nil {
			return fmt.Sprintf("I couldn't read that date. Use %s.", holidayDateLayout), nil
		}
		date = parsed
	}

	name, found, err := s.client.TodayHoliday(ctx, date, s.lang)
	if err != nil {
		if ctx.Err() != nil {
			return "", newError(ErrorCanceled, "holiday_canceled", ctx.Err())
		}
		s.log.Error("holiday lookup failed", "user_id", userID, "date", date.Format(holidayDateLayout), "err", err)
		return "", newError(ErrorUpstream, "holiday_lookup_error", err)
	}
	if !found {
		return fmt.Sprintf("No holiday on %s. Make your own occasion!", date.Format(holidayDateLayout)), nil
	}
	return fmt.Sprintf("It's %s on %s!", name, date.Format(holidayDateLayout)), nil
}
