package usecase

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LiquidSpot/TwitchAI-sub001/internal/domain"
)

type mockHolidays struct {
	name     string
	found    bool
	err      error
	lastDate time.Time
	lastLang string
}

func (m *mockHolidays) TodayHoliday(_ context.Context, date time.Time, lang string) (string, bool, error) {
	m.lastDate = date
	m.lastLang = lang
	return m.name, m.found, m.err
}

func newTestHolidayService(t *testing.T, client HolidayClient, store SettingsStore) *HolidayService {
	t.Helper()
	svc, err := NewHolidayService(client, store, slog.Default(), "")
	require.NoError(t, err)
	return svc
}

func TestNewHolidayService_ValidatesDependencies(t *testing.T) {
	_, err := NewHolidayService(nil, &mockStore{}, slog.Default(), "en")
	require.Error(t, err)
	_, err = NewHolidayService(&mockHolidays{}, nil, slog.Default(), "en")
	require.Error(t, err)
	_, err = NewHolidayService(&mockHolidays{}, &mockStore{}, nil, "en")
	require.Error(t, err)
}

func TestLookup_TodayByDefault(t *testing.T) {
	client := &mockHolidays{name: "May Day", found: true}
	svc := newTestHolidayService(t, client, &mockStore{})
	today := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return today }

	out, err := svc.Lookup(context.Background(), "u1", "")
	require.NoError(t, err)
	require.Equal(t, "It's May Day on 2025-05-01!", out)
	require.Equal(t, today, client.lastDate)
	require.Equal(t, "en", client.lastLang)
}

func TestLookup_ConfiguredLanguageReachesClient(t *testing.T) {
	client := &mockHolidays{name: "День России", found: true}
	svc, err := NewHolidayService(client, &mockStore{}, slog.Default(), " RU ")
	require.NoError(t, err)

	out, err := svc.Lookup(context.Background(), "u1", "2025-06-12")
	require.NoError(t, err)
	require.Contains(t, out, "День России")
	require.Equal(t, "ru", client.lastLang)
}

func TestLookup_ExplicitDate(t *testing.T) {
	client := &mockHolidays{name: "New Year's Day", found: true}
	svc := newTestHolidayService(t, client, &mockStore{})

	out, err := svc.Lookup(context.Background(), "u1", "2026-01-01")
	require.NoError(t, err)
	require.Contains(t, out, "New Year's Day")
	require.Equal(t, 2026, client.lastDate.Year())
}

func TestLookup_NoHolidayIsSoftOutcome(t *testing.T) {
	svc := newTestHolidayService(t, &mockHolidays{found: false}, &mockStore{})

	out, err := svc.Lookup(context.Background(), "u1", "2025-03-04")
	require.NoError(t, err)
	require.Equal(t, "No holiday on 2025-03-04. Make your own occasion!", out)
}

func TestLookup_BadDateIsUsageLine(t *testing.T) {
	client := &mockHolidays{}
	svc := newTestHolidayService(t, client, &mockStore{})

	out, err := svc.Lookup(context.Background(), "u1", "yesterday")
	require.NoError(t, err)
	require.Contains(t, out, "2006-01-02")
	require.True(t, client.lastDate.IsZero(), "client must not be called for a bad date")
}

func TestLookup_ClientFailureIsUpstreamError(t *testing.T) {
	svc := newTestHolidayService(t, &mockHolidays{err: errors.New("api down")}, &mockStore{})

	_, err := svc.Lookup(context.Background(), "u1", "")
	expectUsecaseError(t, err, ErrorUpstream, "holiday_lookup_error")
}

func TestLookup_DisabledFeature(t *testing.T) {
	store := &mockStore{settings: map[string]domain.UserAiSettings{
		"u1": {UserID: "u1", Role: domain.PersonaDefault, Engine: "gpt-4o", ReplyLimit: 5,
			Disabled: map[domain.Feature]bool{domain.FeatureHoliday: true}},
	}}
	svc := newTestHolidayService(t, &mockHolidays{}, store)

	out, err := svc.Lookup(context.Background(), "u1", "")
	require.NoError(t, err)
	require.Contains(t, out, "switched off")
}

func TestLookup_MissingUser(t *testing.T) {
	svc := newTestHolidayService(t, &mockHolidays{}, &mockStore{})
	_, err := svc.Lookup(context.Background(), "", "")
	expectUsecaseError(t, err, ErrorInvalidInput, "missing_user_id")
}
