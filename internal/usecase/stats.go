package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/LiquidSpot/TwitchAI-sub001/internal/domain"
	"github.com/LiquidSpot/TwitchAI-sub001/internal/viewers"
)

// lurkerListCap bounds how many names a lurker reply spells out before
// summarizing; chat lines have to stay readable.
const lurkerListCap = 10

// StatsService formats viewer statistics for chat.
type StatsService struct {
	agg     *viewers.Aggregator
	store   SettingsStore
	log     *slog.Logger
	channel string
	window  time.Duration
}

// NewStatsService creates a StatsService for one channel.
func NewStatsService(agg *viewers.Aggregator, store SettingsStore, log *slog.Logger, channel string, window time.Duration) (*StatsService, error) {
	if agg == nil {
		return nil, errors.New("usecase: aggregator must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: settings store must not be nil")
	}
	if log == nil {
		return nil, errors.New("usecase: logger must not be nil")
	}
	if strings.TrimSpace(channel) == "" {
		return nil, errors.New("usecase: channel must not be empty")
	}
	if window <= 0 {
		return nil, errors.New("usecase: window must be positive")
	}
	return &StatsService{agg: agg, store: store, log: log, channel: channel, window: window}, nil
}

// Report answers one viewer-statistics question for chat.
func (s *StatsService) Report(ctx context.Context, userID string, stat domain.StatKind) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", newError(ErrorInvalidInput, "missing_user_id", nil)
	}

	settings, err := resolveSettings(ctx, s.store, userID)
	if err != nil {
		return "", err
	}
	if !settings.FeatureEnabled(domain.FeatureViewerStats) {
		return "Viewer stats are switched off for you.", nil
	}

	switch stat {
	case domain.StatViewers:
		current, err := s.agg.CurrentViewers(ctx, s.channel)
		if err != nil {
			return "", s.statsError(ctx, userID, stat, err)
		}
		return fmt.Sprintf("%d viewers are here right now.", len(current)), nil

	case domain.StatLurkers:
		silent, err := s.agg.SilentViewers(ctx, s.channel, s.window)
		if err != nil {
			return "", s.statsError(ctx, userID, stat, err)
		}
		if len(silent) == 0 {
			return "No lurkers — everyone is chatting!", nil
		}
		names := viewers.SortedNames(silent)
		if len(names) > lurkerListCap {
			return fmt.Sprintf("%d lurkers out there, including %s.", len(names), strings.Join(names[:lurkerListCap], ", ")), nil
		}
		return fmt.Sprintf("Lurkers (%d): %s.", len(names), strings.Join(names, ", ")), nil

	case domain.StatActive:
		active, err := s.agg.ActiveCount(ctx, s.channel, s.window)
		if err != nil {
			return "", s.statsError(ctx, userID, stat, err)
		}
		return fmt.Sprintf("%d viewers are actively chatting.", active), nil

	default:
		return "", newError(ErrorInvalidInput, "unknown_stat_kind", nil)
	}
}

func (s *StatsService) statsError(ctx context.Context, userID string, stat domain.StatKind, err error) error {
	if ctx.Err() != nil {
		return newError(ErrorCanceled, "stats_canceled", ctx.Err())
	}
	s.log.Error("viewer stats lookup failed", "user_id", userID, "stat", string(stat), "err", err)
	return newError(ErrorUpstream, "viewer_stats_error", err)
}
