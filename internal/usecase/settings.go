package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LiquidSpot/TwitchAI-sub001/internal/domain"
)

// SettingsStore is the persistence collaborator for per-user AI
// settings. found is false when the user has never saved anything.
type SettingsStore interface {
	GetSettings(ctx context.Context, userID string) (settings domain.UserAiSettings, found bool, err error)
	PutSettings(ctx context.Context, settings domain.UserAiSettings) error
}

const (
	minReplyLimit = 1
	maxReplyLimit = 50
)

// SettingsService applies the explicit settings commands (change role,
// set engine, set reply limit) and resolves effective settings for the
// other services.
type SettingsService struct {
	store SettingsStore
}

// NewSettingsService creates a SettingsService.
func NewSettingsService(store SettingsStore) (*SettingsService, error) {
	if store == nil {
		return nil, errors.New("usecase: settings store must not be nil")
	}
	return &SettingsService{store: store}, nil
}

// Resolve returns the user's stored settings, or the defaults when the
// user has never changed anything.
func (s *SettingsService) Resolve(ctx context.Context, userID string) (domain.UserAiSettings, error) {
	return resolveSettings(ctx, s.store, userID)
}

// ChangeRole validates and persists a new persona role. An unknown role
// name is a chat-facing soft failure listing the known roles, not an
// error.
func (s *SettingsService) ChangeRole(ctx context.Context, userID, roleName string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", newError(ErrorInvalidInput, "missing_user_id", nil)
	}
	roleName = strings.ToLower(strings.TrimSpace(roleName))
	if roleName == "" || !domain.ValidRole(roleName) {
		return fmt.Sprintf("I don't know that role. Try one of: %s.", strings.Join(domain.KnownRoles, ", ")), nil
	}

	settings, err := resolveSettings(ctx, s.store, userID)
	if err != nil {
		return "", err
	}
	settings.Role = roleName
	if err := s.store.PutSettings(ctx, settings); err != nil {
		return "", newError(ErrorInternal, "settings_write_error", err)
	}
	return fmt.Sprintf("Alright, from now on I'll answer as %s.", roleName), nil
}

// SetEngine validates and persists a new provider engine.
func (s *SettingsService) SetEngine(ctx context.Context, userID, engineName string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", newError(ErrorInvalidInput, "missing_user_id", nil)
	}
	engineName = strings.ToLower(strings.TrimSpace(engineName))
	if engineName == "" || !domain.ValidEngine(engineName) {
		return fmt.Sprintf("That engine isn't available. Pick one of: %s.", strings.Join(domain.KnownEngines, ", ")), nil
	}

	settings, err := resolveSettings(ctx, s.store, userID)
	if err != nil {
		return "", err
	}
	settings.Engine = engineName
	if err := s.store.PutSettings(ctx, settings); err != nil {
		return "", newError(ErrorInternal, "settings_write_error", err)
	}
	return fmt.Sprintf("Engine switched to %s.", engineName), nil
}

// SetReplyLimit persists a new per-conversation reply limit.
func (s *SettingsService) SetReplyLimit(ctx context.Context, userID string, limit int) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", newError(ErrorInvalidInput, "missing_user_id", nil)
	}
	if limit < minReplyLimit || limit > maxReplyLimit {
		return fmt.Sprintf("The reply limit has to be between %d and %d.", minReplyLimit, maxReplyLimit), nil
	}

	settings, err := resolveSettings(ctx, s.store, userID)
	if err != nil {
		return "", err
	}
	settings.ReplyLimit = limit
	if err := s.store.PutSettings(ctx, settings); err != nil {
		return "", newError(ErrorInternal, "settings_write_error", err)
	}
	return fmt.Sprintf("Got it, I'll reply up to %d times per conversation.", limit), nil
}

// resolveSettings loads stored settings, falling back to the defaults
// for a user with no saved record.
func resolveSettings(ctx context.Context, store SettingsStore, userID string) (domain.UserAiSettings, error) {
	settings, found, err := store.GetSettings(ctx, userID)
	if err != nil {
		return domain.UserAiSettings{}, newError(ErrorInternal, "settings_read_error", err)
	}
	if !found {
		return domain.DefaultSettings(userID), nil
	}
	return settings, nil
}
