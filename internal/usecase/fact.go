package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/LiquidSpot/TwitchAI-sub001/internal/domain"
	"github.com/LiquidSpot/TwitchAI-sub001/internal/facts"
)

// FactService serves rotating chat facts.
type FactService struct {
	pool  *facts.Pool
	store SettingsStore
}

// NewFactService creates a FactService.
func NewFactService(pool *facts.Pool, store SettingsStore) (*FactService, error) {
	if pool == nil {
		return nil, errors.New("usecase: fact pool must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: settings store must not be nil")
	}
	return &FactService{pool: pool, store: store}, nil
}

// Tell returns the next fact in the rotation.
func (s *FactService) Tell(ctx context.Context, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", newError(ErrorInvalidInput, "missing_user_id", nil)
	}

	settings, err := resolveSettings(ctx, s.store, userID)
	if err != nil {
		return "", err
	}
	if !settings.FeatureEnabled(domain.FeatureFact) {
		return "Facts are switched off for you.", nil
	}

	return "Did you know? " + s.pool.Pick().Text, nil
}
