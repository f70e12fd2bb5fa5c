package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/LiquidSpot/TwitchAI-sub001/internal/gate"
)

// AlertEngine is the audio-playback collaborator. Setup loads the sound
// resource directory and returns the available trigger names.
type AlertEngine interface {
	Setup(ctx context.Context, resourceDir string, cooldown time.Duration) ([]string, error)
	Play(ctx context.Context, trigger string) error
}

// SoundService fires sound alerts off chat messages. Setup happens
// lazily on first use behind the gate; triggers during setup are
// rejected with a "warming up" line rather than blocking the chat
// pipeline.
type SoundService struct {
	engine      AlertEngine
	gate        *gate.Gate
	log         *slog.Logger
	resourceDir string
	cooldown    time.Duration

	triggersMu sync.RWMutex
	triggers   map[string]struct{}
}

// NewSoundService creates a SoundService.
func NewSoundService(engine AlertEngine, g *gate.Gate, log *slog.Logger, resourceDir string, cooldown time.Duration) (*SoundService, error) {
	if engine == nil {
		return nil, errors.New("usecase: alert engine must not be nil")
	}
	if g == nil {
		return nil, errors.New("usecase: gate must not be nil")
	}
	if log == nil {
		return nil, errors.New("usecase: logger must not be nil")
	}
	if strings.TrimSpace(resourceDir) == "" {
		return nil, errors.New("usecase: resource directory must not be empty")
	}
	return &SoundService{
		engine:      engine,
		gate:        g,
		log:         log,
		resourceDir: resourceDir,
		cooldown:    cooldown,
		triggers:    map[string]struct{}{},
	}, nil
}

// Trigger scans rawMessage for a known sound trigger and plays it,
// subject to the per-trigger cooldown. Before the engine is ready the
// first call starts setup in the background and every call answers
// "warming up" instead of waiting.
func (s *SoundService) Trigger(ctx context.Context, rawMessage string) (string, error) {
	if !s.gate.Ready() {
		s.startSetup()
		return "The soundboard is still warming up. Try again in a moment!", nil
	}

	trigger, ok := s.matchTrigger(rawMessage)
	if !ok {
		return "I don't have a sound like that.", nil
	}

	// Check cancellation before consuming the cooldown, so an aborted
	// operation leaves the trigger state untouched.
	if ctx.Err() != nil {
		return "", newError(ErrorCanceled, "sound_canceled", ctx.Err())
	}

	allowed, remaining := s.gate.TryTrigger(trigger)
	if !allowed {
		return fmt.Sprintf("%s is cooling down, %ds to go.", trigger, int(remaining.Round(time.Second).Seconds())), nil
	}
	if err := s.engine.Play(ctx, trigger); err != nil {
		s.log.Error("sound playback failed", "trigger", trigger, "err", err)
		return "", newError(ErrorUpstream, "sound_play_error", err)
	}
	return fmt.Sprintf("Played %s!", trigger), nil
}

// startSetup kicks off the one-time engine setup. The gate collapses
// concurrent starts into a single run; a detached context is used
// because setup outlives the chat event that first touched it.
func (s *SoundService) startSetup() {
	go func() {
		err := s.gate.EnsureReady(context.Background(), func(ctx context.Context) error {
			names, setupErr := s.engine.Setup(ctx, s.resourceDir, s.cooldown)
			if setupErr != nil {
				return setupErr
			}
			s.triggersMu.Lock()
			defer s.triggersMu.Unlock()
			for _, name := range names {
				name = strings.ToLower(strings.TrimSpace(name))
				if name != "" {
					s.triggers[name] = struct{}{}
				}
			}
			return nil
		})
		if err != nil {
			s.log.Error("soundboard setup failed", "resource_dir", s.resourceDir, "err", err)
		}
	}()
}

// matchTrigger returns the first word of the message that names a
// loaded sound.
func (s *SoundService) matchTrigger(rawMessage string) (string, bool) {
	s.triggersMu.RLock()
	defer s.triggersMu.RUnlock()
	for _, word := range strings.Fields(strings.ToLower(rawMessage)) {
		if _, ok := s.triggers[word]; ok {
			return word, true
		}
	}
	return "", false
}
