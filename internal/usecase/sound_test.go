package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LiquidSpot/TwitchAI-sub001/internal/gate"
)

type mockEngine struct {
	mu         sync.Mutex
	triggers   []string
	setupErr   error
	playErr    error
	setupCalls int
	played     []string
}

func (m *mockEngine) Setup(_ context.Context, _ string, _ time.Duration) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setupCalls++
	return m.triggers, m.setupErr
}

func (m *mockEngine) Play(_ context.Context, trigger string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.played = append(m.played, trigger)
	return m.playErr
}

func newTestSoundService(t *testing.T, engine AlertEngine) (*SoundService, *gate.Gate) {
	t.Helper()
	g, err := gate.New(10 * time.Second)
	require.NoError(t, err)
	svc, err := NewSoundService(engine, g, slog.Default(), "/srv/sounds", 10*time.Second)
	require.NoError(t, err)
	return svc, g
}

// waitReady drives the lazy setup to completion the way first chat
// triggers would, then waits for the background run to finish.
func waitReady(t *testing.T, svc *SoundService, g *gate.Gate) {
	t.Helper()
	out, err := svc.Trigger(context.Background(), "airhorn")
	require.NoError(t, err)
	require.Contains(t, out, "warming up")

	require.Eventually(t, g.Ready, time.Second, 5*time.Millisecond)
}

func TestNewSoundService_ValidatesDependencies(t *testing.T) {
	g, err := gate.New(time.Second)
	require.NoError(t, err)

	_, err = NewSoundService(nil, g, slog.Default(), "/srv/sounds", time.Second)
	require.Error(t, err)
	_, err = NewSoundService(&mockEngine{}, nil, slog.Default(), "/srv/sounds", time.Second)
	require.Error(t, err)
	_, err = NewSoundService(&mockEngine{}, g, nil, "/srv/sounds", time.Second)
	require.Error(t, err)
	_, err = NewSoundService(&mockEngine{}, g, slog.Default(), " ", time.Second)
	require.Error(t, err)
}

func TestTrigger_NotReadyAnswersWarmingUp(t *testing.T) {
	engine := &mockEngine{triggers: []string{"airhorn"}}
	svc, g := newTestSoundService(t, engine)

	waitReady(t, svc, g)
	require.Equal(t, 1, engine.setupCalls)
	require.Empty(t, engine.played, "nothing plays before ready")
}

func TestTrigger_PlaysAfterSetup(t *testing.T) {
	engine := &mockEngine{triggers: []string{"airhorn", "drum"}}
	svc, g := newTestSoundService(t, engine)
	waitReady(t, svc, g)

	out, err := svc.Trigger(context.Background(), "play the AIRHORN please")
	require.NoError(t, err)
	require.Equal(t, "Played airhorn!", out)
	require.Equal(t, []string{"airhorn"}, engine.played)
}

func TestTrigger_UnknownSoundIsSoftLine(t *testing.T) {
	engine := &mockEngine{triggers: []string{"airhorn"}}
	svc, g := newTestSoundService(t, engine)
	waitReady(t, svc, g)

	out, err := svc.Trigger(context.Background(), "kazoo")
	require.NoError(t, err)
	require.Equal(t, "I don't have a sound like that.", out)
}

func TestTrigger_CooldownDenialIsSoftLine(t *testing.T) {
	engine := &mockEngine{triggers: []string{"drum"}}
	svc, g := newTestSoundService(t, engine)
	waitReady(t, svc, g)

	out, err := svc.Trigger(context.Background(), "drum")
	require.NoError(t, err)
	require.Equal(t, "Played drum!", out)

	out, err = svc.Trigger(context.Background(), "drum")
	require.NoError(t, err)
	require.Contains(t, out, "cooling down")
	require.Len(t, engine.played, 1)
}

func TestTrigger_SetupFailureStaysNotReadyAndRetries(t *testing.T) {
	engine := &mockEngine{triggers: []string{"drum"}, setupErr: errors.New("dir missing")}
	svc, g := newTestSoundService(t, engine)

	_, err := svc.Trigger(context.Background(), "drum")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		engine.mu.Lock()
		defer engine.mu.Unlock()
		return engine.setupCalls == 1
	}, time.Second, 5*time.Millisecond)
	require.False(t, g.Ready())

	// Next trigger retries setup, which now succeeds.
	engine.mu.Lock()
	engine.setupErr = nil
	engine.mu.Unlock()
	_, err = svc.Trigger(context.Background(), "drum")
	require.NoError(t, err)
	require.Eventually(t, g.Ready, time.Second, 5*time.Millisecond)
}

func TestTrigger_PlayFailureIsUpstreamError(t *testing.T) {
	engine := &mockEngine{triggers: []string{"drum"}, playErr: errors.New("daemon gone")}
	svc, g := newTestSoundService(t, engine)
	waitReady(t, svc, g)

	_, err := svc.Trigger(context.Background(), "drum")
	expectUsecaseError(t, err, ErrorUpstream, "sound_play_error")
}

func TestTrigger_CancellationBeforePlay(t *testing.T) {
	engine := &mockEngine{triggers: []string{"drum"}}
	svc, g := newTestSoundService(t, engine)
	waitReady(t, svc, g)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Trigger(ctx, "drum")
	expectUsecaseError(t, err, ErrorCanceled, "sound_canceled")
	require.Empty(t, engine.played)
}
