// Package gate guards one-time lazy setup and per-key trigger cooldowns
// for a shared resource under concurrent access.
package gate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Status is the gate's setup lifecycle state.
type Status int

const (
	StatusNotReady Status = iota
	StatusInitializing
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusReady:
		return "ready"
	default:
		return "not ready"
	}
}

// InitFunc performs the expensive one-time initialization. It must not
// be assumed to hold any gate lock while running.
type InitFunc func(ctx context.Context) error

// Gate combines single-flight lazy setup with per-key cooldown
// enforcement. Setup transitions NotReady → Initializing → Ready; Ready
// is terminal for the process lifetime. A failed initialization returns
// the gate to NotReady so a later call can retry.
type Gate struct {
	cooldown time.Duration
	now      func() time.Time

	ready atomic.Bool

	mu       sync.Mutex
	status   Status
	inflight chan struct{}

	keysMu sync.Mutex
	keys   map[string]*keyState
}

type keyState struct {
	mu            sync.Mutex
	lastTriggered time.Time
}

// New creates a Gate with the given per-key cooldown duration.
func New(cooldown time.Duration) (*Gate, error) {
	if cooldown < 0 {
		return nil, errors.New("gate: cooldown must not be negative")
	}
	return &Gate{
		cooldown: cooldown,
		now:      time.Now,
		keys:     map[string]*keyState{},
	}, nil
}

// Ready reports whether setup has completed, without taking any lock.
func (g *Gate) Ready() bool {
	return g.ready.Load()
}

// State returns the current setup state.
func (g *Gate) State() Status {
	if g.ready.Load() {
		return StatusReady
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// EnsureReady runs init at most once. The first caller executes init
// outside the gate lock; concurrent callers wait for that single
// in-flight run (or their ctx) instead of starting their own. Once the
// gate is ready every subsequent call returns on the lock-free fast
// path.
func (g *Gate) EnsureReady(ctx context.Context, init InitFunc) error {
	if g.ready.Load() {
		return nil
	}
	if init == nil {
		return errors.New("gate: init must not be nil")
	}

	g.mu.Lock()
	switch g.status {
	case StatusReady:
		g.mu.Unlock()
		return nil
	case StatusInitializing:
		wait := g.inflight
		g.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
		if !g.ready.Load() {
			return errors.New("gate: initialization failed")
		}
		return nil
	}

	done := make(chan struct{})
	g.status = StatusInitializing
	g.inflight = done
	g.mu.Unlock()

	err := init(ctx)

	g.mu.Lock()
	if err != nil {
		g.status = StatusNotReady
	} else {
		g.status = StatusReady
		g.ready.Store(true)
	}
	g.inflight = nil
	g.mu.Unlock()
	close(done)

	return err
}

// TryTrigger reports whether key may fire now. On allowed it atomically
// records the trigger time before returning, so two racing callers for
// the same key cannot both succeed. On denied it returns the remaining
// cooldown; denial is a normal outcome, not an error. Distinct keys
// never contend with each other.
func (g *Gate) TryTrigger(key string) (bool, time.Duration) {
	ks := g.keyFor(key)

	ks.mu.Lock()
	defer ks.mu.Unlock()

	now := g.now()
	if !ks.lastTriggered.IsZero() {
		elapsed := now.Sub(ks.lastTriggered)
		if elapsed < g.cooldown {
			return false, g.cooldown - elapsed
		}
	}
	ks.lastTriggered = now
	return true, 0
}

func (g *Gate) keyFor(key string) *keyState {
	g.keysMu.Lock()
	defer g.keysMu.Unlock()
	ks, ok := g.keys[key]
	if !ok {
		ks = &keyState{}
		g.keys[key] = ks
	}
	return ks
}
