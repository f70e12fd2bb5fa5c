// Package viewers derives current/silent/active viewer sets from
// platform presence and in-process chat participation samples.
package viewers

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// PresenceLister is the platform-side collaborator that reports who is
// currently connected to a channel's chat.
type PresenceLister interface {
	CurrentPresence(ctx context.Context, channel string) ([]string, error)
}

type chatEvent struct {
	user string
	at   time.Time
}

// Tracker records chat participation events per channel. The dispatcher
// feeds it one event per inbound chat line; the aggregator reads it to
// tell silent viewers from active ones.
type Tracker struct {
	mu     sync.Mutex
	events map[string][]chatEvent
	retain time.Duration
	now    func() time.Time
}

// NewTracker creates a Tracker that retains participation events for at
// least retain before pruning.
func NewTracker(retain time.Duration) (*Tracker, error) {
	if retain <= 0 {
		return nil, errors.New("viewers: retain duration must be positive")
	}
	return &Tracker{
		events: map[string][]chatEvent{},
		retain: retain,
		now:    time.Now,
	}, nil
}

// RecordMessage notes that user produced a chat message on channel now.
func (t *Tracker) RecordMessage(channel, user string) {
	channel = normalize(channel)
	user = normalize(user)
	if channel == "" || user == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.events[channel] = append(t.pruneLocked(channel, now), chatEvent{user: user, at: now})
}

// Participants returns the users who chatted on channel within the
// half-open window (now-window, now]. No data yields an empty set.
func (t *Tracker) Participants(channel string, window time.Duration) map[string]struct{} {
	channel = normalize(channel)

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	cutoff := now.Add(-window)
	out := map[string]struct{}{}
	for _, ev := range t.events[channel] {
		if ev.at.After(cutoff) && !ev.at.After(now) {
			out[ev.user] = struct{}{}
		}
	}
	return out
}

func (t *Tracker) pruneLocked(channel string, now time.Time) []chatEvent {
	cutoff := now.Add(-t.retain)
	evs := t.events[channel]
	kept := evs[:0]
	for _, ev := range evs {
		if ev.at.After(cutoff) {
			kept = append(kept, ev)
		}
	}
	return kept
}

// Aggregator computes viewer statistics by combining platform presence
// with tracked chat participation.
type Aggregator struct {
	platform PresenceLister
	tracker  *Tracker
}

// NewAggregator creates an Aggregator.
func NewAggregator(platform PresenceLister, tracker *Tracker) (*Aggregator, error) {
	if platform == nil {
		return nil, errors.New("viewers: presence lister must not be nil")
	}
	if tracker == nil {
		return nil, errors.New("viewers: tracker must not be nil")
	}
	return &Aggregator{platform: platform, tracker: tracker}, nil
}

// CurrentViewers returns the set of identities present in channel right
// now. Duplicate identities across presence samples collapse into one.
// An empty channel yields an empty set, not an error.
func (a *Aggregator) CurrentViewers(ctx context.Context, channel string) (map[string]struct{}, error) {
	channel = normalize(channel)
	if channel == "" {
		return map[string]struct{}{}, nil
	}

	present, err := a.platform.CurrentPresence(ctx, channel)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(present))
	for _, id := range present {
		id = normalize(id)
		if id != "" {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

// SilentViewers returns viewers present in channel who produced zero
// chat messages within window.
func (a *Aggregator) SilentViewers(ctx context.Context, channel string, window time.Duration) (map[string]struct{}, error) {
	current, err := a.CurrentViewers(ctx, channel)
	if err != nil {
		return nil, err
	}
	return a.silentOf(current, channel, window), nil
}

// ActiveCount returns |current| - |silent| for the channel and window.
// Both sets derive from one presence snapshot, so the count can never
// go negative.
func (a *Aggregator) ActiveCount(ctx context.Context, channel string, window time.Duration) (int, error) {
	current, err := a.CurrentViewers(ctx, channel)
	if err != nil {
		return 0, err
	}
	silent := a.silentOf(current, channel, window)
	return len(current) - len(silent), nil
}

// silentOf filters a presence set down to members with no recorded
// chat message inside window.
func (a *Aggregator) silentOf(current map[string]struct{}, channel string, window time.Duration) map[string]struct{} {
	active := a.tracker.Participants(channel, window)
	silent := map[string]struct{}{}
	for id := range current {
		if _, chatted := active[id]; !chatted {
			silent[id] = struct{}{}
		}
	}
	return silent
}

// SortedNames returns a set's members sorted for stable chat output.
func SortedNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for id := range set {
		names = append(names, id)
	}
	sort.Strings(names)
	return names
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
