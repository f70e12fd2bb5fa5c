// Package facts rotates a pool of chat facts so repeated picks avoid
// recently used content until the pool is exhausted, then start over.
package facts

import (
	"errors"
	"sync"
	"time"

	"github.com/LiquidSpot/TwitchAI-sub001/internal/domain"
)

// Pool is a mutex-guarded rotating fact pool. Picking marks the chosen
// item used and timestamps it in the same critical section, so two
// concurrent picks can never both select the same "unused" item.
type Pool struct {
	mu    sync.Mutex
	items []domain.FactItem
	now   func() time.Time
}

// NewPool creates a Pool from the given fact texts.
func NewPool(texts []string) (*Pool, error) {
	if len(texts) == 0 {
		return nil, errors.New("facts: pool must not be empty")
	}
	items := make([]domain.FactItem, len(texts))
	for i, text := range texts {
		items[i] = domain.FactItem{Text: text}
	}
	return &Pool{items: items, now: time.Now}, nil
}

// Pick returns the first unused item, marking it used. When every item
// has been used the pool resets all flags first, so it never permanently
// exhausts. The returned item is a snapshot.
func (p *Pool) Pick() domain.FactItem {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.firstUnused()
	if idx < 0 {
		for i := range p.items {
			p.items[i].Used = false
		}
		idx = 0
	}
	p.items[idx].Used = true
	p.items[idx].LastUsed = p.now()
	return p.items[idx]
}

// Remaining returns how many items are still unused in the current
// rotation.
func (p *Pool) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, it := range p.items {
		if !it.Used {
			n++
		}
	}
	return n
}

func (p *Pool) firstUnused() int {
	for i, it := range p.items {
		if !it.Used {
			return i
		}
	}
	return -1
}
