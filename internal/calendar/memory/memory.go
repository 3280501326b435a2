// Package memory is an in-memory calendar collaborator, used by tests and
// as the default backend when no external calendar is configured.
package memory

import (
	"context"
	"sync"

	"github.com/omnitrack/ledger/internal/calendar"
	"github.com/omnitrack/ledger/internal/domain"
)

// Calendar stores projected events in a slice. Safe for concurrent use.
type Calendar struct {
	mu     sync.RWMutex
	events []domain.ProjectedEvent
}

// New creates an empty in-memory calendar.
func New() *Calendar {
	return &Calendar{}
}

// CreateEvent implements calendar.Calendar.
func (c *Calendar) CreateEvent(ctx context.Context, ev domain.ProjectedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

// DeleteByOrigin implements calendar.Calendar.
func (c *Calendar) DeleteByOrigin(ctx context.Context, originType, originID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.events[:0]
	removed := 0
	for _, ev := range c.events {
		if ev.OriginType == originType && ev.OriginID == originID {
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	c.events = kept
	return removed, nil
}

// EventsByOrigin returns every stored event with the given origin, in
// creation order.
func (c *Calendar) EventsByOrigin(originType, originID string) []domain.ProjectedEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []domain.ProjectedEvent
	for _, ev := range c.events {
		if ev.OriginType == originType && ev.OriginID == originID {
			result = append(result, ev)
		}
	}
	return result
}

// Len returns the total number of stored events.
func (c *Calendar) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}

// Ensure Calendar implements the collaborator interface.
var _ calendar.Calendar = (*Calendar)(nil)
