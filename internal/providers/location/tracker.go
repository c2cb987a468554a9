// Package location remembers the last geofence the user crossed.
package location

import (
	"context"
	"sync"
	"time"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

type Tracker struct {
	mu      sync.RWMutex
	current core.Location
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Update records a geofence crossing. Older events do not override newer ones.
func (t *Tracker) Update(place string, entered bool, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if at.Before(t.current.UpdatedAt) {
		return
	}
	t.current = core.Location{Place: place, Entered: entered, UpdatedAt: at}
}

// Current never fails; an unknown location is the zero value.
func (t *Tracker) Current(_ context.Context) (core.Location, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current, nil
}
