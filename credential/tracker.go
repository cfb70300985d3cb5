package credential

import (
	"context"
	"sync"

	"chatwidget/models"
)

// Tracker holds the validation state of one page session. Each change of
// the credential field takes a new generation; a probe result lands only if
// its generation is still the newest, so overlapping probes resolve in input
// order regardless of completion order.
type Tracker struct {
	mu         sync.Mutex
	generation uint64
	status     models.ValidationStatus
	cancel     context.CancelFunc
}

// NewTracker creates a tracker in the unknown state
func NewTracker() *Tracker {
	return &Tracker{status: models.StatusUnknown}
}

// Begin starts a probe generation. The previous in-flight probe, if any, is
// cancelled. The returned cancel must be called when the probe finishes.
func (t *Tracker) Begin(parent context.Context) (uint64, context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	t.generation++
	t.cancel = cancel
	return t.generation, ctx, cancel
}

// Reset handles an emptied field: the status returns to unknown and any
// in-flight probe becomes stale.
func (t *Tracker) Reset() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.generation++
	t.status = models.StatusUnknown
	return t.generation
}

// Resolve applies a probe result if gen is still current. It returns the
// status after the call and whether the result was applied.
func (t *Tracker) Resolve(gen uint64, ok bool) (models.ValidationStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		return t.status, false
	}
	t.status = models.StatusFromProbe(ok)
	t.cancel = nil
	return t.status, true
}

// Status returns the current status and generation
func (t *Tracker) Status() (models.ValidationStatus, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.generation
}
