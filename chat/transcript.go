package chat

import (
	"sync"

	"chatwidget/models"
)

// Transcript is the ordered, append-only list of turns for one page session
type Transcript struct {
	mu    sync.RWMutex
	turns []models.Turn
}

// NewTranscript creates an empty transcript
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds a turn at the end and returns its position
func (t *Transcript) Append(turn models.Turn) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = append(t.turns, turn)
	return len(t.turns) - 1
}

// Turns returns a copy of every turn in order
func (t *Transcript) Turns() []models.Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Len returns the number of turns
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}
