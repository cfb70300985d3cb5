package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatwidget/chat"
	"chatwidget/credential"
	"chatwidget/telemetry"
)

// Session is the state of one page load: its transcript and the validation
// state of its credential field. The credential itself is never kept here.
type Session struct {
	ID         string
	Transcript *chat.Transcript
	Credential *credential.Tracker

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SessionStore holds live page sessions in memory
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	metrics  *telemetry.Metrics
	now      func() time.Time
}

// NewSessionStore creates a store whose sessions expire after ttl of inactivity
func NewSessionStore(ttl time.Duration, metrics *telemetry.Metrics) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Create mints a fresh session
func (st *SessionStore) Create() *Session {
	sess := &Session{
		ID:         uuid.NewString(),
		Transcript: chat.NewTranscript(),
		Credential: credential.NewTracker(),
		lastSeen:   st.now(),
	}

	st.mu.Lock()
	st.sessions[sess.ID] = sess
	n := len(st.sessions)
	st.mu.Unlock()

	st.metrics.SetSessions(n)
	return sess
}

// Get returns the session for id and marks it active
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, false
	}
	sess.touch(st.now())
	return sess, true
}

// Len returns the number of live sessions
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed
func (st *SessionStore) Sweep() int {
	if st.ttl <= 0 {
		return 0
	}
	cutoff := st.now().Add(-st.ttl)

	st.mu.Lock()
	removed := 0
	for id, sess := range st.sessions {
		if sess.idleSince().Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	n := len(st.sessions)
	st.mu.Unlock()

	st.metrics.SetSessions(n)
	return removed
}

// Run sweeps periodically until ctx is done
func (st *SessionStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			st.Sweep()
		case <-ctx.Done():
			return
		}
	}
}
