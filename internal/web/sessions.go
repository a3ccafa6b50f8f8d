package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/whatsnew-harvester/internal/changelog"
)

// DefaultSessionTTL is how long an idle browsing session is kept.
const DefaultSessionTTL = 30 * time.Minute

type session struct {
	sourceID string
	ctrl     *changelog.Controller
	lastSeen time.Time
}

// Sessions holds the live browsing sessions of the web front end. Each
// session owns one controller; expired sessions are closed so late page
// results are dropped.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessions builds an empty session table.
func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create registers ctrl under a new session id.
func (s *Sessions) Create(sourceID string, ctrl *changelog.Controller) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &session{sourceID: sourceID, ctrl: ctrl, lastSeen: s.now()}
	s.mu.Unlock()
	return id
}

// Get returns the controller of a live session bound to sourceID.
func (s *Sessions) Get(id, sourceID string) (*changelog.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.sourceID != sourceID {
		return nil, false
	}
	now := s.now()
	if now.Sub(sess.lastSeen) > s.ttl {
		delete(s.sessions, id)
		sess.ctrl.Close()
		return nil, false
	}
	sess.lastSeen = now
	return sess.ctrl, true
}

// Sweep closes and forgets sessions idle for longer than the TTL. It
// returns the number of sessions removed.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) <= s.ttl {
			continue
		}
		sess.ctrl.Close()
		delete(s.sessions, id)
		removed++
	}
	return removed
}

// Len reports the number of tracked sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// CloseAll closes every session.
func (s *Sessions) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.ctrl.Close()
		delete(s.sessions, id)
	}
}

// RunSweeper sweeps on every interval until ctx is done.
func (s *Sessions) RunSweeper(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	if interval <= 0 {
		interval = s.ttl / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := s.Sweep()
			if onSweep != nil && n > 0 {
				onSweep(n)
			}
		}
	}
}
