package storage

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/curio-labs/curio/internal/curio"
)

// SessionStore keeps live sessions in memory
type SessionStore struct {
	sessions map[string]*curio.Session
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*curio.Session),
	}
}

func (s *SessionStore) Get(sessionID string) (*curio.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

func (s *SessionStore) Set(session *curio.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
}

// GetAll returns sessions oldest first
func (s *SessionStore) GetAll() []*curio.Session {
	s.mu.RLock()
	result := make([]*curio.Session, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, v)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Delete removes a session and disposes it. It reports whether the session
// existed.
func (s *SessionStore) Delete(sessionID string) bool {
	s.mu.Lock()
	session, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !exists {
		return false
	}
	if err := session.Close(); err != nil {
		slog.Warn("Session did not close cleanly", "session_id", sessionID, "error", err)
	}
	return true
}

// Close disposes every session
func (s *SessionStore) Close() {
	for _, session := range s.GetAll() {
		s.Delete(session.ID)
	}
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Reap deletes sessions idle for longer than maxIdle and returns how many
// were removed.
func (s *SessionStore) Reap(maxIdle time.Duration) int {
	removed := 0
	for _, session := range s.GetAll() {
		if time.Since(session.LastActive()) <= maxIdle {
			continue
		}
		if s.Delete(session.ID) {
			removed++
		}
	}
	return removed
}

// StartReaper runs Reap every interval until ctx is done. A non-positive
// maxIdle disables it.
func (s *SessionStore) StartReaper(ctx context.Context, interval, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	if interval <= 0 {
		interval = maxIdle
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Reap(maxIdle); n > 0 {
					slog.Info("Evicted idle sessions", "count", n, "max_idle", maxIdle.String(), "remaining", s.Len())
				}
			}
		}
	}()
}
