package curio

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/curio-labs/curio/internal/music"
	"github.com/curio-labs/curio/internal/navigation"
	"github.com/google/uuid"
)

// Session is one visitor's run through the app. It owns its navigation
// state and music; nothing is shared between sessions.
type Session struct {
	ID        string
	CreatedAt time.Time
	Nav       *navigation.Controller
	Music     *music.Manager

	stopSplash func()

	// set while Analyze owns the capture on the analysis screen
	analyzing atomic.Bool

	mu         sync.Mutex
	lastActive time.Time
	closed     bool
}

func newSession(player music.Player, splash time.Duration, logger *slog.Logger) *Session {
	id := uuid.NewString()
	logger = logger.With("session_id", id)

	now := time.Now()
	s := &Session{
		ID:         id,
		CreatedAt:  now,
		Nav:        navigation.New(navigation.WithLogger(logger)),
		Music:      music.NewManager(player, logger),
		lastActive: now,
	}
	s.Music.Init()
	s.stopSplash = s.Nav.StartSplash(splash)
	return s
}

// Touch records activity
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
}

// LastActive returns the time of the last recorded activity
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Close stops the splash timer, releases the current screen's resources and
// stops the music. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.stopSplash()
	s.Nav.Dispose()
	return s.Music.Dispose()
}
