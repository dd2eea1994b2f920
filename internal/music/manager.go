// Package music picks and plays the background track for a composite.
package music

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/curio-labs/curio/internal/backgrounds"
)

// ErrNotInitialized is returned by every call outside Init and Dispose
var ErrNotInitialized = errors.New("music manager not initialized")

// DefaultVolume is the starting volume
const DefaultVolume = 0.3

var trackCounts = map[backgrounds.Category]int{
	backgrounds.Chinese:  5,
	backgrounds.European: 6,
	backgrounds.Modern:   4,
}

// Tracks returns the track paths of a category, relative to the asset root
func Tracks(c backgrounds.Category) []string {
	n := trackCounts[c]
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("music/%s/%s_%d.mp3", c, c, i+1)
	}
	return out
}

// SelectTrack picks the track for a background. The same id always gives the
// same track; an empty id gives the first one and an unknown category gives
// the first European track.
func SelectTrack(c backgrounds.Category, backgroundID string) string {
	tracks := Tracks(c)
	if len(tracks) == 0 {
		return Tracks(backgrounds.FallbackCategory)[0]
	}
	idx := 0
	if backgroundID != "" {
		idx = int(backgrounds.Hash(backgroundID) % uint32(len(tracks)))
	}
	return tracks[idx]
}

// Player renders audio. Implementations need not be safe for concurrent use;
// Manager serializes calls.
type Player interface {
	Play(ctx context.Context, track string, volume float64) error
	Pause() error
	Resume(ctx context.Context) error
	Stop() error
	SetVolume(volume float64) error
}

// Status is the playback state
type Status struct {
	Playing  bool                 `json:"playing"`
	Category backgrounds.Category `json:"category,omitempty"`
	Track    string               `json:"track,omitempty"`
	Volume   float64              `json:"volume"`
}

// Manager owns playback for one session
type Manager struct {
	player Player
	logger *slog.Logger

	mu       sync.Mutex
	ready    bool
	loaded   bool
	playing  bool
	category backgrounds.Category
	track    string
	volume   float64
}

// NewManager returns a manager that must be Init'ed before use. A nil player
// logs instead of playing.
func NewManager(player Player, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if player == nil {
		player = NewLogPlayer(logger)
	}
	return &Manager{player: player, logger: logger, volume: DefaultVolume}
}

// Init makes the manager usable. Calling it again is a no-op.
func (m *Manager) Init() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = true
}

// Dispose stops playback and retires the manager
func (m *Manager) Dispose() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil
	}
	err := m.stopLocked()
	m.ready = false
	return err
}

// Play starts the track for (category, backgroundID). When that track is
// already playing it keeps going unless forceRestart is set.
func (m *Manager) Play(ctx context.Context, category backgrounds.Category, backgroundID string, forceRestart bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return ErrNotInitialized
	}

	track := SelectTrack(category, backgroundID)
	if m.playing && m.track == track && !forceRestart {
		m.logger.Debug("Track already playing", "track", track)
		return nil
	}

	if err := m.stopLocked(); err != nil {
		return err
	}
	if err := m.player.Play(ctx, track, m.volume); err != nil {
		return fmt.Errorf("failed to play %s: %w", track, err)
	}
	m.loaded, m.playing = true, true
	m.category, m.track = category, track
	m.logger.Info("Music started", "category", string(category), "background_id", backgroundID, "track", track, "volume", m.volume)
	return nil
}

// Pause pauses a playing track
func (m *Manager) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return ErrNotInitialized
	}
	if !m.playing {
		return nil
	}
	if err := m.player.Pause(); err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}
	m.playing = false
	return nil
}

// Resume continues a paused track
func (m *Manager) Resume(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return ErrNotInitialized
	}
	if !m.loaded || m.playing {
		return nil
	}
	if err := m.player.Resume(ctx); err != nil {
		return fmt.Errorf("failed to resume: %w", err)
	}
	m.playing = true
	return nil
}

// Stop ends playback and forgets the track
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return ErrNotInitialized
	}
	return m.stopLocked()
}

func (m *Manager) stopLocked() error {
	if !m.loaded {
		return nil
	}
	err := m.player.Stop()
	m.loaded, m.playing = false, false
	m.category, m.track = "", ""
	if err != nil {
		return fmt.Errorf("failed to stop: %w", err)
	}
	return nil
}

// SetVolume clamps v into [0, 1]
func (m *Manager) SetVolume(v float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return ErrNotInitialized
	}
	m.volume = max(0, min(1, v))
	if m.loaded {
		if err := m.player.SetVolume(m.volume); err != nil {
			return fmt.Errorf("failed to set volume: %w", err)
		}
	}
	return nil
}

// Status returns the playback state
func (m *Manager) Status() (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return Status{}, ErrNotInitialized
	}
	return Status{Playing: m.playing, Category: m.category, Track: m.track, Volume: m.volume}, nil
}

// LogPlayer records playback requests in the log and plays nothing
type LogPlayer struct {
	logger *slog.Logger
}

// NewLogPlayer returns a LogPlayer
func NewLogPlayer(logger *slog.Logger) *LogPlayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPlayer{logger: logger}
}

func (p *LogPlayer) Play(_ context.Context, track string, volume float64) error {
	p.logger.Debug("Playing track", "track", track, "volume", volume, "loop", true)
	return nil
}

func (p *LogPlayer) Pause() error {
	p.logger.Debug("Playback paused")
	return nil
}

func (p *LogPlayer) Resume(context.Context) error {
	p.logger.Debug("Playback resumed")
	return nil
}

func (p *LogPlayer) Stop() error {
	p.logger.Debug("Playback stopped")
	return nil
}

func (p *LogPlayer) SetVolume(volume float64) error {
	p.logger.Debug("Volume changed", "volume", volume)
	return nil
}
