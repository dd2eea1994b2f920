package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/curio-labs/curio/internal/curio"
	"github.com/curio-labs/curio/internal/music"
)

func newService() *curio.Service {
	return curio.NewService(nil, nil, nil, nil, nil, curio.WithSplashDelay(time.Hour))
}

func TestSessionStore(t *testing.T) {
	svc := newService()
	s := New()

	first := svc.NewSession()
	time.Sleep(2 * time.Millisecond)
	second := svc.NewSession()
	s.Set(second)
	s.Set(first)

	if got, ok := s.Get(first.ID); !ok || got != first {
		t.Errorf("Expected to get session %s", first.ID)
	}
	if _, ok := s.Get("missing"); ok {
		t.Error("Expected unknown session to be absent")
	}

	all := s.GetAll()
	if len(all) != 2 || all[0] != first || all[1] != second {
		t.Errorf("Expected sessions oldest first, got %v", all)
	}

	if !s.Delete(first.ID) {
		t.Error("Expected delete to report an existing session")
	}
	if s.Delete(first.ID) {
		t.Error("Expected second delete to report nothing")
	}
	if !first.Nav.Disposed() {
		t.Error("Expected deleted session navigation to be disposed")
	}
	if _, err := first.Music.Status(); !errors.Is(err, music.ErrNotInitialized) {
		t.Errorf("Expected music disposed, got %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Expected 1 session left, got %d", s.Len())
	}

	s.Close()
	if s.Len() != 0 {
		t.Errorf("Expected empty store after close, got %d", s.Len())
	}
	if !second.Nav.Disposed() {
		t.Error("Expected close to dispose every session")
	}
}

func TestReapIdleSessions(t *testing.T) {
	svc := newService()
	s := New()
	defer s.Close()

	idle := svc.NewSession()
	active := svc.NewSession()
	s.Set(idle)
	s.Set(active)

	time.Sleep(30 * time.Millisecond)
	active.Touch()

	if n := s.Reap(20 * time.Millisecond); n != 1 {
		t.Errorf("Expected 1 session reaped, got %d", n)
	}
	if _, ok := s.Get(idle.ID); ok {
		t.Error("Expected idle session to be evicted")
	}
	if !idle.Nav.Disposed() {
		t.Error("Expected evicted session to be disposed")
	}
	if _, ok := s.Get(active.ID); !ok {
		t.Error("Expected active session to survive")
	}
}

func TestStartReaper(t *testing.T) {
	svc := newService()
	s := New()
	defer s.Close()

	s.Set(svc.NewSession())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartReaper(ctx, 5*time.Millisecond, time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for s.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := s.Len(); n != 0 {
		t.Errorf("Expected reaper to evict the idle session, got %d left", n)
	}
}
