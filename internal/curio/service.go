// Package curio runs the capture, analysis, composition and live-room flow
// for a session.
package curio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/curio-labs/curio/internal/analysis"
	"github.com/curio-labs/curio/internal/backgrounds"
	"github.com/curio-labs/curio/internal/blobs"
	"github.com/curio-labs/curio/internal/composition"
	"github.com/curio-labs/curio/internal/conversation"
	"github.com/curio-labs/curio/internal/gallery"
	"github.com/curio-labs/curio/internal/images"
	"github.com/curio-labs/curio/internal/music"
	"github.com/curio-labs/curio/internal/navigation"
	"github.com/google/uuid"
)

var (
	// ErrNoCapture is returned by Analyze when the current screen holds no capture
	ErrNoCapture = errors.New("no captured photo to analyze")
	// ErrItemNotFound is returned for an id that is not in the session gallery
	ErrItemNotFound = errors.New("gallery item not found")
	// ErrNotRetryable is returned when retrying an item that has not failed
	ErrNotRetryable = errors.New("only failed items can be retried")
	// ErrAnalysisInProgress is returned when the session is already analyzing a photo
	ErrAnalysisInProgress = errors.New("analysis already in progress")
)

// Service wires the collaborators shared by all sessions
type Service struct {
	registry   *backgrounds.Registry
	engine     *composition.Engine
	classifier analysis.Classifier
	generator  conversation.Generator
	blobs      *blobs.Store
	logger     *slog.Logger

	newPlayer      func() music.Player
	splashDelay    time.Duration
	composeTimeout time.Duration

	inflight sync.WaitGroup
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSplashDelay sets how long new sessions stay on the splash screen
func WithSplashDelay(d time.Duration) Option {
	return func(s *Service) { s.splashDelay = max(0, d) }
}

// WithPlayer sets the audio backend factory, one player per session
func WithPlayer(fn func() music.Player) Option {
	return func(s *Service) {
		if fn != nil {
			s.newPlayer = fn
		}
	}
}

// WithComposeTimeout bounds one background composition
func WithComposeTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.composeTimeout = d
		}
	}
}

// NewService returns a service. The registry, engine and blob store are
// required; nil collaborators fall back to the mocks.
func NewService(registry *backgrounds.Registry, engine *composition.Engine, store *blobs.Store, classifier analysis.Classifier, generator conversation.Generator, opts ...Option) *Service {
	s := &Service{
		registry:       registry,
		engine:         engine,
		classifier:     classifier,
		generator:      generator,
		blobs:          store,
		logger:         slog.Default(),
		splashDelay:    3 * time.Second,
		composeTimeout: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.classifier == nil {
		s.classifier = analysis.NewMockClassifier(analysis.WithLogger(s.logger))
	}
	if s.generator == nil {
		s.generator = conversation.NewMockGenerator()
	}
	if s.newPlayer == nil {
		s.newPlayer = func() music.Player { return music.NewLogPlayer(s.logger) }
	}
	return s
}

// Registry returns the background registry
func (s *Service) Registry() *backgrounds.Registry {
	return s.registry
}

// Blobs returns the blob store
func (s *Service) Blobs() *blobs.Store {
	return s.blobs
}

// NewSession starts a session on the splash screen
func (s *Service) NewSession() *Session {
	sess := newSession(s.newPlayer(), s.splashDelay, s.logger)
	s.logger.Info("Session created", "session_id", sess.ID, "splash", s.splashDelay)
	return sess
}

// Capture validates a photo and moves the session to the analysis screen.
// Bytes that do not decode are rejected with *composition.ImageLoadError.
func (s *Service) Capture(ctx context.Context, sess *Session, data []byte, filename string, source gallery.Source) (gallery.Capture, error) {
	info, err := images.Sniff(data)
	if err != nil {
		s.logger.Warn("Rejected capture", "session_id", sess.ID, "filename", filename, "error", err)
		return gallery.Capture{}, &composition.ImageLoadError{Which: composition.User, Err: err}
	}

	capture := gallery.Capture{
		Data:        data,
		ContentType: images.ContentType(info.Format),
		Filename:    filename,
		Source:      source,
		Width:       info.Width,
		Height:      info.Height,
	}

	sess.Touch()
	sess.Nav.Go(navigation.ImageAnalysis, navigation.CapturePayload{Capture: capture})
	s.logger.Info("Photo captured",
		"session_id", sess.ID,
		"source", string(source),
		"format", info.Format,
		"width", info.Width,
		"height", info.Height)
	return capture, nil
}

// Analyze classifies the photo on the analysis screen, appends a pending
// item to the gallery and starts composing it in the background.
func (s *Service) Analyze(ctx context.Context, sess *Session) (*gallery.Item, error) {
	if !sess.analyzing.CompareAndSwap(false, true) {
		return nil, ErrAnalysisInProgress
	}
	defer sess.analyzing.Store(false)

	cp, ok := sess.Nav.Current().Payload.(navigation.CapturePayload)
	if !ok {
		return nil, ErrNoCapture
	}

	res, err := s.classifier.Classify(ctx, cp.Capture.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to classify photo: %w", err)
	}

	id := uuid.NewString()
	tpl, err := s.registry.Select(res.Category, id)
	if err != nil {
		s.logger.Warn("No background for category, using fallback", "category", string(res.Category), "error", err)
		tpl, err = s.registry.Select(backgrounds.FallbackCategory, id)
		if err != nil {
			return nil, fmt.Errorf("failed to select background: %w", err)
		}
	}

	item := gallery.New(id, cp.Capture, gallery.Analysis{
		Label:       res.Label,
		Confidence:  res.Confidence,
		Category:    res.Category,
		Name:        res.Name,
		Description: res.Description,
	}, tpl)

	sess.Touch()
	sess.Nav.Go(navigation.Gallery, navigation.GalleryPayload{Item: item})
	s.compose(sess, item)

	s.logger.Info("Photo analyzed",
		"session_id", sess.ID,
		"item_id", item.ID,
		"label", res.Label,
		"background_id", tpl.ID)
	return item, nil
}

// Retry composes a failed item again
func (s *Service) Retry(ctx context.Context, sess *Session, itemID string) (*gallery.Item, error) {
	item, ok := sess.Nav.Lookup(itemID)
	if !ok {
		return nil, ErrItemNotFound
	}
	if !item.Reset() {
		return nil, fmt.Errorf("item %s is %s: %w", itemID, item.Status(), ErrNotRetryable)
	}
	sess.Touch()
	s.logger.Info("Retrying composition", "session_id", sess.ID, "item_id", itemID)
	s.compose(sess, item)
	return item, nil
}

func (s *Service) compose(sess *Session, item *gallery.Item) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		// nothing cancels a started composition; the timeout only bounds it
		ctx, cancel := context.WithTimeout(context.Background(), s.composeTimeout)
		defer cancel()

		res, err := s.engine.Compose(ctx, item.Capture.Data, item.Background)
		if err != nil {
			item.Fail(err)
			s.logger.Error("Composition failed", "session_id", sess.ID, "item_id", item.ID, "error", err)
			return
		}
		item.Resolve(res)
	}()
}

// Wait blocks until the item's composition settles
func (s *Service) Wait(ctx context.Context, item *gallery.Item) (gallery.Status, error) {
	return item.Wait(ctx)
}

// Drain waits for every in-flight composition
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View is what the current screen should render
type View struct {
	Screen   navigation.Screen `json:"screen"`
	Path     string            `json:"path"`
	Visit    uint64            `json:"visit"`
	Index    int               `json:"index"`
	Count    int               `json:"count"`
	Item     *gallery.Snapshot `json:"item,omitempty"`
	Image    *blobs.Handle     `json:"image,omitempty"`
	Composed bool              `json:"composed"`
	Loading  bool              `json:"loading"`
	Retry    bool              `json:"retry"`
}

// Display describes the current screen and acquires blob handles for the
// image it shows. Handles belong to the current visit and are revoked when
// the session leaves the screen. A pending item gets no image.
func (s *Service) Display(sess *Session) (View, error) {
	st := sess.Nav.Current()
	scope := st.Scope

	v := View{
		Screen: st.Screen,
		Path:   st.Screen.Path(),
		Visit:  st.Visit,
		Index:  st.Index,
		Count:  len(st.Gallery),
	}

	if cp, ok := st.Payload.(navigation.CapturePayload); ok {
		h, err := s.hold(scope, "preview", cp.Capture.Data, cp.Capture.ContentType)
		if err != nil {
			return v, err
		}
		v.Image = &h
		return v, nil
	}

	item, ok := sess.Nav.CurrentItem()
	if !ok {
		return v, nil
	}
	snap := item.Snapshot()
	v.Item = &snap

	switch snap.Status {
	case gallery.Pending:
		v.Loading = true
	case gallery.Ready:
		res, _ := item.Composite()
		h, err := s.hold(scope, "composite:"+item.ID, res.Image, res.ContentType)
		if err != nil {
			return v, err
		}
		v.Image, v.Composed = &h, true
	case gallery.Failed:
		h, err := s.hold(scope, "source:"+item.ID, item.Capture.Data, item.Capture.ContentType)
		if err != nil {
			return v, err
		}
		v.Image, v.Retry = &h, true
	}
	return v, nil
}

func (s *Service) hold(scope *navigation.Scope, key string, data []byte, contentType string) (blobs.Handle, error) {
	return navigation.Hold(scope, key, func() (blobs.Handle, func(), error) {
		h := s.blobs.Create(data, contentType)
		return h, func() { s.blobs.Revoke(h.URL) }, nil
	})
}

// OpenRoom moves to the live room for an item, starts its music and returns
// the opening lines
func (s *Service) OpenRoom(ctx context.Context, sess *Session, itemID string) (conversation.Turn, error) {
	item, ok := sess.Nav.Lookup(itemID)
	if !ok {
		return conversation.Turn{}, ErrItemNotFound
	}
	sess.Touch()
	sess.Nav.Go(navigation.LiveRoom, navigation.LiveRoomPayload{Item: item})

	if err := s.PlayFor(ctx, sess, item); err != nil {
		s.logger.Warn("Music did not start", "session_id", sess.ID, "item_id", itemID, "error", err)
	}
	return s.generator.Open(ctx, conversation.Request{ItemID: item.ID, Category: item.Background.Category})
}

// Converse produces the next chat turn for the item on screen. A non-empty
// message is the viewer joining in.
func (s *Service) Converse(ctx context.Context, sess *Session, message string, newLoop bool) (conversation.Turn, error) {
	req := conversation.Request{Message: message, NewLoop: newLoop, Category: backgrounds.FallbackCategory}
	if item, ok := sess.Nav.CurrentItem(); ok {
		req.ItemID, req.Category = item.ID, item.Background.Category
	}
	sess.Touch()
	turn, err := s.generator.Next(ctx, req)
	if err != nil {
		return conversation.Turn{}, fmt.Errorf("failed to generate conversation: %w", err)
	}
	return turn, nil
}

// PlayFor starts the track that belongs to the item's background
func (s *Service) PlayFor(ctx context.Context, sess *Session, item *gallery.Item) error {
	return sess.Music.Play(ctx, item.Background.Category, item.Background.ID, false)
}
