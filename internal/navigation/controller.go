// Package navigation owns the active screen, its payload and the session
// gallery.
package navigation

import (
	"log/slog"
	"sync"
	"time"

	"github.com/curio-labs/curio/internal/gallery"
)

// State is a read-only snapshot of the controller
type State struct {
	Screen    Screen
	Payload   Payload
	Index     int
	Gallery   []*gallery.Item
	Visit     uint64
	EnteredAt time.Time
	// Scope holds the resources of this visit
	Scope *Scope
}

// Transition describes one completed navigation
type Transition struct {
	From     Screen
	To       Screen
	Payload  Payload
	Visit    uint64
	Released int
}

// Observer is notified after every transition
type Observer func(Transition)

// Controller is the single source of truth for navigation. Every method is
// safe for concurrent use and none of them fail.
type Controller struct {
	mu        sync.Mutex
	screen    Screen
	payload   Payload
	items     []*gallery.Item
	index     int
	visit     uint64
	scope     *Scope
	enteredAt time.Time
	observers []Observer
	timers    []*time.Timer
	disposed  bool

	logger *slog.Logger
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver registers an observer at construction
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// New returns a controller on the splash screen
func New(opts ...Option) *Controller {
	c := &Controller{
		screen:    SplashAnimation,
		visit:     1,
		enteredAt: time.Now(),
		logger:    slog.Default(),
	}
	c.scope = newScope(c.visit)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Observe registers an observer
func (c *Controller) Observe(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// Navigate resolves target by name or path and moves there. Unknown
// targets go Home.
func (c *Controller) Navigate(target string, payload Payload) {
	s, ok := ParseScreen(target)
	if !ok {
		c.logger.Warn("Unknown screen, falling back home", "target", target)
	}
	c.transition(s, payload, nil)
}

// Go moves to screen s
func (c *Controller) Go(s Screen, payload Payload) {
	if !s.Valid() {
		c.logger.Warn("Unknown screen, falling back home", "target", string(s))
		s = Home
	}
	c.transition(s, payload, nil)
}

// Back leaves an input overlay for the screen that opened it, or goes Home
func (c *Controller) Back() {
	c.mu.Lock()
	to := Home
	if in, ok := c.payload.(InputPayload); ok && in.ReturnTo.Valid() {
		to = in.ReturnTo
	}
	c.mu.Unlock()
	c.transition(to, nil, nil)
}

// transition moves to s when cond, checked under the lock, allows it
func (c *Controller) transition(s Screen, p Payload, cond func() bool) bool {
	c.mu.Lock()
	if c.disposed || (cond != nil && !cond()) {
		c.mu.Unlock()
		return false
	}

	if p != nil && !p.accepts(s) {
		c.logger.Warn("Dropping payload for a different screen", "screen", string(s), "payload", p.Kind())
		p = nil
	}

	if gp, ok := p.(GalleryPayload); ok && gp.Item != nil {
		if i := c.find(gp.Item); i >= 0 {
			c.index = i
		} else {
			c.items = append(c.items, gp.Item)
			c.index = len(c.items) - 1
		}
	}

	from := c.screen
	old := c.scope
	c.visit++
	c.screen = s
	c.payload = p
	c.scope = newScope(c.visit)
	c.enteredAt = time.Now()

	t := Transition{From: from, To: s, Payload: p, Visit: c.visit}
	observers := append([]Observer(nil), c.observers...)
	c.mu.Unlock()

	t.Released = old.close()
	c.logger.Debug("Navigated", "from", string(from), "to", string(s), "visit", t.Visit, "released", t.Released)
	for _, o := range observers {
		o(t)
	}
	return true
}

func (c *Controller) find(item *gallery.Item) int {
	for i, it := range c.items {
		if it == item || it.ID == item.ID {
			return i
		}
	}
	return -1
}

// Current returns a snapshot of the navigation state
func (c *Controller) Current() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Screen:    c.screen,
		Payload:   c.payload,
		Index:     c.index,
		Gallery:   append([]*gallery.Item(nil), c.items...),
		Visit:     c.visit,
		EnteredAt: c.enteredAt,
		Scope:     c.scope,
	}
}

// Scope returns the resource scope of the current visit
func (c *Controller) Scope() *Scope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scope
}

// SetIndex moves the gallery position, clamped into range. It does nothing
// on an empty gallery.
func (c *Controller) SetIndex(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return
	}
	c.index = max(0, min(i, len(c.items)-1))
}

// Index returns the gallery position
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Gallery returns the session's items in append order
func (c *Controller) Gallery() []*gallery.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*gallery.Item(nil), c.items...)
}

// Lookup finds a gallery item by id
func (c *Controller) Lookup(id string) (*gallery.Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if it.ID == id {
			return it, true
		}
	}
	return nil, false
}

// CurrentItem returns the item the current screen shows. The gallery shows
// the item at its position; other screens show their payload's item and fall
// back to the gallery position.
func (c *Controller) CurrentItem() (*gallery.Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it := Item(c.payload); it != nil && c.screen != Gallery {
		return it, true
	}
	if len(c.items) == 0 {
		return nil, false
	}
	return c.items[c.index], true
}

// StartSplash schedules the automatic move from splash to Home. The returned
// function cancels it.
func (c *Controller) StartSplash(delay time.Duration) (stop func()) {
	t := time.AfterFunc(delay, func() {
		moved := c.transition(Home, nil, func() bool { return c.screen == SplashAnimation })
		if moved {
			c.logger.Info("Splash finished", "delay", delay)
		}
	})

	c.mu.Lock()
	c.timers = append(c.timers, t)
	c.mu.Unlock()

	return func() { t.Stop() }
}

// Dispose stops timers and releases the current visit. The controller
// ignores navigation afterwards.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	timers := c.timers
	scope := c.scope
	c.timers, c.observers = nil, nil
	c.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
	released := scope.close()
	c.logger.Debug("Navigation disposed", "released", released)
}

// Disposed reports whether Dispose has been called
func (c *Controller) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}
