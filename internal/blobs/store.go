// Package blobs hands out revocable in-memory URLs for image bytes.
package blobs

import (
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// URLPrefix starts every blob URL
const URLPrefix = "blob:curio/"

// Handle identifies one stored blob
type Handle struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// Blob is a stored payload
type Blob struct {
	Handle
	Data    []byte
	Created time.Time
}

type entry struct {
	blob    *Blob
	revoked atomic.Bool
}

// Store keeps blobs until they are revoked. With a max age, blobs that are
// never revoked are dropped after that age and reported as leaks.
type Store struct {
	cache  *cache.Cache
	logger *slog.Logger
	leaked atomic.Int64
}

// NewStore returns a store. maxAge <= 0 keeps blobs until revoked.
func NewStore(maxAge time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	var c *cache.Cache
	if maxAge > 0 {
		cleanup := maxAge / 2
		if cleanup < time.Second {
			cleanup = time.Second
		}
		c = cache.New(maxAge, cleanup)
	} else {
		c = cache.New(cache.NoExpiration, 0)
	}

	s := &Store{cache: c, logger: logger}
	c.OnEvicted(s.evicted)
	return s
}

func (s *Store) evicted(id string, v interface{}) {
	e, ok := v.(*entry)
	if !ok || e.revoked.Load() {
		return
	}
	s.leaked.Add(1)
	s.logger.Warn("Blob expired without being revoked",
		"blob_id", id,
		"content_type", e.blob.ContentType,
		"size", e.blob.Size,
		"age", time.Since(e.blob.Created))
}

// Create stores data and returns its handle. The store keeps a reference to
// data, so callers must not modify it afterwards.
func (s *Store) Create(data []byte, contentType string) Handle {
	id := uuid.NewString()
	h := Handle{
		ID:          id,
		URL:         URLPrefix + id,
		ContentType: contentType,
		Size:        len(data),
	}
	s.cache.Set(id, &entry{blob: &Blob{Handle: h, Data: data, Created: time.Now()}}, cache.DefaultExpiration)
	s.logger.Debug("Blob created", "blob_id", id, "content_type", contentType, "size", len(data))
	return h
}

// Get returns the blob for a URL or bare id
func (s *Store) Get(ref string) (*Blob, bool) {
	v, found := s.cache.Get(ParseID(ref))
	if !found {
		return nil, false
	}
	e := v.(*entry)
	if e.revoked.Load() {
		return nil, false
	}
	return e.blob, true
}

// Revoke releases a blob. It reports whether the blob was live; revoking
// twice is harmless.
func (s *Store) Revoke(ref string) bool {
	id := ParseID(ref)
	v, found := s.cache.Get(id)
	if !found {
		return false
	}
	e := v.(*entry)
	if !e.revoked.CompareAndSwap(false, true) {
		return false
	}
	s.cache.Delete(id)
	s.logger.Debug("Blob revoked", "blob_id", id)
	return true
}

// Len returns the number of live blobs
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

// Leaked returns how many blobs expired without a revoke
func (s *Store) Leaked() int64 {
	return s.leaked.Load()
}

// ParseID strips the URL prefix, if any
func ParseID(ref string) string {
	return strings.TrimPrefix(ref, URLPrefix)
}
