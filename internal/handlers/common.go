package handlers

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/curio-labs/curio/internal/composition"
	"github.com/curio-labs/curio/internal/curio"
	"github.com/curio-labs/curio/internal/images"
	"github.com/curio-labs/curio/internal/models"
	"github.com/curio-labs/curio/internal/music"
	"github.com/curio-labs/curio/internal/navigation"
	"github.com/curio-labs/curio/internal/storage"
)

// MaxUploadSize is the largest photo accepted by the upload endpoint
const MaxUploadSize = 5 * 1024 * 1024

type Handler struct {
	sessionStore *storage.SessionStore
	service      *curio.Service
	fetcher      *images.Fetcher
	assets       fs.FS
}

func New(service *curio.Service, assets fs.FS) *Handler {
	return &Handler{
		sessionStore: storage.New(),
		service:      service,
		fetcher:      images.NewFetcher(assets),
		assets:       assets,
	}
}

// Sessions exposes the session store
func (h *Handler) Sessions() *storage.SessionStore {
	return h.sessionStore
}

// Routes registers every endpoint on a new mux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sessions", h.HandleSessions)
	mux.HandleFunc("/api/sessions/", h.HandleSessionDetail)
	mux.HandleFunc("/api/upload", h.HandleUpload)
	mux.HandleFunc("/api/backgrounds", h.HandleBackgrounds)
	mux.HandleFunc("/blob/", h.HandleBlob)
	mux.HandleFunc("/assets/", h.HandleAssets)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// writeServiceError maps service failures onto retryable responses
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var loadErr *composition.ImageLoadError
	var encErr *composition.EncodeError
	switch {
	case errors.As(err, &loadErr):
		slog.Warn("Image rejected", "which", string(loadErr.Which), "error", err)
		http.Error(w, "Could not read the "+string(loadErr.Which)+" image, please try another photo", http.StatusUnprocessableEntity)
	case errors.As(err, &encErr):
		h.writeError(w, "Processing failed, please retry", http.StatusInternalServerError)
	case errors.Is(err, curio.ErrItemNotFound):
		h.writeError(w, "Item not found", http.StatusNotFound)
	case errors.Is(err, curio.ErrNoCapture), errors.Is(err, curio.ErrNotRetryable),
		errors.Is(err, curio.ErrAnalysisInProgress), errors.Is(err, music.ErrNotInitialized):
		h.writeError(w, err.Error(), http.StatusConflict)
	default:
		slog.Error("Request failed", "error", err)
		http.Error(w, "Processing failed, please retry", http.StatusInternalServerError)
	}
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, sessionID string) (*curio.Session, bool) {
	session, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func summarize(session *curio.Session) models.SessionSummary {
	st := session.Nav.Current()
	return models.SessionSummary{
		ID:           session.ID,
		Screen:       string(st.Screen),
		Path:         st.Screen.Path(),
		GalleryCount: len(st.Gallery),
		Index:        st.Index,
		CreatedAt:    session.CreatedAt,
		LastActive:   session.LastActive(),
	}
}

func (h *Handler) detail(session *curio.Session) (models.SessionDetail, error) {
	view, err := h.service.Display(session)
	if err != nil && !errors.Is(err, navigation.ErrScopeClosed) {
		return models.SessionDetail{}, err
	}

	d := models.SessionDetail{SessionSummary: summarize(session), View: view}
	for _, item := range session.Nav.Gallery() {
		d.Gallery = append(d.Gallery, item.Snapshot())
	}
	if st, err := session.Music.Status(); err == nil {
		d.Music = st
	}
	return d, nil
}

func elapsed(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
