package handlers

import (
	"net/http"
	"strings"
)

// HandleAssets serves backgrounds and music from the asset tree
func (h *Handler) HandleAssets(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" && r.Method != "HEAD" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filepath := strings.TrimPrefix(r.URL.Path, "/assets/")

	// Prevent directory traversal attacks
	if filepath == "" || strings.Contains(filepath, "..") {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}
	if h.assets == nil {
		http.NotFound(w, r)
		return
	}

	switch {
	case strings.HasSuffix(filepath, ".mp3"):
		w.Header().Set("Content-Type", "audio/mpeg")
	case strings.HasSuffix(filepath, ".yaml"):
		w.Header().Set("Content-Type", "application/yaml")
	}

	http.ServeFileFS(w, r, h.assets, filepath)
}

// HandleBlob serves a live blob by id. Revoked blobs are gone.
func (h *Handler) HandleBlob(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/blob/")
	blob, ok := h.service.Blobs().Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(blob.Data); err != nil {
		h.writeError(w, "Unable to write blob", http.StatusInternalServerError)
	}
}
