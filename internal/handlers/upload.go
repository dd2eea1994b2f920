package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/curio-labs/curio/internal/gallery"
	"github.com/curio-labs/curio/internal/images"
	"github.com/curio-labs/curio/internal/models"
)

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Check if this is a JSON request with image URL
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		h.handleURLUpload(w, r)
		return
	}

	h.handleFileUpload(w, r)
}

func (h *Handler) handleURLUpload(w http.ResponseWriter, r *http.Request) {
	var request models.URLUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if request.ImageURL == "" {
		h.writeError(w, "image_url is required", http.StatusBadRequest)
		return
	}
	if !images.IsRemote(request.ImageURL) {
		h.writeError(w, "image_url must be an http(s) URL", http.StatusBadRequest)
		return
	}

	session, ok := h.uploadSession(w, request.SessionID)
	if !ok {
		return
	}

	data, err := h.fetcher.Fetch(r.Context(), request.ImageURL)
	if err != nil {
		h.writeError(w, "Failed to download image: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(data) > MaxUploadSize {
		h.writeError(w, "File too large (max 5MB)", http.StatusRequestEntityTooLarge)
		return
	}
	if !isImage(http.DetectContentType(data)) {
		h.writeError(w, "Only image files are accepted", http.StatusUnsupportedMediaType)
		return
	}

	filename := path.Base(request.ImageURL)
	if filename == "" || filename == "/" || filename == "." {
		filename = "image.jpg"
	}

	h.processUpload(w, r, session, data, filename, gallery.ParseSource(request.Source))
}

func (h *Handler) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope around the photo itself
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize+1024*1024)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.writeError(w, "File too large (max 5MB)", http.StatusRequestEntityTooLarge)
			return
		}
		h.writeError(w, "Failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("files")
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	defer file.Close()

	fileData, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if len(fileData) > MaxUploadSize {
		h.writeError(w, "File too large (max 5MB)", http.StatusRequestEntityTooLarge)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if !isImage(mimeType) {
		mimeType = http.DetectContentType(fileData)
	}
	if !isImage(mimeType) {
		h.writeError(w, "Only image files are accepted", http.StatusUnsupportedMediaType)
		return
	}

	session, ok := h.uploadSession(w, r.FormValue("session_id"))
	if !ok {
		return
	}

	h.processUpload(w, r, session, fileData, header.Filename, gallery.ParseSource(r.FormValue("source")))
}

func isImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}
