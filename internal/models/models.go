package models

import (
	"time"

	"github.com/curio-labs/curio/internal/backgrounds"
	"github.com/curio-labs/curio/internal/curio"
	"github.com/curio-labs/curio/internal/gallery"
	"github.com/curio-labs/curio/internal/music"
)

// SessionSummary is the list view of a session
type SessionSummary struct {
	ID           string    `json:"id"`
	Screen       string    `json:"screen"`
	Path         string    `json:"path"`
	GalleryCount int       `json:"gallery_count"`
	Index        int       `json:"index"`
	CreatedAt    time.Time `json:"created_at"`
	LastActive   time.Time `json:"last_active"`
}

// SessionDetail is a session with what its current screen shows
type SessionDetail struct {
	SessionSummary
	View    curio.View         `json:"view"`
	Gallery []gallery.Snapshot `json:"gallery"`
	Music   music.Status       `json:"music"`
}

// NavigateRequest moves a session to another screen
type NavigateRequest struct {
	Screen  string          `json:"screen"`
	Payload NavigatePayload `json:"payload"`
}

// NavigatePayload names the pieces of state a destination needs
type NavigatePayload struct {
	ItemID    string `json:"item_id,omitempty"`
	Character string `json:"character,omitempty"`
	ReturnTo  string `json:"return_to,omitempty"`
}

// IndexRequest moves the gallery position
type IndexRequest struct {
	Index int `json:"index"`
}

// ConversationRequest asks for the next chat turn
type ConversationRequest struct {
	Message string `json:"message"`
	NewLoop bool   `json:"new_loop"`
}

// MusicRequest controls playback: play, pause, resume, stop or volume
type MusicRequest struct {
	Action       string   `json:"action"`
	Volume       *float64 `json:"volume,omitempty"`
	ItemID       string   `json:"item_id,omitempty"`
	ForceRestart bool     `json:"force_restart,omitempty"`
}

// URLUploadRequest submits a photo by URL instead of multipart
type URLUploadRequest struct {
	SessionID string `json:"session_id"`
	ImageURL  string `json:"image_url"`
	Source    string `json:"source"`
}

// UploadResponse is returned once a photo is analyzed
type UploadResponse struct {
	SessionID string           `json:"session_id"`
	Checksum  string           `json:"checksum"`
	Item      gallery.Snapshot `json:"item"`
}

// BackgroundList is the background listing
type BackgroundList struct {
	Backgrounds []backgrounds.Template `json:"backgrounds"`
	TotalCount  int                    `json:"total_count"`
	Categories  []backgrounds.Category `json:"categories"`
}
