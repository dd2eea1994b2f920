package navigation

import (
	"github.com/curio-labs/curio/internal/gallery"
)

// Payload is data handed to the destination screen. The concrete types
// below are the only implementations.
type Payload interface {
	accepts(Screen) bool
	Kind() string
}

// CapturePayload carries a fresh photo to the analysis screen
type CapturePayload struct {
	Capture gallery.Capture
}

func (CapturePayload) accepts(s Screen) bool { return s == ImageAnalysis }

// Kind names the payload for logs and JSON
func (CapturePayload) Kind() string { return "capture" }

// GalleryPayload shows an item in the gallery, appending it when new
type GalleryPayload struct {
	Item *gallery.Item
}

func (GalleryPayload) accepts(s Screen) bool { return s == Gallery }

// Kind names the payload for logs and JSON
func (GalleryPayload) Kind() string { return "gallery" }

// LiveRoomPayload opens the chat room for an item
type LiveRoomPayload struct {
	Item *gallery.Item
}

func (LiveRoomPayload) accepts(s Screen) bool { return s == LiveRoom }

// Kind names the payload for logs and JSON
func (LiveRoomPayload) Kind() string { return "live_room" }

// CharacterPayload selects a character for the detail screens
type CharacterPayload struct {
	Character string
	Item      *gallery.Item
}

func (CharacterPayload) accepts(s Screen) bool {
	return s == CharacterDetailCard || s == CharacterDetailFull
}

// Kind names the payload for logs and JSON
func (CharacterPayload) Kind() string { return "character" }

// InputPayload opens an input or settings overlay that returns somewhere
type InputPayload struct {
	ReturnTo Screen
}

func (InputPayload) accepts(s Screen) bool {
	return s == TextInput || s == VoiceInput || s == VolumeSettings
}

// Kind names the payload for logs and JSON
func (InputPayload) Kind() string { return "input" }

// Item returns the gallery item a payload refers to, if any
func Item(p Payload) *gallery.Item {
	switch v := p.(type) {
	case GalleryPayload:
		return v.Item
	case LiveRoomPayload:
		return v.Item
	case CharacterPayload:
		return v.Item
	}
	return nil
}
