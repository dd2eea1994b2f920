package navigation

import "strings"

// Screen identifies one mutually exclusive UI state
type Screen string

const (
	SplashAnimation     Screen = "SplashAnimationPage"
	Home                Screen = "HomePage"
	Gallery             Screen = "GalleryPage"
	ImageUpload         Screen = "ImageUploadPage"
	CameraCapture       Screen = "CameraCapturePage"
	CameraCapturing     Screen = "CameraCapturingPage"
	ImageAnalysis       Screen = "ImageAnalysisPage"
	LiveRoom            Screen = "LiveRoomPage"
	TextInput           Screen = "TextInputPage"
	CharacterDetailCard Screen = "CharacterDetailCardPage"
	CharacterDetailFull Screen = "CharacterDetailFullPage"
	VolumeSettings      Screen = "VolumeSettingsPage"
	VoiceInput          Screen = "VoiceInputPage"
)

// Screens lists every screen in route-table order
var Screens = []Screen{
	SplashAnimation, Home, Gallery, ImageUpload, CameraCapture, CameraCapturing,
	ImageAnalysis, LiveRoom, TextInput, CharacterDetailCard, CharacterDetailFull,
	VolumeSettings, VoiceInput,
}

var paths = map[Screen]string{
	SplashAnimation:     "/splash",
	Home:                "/home",
	Gallery:             "/gallery",
	ImageUpload:         "/upload",
	CameraCapture:       "/camera",
	CameraCapturing:     "/capturing",
	ImageAnalysis:       "/analysis",
	LiveRoom:            "/live-room",
	TextInput:           "/text-input",
	CharacterDetailCard: "/character-card",
	CharacterDetailFull: "/character-full",
	VolumeSettings:      "/volume",
	VoiceInput:          "/voice",
}

var lookup = func() map[string]Screen {
	m := make(map[string]Screen, len(Screens)*3)
	for _, s := range Screens {
		name := strings.ToLower(string(s))
		m[name] = s
		m[strings.TrimSuffix(name, "page")] = s
		m[paths[s]] = s
	}
	m["/"] = Home
	return m
}()

// Valid reports whether s is a known screen
func (s Screen) Valid() bool {
	_, ok := paths[s]
	return ok
}

// Path returns the route path of the screen
func (s Screen) Path() string {
	return paths[s]
}

// ParseScreen resolves a page name ("GalleryPage", "gallery") or a route
// path ("/gallery"). Matching ignores case.
func ParseScreen(target string) (Screen, bool) {
	key := strings.ToLower(strings.TrimSpace(target))
	if s, ok := lookup[key]; ok {
		return s, true
	}
	if !strings.HasPrefix(key, "/") {
		if s, ok := lookup["/"+key]; ok {
			return s, true
		}
	}
	return Home, false
}
