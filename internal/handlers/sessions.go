package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/curio-labs/curio/internal/backgrounds"
	"github.com/curio-labs/curio/internal/conversation"
	"github.com/curio-labs/curio/internal/curio"
	"github.com/curio-labs/curio/internal/models"
	"github.com/curio-labs/curio/internal/navigation"
)

var errBadMusicAction = errors.New("invalid music action")

func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		sessions := h.sessionStore.GetAll()
		sessionList := make([]models.SessionSummary, 0, len(sessions))
		for _, session := range sessions {
			sessionList = append(sessionList, summarize(session))
		}
		h.writeJSON(w, sessionList)
	case "POST":
		session := h.service.NewSession()
		h.sessionStore.Set(session)
		slog.Info("Session started", "session_id", session.ID)
		h.writeJSONStatus(w, http.StatusCreated, summarize(session))
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions/"), "/")
	sessionID, action, _ := strings.Cut(rest, "/")

	session, ok := h.getSessionOrError(w, sessionID)
	if !ok {
		return
	}

	switch {
	case action == "":
		h.handleSession(w, r, session)
	case action == "navigate":
		h.handleNavigate(w, r, session)
	case action == "back":
		h.handleBack(w, r, session)
	case action == "gallery/index":
		h.handleIndex(w, r, session)
	case action == "conversation":
		h.handleConversation(w, r, session)
	case action == "music":
		h.handleMusic(w, r, session)
	case strings.HasPrefix(action, "items/") && strings.HasSuffix(action, "/retry"):
		itemID := strings.TrimSuffix(strings.TrimPrefix(action, "items/"), "/retry")
		h.handleRetry(w, r, session, itemID)
	case strings.HasPrefix(action, "items/") && strings.HasSuffix(action, "/room"):
		itemID := strings.TrimSuffix(strings.TrimPrefix(action, "items/"), "/room")
		h.handleRoom(w, r, session, itemID)
	default:
		h.writeError(w, "Not found", http.StatusNotFound)
	}
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request, session *curio.Session) {
	switch r.Method {
	case "GET":
		h.writeDetail(w, session)
	case "DELETE":
		h.sessionStore.Delete(session.ID)
		slog.Info("Session deleted", "session_id", session.ID)
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) writeDetail(w http.ResponseWriter, session *curio.Session) {
	d, err := h.detail(session)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, d)
}

func (h *Handler) handleNavigate(w http.ResponseWriter, r *http.Request, session *curio.Session) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	screen, _ := navigation.ParseScreen(req.Screen)
	payload, err := h.buildPayload(session, screen, req.Payload)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	session.Touch()
	session.Nav.Navigate(req.Screen, payload)
	h.writeDetail(w, session)
}

// buildPayload turns the request's ids into the payload the screen expects
func (h *Handler) buildPayload(session *curio.Session, screen navigation.Screen, p models.NavigatePayload) (navigation.Payload, error) {
	switch screen {
	case navigation.Gallery, navigation.LiveRoom:
		if p.ItemID == "" {
			return nil, nil
		}
		item, ok := session.Nav.Lookup(p.ItemID)
		if !ok {
			return nil, curio.ErrItemNotFound
		}
		if screen == navigation.Gallery {
			return navigation.GalleryPayload{Item: item}, nil
		}
		return navigation.LiveRoomPayload{Item: item}, nil
	case navigation.CharacterDetailCard, navigation.CharacterDetailFull:
		out := navigation.CharacterPayload{Character: p.Character}
		if c, ok := conversation.FindCharacter(p.Character); ok {
			out.Character = c.ID
		}
		if item, ok := session.Nav.Lookup(p.ItemID); ok {
			out.Item = item
		}
		return out, nil
	case navigation.TextInput, navigation.VoiceInput, navigation.VolumeSettings:
		ret, ok := navigation.ParseScreen(p.ReturnTo)
		if !ok {
			ret = session.Nav.Current().Screen
		}
		return navigation.InputPayload{ReturnTo: ret}, nil
	}
	return nil, nil
}

func (h *Handler) handleBack(w http.ResponseWriter, r *http.Request, session *curio.Session) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session.Touch()
	session.Nav.Back()
	h.writeDetail(w, session)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request, session *curio.Session) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req models.IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	session.Touch()
	session.Nav.SetIndex(req.Index)
	h.writeDetail(w, session)
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request, session *curio.Session, itemID string) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	item, err := h.service.Retry(r.Context(), session, itemID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSONStatus(w, http.StatusAccepted, item.Snapshot())
}

func (h *Handler) handleRoom(w http.ResponseWriter, r *http.Request, session *curio.Session, itemID string) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	turn, err := h.service.OpenRoom(r.Context(), session, itemID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, turn)
}

func (h *Handler) handleConversation(w http.ResponseWriter, r *http.Request, session *curio.Session) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req models.ConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	turn, err := h.service.Converse(r.Context(), session, strings.TrimSpace(req.Message), req.NewLoop)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, turn)
}

func (h *Handler) handleMusic(w http.ResponseWriter, r *http.Request, session *curio.Session) {
	switch r.Method {
	case "GET":
	case "POST":
		var req models.MusicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.applyMusic(r, session, req); err != nil {
			if errors.Is(err, errBadMusicAction) {
				h.writeError(w, "Invalid action. Must be 'play', 'pause', 'resume', 'stop' or 'volume'", http.StatusBadRequest)
				return
			}
			h.writeServiceError(w, err)
			return
		}
		session.Touch()
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st, err := session.Music.Status()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, st)
}

func (h *Handler) applyMusic(r *http.Request, session *curio.Session, req models.MusicRequest) error {
	switch req.Action {
	case "play":
		item, ok := session.Nav.CurrentItem()
		if req.ItemID != "" {
			item, ok = session.Nav.Lookup(req.ItemID)
		}
		if !ok {
			return curio.ErrItemNotFound
		}
		if req.ForceRestart {
			return session.Music.Play(r.Context(), item.Background.Category, item.Background.ID, true)
		}
		return h.service.PlayFor(r.Context(), session, item)
	case "pause":
		return session.Music.Pause()
	case "resume":
		return session.Music.Resume(r.Context())
	case "stop":
		return session.Music.Stop()
	case "volume":
		if req.Volume == nil {
			return errBadMusicAction
		}
		return session.Music.SetVolume(*req.Volume)
	}
	return errBadMusicAction
}

func (h *Handler) HandleBackgrounds(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reg := h.service.Registry()
	list := reg.All()
	if c := r.URL.Query().Get("category"); c != "" {
		list = reg.Backgrounds(backgrounds.Category(c))
	}
	h.writeJSON(w, models.BackgroundList{
		Backgrounds: list,
		TotalCount:  len(list),
		Categories:  reg.Categories(),
	})
}
