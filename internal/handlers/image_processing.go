package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/curio-labs/curio/internal/composition"
	"github.com/curio-labs/curio/internal/curio"
	"github.com/curio-labs/curio/internal/gallery"
	"github.com/curio-labs/curio/internal/images"
	"github.com/curio-labs/curio/internal/models"
	"github.com/curio-labs/curio/internal/utils"
)

// uploadSession resolves an existing session by id. An empty id yields a nil
// session; processUpload starts one once the photo is known to be good.
func (h *Handler) uploadSession(w http.ResponseWriter, sessionID string) (*curio.Session, bool) {
	if sessionID == "" {
		return nil, true
	}
	return h.getSessionOrError(w, sessionID)
}

// processUpload runs capture then analysis and answers with the pending item.
// A session started for this upload is discarded again if the upload fails.
func (h *Handler) processUpload(w http.ResponseWriter, r *http.Request, session *curio.Session, data []byte, filename string, source gallery.Source) {
	start := time.Now()
	checksum := utils.CalculateDataMD5(data)

	if _, err := images.Sniff(data); err != nil {
		h.writeServiceError(w, &composition.ImageLoadError{Which: composition.User, Err: err})
		return
	}

	created := false
	if session == nil {
		session = h.service.NewSession()
		h.sessionStore.Set(session)
		created = true
	}
	fail := func(err error) {
		if created {
			h.sessionStore.Delete(session.ID)
		}
		h.writeServiceError(w, err)
	}

	if _, err := h.service.Capture(r.Context(), session, data, filename, source); err != nil {
		fail(err)
		return
	}

	item, err := h.service.Analyze(r.Context(), session)
	if err != nil {
		fail(err)
		return
	}

	slog.Info("Photo uploaded",
		"session_id", session.ID,
		"item_id", item.ID,
		"filename", filename,
		"checksum", checksum,
		"bytes", len(data),
		"elapsed", elapsed(start))

	h.writeJSONStatus(w, http.StatusAccepted, models.UploadResponse{
		SessionID: session.ID,
		Checksum:  checksum,
		Item:      item.Snapshot(),
	})
}
