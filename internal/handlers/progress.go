package handlers

import (
	"net/http"

	"github.com/Lllllllleong/documenttextflow/internal/models"
	"github.com/Lllllllleong/documenttextflow/internal/services"
)

// ProgressHandler serves GET ?id=<requestId> -> ProgressResponse.
//
// The tracker is in-memory and belongs to one instance. When the upload and
// progress functions are deployed separately, or Cloud Functions scales the
// upload function out, a poll that lands on another instance gets 404 for a
// request that is still running. Clients treat 404 as "unknown here", not as
// a failed upload.
type ProgressHandler struct {
	Tracker *services.ProgressTracker
}

func (h *ProgressHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing request id")
		return
	}

	p, ok := h.Tracker.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown request id")
		return
	}

	writeJSON(w, http.StatusOK, models.ProgressResponse{
		RequestID: p.RequestID,
		Percent:   p.Percent,
		State:     p.State,
		Error:     p.Error,
	})
}
