// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/almog/internal/domain/ingest"
)

// SessionsDependencies defines the interface for bulk session uploads.
type SessionsDependencies interface {
	Ingest(ctx context.Context, rows []ingest.Row) (int, []error, error)
}

// SessionsHandler handles session uploads.
type SessionsHandler struct {
	deps SessionsDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionsDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

type ingestResponse struct {
	Accepted int      `json:"accepted"`
	Rejected []string `json:"rejected"`
}

// HandlePostSessions handles POST /sessions with a JSON array of loose rows.
// Rows missing a player or a date are reported back, not stored.
func (h *SessionsHandler) HandlePostSessions(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_sessions"
	if !allow(w, r, http.MethodPost) {
		return
	}
	var rows []ingest.Row
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&rows); err != nil {
		writeFailure(w, r, wrapKind(op, ErrBadRequest, err))
		return
	}
	accepted, rejected, err := h.deps.Ingest(r.Context(), rows)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	resp := ingestResponse{Accepted: accepted, Rejected: make([]string, 0, len(rejected))}
	for _, e := range rejected {
		resp.Rejected = append(resp.Rejected, e.Error())
	}
	writeJSON(w, http.StatusCreated, resp)
}
