// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/almog/internal/domain/notes"
	"github.com/okian/almog/internal/domain/week"
)

const maxBodyBytes = 8 << 20

// NotesDependencies defines the interface for note writes.
type NotesDependencies interface {
	AttachNote(ctx context.Context, mode notes.Mode, player string, k week.Key, text string) (notes.Result, error)
}

// NotesHandler handles note requests.
type NotesHandler struct {
	deps NotesDependencies
}

// NewNotesHandler creates a new notes handler.
func NewNotesHandler(deps NotesDependencies) *NotesHandler {
	return &NotesHandler{deps: deps}
}

// noteRequest mirrors the OpenAPI schema for POST /notes.
type noteRequest struct {
	Player string `json:"player"`
	// Week is a week label or an ISO date inside the week.
	Week string     `json:"week"`
	Note string     `json:"note"`
	Mode notes.Mode `json:"mode"`
}

func (n noteRequest) validate() (week.Key, error) {
	switch {
	case strings.TrimSpace(n.Player) == "":
		return week.Key{}, errors.New("missing player")
	case strings.TrimSpace(n.Week) == "":
		return week.Key{}, errors.New("missing week")
	}
	return parseWeek(strings.TrimSpace(n.Week))
}

// HandlePostNote handles POST /notes requests.
func (h *NotesHandler) HandlePostNote(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_note"
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req noteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeFailure(w, r, wrapKind(op, ErrBadRequest, err))
		return
	}
	k, err := req.validate()
	if err != nil {
		writeFailure(w, r, wrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.AttachNote(r.Context(), req.Mode, req.Player, k, req.Note)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Kind == notes.KindPlaceholder {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}
