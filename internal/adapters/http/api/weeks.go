// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/almog/internal/domain/week"
)

// WeeksDependencies defines the interface for listing weeks.
type WeeksDependencies interface {
	Weeks(ctx context.Context) ([]week.Key, error)
}

// WeeksHandler handles week list requests.
type WeeksHandler struct {
	deps WeeksDependencies
}

// NewWeeksHandler creates a new weeks handler.
func NewWeeksHandler(deps WeeksDependencies) *WeeksHandler {
	return &WeeksHandler{deps: deps}
}

type weeksResponse struct {
	Weeks []week.Key `json:"weeks"`
}

// HandleGetWeeks handles GET /weeks requests.
func (h *WeeksHandler) HandleGetWeeks(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	weeks, err := h.deps.Weeks(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if weeks == nil {
		weeks = []week.Key{}
	}
	writeJSON(w, http.StatusOK, weeksResponse{Weeks: weeks})
}
