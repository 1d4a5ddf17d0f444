// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/almog/internal/pipeline"
)

// ScoresHandler handles composite score requests.
type ScoresHandler struct {
	deps RunDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps RunDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

type scoresResponse struct {
	Sets   []pipeline.Set `json:"sets"`
	NoData bool           `json:"no_data"`
}

// HandleGetScores handles GET /scores requests. Each comparison set is
// ranked independently; ?compare= narrows the set before scaling.
func (h *ScoresHandler) HandleGetScores(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_scores"
	if !allow(w, r, http.MethodGet) {
		return
	}
	f, err := parseFilters(op, r.URL.Query())
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	res, err := h.deps.Run(r.Context(), f)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scoresResponse{Sets: res.Sets, NoData: res.NoData})
}
