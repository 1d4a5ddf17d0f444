// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/almog/internal/domain/model"
	"github.com/okian/almog/internal/domain/tier"
	"github.com/okian/almog/internal/domain/week"
	"github.com/okian/almog/internal/pipeline"
)

// RunDependencies defines the interface for pipeline runs.
type RunDependencies interface {
	Run(ctx context.Context, f pipeline.Filters) (pipeline.Result, error)
}

// WeeklyHandler handles weekly report requests.
type WeeklyHandler struct {
	deps RunDependencies
}

// NewWeeklyHandler creates a new weekly handler.
func NewWeeklyHandler(deps RunDependencies) *WeeklyHandler {
	return &WeeklyHandler{deps: deps}
}

type weeklyRow struct {
	model.WeeklyAggregate
	Duration      string    `json:"duration"`
	IntensityPct  float64   `json:"intensity_pct"`
	DistanceTier  tier.Tier `json:"distance_tier"`
	IntensityTier tier.Tier `json:"intensity_tier"`
	CohortTier    tier.Tier `json:"cohort_tier"`
}

type weeklyResponse struct {
	Weeks    []week.Key  `json:"weeks"`
	Rows     []weeklyRow `json:"rows"`
	Ingested int         `json:"ingested"`
	Excluded int         `json:"excluded"`
	NoData   bool        `json:"no_data"`
}

type cellKey struct {
	entity string
	week   week.Key
	group  string
}

// HandleGetWeekly handles GET /weekly requests.
func (h *WeeklyHandler) HandleGetWeekly(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_weekly"
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

	cells := make(map[cellKey]pipeline.Cell, len(res.Cells))
	for _, c := range res.Cells {
		cells[cellKey{c.Entity, c.Week, c.Group}] = c
	}
	rows := make([]weeklyRow, 0, len(res.Aggregates))
	for _, a := range res.Aggregates {
		c := cells[cellKey{a.EntityName, a.Week, a.GroupKey}]
		rows = append(rows, weeklyRow{
			WeeklyAggregate: a,
			Duration:        a.DurationLabel(),
			IntensityPct:    a.IntensityPct(),
			DistanceTier:    c.DistanceTier,
			IntensityTier:   c.IntensityTier,
			CohortTier:      c.CohortTier,
		})
	}
	writeJSON(w, http.StatusOK, weeklyResponse{
		Weeks:    res.Weeks,
		Rows:     rows,
		Ingested: res.Ingested,
		Excluded: res.Excluded,
		NoData:   res.NoData,
	})
}
