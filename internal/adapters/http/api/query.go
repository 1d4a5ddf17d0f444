package api

import (
	"fmt"
	"net/url"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/okian/almog/internal/domain/aggregate"
	"github.com/okian/almog/internal/domain/scoring"
	"github.com/okian/almog/internal/domain/tier"
	"github.com/okian/almog/internal/domain/week"
	"github.com/okian/almog/internal/pipeline"
)

// Query parameters accepted by the read endpoints.
const (
	paramWeek            = "week"
	paramExclude         = "exclude"
	paramCompare         = "compare"
	paramGrouping        = "grouping"
	paramNotes           = "notes"
	paramWeights         = "weights"
	paramDistancePolicy  = "distance_policy"
	paramIntensityPolicy = "intensity_policy"
)

// parseFilters builds pipeline filters from a query string. Absent
// parameters are left zero so the service defaults apply.
func parseFilters(op string, q url.Values) (pipeline.Filters, error) {
	var f pipeline.Filters

	if raw := strings.TrimSpace(q.Get(paramWeek)); raw != "" {
		k, err := parseWeek(raw)
		if err != nil {
			return f, wrapKind(op, ErrBadRequest, err)
		}
		f.SelectedWeek = k
	}
	f.ExcludedPlayers = list(q, paramExclude)
	f.ComparisonSet = list(q, paramCompare)

	if raw := q.Get(paramGrouping); raw != "" {
		f.Grouping = aggregate.Grouping(raw)
		if !f.Grouping.Valid() {
			return f, wrapKind(op, ErrBadRequest, fmt.Errorf("unknown grouping %q", raw))
		}
	}
	if raw := q.Get(paramNotes); raw != "" {
		f.NotesPolicy = aggregate.NotesPolicy(raw)
		if !f.NotesPolicy.Valid() {
			return f, wrapKind(op, ErrBadRequest, fmt.Errorf("unknown notes policy %q", raw))
		}
	}
	if raw := q.Get(paramWeights); raw != "" {
		w, ok := scoring.WeightsFor(raw)
		if !ok {
			return f, wrapKind(op, ErrBadRequest, fmt.Errorf("unknown weights %q", raw))
		}
		f.Weights = &w
	}
	if raw := q.Get(paramDistancePolicy); raw != "" {
		p, err := tier.Lookup(raw)
		if err != nil {
			return f, wrapKind(op, ErrBadRequest, err)
		}
		f.DistancePolicy = p
	}
	if raw := q.Get(paramIntensityPolicy); raw != "" {
		p, err := tier.Lookup(raw)
		if err != nil {
			return f, wrapKind(op, ErrBadRequest, err)
		}
		f.IntensityPolicy = p
	}
	return f, nil
}

// parseWeek accepts a week label or any ISO date inside the week.
func parseWeek(raw string) (week.Key, error) {
	if d, err := civil.ParseDate(raw); err == nil {
		if !week.Supported(d) {
			return week.Key{}, fmt.Errorf("%w: %s", week.ErrOutOfRange, d)
		}
		return week.Of(d), nil
	}
	return week.Parse(raw)
}

// list reads a comma-separated or repeated parameter, dropping blanks.
func list(q url.Values, name string) []string {
	var out []string
	for _, v := range q[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
