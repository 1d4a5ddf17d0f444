// Package pipeline runs the whole aggregation and scoring chain in one call:
// exclusion, weekly aggregation, derived metrics, per-set composite scores and
// per-cell tiers. It holds no state between runs.
package pipeline

import (
	"sort"
	"strings"

	"github.com/okian/almog/internal/domain/aggregate"
	"github.com/okian/almog/internal/domain/exclusion"
	"github.com/okian/almog/internal/domain/intensity"
	"github.com/okian/almog/internal/domain/model"
	"github.com/okian/almog/internal/domain/scoring"
	"github.com/okian/almog/internal/domain/tier"
	"github.com/okian/almog/internal/domain/week"
)

// Filters are the explicit inputs of one run.
type Filters struct {
	// ExcludedPlayers are matched as case-insensitive substrings.
	ExcludedPlayers []string
	Grouping        aggregate.Grouping
	NotesPolicy     aggregate.NotesPolicy
	// SelectedWeek limits the output to one week; the zero key means all weeks.
	SelectedWeek week.Key
	// ComparisonSet limits scoring and set baselines to these entity names;
	// empty means everyone.
	ComparisonSet []string
	// Weights defaults to PlayerWeights for player grouping and
	// TeamHalfWeights for team groupings.
	Weights         *scoring.Weights
	DistancePolicy  tier.Policy
	IntensityPolicy tier.Policy
}

// Cell carries the tiers of one displayed aggregate.
type Cell struct {
	Entity        string    `json:"entity"`
	Week          week.Key  `json:"week"`
	Group         string    `json:"group,omitempty"`
	DistanceTier  tier.Tier `json:"distance_tier"`
	IntensityTier tier.Tier `json:"intensity_tier"`
	// CohortTier compares intensity with the set's nonzero average.
	CohortTier tier.Tier `json:"cohort_tier"`
}

// Set is one comparison set (a week, or a match) and its ranking.
type Set struct {
	Week   week.Key        `json:"week"`
	Group  string          `json:"group,omitempty"`
	Scores []scoring.Score `json:"scores"`
	// Baselines cover the comparison cohort and exclude entities with no data.
	AverageDistance     float64 `json:"average_distance"`
	AverageIntensityPct float64 `json:"average_intensity_pct"`
}

// Result is everything a renderer needs, as plain values.
type Result struct {
	Aggregates []model.WeeklyAggregate `json:"aggregates"`
	Weeks      []week.Key              `json:"weeks"`
	Sets       []Set                   `json:"sets"`
	Cells      []Cell                  `json:"cells"`
	Ingested   int                     `json:"ingested"`
	Excluded   int                     `json:"excluded"`
	// NoData is set when nothing is left to aggregate.
	NoData bool `json:"no_data"`
}

// Run executes the pipeline over a complete, date-ascending record set.
func Run(records []model.SessionRecord, f Filters) Result {
	f = f.withDefaults()

	kept := exclusion.Filter(records, f.ExcludedPlayers)
	res := Result{
		Ingested: len(records),
		Excluded: len(records) - len(kept),
	}

	aggs := aggregate.Aggregate(kept, f.Grouping.KeyFunc(), f.NotesPolicy)
	res.Weeks = aggregate.Weeks(aggs)
	if !f.SelectedWeek.IsZero() {
		aggs = aggregate.InWeek(aggs, f.SelectedWeek)
	}
	sortByWeek(aggs)
	res.Aggregates = aggs
	res.Sets = make([]Set, 0)
	res.Cells = make([]Cell, 0, len(aggs))

	if len(aggs) == 0 {
		res.NoData = true
		return res
	}

	weights := *f.Weights
	for _, members := range partitionSets(aggs) {
		set := Set{Week: members[0].Week, Group: members[0].GroupKey}
		// Baselines and scores share the comparison cohort; every member
		// is still classified against it.
		cohort := compared(members, f.ComparisonSet)
		distances := make([]float64, len(cohort))
		intensities := make([]float64, len(cohort))
		for i, a := range cohort {
			distances[i] = a.TotalDistance
			intensities[i] = a.IntensityPct()
		}
		set.AverageDistance = intensity.AverageExcludingZero(distances)
		set.AverageIntensityPct = intensity.AverageExcludingZero(intensities)

		set.Scores = scoring.Compute(scoring.FromAggregates(cohort), weights)
		res.Sets = append(res.Sets, set)

		for _, a := range members {
			res.Cells = append(res.Cells, Cell{
				Entity:        a.EntityName,
				Week:          a.Week,
				Group:         a.GroupKey,
				DistanceTier:  classify(f.DistancePolicy, a.TotalDistance, a.TargetDistanceMeters(), set.AverageDistance),
				IntensityTier: classify(f.IntensityPolicy, a.IntensityPct(), a.TargetIntensityPct, set.AverageIntensityPct),
				CohortTier:    tier.AverageRelative.Classify(a.IntensityPct(), set.AverageIntensityPct),
			})
		}
	}
	return res
}

func (f Filters) withDefaults() Filters {
	if !f.Grouping.Valid() {
		f.Grouping = aggregate.PlayerWeek
	}
	if !f.NotesPolicy.Valid() {
		f.NotesPolicy = aggregate.FirstNonEmpty
	}
	if f.Weights == nil {
		w := scoring.PlayerWeights
		if f.Grouping != aggregate.PlayerWeek {
			w = scoring.TeamHalfWeights
		}
		f.Weights = &w
	}
	if f.DistancePolicy == nil {
		f.DistancePolicy = tier.Strict20100
	}
	if f.IntensityPolicy == nil {
		f.IntensityPolicy = tier.Graded8597
	}
	return f
}

// classify uses the cohort average as reference for the average-relative
// policy and the coach target otherwise.
func classify(p tier.Policy, actual, target, cohort float64) tier.Tier {
	if p.Name() == tier.AverageRelativeName {
		return p.Classify(actual, cohort)
	}
	return p.Classify(actual, target)
}

func sortByWeek(aggs []model.WeeklyAggregate) {
	sort.SliceStable(aggs, func(i, j int) bool { return week.Less(aggs[i].Week, aggs[j].Week) })
}

type setKey struct {
	week  week.Key
	group string
}

// partitionSets splits week-sorted aggregates into comparison sets,
// keeping first-seen order inside each set.
func partitionSets(aggs []model.WeeklyAggregate) [][]model.WeeklyAggregate {
	var out [][]model.WeeklyAggregate
	index := make(map[setKey]int)
	for _, a := range aggs {
		k := setKey{a.Week, a.GroupKey}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], a)
	}
	return out
}

func compared(members []model.WeeklyAggregate, names []string) []model.WeeklyAggregate {
	if len(names) == 0 {
		return members
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}
	out := make([]model.WeeklyAggregate, 0, len(members))
	for _, a := range members {
		if _, ok := want[strings.ToLower(a.EntityName)]; ok {
			out = append(out, a)
		}
	}
	return out
}
