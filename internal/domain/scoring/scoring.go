// Package scoring computes the ALMOG composite score over a comparison set.
//
// Every call recomputes min and max from the entities it is given; there is
// no cached state, so changing the set (another opponent, another week)
// changes every score in it.
package scoring

import (
	"math"
	"sort"

	"github.com/okian/almog/internal/domain/model"
)

const (
	maxScoreValue = 100
	// tieScore is every entity's component score when the set has no spread.
	tieScore = 50
)

// Metric names a normalized input.
type Metric string

// Supported metrics.
const (
	MetersPerMinute Metric = "mpm"
	Speed           Metric = "speed"
	Intensity       Metric = "intensity"
	Distance        Metric = "distance"
)

// Weights maps each metric to its share of the composite. The fixed sets
// below sum to 1.
type Weights struct {
	name   string
	shares map[Metric]float64
}

// Name returns the weight set identifier.
func (w Weights) Name() string { return w.name }

// Share returns the weight of m, 0 when unused.
func (w Weights) Share(m Metric) float64 { return w.shares[m] }

var (
	// PlayerWeights ranks players against each other.
	PlayerWeights = Weights{name: "player", shares: map[Metric]float64{
		MetersPerMinute: 0.30,
		Speed:           0.30,
		Intensity:       0.40,
	}}
	// TeamHalfWeights is the team-level half breakdown.
	TeamHalfWeights = Weights{name: "team_half", shares: map[Metric]float64{
		Distance:  0.50,
		Intensity: 0.50,
	}}
)

// WeightsFor returns the fixed set named name.
func WeightsFor(name string) (Weights, bool) {
	switch name {
	case PlayerWeights.name:
		return PlayerWeights, true
	case TeamHalfWeights.name:
		return TeamHalfWeights, true
	}
	return Weights{}, false
}

// Entity holds one member of a comparison set.
type Entity struct {
	Name            string  `json:"name"`
	MetersPerMinute float64 `json:"meters_per_minute"`
	Speed           float64 `json:"speed"`
	IntensityPct    float64 `json:"intensity_pct"`
	Distance        float64 `json:"distance"`
}

func (e Entity) value(m Metric) float64 {
	var v float64
	switch m {
	case MetersPerMinute:
		v = e.MetersPerMinute
	case Speed:
		v = e.Speed
	case Intensity:
		v = e.IntensityPct
	case Distance:
		v = e.Distance
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Score is one entity's normalized components and composite.
type Score struct {
	Name           string  `json:"name"`
	MPMScore       float64 `json:"mpm_score"`
	SpeedScore     float64 `json:"speed_score"`
	IntensityScore float64 `json:"intensity_score"`
	DistanceScore  float64 `json:"distance_score"`
	Almog          float64 `json:"almog"`
	Rank           int     `json:"rank"`
}

func (s *Score) set(m Metric, v float64) {
	switch m {
	case MetersPerMinute:
		s.MPMScore = v
	case Speed:
		s.SpeedScore = v
	case Intensity:
		s.IntensityScore = v
	case Distance:
		s.DistanceScore = v
	}
}

var allMetrics = []Metric{MetersPerMinute, Speed, Intensity, Distance}

// Compute scores every entity against the others. Results are ordered by
// rank: highest composite first, ties broken by name. All four component
// scores are always filled; only the ones with a weight feed the composite.
func Compute(entities []Entity, weights Weights) []Score {
	out := make([]Score, len(entities))
	if len(entities) == 0 {
		return out
	}
	for i, e := range entities {
		out[i].Name = e.Name
	}

	for _, m := range allMetrics {
		lo, hi := bounds(entities, m)
		for i, e := range entities {
			v := normalize(e.value(m), lo, hi)
			out[i].set(m, v)
			out[i].Almog += v * weights.Share(m)
		}
	}

	for i := range out {
		out[i].Almog = clamp(out[i].Almog)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Almog != out[j].Almog {
			return out[i].Almog > out[j].Almog
		}
		return out[i].Name < out[j].Name
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// FromAggregates maps aggregates onto scoring entities.
func FromAggregates(aggs []model.WeeklyAggregate) []Entity {
	out := make([]Entity, len(aggs))
	for i, a := range aggs {
		out[i] = Entity{
			Name:            a.EntityName,
			MetersPerMinute: a.MetersPerMinute,
			Speed:           a.MaxVelocity,
			IntensityPct:    a.IntensityPct(),
			Distance:        a.TotalDistance,
		}
	}
	return out
}

func bounds(entities []Entity, m Metric) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, e := range entities {
		v := e.value(m)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func normalize(v, lo, hi float64) float64 {
	if hi == lo {
		return tieScore
	}
	return clamp((v - lo) / (hi - lo) * maxScoreValue)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(maxScoreValue, v))
}
