// Package tier classifies an actual value against a reference into a
// qualitative performance tier.
package tier

import (
	"fmt"
	"sort"

	"github.com/okian/almog/internal/domain/intensity"
)

// Tier is an ordered performance bucket.
type Tier string

// Tiers from worst to best. None means there was no reference to compare to.
const (
	None      Tier = "none"
	Critical  Tier = "critical"
	Below     Tier = "below"
	Warning   Tier = "warning"
	Excellent Tier = "excellent"
)

var order = map[Tier]int{None: 0, Critical: 1, Below: 2, Warning: 2, Excellent: 3}

// Rank orders tiers for comparison; Below and Warning share a rank.
func (t Tier) Rank() int { return order[t] }

// Policy classifies actual against reference. For target-relative policies
// reference is the target; for the cohort policy it is the cohort average.
type Policy interface {
	Name() string
	Classify(actual, reference float64) Tier
}

// Policy names.
const (
	Strict20100Name     = "strict-20-100"
	Graded8597Name      = "graded-85-97"
	AverageRelativeName = "average-relative"
)

type strict20100 struct{}

func (strict20100) Name() string { return Strict20100Name }

func (strict20100) Classify(actual, target float64) Tier {
	if target == 0 {
		return None
	}
	ratio := actual * 100 / target
	switch {
	case ratio < 20:
		return Critical
	case ratio >= 100:
		return Excellent
	default:
		return Below
	}
}

type graded8597 struct{}

func (graded8597) Name() string { return Graded8597Name }

func (graded8597) Classify(actual, target float64) Tier {
	if target == 0 {
		return None
	}
	ratio := actual * 100 / target
	switch {
	case ratio >= 97:
		return Excellent
	case ratio >= 85:
		return Warning
	default:
		return Critical
	}
}

type averageRelative struct{}

func (averageRelative) Name() string { return AverageRelativeName }

func (averageRelative) Classify(value, average float64) Tier {
	if average == 0 {
		return None
	}
	switch {
	case value >= average:
		return Excellent
	case value >= average*0.9:
		return Warning
	default:
		return Critical
	}
}

// Named policies. The thresholds differ on purpose between metrics, so
// call sites pick one explicitly.
var (
	Strict20100     Policy = strict20100{}
	Graded8597      Policy = graded8597{}
	AverageRelative Policy = averageRelative{}
)

var registry = map[string]Policy{
	Strict20100Name:     Strict20100,
	Graded8597Name:      Graded8597,
	AverageRelativeName: AverageRelative,
}

// Lookup returns the policy registered under name.
func Lookup(name string) (Policy, error) {
	p, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
	return p, nil
}

// Names lists the registered policies in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// CohortAverage is the reference for AverageRelative: the mean of the
// nonzero values.
func CohortAverage(values []float64) float64 {
	return intensity.AverageExcludingZero(values)
}
