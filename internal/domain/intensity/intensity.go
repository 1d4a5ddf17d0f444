// Package intensity derives load metrics from aggregated session totals.
package intensity

import (
	"math"

	"github.com/okian/almog/internal/domain/model"
)

// Fixed reference scales of the intensity formula. Each term contributes
// weight*value/scale, so a session hitting every scale exactly scores 1.0.
const (
	HighSpeedWeight    = 0.35
	HighSpeedScale     = 600.0
	AccelerationWeight = 0.25
	AccelerationScale  = 35.0
	DecelerationWeight = 0.20
	DecelerationScale  = 30.0
	SprintWeight       = 0.20
	SprintScale        = 100.0
)

// Ratio computes the unitless intensity of a group of sessions.
func Ratio(highSpeedDistance, accelerationEfforts, decelerationEfforts, sprintDistance float64) float64 {
	return highSpeedDistance*HighSpeedWeight/HighSpeedScale +
		accelerationEfforts*AccelerationWeight/AccelerationScale +
		decelerationEfforts*DecelerationWeight/DecelerationScale +
		sprintDistance*SprintWeight/SprintScale
}

// Percent is Ratio scaled to a percentage.
func Percent(highSpeedDistance, accelerationEfforts, decelerationEfforts, sprintDistance float64) float64 {
	return Ratio(highSpeedDistance, accelerationEfforts, decelerationEfforts, sprintDistance) * 100
}

// MetersPerMinute returns distance/minutes, or 0 when minutes is not positive.
func MetersPerMinute(distance, minutes float64) float64 {
	if minutes <= 0 || math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return 0
	}
	return distance / minutes
}

// AverageExcludingZero averages the nonzero values. Zero means "no data"
// for cohort baselines, so it is left out of both sum and count.
func AverageExcludingZero(values []float64) float64 {
	var sum float64
	var n int
	for _, v := range values {
		if v == 0 || math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Apply fills the derived fields of a.
func Apply(a *model.WeeklyAggregate) {
	a.IntensityRatio = Ratio(a.HighSpeedDistance, a.AccelerationEfforts, a.DecelerationEfforts, a.SprintDistance)
	a.MetersPerMinute = MetersPerMinute(a.TotalDistance, a.TotalDurationMinutes)
}
