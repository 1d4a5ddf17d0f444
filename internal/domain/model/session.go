// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/okian/almog/internal/domain/week"
)

// SessionRecord is one player's GPS/fitness summary for one training or match session.
// Records are validated by the ingest package before they reach the pipeline,
// so numeric fields are always finite and non-negative.
type SessionRecord struct {
	ID         string     `json:"id"`
	PlayerName string     `json:"player_name"`
	Team       string     `json:"team,omitempty"`
	MatchID    string     `json:"match_id,omitempty"`
	Date       civil.Date `json:"date"`

	TotalDistance       float64 `json:"total_distance"`
	HighSpeedDistance   float64 `json:"high_speed_distance"`
	SprintDistance      float64 `json:"sprint_distance"`
	AccelerationEfforts float64 `json:"acceleration_efforts"`
	DecelerationEfforts float64 `json:"deceleration_efforts"`
	MaxVelocity         float64 `json:"max_velocity"`

	TotalDuration time.Duration `json:"-"`

	TargetDistanceKm   float64 `json:"target_distance_km"`
	TargetIntensityPct float64 `json:"target_intensity_pct"`

	Notes string `json:"notes,omitempty"`
}

// DurationLabel renders TotalDuration as HH:MM:SS.
func (r SessionRecord) DurationLabel() string {
	return FormatClock(r.TotalDuration)
}

// WeeklyAggregate summarises every session of one entity inside one group
// (a week, or a match when grouping by match).
type WeeklyAggregate struct {
	EntityName string   `json:"entity_name"`
	Week       week.Key `json:"week"`
	// GroupKey is the match id for per-match groupings, empty otherwise.
	GroupKey string `json:"group_key,omitempty"`

	TotalDistance       float64 `json:"total_distance"`
	HighSpeedDistance   float64 `json:"high_speed_distance"`
	SprintDistance      float64 `json:"sprint_distance"`
	AccelerationEfforts float64 `json:"acceleration_efforts"`
	DecelerationEfforts float64 `json:"deceleration_efforts"`
	MaxVelocity         float64 `json:"max_velocity"`

	TotalDurationMinutes float64 `json:"total_duration_minutes"`

	TargetDistanceKm   float64 `json:"target_distance_km"`
	TargetIntensityPct float64 `json:"target_intensity_pct"`

	Notes              string     `json:"notes"`
	RepresentativeDate civil.Date `json:"representative_date"`
	Sessions           int        `json:"sessions"`

	IntensityRatio  float64 `json:"intensity_ratio"`
	MetersPerMinute float64 `json:"meters_per_minute"`
}

// DurationLabel renders TotalDurationMinutes as HH:MM:SS. Totals beyond what
// a Duration holds render as the largest one.
func (a WeeklyAggregate) DurationLabel() string {
	d, ok := DurationOfSeconds(a.TotalDurationMinutes * 60)
	if !ok && a.TotalDurationMinutes > 0 {
		d = time.Duration(math.MaxInt64)
	}
	return FormatClock(d)
}

// IntensityPct is IntensityRatio expressed as a percentage.
func (a WeeklyAggregate) IntensityPct() float64 {
	return a.IntensityRatio * 100
}

// TargetDistanceMeters converts the km goal into meters.
func (a WeeklyAggregate) TargetDistanceMeters() float64 {
	return a.TargetDistanceKm * 1000
}

// FormatClock renders d as HH:MM:SS, rounding to the nearest second.
// Hours are not wrapped at 24 so weekly totals stay readable.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(math.Round(d.Seconds()))
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// maxSeconds is the longest span a time.Duration holds, in whole seconds.
const maxSeconds = math.MaxInt64 / int64(time.Second)

// DurationOfSeconds converts s seconds into a Duration. It reports false for
// negative, non-finite or out-of-range input.
func DurationOfSeconds(s float64) (time.Duration, bool) {
	if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 || s > float64(maxSeconds) {
		return 0, false
	}
	return time.Duration(s * float64(time.Second)), true
}

// ParseClock parses HH:MM:SS or MM:SS into a duration.
func ParseClock(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock duration %q", s)
	}
	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("invalid clock duration %q", s)
		}
		total = total*60 + v
	}
	d, ok := DurationOfSeconds(total)
	if !ok {
		return 0, fmt.Errorf("clock duration %q out of range", s)
	}
	return d, nil
}
