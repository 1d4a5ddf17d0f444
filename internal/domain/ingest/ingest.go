// Package ingest turns loosely typed store or upload rows into validated
// SessionRecords. It is the only place where field defaulting happens:
// downstream code can assume every numeric field is finite and >= 0.
package ingest

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/cast"

	"github.com/okian/almog/internal/domain/model"
	"github.com/okian/almog/internal/domain/week"
)

// Row is one untyped record as delivered by a driver, CSV reader or JSON body.
type Row map[string]any

// Canonical field names.
const (
	FieldID                  = "id"
	FieldPlayerName          = "player_name"
	FieldTeam                = "team"
	FieldMatchID             = "match_id"
	FieldDate                = "date"
	FieldTotalDistance       = "total_distance"
	FieldHighSpeedDistance   = "high_speed_distance"
	FieldSprintDistance      = "sprint_distance"
	FieldAccelerationEfforts = "acceleration_efforts"
	FieldDecelerationEfforts = "deceleration_efforts"
	FieldMaxVelocity         = "max_velocity"
	FieldTotalDuration       = "total_duration"
	FieldTargetDistanceKm    = "target_distance_km"
	FieldTargetIntensityPct  = "target_intensity_pct"
	FieldNotes               = "notes"
)

// aliases maps a normalized column name to its canonical field.
var aliases = map[string]string{
	"id": FieldID, "rowid": FieldID, "sessionid": FieldID,
	"playername": FieldPlayerName, "player": FieldPlayerName, "name": FieldPlayerName, "athlete": FieldPlayerName,
	"team": FieldTeam, "teamname": FieldTeam, "squad": FieldTeam,
	"matchid": FieldMatchID, "match": FieldMatchID, "gameid": FieldMatchID,
	"date": FieldDate, "sessiondate": FieldDate, "day": FieldDate,
	"totaldistance": FieldTotalDistance, "distance": FieldTotalDistance,
	"highspeeddistance": FieldHighSpeedDistance, "hsd": FieldHighSpeedDistance, "hsr": FieldHighSpeedDistance,
	"sprintdistance": FieldSprintDistance, "sprint": FieldSprintDistance,
	"accelerationefforts": FieldAccelerationEfforts, "accelerations": FieldAccelerationEfforts, "acc": FieldAccelerationEfforts,
	"decelerationefforts": FieldDecelerationEfforts, "decelerations": FieldDecelerationEfforts, "dec": FieldDecelerationEfforts,
	"maxvelocity": FieldMaxVelocity, "maxspeed": FieldMaxVelocity, "topspeed": FieldMaxVelocity,
	"totalduration": FieldTotalDuration, "duration": FieldTotalDuration,
	"targetdistancekm": FieldTargetDistanceKm, "targetkm": FieldTargetDistanceKm, "targetdistance": FieldTargetDistanceKm,
	"targetintensitypct": FieldTargetIntensityPct, "targetintensity": FieldTargetIntensityPct,
	"notes": FieldNotes, "note": FieldNotes, "comment": FieldNotes,
}

// Canonical rewrites row keys to canonical field names. Unknown columns are kept as-is.
func Canonical(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		if field, ok := aliases[normalizeKey(k)]; ok {
			out[field] = v
			continue
		}
		out[k] = v
	}
	return out
}

// FromRow validates one row. Only a missing player name or date is an
// error; every numeric field falls back to 0.
func FromRow(row Row) (model.SessionRecord, error) {
	row = Canonical(row)

	player := strings.TrimSpace(Text(row[FieldPlayerName]))
	if player == "" {
		return model.SessionRecord{}, ErrMissingPlayer
	}
	date, err := Date(row[FieldDate])
	if err != nil {
		return model.SessionRecord{}, fmt.Errorf("%w: player %q: %w", ErrMissingDate, player, err)
	}

	return model.SessionRecord{
		ID:                  strings.TrimSpace(Text(row[FieldID])),
		PlayerName:          player,
		Team:                strings.TrimSpace(Text(row[FieldTeam])),
		MatchID:             strings.TrimSpace(Text(row[FieldMatchID])),
		Date:                date,
		TotalDistance:       NumberOrZero(row[FieldTotalDistance]),
		HighSpeedDistance:   NumberOrZero(row[FieldHighSpeedDistance]),
		SprintDistance:      NumberOrZero(row[FieldSprintDistance]),
		AccelerationEfforts: NumberOrZero(row[FieldAccelerationEfforts]),
		DecelerationEfforts: NumberOrZero(row[FieldDecelerationEfforts]),
		MaxVelocity:         NumberOrZero(row[FieldMaxVelocity]),
		TotalDuration:       DurationOrZero(row[FieldTotalDuration]),
		TargetDistanceKm:    NumberOrZero(row[FieldTargetDistanceKm]),
		TargetIntensityPct:  NumberOrZero(row[FieldTargetIntensityPct]),
		Notes:               strings.TrimSpace(Text(row[FieldNotes])),
	}, nil
}

// Records validates rows in order. Rejected rows are returned with their
// errors so the caller can log them; they never abort the batch.
func Records(rows []Row) ([]model.SessionRecord, []error) {
	out := make([]model.SessionRecord, 0, len(rows))
	var rejected []error
	for i, row := range rows {
		rec, err := FromRow(row)
		if err != nil {
			rejected = append(rejected, fmt.Errorf("row %d: %w", i, err))
			continue
		}
		out = append(out, rec)
	}
	return out, rejected
}

// thousands matches comma-grouped numbers such as "1,234" or "12,500.5".
var thousands = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d+)?$`)

// NumberOrZero coerces v to a finite, non-negative float64. Commas are only
// read as thousands separators; "12,5" is ambiguous and becomes 0, like
// anything else that cannot be read as a number.
func NumberOrZero(v any) float64 {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0
		}
		if strings.Contains(s, ",") {
			if !thousands.MatchString(s) {
				return 0
			}
			s = strings.ReplaceAll(s, ",", "")
		}
		v = s
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// DurationOrZero reads HH:MM:SS text, a time.Duration, or a number of seconds.
// Anything unreadable or beyond the range of a Duration becomes 0.
func DurationOrZero(v any) time.Duration {
	switch t := v.(type) {
	case nil:
		return 0
	case time.Duration:
		if t < 0 {
			return 0
		}
		return t
	case []byte:
		return DurationOrZero(string(t))
	case string:
		if d, err := model.ParseClock(t); err == nil {
			return d
		}
		return secondsOrZero(NumberOrZero(t))
	default:
		return secondsOrZero(NumberOrZero(t))
	}
}

// secondsOrZero drops values too large for a Duration instead of letting
// them wrap negative.
func secondsOrZero(s float64) time.Duration {
	d, ok := model.DurationOfSeconds(s)
	if !ok {
		return 0
	}
	return d
}

// Date reads a civil date from a time.Time, an ISO date, or any layout cast
// understands. Dates whose week leaves years 1-9999 are rejected.
func Date(v any) (civil.Date, error) {
	switch t := v.(type) {
	case nil:
		return civil.Date{}, fmt.Errorf("empty date")
	case civil.Date:
		if !t.IsValid() {
			return civil.Date{}, fmt.Errorf("invalid date %v", t)
		}
		return supported(t)
	case []byte:
		return Date(string(t))
	case string:
		s := strings.TrimSpace(t)
		if d, err := civil.ParseDate(s); err == nil {
			return supported(d)
		}
		v = s
	}
	tm, err := cast.ToTimeE(v)
	if err != nil {
		return civil.Date{}, err
	}
	if tm.IsZero() {
		return civil.Date{}, fmt.Errorf("zero date")
	}
	return supported(civil.DateOf(tm))
}

func supported(d civil.Date) (civil.Date, error) {
	if !week.Supported(d) {
		return civil.Date{}, fmt.Errorf("%w: %s", week.ErrOutOfRange, d)
	}
	return d, nil
}

// Text renders v as a string; nil becomes "".
func Text(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return s
}

func normalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	return strings.NewReplacer(" ", "", "_", "", "-", "", ".", "").Replace(k)
}
