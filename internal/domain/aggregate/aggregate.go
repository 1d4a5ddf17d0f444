// Package aggregate groups session records into per-entity summaries.
package aggregate

import (
	"strings"

	"github.com/okian/almog/internal/domain/intensity"
	"github.com/okian/almog/internal/domain/model"
	"github.com/okian/almog/internal/domain/week"
)

// Key identifies one partition. Entity is the player or team name; Group is
// the match id for per-match groupings.
type Key struct {
	Entity string
	Week   week.Key
	Group  string
}

// KeyFunc assigns a record to a partition.
type KeyFunc func(model.SessionRecord) Key

// ByPlayerWeek partitions by (player, week).
func ByPlayerWeek(r model.SessionRecord) Key {
	return Key{Entity: r.PlayerName, Week: week.Of(r.Date)}
}

// ByTeamMatch partitions by (team, match). The week is that of the match date.
func ByTeamMatch(r model.SessionRecord) Key {
	return Key{Entity: r.Team, Week: week.Of(r.Date), Group: r.MatchID}
}

// ByTeamWeek partitions by (team, week).
func ByTeamWeek(r model.SessionRecord) Key {
	return Key{Entity: r.Team, Week: week.Of(r.Date)}
}

// Grouping names a KeyFunc so it can be picked from config or a query string.
type Grouping string

// Supported groupings.
const (
	PlayerWeek Grouping = "player_week"
	TeamMatch  Grouping = "team_match"
	TeamWeek   Grouping = "team_week"
)

// KeyFunc returns the partition function for g, defaulting to ByPlayerWeek.
func (g Grouping) KeyFunc() KeyFunc {
	switch g {
	case TeamMatch:
		return ByTeamMatch
	case TeamWeek:
		return ByTeamWeek
	default:
		return ByPlayerWeek
	}
}

// Valid reports whether g is a known grouping.
func (g Grouping) Valid() bool {
	switch g {
	case PlayerWeek, TeamMatch, TeamWeek:
		return true
	}
	return false
}

// NotesPolicy decides how member notes collapse into one aggregate note.
type NotesPolicy string

// Supported notes policies.
const (
	// FirstNonEmpty keeps the first non-blank note in scan order.
	FirstNonEmpty NotesPolicy = "first"
	// Concatenate joins every non-blank note with NotesSeparator.
	Concatenate NotesPolicy = "concat"

	NotesSeparator = "; "
)

// Valid reports whether p is a known policy.
func (p NotesPolicy) Valid() bool {
	return p == FirstNonEmpty || p == Concatenate
}

// Aggregate partitions records by keyFn and summarises each partition.
//
// Records are scanned in input order, which callers must keep date
// ascending: targets, the representative date and FirstNonEmpty notes all
// come from the earliest member. Partitions are returned in first-seen order.
func Aggregate(records []model.SessionRecord, keyFn KeyFunc, policy NotesPolicy) []model.WeeklyAggregate {
	if keyFn == nil {
		keyFn = ByPlayerWeek
	}
	if !policy.Valid() {
		policy = FirstNonEmpty
	}

	out := make([]model.WeeklyAggregate, 0)
	index := make(map[Key]int)
	notes := make(map[Key][]string)

	for _, r := range records {
		k := keyFn(r)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, model.WeeklyAggregate{
				EntityName:         k.Entity,
				Week:               k.Week,
				GroupKey:           k.Group,
				TargetDistanceKm:   r.TargetDistanceKm,
				TargetIntensityPct: r.TargetIntensityPct,
				RepresentativeDate: r.Date,
			})
		}

		a := &out[i]
		a.TotalDistance += r.TotalDistance
		a.HighSpeedDistance += r.HighSpeedDistance
		a.SprintDistance += r.SprintDistance
		a.AccelerationEfforts += r.AccelerationEfforts
		a.DecelerationEfforts += r.DecelerationEfforts
		a.TotalDurationMinutes += r.TotalDuration.Minutes()
		if r.MaxVelocity > a.MaxVelocity {
			a.MaxVelocity = r.MaxVelocity
		}
		a.Sessions++

		if n := strings.TrimSpace(r.Notes); n != "" {
			notes[k] = append(notes[k], n)
		}
	}

	for k, i := range index {
		out[i].Notes = collapse(notes[k], policy)
		intensity.Apply(&out[i])
	}
	return out
}

func collapse(notes []string, policy NotesPolicy) string {
	if len(notes) == 0 {
		return ""
	}
	if policy == Concatenate {
		return strings.Join(notes, NotesSeparator)
	}
	return notes[0]
}

// Weeks returns the distinct weeks of aggs ordered by start date.
func Weeks(aggs []model.WeeklyAggregate) []week.Key {
	seen := make(map[week.Key]struct{}, len(aggs))
	keys := make([]week.Key, 0)
	for _, a := range aggs {
		if _, ok := seen[a.Week]; ok {
			continue
		}
		seen[a.Week] = struct{}{}
		keys = append(keys, a.Week)
	}
	week.Sort(keys)
	return keys
}

// InWeek returns the aggregates belonging to k, in input order.
func InWeek(aggs []model.WeeklyAggregate, k week.Key) []model.WeeklyAggregate {
	out := make([]model.WeeklyAggregate, 0)
	for _, a := range aggs {
		if a.Week == k {
			out = append(out, a)
		}
	}
	return out
}
