package seed

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/okian/almog/internal/domain/ingest"
	"github.com/okian/almog/internal/domain/model"
	"github.com/okian/almog/internal/domain/week"
)

// Ranges of a training session for a player with capacity 1.0.
const (
	trainingDistanceMin = 4200.0
	trainingDistanceMax = 7800.0
	matchDistanceMin    = 9000.0
	matchDistanceMax    = 11800.0
	hsdShareMin         = 0.05
	hsdShareMax         = 0.11
	sprintShareMin      = 0.010
	sprintShareMax      = 0.035
	accPerKmMin         = 4.0
	accPerKmMax         = 7.5
	decPerKmMin         = 3.5
	decPerKmMax         = 7.0
	maxVelocityMin      = 26.0
	maxVelocityMax      = 34.5
	trainingMinutesMin  = 55.0
	trainingMinutesMax  = 95.0
	matchMinutesMin     = 70.0
	matchMinutesMax     = 96.0
	capacityMin         = 0.8
	capacityMax         = 1.2
	absenceRate         = 0.04
	noteRate            = 0.06
)

// trainingOffsets are days after the Sunday week start, in preference order.
var trainingOffsets = []int{1, 2, 4, 5, 3, 0}

const matchOffset = 6

var (
	firstNames = []string{"Dan", "Omer", "Eran", "Yonatan", "Nehorai", "Liel", "Manor", "Gaby", "Tal", "Oscar", "Roy", "Itay", "Shon", "Mohammad", "Dor", "Ilay", "Hisham", "Amir"}
	lastNames  = []string{"Levy", "Cohen", "Peretz", "Biton", "Dabush", "Abada", "Solomon", "Kinda", "Ben Haim", "Gloukh", "Revivo", "Hasarma", "Golasa", "Abu Fani", "Turgeman", "Feingold", "Layous", "Khalaili"}
	noteTexts  = []string{"tight hamstring", "returning from illness", "modified session", "extra gym work", "rested for match", "minor knock"}
)

type player struct {
	name     string
	team     string
	capacity float64
	targetKm float64
	targetIP float64
}

// Generate builds a deterministic season for cfg. Records come out in
// date order with uuid ids.
func Generate(cfg Config) []model.SessionRecord {
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // synthetic data only

	players := roster(rng, cfg)
	first := week.Of(cfg.Start)
	var out []model.SessionRecord

	for w := 0; w < cfg.Weeks; w++ {
		sunday := first.Start.AddDays(7 * w)
		for _, p := range players {
			if rng.Float64() < absenceRate {
				continue
			}
			for _, off := range trainingOffsets[:cfg.SessionsPerWeek] {
				out = append(out, session(rng, p, sunday.AddDays(off), ""))
			}
			matchID := fmt.Sprintf("%s-%s", slug(p.team), sunday.AddDays(matchOffset))
			out = append(out, session(rng, p, sunday.AddDays(matchOffset), matchID))
		}
	}
	sortByDate(out)
	return out
}

func roster(rng *rand.Rand, cfg Config) []player {
	out := make([]player, 0, cfg.Players*len(cfg.Teams))
	seen := make(map[string]bool)
	for _, team := range cfg.Teams {
		for i := 0; i < cfg.Players; i++ {
			name := uniqueName(rng, seen)
			out = append(out, player{
				name:     name,
				team:     team,
				capacity: between(rng, capacityMin, capacityMax),
				targetKm: math.Round(between(rng, 28, 40)),
				targetIP: math.Round(between(rng, 480, 640)),
			})
		}
	}
	return out
}

func uniqueName(rng *rand.Rand, seen map[string]bool) string {
	var name string
	for attempt := 0; attempt < 10; attempt++ {
		name = firstNames[rng.Intn(len(firstNames))] + " " + lastNames[rng.Intn(len(lastNames))]
		if !seen[name] {
			seen[name] = true
			return name
		}
	}
	name = fmt.Sprintf("%s %d", name, len(seen)+1)
	seen[name] = true
	return name
}

func session(rng *rand.Rand, p player, day civil.Date, matchID string) model.SessionRecord {
	distMin, distMax := trainingDistanceMin, trainingDistanceMax
	minMin, minMax := trainingMinutesMin, trainingMinutesMax
	if matchID != "" {
		distMin, distMax = matchDistanceMin, matchDistanceMax
		minMin, minMax = matchMinutesMin, matchMinutesMax
	}
	dist := round1(between(rng, distMin, distMax) * p.capacity)
	km := dist / 1000

	var notes string
	if rng.Float64() < noteRate {
		notes = noteTexts[rng.Intn(len(noteTexts))]
	}
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		id = uuid.New()
	}

	return model.SessionRecord{
		ID:                  id.String(),
		PlayerName:          p.name,
		Team:                p.team,
		MatchID:             matchID,
		Date:                day,
		TotalDistance:       dist,
		HighSpeedDistance:   round1(dist * between(rng, hsdShareMin, hsdShareMax)),
		SprintDistance:      round1(dist * between(rng, sprintShareMin, sprintShareMax)),
		AccelerationEfforts: math.Round(km * between(rng, accPerKmMin, accPerKmMax)),
		DecelerationEfforts: math.Round(km * between(rng, decPerKmMin, decPerKmMax)),
		MaxVelocity:         round1(between(rng, maxVelocityMin, maxVelocityMax)),
		TotalDuration:       time.Duration(math.Round(between(rng, minMin, minMax)*60)) * time.Second,
		TargetDistanceKm:    p.targetKm,
		TargetIntensityPct:  p.targetIP,
		Notes:               notes,
	}
}

// Rows renders records as loose rows with canonical column names, the
// shape POST /sessions accepts.
func Rows(recs []model.SessionRecord) []ingest.Row {
	out := make([]ingest.Row, len(recs))
	for i, r := range recs {
		row := ingest.Row{
			ingest.FieldID:                  r.ID,
			ingest.FieldPlayerName:          r.PlayerName,
			ingest.FieldDate:                r.Date.String(),
			ingest.FieldTotalDistance:       r.TotalDistance,
			ingest.FieldHighSpeedDistance:   r.HighSpeedDistance,
			ingest.FieldSprintDistance:      r.SprintDistance,
			ingest.FieldAccelerationEfforts: r.AccelerationEfforts,
			ingest.FieldDecelerationEfforts: r.DecelerationEfforts,
			ingest.FieldMaxVelocity:         r.MaxVelocity,
			ingest.FieldTotalDuration:       r.DurationLabel(),
			ingest.FieldTargetDistanceKm:    r.TargetDistanceKm,
			ingest.FieldTargetIntensityPct:  r.TargetIntensityPct,
		}
		if r.Team != "" {
			row[ingest.FieldTeam] = r.Team
		}
		if r.MatchID != "" {
			row[ingest.FieldMatchID] = r.MatchID
		}
		if r.Notes != "" {
			row[ingest.FieldNotes] = r.Notes
		}
		out[i] = row
	}
	return out
}

func sortByDate(recs []model.SessionRecord) {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })
}

func between(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func slug(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), "-"))
}
