package aggregate_test

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/okian/almog/internal/domain/aggregate"
	"github.com/okian/almog/internal/domain/ingest"
	"github.com/okian/almog/internal/domain/model"
	"github.com/okian/almog/internal/domain/week"
	. "github.com/smartystreets/goconvey/convey"
)

func day(d int) civil.Date {
	return civil.Date{Year: 2024, Month: time.March, Day: d}
}

func session(player string, d int, distance, vmax float64, notes string) model.SessionRecord {
	return model.SessionRecord{
		PlayerName:          player,
		Date:                day(d),
		TotalDistance:       distance,
		HighSpeedDistance:   distance / 10,
		SprintDistance:      distance / 100,
		AccelerationEfforts: 10,
		DecelerationEfforts: 8,
		MaxVelocity:         vmax,
		TotalDuration:       30 * time.Minute,
		TargetDistanceKm:    5,
		TargetIntensityPct:  80,
		Notes:               notes,
	}
}

func TestAggregateByPlayerWeek(t *testing.T) {
	Convey("Given three sessions for one player inside one week", t, func() {
		recs := []model.SessionRecord{
			session("Dan Levy", 3, 1000, 28.5, ""),
			session("Dan Levy", 5, 2000, 31.0, "tight hamstring"),
			session("Dan Levy", 9, 3000, 29.9, "full session"),
		}
		recs[1].TargetDistanceKm = 7

		Convey("When aggregated", func() {
			aggs := aggregate.Aggregate(recs, aggregate.ByPlayerWeek, aggregate.FirstNonEmpty)

			Convey("Then one partition sums the additive fields", func() {
				So(len(aggs), ShouldEqual, 1)
				a := aggs[0]
				So(a.EntityName, ShouldEqual, "Dan Levy")
				So(a.Week, ShouldResemble, week.Of(day(3)))
				So(a.TotalDistance, ShouldEqual, 6000)
				So(a.HighSpeedDistance, ShouldEqual, 600)
				So(a.SprintDistance, ShouldEqual, 60)
				So(a.AccelerationEfforts, ShouldEqual, 30)
				So(a.DecelerationEfforts, ShouldEqual, 24)
				So(a.TotalDurationMinutes, ShouldEqual, 90)
				So(a.DurationLabel(), ShouldEqual, "01:30:00")
				So(a.Sessions, ShouldEqual, 3)
			})

			Convey("And velocity is the maximum, not the sum", func() {
				So(aggs[0].MaxVelocity, ShouldEqual, 31.0)
			})

			Convey("And targets and date come from the first member", func() {
				So(aggs[0].TargetDistanceKm, ShouldEqual, 5)
				So(aggs[0].RepresentativeDate, ShouldResemble, day(3))
			})

			Convey("And the first non-empty note wins", func() {
				So(aggs[0].Notes, ShouldEqual, "tight hamstring")
			})

			Convey("And derived metrics are filled", func() {
				So(aggs[0].MetersPerMinute, ShouldAlmostEqual, 6000.0/90, 1e-9)
				So(aggs[0].IntensityRatio, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When aggregated with the concatenate policy", func() {
			aggs := aggregate.Aggregate(recs, aggregate.ByPlayerWeek, aggregate.Concatenate)

			Convey("Then non-blank notes are joined in scan order", func() {
				So(aggs[0].Notes, ShouldEqual, "tight hamstring; full session")
			})
		})
	})

	Convey("Given sessions spanning two weeks and two players", t, func() {
		recs := []model.SessionRecord{
			session("B", 4, 100, 20, ""),
			session("A", 5, 200, 21, ""),
			session("B", 11, 300, 22, ""),
			session("A", 6, 400, 23, ""),
		}

		Convey("When aggregated", func() {
			aggs := aggregate.Aggregate(recs, nil, "")

			Convey("Then partitions come out in first-seen order", func() {
				So(len(aggs), ShouldEqual, 3)
				So(aggs[0].EntityName, ShouldEqual, "B")
				So(aggs[0].TotalDistance, ShouldEqual, 100)
				So(aggs[1].EntityName, ShouldEqual, "A")
				So(aggs[1].TotalDistance, ShouldEqual, 600)
				So(aggs[2].EntityName, ShouldEqual, "B")
				So(aggs[2].Week, ShouldResemble, week.Of(day(11)))
			})

			Convey("And Weeks lists each week once by start date", func() {
				keys := aggregate.Weeks(aggs)
				So(len(keys), ShouldEqual, 2)
				So(keys[0], ShouldResemble, week.Of(day(3)))
				So(keys[1], ShouldResemble, week.Of(day(10)))
				So(len(aggregate.InWeek(aggs, keys[0])), ShouldEqual, 2)
			})
		})
	})

	Convey("Given one normal session and one with an absurd duration in the same week", t, func() {
		recs, rejected := ingest.Records([]ingest.Row{
			{"player_name": "Dan Levy", "date": "2024-03-04", "total_distance": 3000, "total_duration": "01:30:00"},
			{"player_name": "Dan Levy", "date": "2024-03-05", "total_distance": 3000, "total_duration": "1e20"},
		})
		So(rejected, ShouldBeEmpty)

		Convey("When aggregated", func() {
			aggs := aggregate.Aggregate(recs, aggregate.ByPlayerWeek, aggregate.FirstNonEmpty)

			Convey("Then the oversized duration counts as zero and the real minutes survive", func() {
				So(len(aggs), ShouldEqual, 1)
				So(aggs[0].TotalDistance, ShouldEqual, 6000)
				So(aggs[0].TotalDurationMinutes, ShouldEqual, 90)
				So(aggs[0].DurationLabel(), ShouldEqual, "01:30:00")
				So(aggs[0].MetersPerMinute, ShouldAlmostEqual, 6000.0/90, 1e-9)
			})
		})
	})

	Convey("Given a single session", t, func() {
		aggs := aggregate.Aggregate([]model.SessionRecord{session("Solo", 7, 4200, 30, "")}, aggregate.ByPlayerWeek, aggregate.FirstNonEmpty)

		Convey("Then the aggregate equals the session", func() {
			So(aggs[0].TotalDistance, ShouldEqual, 4200)
			So(aggs[0].MaxVelocity, ShouldEqual, 30)
			So(aggs[0].Sessions, ShouldEqual, 1)
		})
	})

	Convey("Given no records", t, func() {
		aggs := aggregate.Aggregate(nil, aggregate.ByPlayerWeek, aggregate.FirstNonEmpty)

		Convey("Then the result is empty but not nil", func() {
			So(aggs, ShouldNotBeNil)
			So(len(aggs), ShouldEqual, 0)
		})
	})
}

func TestAggregateByTeamMatch(t *testing.T) {
	Convey("Given player sessions from two matches", t, func() {
		mk := func(team, match string, d int, distance float64) model.SessionRecord {
			r := session("p", d, distance, 25, "")
			r.Team, r.MatchID = team, match
			return r
		}
		recs := []model.SessionRecord{
			mk("Home", "m1", 3, 1000),
			mk("Away", "m1", 3, 1500),
			mk("Home", "m1", 3, 2000),
			mk("Home", "m2", 5, 500),
		}

		Convey("When grouped by team and match", func() {
			aggs := aggregate.Aggregate(recs, aggregate.TeamMatch.KeyFunc(), aggregate.FirstNonEmpty)

			Convey("Then each (team, match) pair is one aggregate", func() {
				So(len(aggs), ShouldEqual, 3)
				So(aggs[0].EntityName, ShouldEqual, "Home")
				So(aggs[0].GroupKey, ShouldEqual, "m1")
				So(aggs[0].TotalDistance, ShouldEqual, 3000)
				So(aggs[1].EntityName, ShouldEqual, "Away")
				So(aggs[2].GroupKey, ShouldEqual, "m2")
			})
		})

		Convey("When grouped by team and week", func() {
			aggs := aggregate.Aggregate(recs, aggregate.TeamWeek.KeyFunc(), aggregate.FirstNonEmpty)

			Convey("Then matches in the same week merge", func() {
				So(len(aggs), ShouldEqual, 2)
				So(aggs[0].TotalDistance, ShouldEqual, 3500)
			})
		})
	})

	Convey("Given grouping names", t, func() {
		So(aggregate.PlayerWeek.Valid(), ShouldBeTrue)
		So(aggregate.Grouping("by_moon").Valid(), ShouldBeFalse)
		So(aggregate.Concatenate.Valid(), ShouldBeTrue)
		So(aggregate.NotesPolicy("all").Valid(), ShouldBeFalse)
	})
}
