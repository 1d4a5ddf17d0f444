package ingest_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/okian/almog/internal/domain/ingest"
	"github.com/okian/almog/internal/domain/week"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNumberOrZero(t *testing.T) {
	Convey("Given loosely typed numeric values", t, func() {
		Convey("Then readable numbers pass through", func() {
			So(ingest.NumberOrZero(12.5), ShouldEqual, 12.5)
			So(ingest.NumberOrZero(7), ShouldEqual, 7)
			So(ingest.NumberOrZero(int64(9)), ShouldEqual, 9)
			So(ingest.NumberOrZero("1,250.5"), ShouldEqual, 1250.5)
			So(ingest.NumberOrZero([]byte("42")), ShouldEqual, 42)
		})

		Convey("Then everything else becomes zero", func() {
			So(ingest.NumberOrZero(nil), ShouldEqual, 0)
			So(ingest.NumberOrZero(""), ShouldEqual, 0)
			So(ingest.NumberOrZero("   "), ShouldEqual, 0)
			So(ingest.NumberOrZero("n/a"), ShouldEqual, 0)
			So(ingest.NumberOrZero(math.NaN()), ShouldEqual, 0)
			So(ingest.NumberOrZero(math.Inf(1)), ShouldEqual, 0)
			So(ingest.NumberOrZero(-3.0), ShouldEqual, 0)
			So(ingest.NumberOrZero(struct{}{}), ShouldEqual, 0)
		})

		Convey("Then commas only count as thousands separators", func() {
			So(ingest.NumberOrZero("1,234"), ShouldEqual, 1234)
			So(ingest.NumberOrZero("12,500,000.25"), ShouldEqual, 12500000.25)
			So(ingest.NumberOrZero("12,5"), ShouldEqual, 0)
			So(ingest.NumberOrZero("1,23"), ShouldEqual, 0)
			So(ingest.NumberOrZero("1234,567"), ShouldEqual, 0)
			So(ingest.NumberOrZero(",500"), ShouldEqual, 0)
		})
	})
}

func TestDurationOrZero(t *testing.T) {
	Convey("Given duration values", t, func() {
		So(ingest.DurationOrZero("01:30:00"), ShouldEqual, 90*time.Minute)
		So(ingest.DurationOrZero("45:15"), ShouldEqual, 45*time.Minute+15*time.Second)
		So(ingest.DurationOrZero(90), ShouldEqual, 90*time.Second)
		So(ingest.DurationOrZero(5*time.Minute), ShouldEqual, 5*time.Minute)
		So(ingest.DurationOrZero(-5*time.Minute), ShouldEqual, 0)
		So(ingest.DurationOrZero(nil), ShouldEqual, 0)
		So(ingest.DurationOrZero("garbage"), ShouldEqual, 0)

		Convey("Then values beyond a Duration become zero instead of wrapping", func() {
			So(ingest.DurationOrZero("1e20"), ShouldEqual, 0)
			So(ingest.DurationOrZero(1e20), ShouldEqual, 0)
			So(ingest.DurationOrZero(math.MaxFloat64), ShouldEqual, 0)
			So(ingest.DurationOrZero("2562047788015216:00:00"), ShouldEqual, 0)
			So(ingest.DurationOrZero(9.2e9), ShouldBeGreaterThan, 0)
		})
	})
}

func TestDate(t *testing.T) {
	Convey("Given date values", t, func() {
		want := civil.Date{Year: 2024, Month: time.March, Day: 5}

		Convey("Then ISO text, time.Time and civil dates are accepted", func() {
			d, err := ingest.Date("2024-03-05")
			So(err, ShouldBeNil)
			So(d, ShouldResemble, want)

			d, err = ingest.Date(time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC))
			So(err, ShouldBeNil)
			So(d, ShouldResemble, want)

			d, err = ingest.Date([]byte("2024-03-05"))
			So(err, ShouldBeNil)
			So(d, ShouldResemble, want)

			d, err = ingest.Date(want)
			So(err, ShouldBeNil)
			So(d, ShouldResemble, want)
		})

		Convey("Then a timestamp keeps its own calendar day", func() {
			d, err := ingest.Date("2024-03-05T23:30:00+03:00")
			So(err, ShouldBeNil)
			So(d, ShouldResemble, want)
		})

		Convey("Then missing or unreadable dates fail", func() {
			_, err := ingest.Date(nil)
			So(err, ShouldNotBeNil)
			_, err = ingest.Date("not a date")
			So(err, ShouldNotBeNil)
			_, err = ingest.Date(time.Time{})
			So(err, ShouldNotBeNil)
		})

		Convey("Then dates whose week label cannot round-trip are rejected", func() {
			_, err := ingest.Date("9999-12-27")
			So(errors.Is(err, week.ErrOutOfRange), ShouldBeTrue)
			_, err = ingest.Date(civil.Date{Year: 1, Month: time.January, Day: 2})
			So(errors.Is(err, week.ErrOutOfRange), ShouldBeTrue)

			d, err := ingest.Date("9999-12-25")
			So(err, ShouldBeNil)
			So(d, ShouldResemble, civil.Date{Year: 9999, Month: time.December, Day: 25})
		})
	})
}

func TestFromRow(t *testing.T) {
	Convey("Given a row with aliased column names", t, func() {
		row := ingest.Row{
			"Player Name":       " Dan Levy ",
			"Date":              "2024-03-05",
			"Total Distance":    "5123.4",
			"HSD":               410,
			"sprint_distance":   nil,
			"Accelerations":     "31",
			"decelerations":     28.0,
			"Max Speed":         "31.2",
			"Total Duration":    "01:32:10",
			"target_km":         5,
			"targetIntensity":   "80",
			"notes":             "  knee ok ",
			"unknown_extra_col": true,
		}

		Convey("When it is validated", func() {
			rec, err := ingest.FromRow(row)

			Convey("Then every field is canonical and defaulted", func() {
				So(err, ShouldBeNil)
				So(rec.PlayerName, ShouldEqual, "Dan Levy")
				So(rec.Date, ShouldResemble, civil.Date{Year: 2024, Month: time.March, Day: 5})
				So(rec.TotalDistance, ShouldEqual, 5123.4)
				So(rec.HighSpeedDistance, ShouldEqual, 410)
				So(rec.SprintDistance, ShouldEqual, 0)
				So(rec.AccelerationEfforts, ShouldEqual, 31)
				So(rec.DecelerationEfforts, ShouldEqual, 28)
				So(rec.MaxVelocity, ShouldEqual, 31.2)
				So(rec.TotalDuration, ShouldEqual, 92*time.Minute+10*time.Second)
				So(rec.TargetDistanceKm, ShouldEqual, 5)
				So(rec.TargetIntensityPct, ShouldEqual, 80)
				So(rec.Notes, ShouldEqual, "knee ok")
			})
		})
	})

	Convey("Given rows missing required fields", t, func() {
		Convey("Then a missing player is rejected", func() {
			_, err := ingest.FromRow(ingest.Row{"date": "2024-03-05"})
			So(errors.Is(err, ingest.ErrMissingPlayer), ShouldBeTrue)
		})

		Convey("Then a missing date is rejected", func() {
			_, err := ingest.FromRow(ingest.Row{"player": "Dan Levy"})
			So(errors.Is(err, ingest.ErrMissingDate), ShouldBeTrue)
		})
	})
}

func TestRecords(t *testing.T) {
	Convey("Given a batch with one bad row", t, func() {
		rows := []ingest.Row{
			{"player": "A", "date": "2024-03-03", "distance": 100},
			{"player": "", "date": "2024-03-03"},
			{"player": "B", "date": "2024-03-04", "distance": "x"},
		}

		Convey("When validated", func() {
			recs, rejected := ingest.Records(rows)

			Convey("Then good rows survive in order and the bad one is reported", func() {
				So(len(recs), ShouldEqual, 2)
				So(recs[0].PlayerName, ShouldEqual, "A")
				So(recs[1].TotalDistance, ShouldEqual, 0)
				So(len(rejected), ShouldEqual, 1)
				So(errors.Is(rejected[0], ingest.ErrMissingPlayer), ShouldBeTrue)
			})
		})
	})
}
