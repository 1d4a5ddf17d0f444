package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/okian/almog/internal/domain/model"
	"github.com/okian/almog/internal/domain/notes"
	"github.com/okian/almog/internal/domain/week"
	"github.com/okian/almog/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.InitWithOptions(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func day(d int) civil.Date { return civil.Date{Year: 2024, Month: time.March, Day: d} }

func sample() []model.SessionRecord {
	return []model.SessionRecord{
		{ID: "c", PlayerName: "Dan Levy", Date: day(6), TotalDistance: 3000, MaxVelocity: 29.5, TotalDuration: 75 * time.Minute, TargetDistanceKm: 5},
		{ID: "a", PlayerName: "Dan Levy", Date: day(4), TotalDistance: 1000, TotalDuration: 30 * time.Minute, TargetDistanceKm: 5, Notes: "light"},
		{ID: "b", PlayerName: "Omer Cohen", Date: day(4), TotalDistance: 2000, HighSpeedDistance: 150.5},
		{ID: "d", PlayerName: "Dan Levy", Date: day(12), TotalDistance: 4000},
		{ID: "e", PlayerName: "Omer Cohen", Date: day(13), TotalDistance: 500},
	}
}

func openSQLite(ctx context.Context, opts ...Option) *SQLStore {
	s, err := Open(ctx, SQLite, ":memory:", opts...)
	So(err, ShouldBeNil)
	So(s.EnsureSchema(ctx), ShouldBeNil)
	return s
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a memory store with unordered rows", t, func() {
		s := NewMemoryStore(sample()...)

		Convey("When fetching everything", func() {
			recs, err := s.FetchAll(ctx)

			Convey("Then rows come back by date then id", func() {
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, 5)
				So(recs[0].ID, ShouldEqual, "a")
				So(recs[1].ID, ShouldEqual, "b")
				So(recs[2].ID, ShouldEqual, "c")
				So(recs[4].ID, ShouldEqual, "e")
			})

			Convey("And the caller gets a copy", func() {
				recs[0].Notes = "changed"
				again, _ := s.FetchAll(ctx)
				So(again[0].Notes, ShouldEqual, "light")
			})
		})

		Convey("When writing notes for a week", func() {
			k := week.Of(day(5))
			n, err := s.CountSessions(ctx, "Dan Levy", k.Start, k.End)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)

			updated, err := s.UpdateNotes(ctx, "Dan Levy", k.Start, k.End, "fine")

			Convey("Then only rows inside the range change", func() {
				So(err, ShouldBeNil)
				So(updated, ShouldEqual, 2)
				recs, _ := s.FetchAll(ctx)
				So(recs[0].Notes, ShouldEqual, "fine")
				So(recs[3].Notes, ShouldEqual, "")
			})
		})

		Convey("When inserting a placeholder", func() {
			So(s.InsertPlaceholder(ctx, model.SessionRecord{ID: "p", PlayerName: "New", Date: day(17)}), ShouldBeNil)

			Convey("Then it is stored", func() {
				So(s.Len(), ShouldEqual, 6)
				So(s.Close(), ShouldBeNil)
			})
		})
	})
}

func TestSQLStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a sqlite store with small pages", t, func() {
		s := openSQLite(ctx, WithPageSize(2))
		defer s.Close()
		So(s.Insert(ctx, sample()), ShouldBeNil)

		Convey("When fetching everything", func() {
			recs, err := s.FetchAll(ctx)

			Convey("Then every page is read and rows are date ordered", func() {
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, 5)
				So(recs[0].ID, ShouldEqual, "a")
				So(recs[0].Date, ShouldResemble, day(4))
				So(recs[0].Notes, ShouldEqual, "light")
				So(recs[1].HighSpeedDistance, ShouldEqual, 150.5)
				So(recs[2].TotalDuration, ShouldEqual, 75*time.Minute)
				So(recs[2].MaxVelocity, ShouldEqual, 29.5)
				So(recs[4].ID, ShouldEqual, "e")
			})
		})

		Convey("When counting and updating a week", func() {
			k := week.Of(day(5))
			n, err := s.CountSessions(ctx, "Dan Levy", k.Start, k.End)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)

			updated, err := s.UpdateNotes(ctx, "Dan Levy", k.Start, k.End, "recovered")

			Convey("Then the matching rows carry the note", func() {
				So(err, ShouldBeNil)
				So(updated, ShouldEqual, 2)
				recs, _ := s.FetchAll(ctx)
				So(recs[0].Notes, ShouldEqual, "recovered")
				So(recs[2].Notes, ShouldEqual, "recovered")
				So(recs[3].Notes, ShouldEqual, "")
			})
		})

		Convey("When the note attacher targets a missing week", func() {
			a := notes.NewAttacher(s)
			k := week.Of(day(20))
			res, err := a.Attach(ctx, "Omer Cohen", k, "international break")

			Convey("Then a placeholder round-trips through the table", func() {
				So(err, ShouldBeNil)
				So(res.Kind, ShouldEqual, notes.KindPlaceholder)
				recs, err := s.FetchAll(ctx)
				So(err, ShouldBeNil)
				last := recs[len(recs)-1]
				So(last.PlayerName, ShouldEqual, "Omer Cohen")
				So(last.Date, ShouldResemble, k.Start)
				So(last.TotalDistance, ShouldEqual, 0)
				So(last.Notes, ShouldEqual, "international break")
			})
		})
	})

	Convey("Given a table without ids that repeats a row", t, func() {
		s, err := Open(ctx, SQLite, ":memory:", WithTable("loose"), WithPageSize(2))
		So(err, ShouldBeNil)
		defer s.Close()
		_, err = s.db.ExecContext(ctx, `CREATE TABLE loose (
			id TEXT, player_name TEXT, team TEXT, match_id TEXT, session_date TEXT,
			total_distance REAL, high_speed_distance REAL, sprint_distance REAL,
			acceleration_efforts REAL, deceleration_efforts REAL, max_velocity REAL,
			total_duration TEXT, target_distance_km REAL, target_intensity_pct REAL, notes TEXT)`)
		So(err, ShouldBeNil)
		for _, q := range []string{
			`INSERT INTO loose (id, player_name, session_date, total_distance) VALUES ('', 'A', '2024-03-04', 100)`,
			`INSERT INTO loose (id, player_name, session_date, total_distance) VALUES ('', 'A', '2024-03-04', 100)`,
			`INSERT INTO loose (id, player_name, session_date, total_distance) VALUES ('', 'B', '2024-03-05', 'oops')`,
			`INSERT INTO loose (id, player_name, session_date, total_distance) VALUES ('', '', '2024-03-05', 10)`,
		} {
			_, err := s.db.ExecContext(ctx, q)
			So(err, ShouldBeNil)
		}

		Convey("When fetching", func() {
			recs, err := s.FetchAll(ctx)

			Convey("Then duplicates and rows without a player are dropped", func() {
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, 2)
				So(recs[0].PlayerName, ShouldEqual, "A")
				So(recs[1].PlayerName, ShouldEqual, "B")
				So(recs[1].TotalDistance, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a store whose database has gone away", t, func() {
		s := openSQLite(ctx, WithBreaker(time.Minute, 2))
		So(s.Close(), ShouldBeNil)

		Convey("When calls keep failing", func() {
			_, err1 := s.CountSessions(ctx, "A", day(3), day(9))
			_, err2 := s.CountSessions(ctx, "A", day(3), day(9))
			_, err3 := s.FetchAll(ctx)

			Convey("Then the breaker opens and reports unavailability", func() {
				So(err1, ShouldNotBeNil)
				So(errors.Is(err1, ErrUnavailable), ShouldBeFalse)
				So(err2, ShouldNotBeNil)
				So(errors.Is(err3, ErrUnavailable), ShouldBeTrue)
			})
		})
	})
}

func TestSQLStoreConfig(t *testing.T) {
	Convey("Given store construction options", t, func() {
		Convey("Then postgres placeholders are rebound", func() {
			s, err := NewSQLStore(nil, Postgres)
			So(err, ShouldBeNil)
			So(s.rebind("a = ? AND b BETWEEN ? AND ?"), ShouldEqual, "a = $1 AND b BETWEEN $2 AND $3")
		})

		Convey("Then sqlite placeholders are kept", func() {
			s, err := NewSQLStore(nil, SQLite)
			So(err, ShouldBeNil)
			So(s.rebind("a = ?"), ShouldEqual, "a = ?")
		})

		Convey("Then unsafe table names are refused", func() {
			_, err := NewSQLStore(nil, SQLite, WithTable("sessions; DROP TABLE x"))
			So(errors.Is(err, ErrInvalidTable), ShouldBeTrue)
		})

		Convey("Then schema-qualified names are accepted", func() {
			s, err := NewSQLStore(nil, Postgres, WithTable("public.sessions"))
			So(err, ShouldBeNil)
			So(s.table, ShouldEqual, "public.sessions")
		})

		Convey("Then unknown drivers are refused", func() {
			_, err := Open(context.Background(), Dialect("mysql"), "")
			So(errors.Is(err, ErrUnknownDriver), ShouldBeTrue)
		})
	})
}
