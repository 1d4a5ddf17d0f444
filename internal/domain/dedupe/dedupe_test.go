package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/okian/almog/internal/domain/dedupe"
	"github.com/okian/almog/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("When an id is new", func() {
			seen := d.SeenAndRecord(ctx, "row-1")

			Convey("Then it should return false and record it", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When an id was already seen", func() {
			d.SeenAndRecord(ctx, "row-1")
			seen := d.SeenAndRecord(ctx, "row-1")

			Convey("Then it should return true", func() {
				So(seen, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When reset", func() {
			d.SeenAndRecord(ctx, "row-1")
			d.Reset()

			Convey("Then ids can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "row-1"), ShouldBeFalse)
			})
		})

		Convey("When used from many goroutines", func() {
			var wg sync.WaitGroup
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 100; i++ {
						d.SeenAndRecord(ctx, fmt.Sprintf("row-%d", i))
					}
				}()
			}
			wg.Wait()

			Convey("Then each id is counted once", func() {
				So(d.Size(), ShouldEqual, 100)
			})
		})
	})

	Convey("Given a bounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))
		d.SeenAndRecord(ctx, "a")
		d.SeenAndRecord(ctx, "b")
		d.SeenAndRecord(ctx, "c")

		Convey("Then the oldest id is evicted", func() {
			So(d.Size(), ShouldEqual, 2)
			So(d.SeenAndRecord(ctx, "c"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
		})
	})
}

func TestRecords(t *testing.T) {
	Convey("Given rows where one id repeats across pages", t, func() {
		day := civil.Date{Year: 2024, Month: time.March, Day: 4}
		recs := []model.SessionRecord{
			{ID: "1", PlayerName: "A", Date: day, TotalDistance: 100},
			{ID: "2", PlayerName: "B", Date: day, TotalDistance: 200},
			{ID: "1", PlayerName: "A", Date: day, TotalDistance: 100},
			{PlayerName: "C", Date: day, TotalDistance: 300},
			{PlayerName: "c", Date: day, TotalDistance: 300},
			{PlayerName: "C", Date: day, TotalDistance: 301},
		}

		Convey("When de-duplicated", func() {
			out, dropped := dedupe.Records(context.Background(), dedupe.NewInMemoryDeduper(), recs)

			Convey("Then the first occurrence of each identity is kept", func() {
				So(dropped, ShouldEqual, 2)
				So(len(out), ShouldEqual, 4)
				So(out[0].ID, ShouldEqual, "1")
				So(out[1].ID, ShouldEqual, "2")
				So(out[2].PlayerName, ShouldEqual, "C")
				So(out[3].TotalDistance, ShouldEqual, 301)
			})

			Convey("And the input slice is left untouched", func() {
				So(recs[2].ID, ShouldEqual, "1")
				So(len(recs), ShouldEqual, 6)
			})
		})
	})
}
