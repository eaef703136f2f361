package leaderboard_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/pumpfest/crux/internal/domain/leaderboard"
	"github.com/pumpfest/crux/internal/domain/model"
)

func snapshot() model.Snapshot {
	at := time.Date(2026, time.March, 7, 10, 0, 0, 0, time.UTC)
	return model.NewSnapshot("comp-1",
		[]model.Category{
			{Code: "A", Name: "Category A", FlashExtraPoints: 2, PumpfestTopScores: 2},
		},
		[]model.Competitor{
			{CompetitorNo: 1, Name: "Ada", Category: "A"},
			{CompetitorNo: 2, Name: "Ben", Category: "A"},
			{CompetitorNo: 3, Name: "Cam", Category: "A"},
		},
		[]model.Problem{
			{ClimbNo: 10, Score: 10},
			{ClimbNo: 11, Score: 8},
			{ClimbNo: 12, Score: 5},
			{ClimbNo: 13, Score: 15},
		},
		[]model.Score{
			{ClimbNo: 10, Category: "A", Flashed: true, Topped: true, CompetitorNo: 1, CreatedAt: at},
			{ClimbNo: 11, Category: "A", Topped: true, CompetitorNo: 1, CreatedAt: at},
			{ClimbNo: 12, Category: "A", Topped: true, CompetitorNo: 1, CreatedAt: at},
			{ClimbNo: 13, Category: "A", Topped: true, CompetitorNo: 2, CreatedAt: at},
		},
	)
}

func TestBuild(t *testing.T) {
	Convey("Given a loaded snapshot", t, func() {
		snap := snapshot()

		Convey("When building the leaderboard", func() {
			rows := leaderboard.Build(snap)

			Convey("Then rows are ordered by total descending", func() {
				So(rows, ShouldHaveLength, 3)
				So(rows[0].Name, ShouldEqual, "Ada") // 12 + 8 = 20
				So(rows[0].Total, ShouldEqual, 20)
				So(rows[1].Name, ShouldEqual, "Ben") // 15
				So(rows[1].Total, ShouldEqual, 15)
				So(rows[2].Name, ShouldEqual, "Cam") // no scores
				So(rows[2].Total, ShouldEqual, 0)
			})

			Convey("And ranks are competition ranks", func() {
				So(rows[0].Rank, ShouldEqual, 1)
				So(rows[1].Rank, ShouldEqual, 2)
				So(rows[2].Rank, ShouldEqual, 3)
			})

			Convey("And category fields are attached", func() {
				So(rows[0].CategoryFullName, ShouldEqual, "Category A")
				So(rows[0].FlashExtraPoints, ShouldEqual, 2)
			})

			Convey("And higher total never ranks worse than lower total", func() {
				for i := range rows {
					for j := range rows {
						if rows[i].Total > rows[j].Total {
							So(rows[i].Rank, ShouldBeLessThanOrEqualTo, rows[j].Rank)
						}
					}
				}
			})

			Convey("And the source competitors are untouched", func() {
				So(snap.Competitors[1], ShouldResemble, model.Competitor{CompetitorNo: 1, Name: "Ada", Category: "A"})
			})
		})

		Convey("When totals tie", func() {
			at := time.Now().UTC()
			snap.Scores[3] = []model.Score{
				{ClimbNo: 13, Category: "A", Topped: true, CompetitorNo: 3, CreatedAt: at},
			}
			rows := leaderboard.Build(snap)

			Convey("Then tied competitors share a rank and the next rank has a gap", func() {
				So(rows[0].Rank, ShouldEqual, 1) // Ada 20
				So(rows[1].Rank, ShouldEqual, 2) // Ben 15
				So(rows[2].Rank, ShouldEqual, 2) // Cam 15
			})
		})

		Convey("When the snapshot is empty", func() {
			rows := leaderboard.Build(model.Snapshot{})

			Convey("Then the table is empty, not nil-panicky", func() {
				So(rows, ShouldBeEmpty)
			})
		})
	})
}

func TestIndexAndFilter(t *testing.T) {
	Convey("Given a built leaderboard", t, func() {
		rows := leaderboard.Build(snapshot())

		Convey("Index joins rows back to identity", func() {
			idx := leaderboard.Index(rows)
			So(idx, ShouldHaveLength, 3)
			So(idx[1].Name, ShouldEqual, "Ada")
			So(idx[1].Rank, ShouldEqual, 1)
		})

		Convey("FilterCategory keeps order and ranks", func() {
			filtered := leaderboard.FilterCategory(rows, "A")
			So(filtered, ShouldHaveLength, 3)
			So(leaderboard.FilterCategory(rows, "B"), ShouldBeEmpty)
			So(leaderboard.FilterCategory(rows, ""), ShouldHaveLength, 3)
		})
	})
}
