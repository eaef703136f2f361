package app_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/pumpfest/crux/internal/app"
	"github.com/pumpfest/crux/internal/domain/model"
	"github.com/pumpfest/crux/internal/domain/recommend"
	"github.com/pumpfest/crux/internal/history"
)

var (
	compStart = time.Date(2026, time.March, 7, 9, 0, 0, 0, time.UTC)
	compMid   = compStart.Add(3 * time.Hour)
	compEnd   = compStart.Add(8 * time.Hour)
)

// scenario builds the worked example: category A with cap 2 and flash
// bonus 2. Competitor 1 tops 10 (flashed), 8 and 5 for a counted total
// of 20; competitor 2 tops 15 in the morning, then flashes a 10 in the
// evening for a capped 27 and the lead.
func scenario() model.Snapshot {
	return model.NewSnapshot("comp-pumpfest",
		[]model.Category{
			{Code: "A", Name: "Category A", FlashExtraPoints: 2, PumpfestTopScores: 2},
		},
		[]model.Competitor{
			{CompetitorNo: 1, Name: "One", Category: "A"},
			{CompetitorNo: 2, Name: "Two", Category: "A"},
		},
		[]model.Problem{
			{ClimbNo: 10, Score: 10, Station: "wall-1"},
			{ClimbNo: 11, Score: 8, Station: "wall-1"},
			{ClimbNo: 12, Score: 5, Station: "wall-2"},
			{ClimbNo: 13, Score: 15, Station: "wall-2"},
			{ClimbNo: 14, Score: 10, Station: "wall-3"},
		},
		[]model.Score{
			{ClimbNo: 10, Category: "A", Flashed: true, Topped: true, CompetitorNo: 1, CreatedAt: compStart.Add(time.Hour)},
			{ClimbNo: 11, Category: "A", Topped: true, CompetitorNo: 1, CreatedAt: compStart.Add(time.Hour)},
			{ClimbNo: 12, Category: "A", Topped: true, CompetitorNo: 1, CreatedAt: compStart.Add(2 * time.Hour)},
			{ClimbNo: 13, Category: "A", Topped: true, CompetitorNo: 2, CreatedAt: compStart.Add(2 * time.Hour)},
			{ClimbNo: 14, Category: "A", Flashed: true, Topped: true, CompetitorNo: 2, CreatedAt: compStart.Add(5 * time.Hour)},
		},
	)
}

func newService(t *testing.T) *app.Service {
	t.Helper()
	return app.New(
		app.WithCachePath(filepath.Join(t.TempDir(), "cache.db")),
		app.WithClock(func() time.Time { return compEnd }),
	)
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a service with a loaded competition", t, func() {
		ctx := context.Background()
		svc := newService(t)
		defer svc.Close()
		So(svc.LoadSnapshot(ctx, scenario()), ShouldBeNil)

		Convey("The leaderboard reflects the capped totals", func() {
			rows := svc.Leaderboard()
			So(rows, ShouldHaveLength, 2)
			So(rows[0].CompetitorNo, ShouldEqual, 2)
			So(rows[0].Total, ShouldEqual, 27)
			So(rows[0].Rank, ShouldEqual, 1)
			So(rows[1].CompetitorNo, ShouldEqual, 1)
			So(rows[1].Total, ShouldEqual, 20)
			So(rows[1].Tops, ShouldEqual, 2)
			So(rows[1].Flashes, ShouldEqual, 1)
			So(rows[1].Bonus, ShouldEqual, 2)
		})

		Convey("Problem stats and the category index are derived", func() {
			So(svc.ProblemStats().TopsFor(10), ShouldEqual, 1)
			So(svc.CategoryIndex().Population("A", 1), ShouldEqual, 2)
		})

		Convey("Midday rankings show the earlier ordering", func() {
			rows := svc.RankingsAt(ctx, compMid, "")
			So(rows[0].CompetitorNo, ShouldEqual, 1)
			So(rows[0].Total, ShouldEqual, 20)
			So(rows[1].CompetitorNo, ShouldEqual, 2)
			So(rows[1].Total, ShouldEqual, 15)
		})

		Convey("Rank changes capture the overtake", func() {
			changes := svc.RankChanges(ctx, compEnd, compMid, "")
			for _, c := range changes {
				if c.CompetitorNo == 2 {
					So(c.RankChange, ShouldEqual, 1) // 2 - 1
					So(c.ScoreChange, ShouldEqual, 12)
				}
			}
		})

		Convey("Rank history follows competitor 1 losing the lead", func() {
			points := svc.RankHistory(ctx, 1, history.Hourly, "")
			So(points, ShouldNotBeEmpty)
			So(points[0].Rank, ShouldEqual, 1)
			So(points[len(points)-1].Rank, ShouldEqual, 2)
		})

		Convey("Recommendations target the unfinished high-value problem", func() {
			got := svc.Recommend(ctx, recommend.Query{CompetitorNo: 1})
			So(got, ShouldHaveLength, 1)
			So(got[0].ClimbNo, ShouldEqual, 13)
			So(got[0].RankImprovement, ShouldEqual, 1)
		})

		Convey("Clearing the history cache succeeds", func() {
			svc.RankingsAt(ctx, compMid, "")
			So(svc.ClearHistoryCache(ctx), ShouldBeNil)
		})

		Convey("Stats expose monitoring fields", func() {
			stats := svc.Stats()
			So(stats["loaded"], ShouldBeTrue)
			So(stats["competitionID"], ShouldEqual, "comp-pumpfest")
			So(stats["competitors"], ShouldEqual, 2)
		})
	})
}

func TestSnapshotReplacement(t *testing.T) {
	Convey("Given a service with one competition loaded", t, func() {
		ctx := context.Background()
		svc := newService(t)
		defer svc.Close()
		So(svc.LoadSnapshot(ctx, scenario()), ShouldBeNil)
		So(svc.Leaderboard(), ShouldHaveLength, 2)

		Convey("Loading another competition replaces everything", func() {
			replacement := model.NewSnapshot("comp-other",
				[]model.Category{{Code: "B", Name: "Category B", PumpfestTopScores: 1}},
				[]model.Competitor{{CompetitorNo: 9, Name: "Solo", Category: "B"}},
				[]model.Problem{{ClimbNo: 1, Score: 100}},
				[]model.Score{{ClimbNo: 1, Category: "B", Topped: true, CompetitorNo: 9, CreatedAt: compStart}},
			)
			So(svc.LoadSnapshot(ctx, replacement), ShouldBeNil)

			rows := svc.Leaderboard()
			So(rows, ShouldHaveLength, 1)
			So(rows[0].CompetitorNo, ShouldEqual, 9)
			So(svc.Stats()["competitionID"], ShouldEqual, "comp-other")

			Convey("And history queries answer for the new competition only", func() {
				So(svc.RankingsAt(ctx, compEnd, ""), ShouldHaveLength, 1)
			})
		})
	})
}

func TestEmptyService(t *testing.T) {
	Convey("Given a service with nothing loaded", t, func() {
		ctx := context.Background()
		svc := app.New()
		defer svc.Close()

		Convey("Every query returns empty results, not errors", func() {
			So(svc.Leaderboard(), ShouldBeEmpty)
			So(svc.ProblemStats(), ShouldBeEmpty)
			So(svc.RankingsAt(ctx, time.Now(), ""), ShouldBeEmpty)
			So(svc.RankChanges(ctx, time.Now(), time.Now(), ""), ShouldBeEmpty)
			So(svc.Recommend(ctx, recommend.Query{CompetitorNo: 1}), ShouldBeEmpty)
			So(svc.ClearHistoryCache(ctx), ShouldBeNil)
		})

		Convey("An empty snapshot loads into empty tables", func() {
			So(svc.LoadSnapshot(ctx, model.Snapshot{CompetitionID: "empty"}), ShouldBeNil)
			So(svc.Leaderboard(), ShouldBeEmpty)
		})
	})
}
