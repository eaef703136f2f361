package stats_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/pumpfest/crux/internal/domain/model"
	"github.com/pumpfest/crux/internal/domain/stats"
)

func TestBuildCategoryIndex(t *testing.T) {
	Convey("Given a snapshot with scores across categories", t, func() {
		ctx := context.Background()
		at := time.Date(2026, time.March, 7, 10, 0, 0, 0, time.UTC)
		snap := model.NewSnapshot("comp-1",
			[]model.Category{
				{Code: "A", Name: "Category A"},
				{Code: "B", Name: "Category B"},
			},
			[]model.Competitor{
				{CompetitorNo: 1, Name: "Ada", Category: "A"},
				{CompetitorNo: 2, Name: "Ben", Category: "A"},
				{CompetitorNo: 3, Name: "Eva", Category: "B"},
				{CompetitorNo: 4, Name: "Kim", Category: "B"}, // never scores
			},
			[]model.Problem{{ClimbNo: 10, Score: 10}},
			[]model.Score{
				{ClimbNo: 10, Category: "A", Topped: true, CompetitorNo: 1, CreatedAt: at},
				{ClimbNo: 11, Category: "A", CompetitorNo: 1, CreatedAt: at},
				{ClimbNo: 12, Category: "A", CompetitorNo: 1, CreatedAt: at},
				{ClimbNo: 10, Category: "A", Topped: true, CompetitorNo: 2, CreatedAt: at},
				{ClimbNo: 10, Category: "B", Topped: true, CompetitorNo: 3, CreatedAt: at},
			},
		)
		builder := stats.NewBuilder()

		Convey("When building the index", func() {
			idx := builder.BuildCategoryIndex(ctx, snap)

			Convey("Then each bucket holds per-competitor attempt counts", func() {
				So(idx["A"], ShouldResemble, []int{3, 1})
				So(idx["B"], ShouldResemble, []int{1})
			})

			Convey("And competitors with no scores are excluded", func() {
				total := 0
				for _, bucket := range idx {
					total += len(bucket)
				}
				So(total, ShouldEqual, 3)
			})
		})

		Convey("When counting population with a minimum attempt threshold", func() {
			idx := builder.BuildCategoryIndex(ctx, snap)

			So(idx.Population("A", 1), ShouldEqual, 2)
			So(idx.Population("A", 2), ShouldEqual, 1)
			So(idx.Population("A", 4), ShouldEqual, 0)
			So(idx.Population("missing", 1), ShouldEqual, 0)
		})

		Convey("When a competitor's first score carries an unknown category", func() {
			snap.Scores[5] = []model.Score{
				{ClimbNo: 10, Category: "ZZ", Topped: true, CompetitorNo: 5, CreatedAt: at},
			}
			idx := builder.BuildCategoryIndex(ctx, snap)

			Convey("Then they are excluded from every bucket", func() {
				So(idx, ShouldNotContainKey, "ZZ")
			})
		})

		Convey("When a score set mixes categories", func() {
			snap.Scores[6] = []model.Score{
				{ClimbNo: 10, Category: "B", Topped: true, CompetitorNo: 6, CreatedAt: at},
				{ClimbNo: 11, Category: "A", Topped: true, CompetitorNo: 6, CreatedAt: at},
			}
			idx := builder.BuildCategoryIndex(ctx, snap)

			Convey("Then the first record's category wins", func() {
				So(idx["B"], ShouldResemble, []int{1, 2})
			})
		})
	})
}

func TestTopPercentage(t *testing.T) {
	Convey("TopPercentage normalizes tops by population", t, func() {
		So(stats.TopPercentage(3, 10), ShouldEqual, 0.3)
		So(stats.TopPercentage(0, 10), ShouldEqual, 0)
		So(stats.TopPercentage(3, 0), ShouldEqual, 0)
	})
}
