package scoring_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/pumpfest/crux/internal/domain/model"
	"github.com/pumpfest/crux/internal/domain/scoring"
)

func problemSet() map[int]model.Problem {
	created := time.Date(2026, time.March, 7, 8, 0, 0, 0, time.UTC)
	return map[int]model.Problem{
		1: {ClimbNo: 1, Score: 10, Marking: "P01", Station: "wall-1", CreatedAt: created},
		2: {ClimbNo: 2, Score: 8, Marking: "P02", Station: "wall-1", CreatedAt: created},
		3: {ClimbNo: 3, Score: 5, Marking: "P03", Station: "wall-2", CreatedAt: created},
		4: {ClimbNo: 4, Score: 15, Marking: "P04", Station: "wall-2", CreatedAt: created},
	}
}

func TestAggregate(t *testing.T) {
	Convey("Given a competitor's raw attempts", t, func() {
		problems := problemSet()
		at := time.Date(2026, time.March, 7, 10, 0, 0, 0, time.UTC)
		attempts := []model.Score{
			{ClimbNo: 1, CompetitorNo: 100, Flashed: true, Topped: true, CreatedAt: at},
			{ClimbNo: 2, CompetitorNo: 100, Topped: true, CreatedAt: at.Add(time.Minute)},
			{ClimbNo: 3, CompetitorNo: 100, Topped: true, CreatedAt: at.Add(2 * time.Minute)},
		}

		Convey("When aggregating with bonus 2 and cap 2", func() {
			res := scoring.Aggregate(attempts, problems, 2, 2)

			Convey("Then the deduped list is ordered by effective value", func() {
				So(res.Scores, ShouldHaveLength, 3)
				So(res.Scores[0].Value, ShouldEqual, 12) // 10 + flash bonus
				So(res.Scores[1].Value, ShouldEqual, 8)
				So(res.Scores[2].Value, ShouldEqual, 5)
			})

			Convey("And only the top cap entries count", func() {
				So(res.Total, ShouldEqual, 20)
				So(res.Tops, ShouldEqual, 2)
				So(res.Flashes, ShouldEqual, 1)
				So(res.Bonus, ShouldEqual, 2)
			})

			Convey("And the attempt's timestamp survives the join", func() {
				So(res.Scores[0].CreatedAt.Equal(at), ShouldBeTrue)
			})
		})

		Convey("When the same problem was attempted multiple times", func() {
			reattempts := append(attempts,
				model.Score{ClimbNo: 1, CompetitorNo: 100, Topped: true, CreatedAt: at.Add(time.Hour)},
				model.Score{ClimbNo: 1, CompetitorNo: 100, Topped: true, CreatedAt: at.Add(2 * time.Hour)},
			)
			res := scoring.Aggregate(reattempts, problems, 2, 10)

			Convey("Then exactly one entry per problem survives", func() {
				climbs := make(map[int]int)
				for _, rs := range res.Scores {
					climbs[rs.ClimbNo]++
				}
				So(climbs[1], ShouldEqual, 1)
			})

			Convey("And it is the highest-value attempt", func() {
				So(res.Scores[0].ClimbNo, ShouldEqual, 1)
				So(res.Scores[0].Value, ShouldEqual, 12)
				So(res.Scores[0].Flashed, ShouldBeTrue)
			})
		})

		Convey("When the cap is zero", func() {
			res := scoring.Aggregate(attempts, problems, 2, 0)

			Convey("Then nothing counts but the list is still returned", func() {
				So(res.Total, ShouldEqual, 0)
				So(res.Tops, ShouldEqual, 0)
				So(res.Scores, ShouldHaveLength, 3)
			})
		})

		Convey("When a score references a missing problem", func() {
			orphan := []model.Score{{ClimbNo: 99, CompetitorNo: 100, Flashed: true, Topped: true, CreatedAt: at}}
			res := scoring.Aggregate(orphan, problems, 2, 5)

			Convey("Then raw fields are kept and the value degrades to the bonus", func() {
				So(res.Scores, ShouldHaveLength, 1)
				So(res.Scores[0].Unjoined, ShouldBeTrue)
				So(res.Scores[0].BaseScore, ShouldEqual, 0)
				So(res.Scores[0].Value, ShouldEqual, 2)
			})
		})

		Convey("When there are no attempts", func() {
			res := scoring.Aggregate(nil, problems, 2, 5)

			Convey("Then everything is empty, not an error", func() {
				So(res.Scores, ShouldBeEmpty)
				So(res.Total, ShouldEqual, 0)
			})
		})
	})
}

func TestResultHelpers(t *testing.T) {
	Convey("Given an aggregated result", t, func() {
		problems := problemSet()
		at := time.Now().UTC()
		attempts := []model.Score{
			{ClimbNo: 4, CompetitorNo: 100, Topped: true, CreatedAt: at}, // 15
			{ClimbNo: 1, CompetitorNo: 100, Topped: true, CreatedAt: at}, // 10
			{ClimbNo: 2, CompetitorNo: 100, Topped: true, CreatedAt: at}, // 8
		}
		res := scoring.Aggregate(attempts, problems, 0, 2)

		Convey("Then the lowest counting score is the cap-th best value", func() {
			So(res.LowestCountingScore(2), ShouldEqual, 10)
		})

		Convey("And it is zero when fewer scores exist than the cap", func() {
			So(res.LowestCountingScore(5), ShouldEqual, 0)
		})

		Convey("When projecting a new score into the set", func() {
			Convey("A displacing value raises the total", func() {
				// [15, 12] replaces [15, 10].
				So(res.ProjectTotal(12, 2), ShouldEqual, 27)
			})

			Convey("A non-displacing value changes nothing", func() {
				So(res.ProjectTotal(7, 2), ShouldEqual, 25)
			})

			Convey("A zero cap projects to zero", func() {
				So(res.ProjectTotal(12, 0), ShouldEqual, 0)
			})
		})
	})
}
