// Package recommend searches a competitor's not-yet-topped problems for
// the ones most likely to improve their rank.
package recommend

import (
	"context"
	"sort"

	"github.com/pumpfest/crux/internal/domain/leaderboard"
	"github.com/pumpfest/crux/internal/domain/model"
	"github.com/pumpfest/crux/internal/domain/scoring"
	"github.com/pumpfest/crux/internal/domain/stats"
	"github.com/pumpfest/crux/pkg/metrics"
)

// A candidate must project at least this share of the points needed to
// reach the next rank, unless the competitor already leads their
// category.
const nextRankPointsShare = 0.5

// Query selects the competitor and tunes the search.
type Query struct {
	CompetitorNo int

	// SortByCategoryTops orders candidates by top count within the
	// competitor's category instead of across all categories.
	SortByCategoryTops bool

	// IncludeNonImproving keeps candidates whose projected rank
	// improvement is zero or negative.
	IncludeNonImproving bool

	// Station, when set, restricts candidates to one location.
	Station string
}

// Candidate is one recommended problem, annotated with its projected
// effect on the competitor's standing.
type Candidate struct {
	model.Problem

	// AdditionalPoints is the projected capped total minus the
	// current one.
	AdditionalPoints int `json:"additional_points"`

	// RankImprovement is the number of peer-group positions gained by
	// substituting the projected total; positive moves up.
	RankImprovement int `json:"rank_improvement"`

	// Tops is the sort key: the problem's top count, category-scoped
	// or overall per the query.
	Tops int `json:"tops"`
}

// Recommend returns the filtered, ordered candidate list for one
// competitor. peers is the competitor's category peer group in ranked
// order (best first); a competitor absent from peers is treated as
// ranked behind all of them. Inputs are never mutated; an unknown
// competitor yields an empty list.
func Recommend(ctx context.Context, snap model.Snapshot, peers []leaderboard.Row, table stats.Table, q Query) []Candidate {
	defer metrics.TimeRecommendationSearch()()

	competitor, ok := snap.Competitors[q.CompetitorNo]
	if !ok {
		metrics.RecordRecommendationSearch(0)
		return nil
	}
	category := snap.Categories[competitor.Category]
	rawScores := snap.Scores[q.CompetitorNo]

	agg := scoring.Aggregate(rawScores, snap.Problems, category.FlashExtraPoints, category.PumpfestTopScores)
	lowestCounting := agg.LowestCountingScore(category.PumpfestTopScores)
	currentTotal := agg.Total

	// A competitor missing from the peer rows ranks behind everyone,
	// so any projected entry onto the board counts as improvement.
	position := peerPosition(peers, q.CompetitorNo)
	if position < 0 {
		position = len(peers)
	}
	leading := position == 0
	pointsNeeded := 0
	if !leading {
		pointsNeeded = peers[position-1].Total - currentTotal
	}

	topped := make(map[int]struct{})
	for _, s := range rawScores {
		if s.Topped {
			topped[s.ClimbNo] = struct{}{}
		}
	}

	var candidates []Candidate
	for _, climbNo := range sortedClimbNos(snap.Problems) {
		problem := snap.Problems[climbNo]
		if _, done := topped[climbNo]; done {
			continue
		}
		// Only problems that can displace the lowest counting score
		// move the total at all.
		if problem.Score <= lowestCounting {
			continue
		}
		if q.Station != "" && problem.Station != q.Station {
			continue
		}

		projected := agg.ProjectTotal(problem.Score, category.PumpfestTopScores)
		additional := projected - currentTotal
		if !leading && float64(additional) < nextRankPointsShare*float64(pointsNeeded) {
			continue
		}

		c := Candidate{
			Problem:          problem,
			AdditionalPoints: additional,
			RankImprovement:  position - projectedPosition(peers, q.CompetitorNo, projected),
		}
		if q.SortByCategoryTops {
			c.Tops = table.CategoryTopsFor(climbNo, competitor.Category)
		} else {
			c.Tops = table.TopsFor(climbNo)
		}
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Tops != candidates[j].Tops {
			return candidates[i].Tops > candidates[j].Tops
		}
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ClimbNo < candidates[j].ClimbNo
	})

	if !q.IncludeNonImproving {
		kept := candidates[:0]
		for _, c := range candidates {
			if c.RankImprovement > 0 {
				kept = append(kept, c)
			}
		}
		candidates = kept
	}

	metrics.RecordRecommendationSearch(len(candidates))
	return candidates
}

// peerPosition returns the competitor's zero-based position in the
// ranked peer group, or -1 when absent.
func peerPosition(peers []leaderboard.Row, competitorNo int) int {
	for i, row := range peers {
		if row.CompetitorNo == competitorNo {
			return i
		}
	}
	return -1
}

// projectedPosition is the zero-based position the competitor would
// occupy in the peer group with the projected total: the count of
// peers still strictly ahead.
func projectedPosition(peers []leaderboard.Row, competitorNo, projectedTotal int) int {
	ahead := 0
	for _, row := range peers {
		if row.CompetitorNo == competitorNo {
			continue
		}
		if row.Total > projectedTotal {
			ahead++
		}
	}
	return ahead
}

func sortedClimbNos(problems map[int]model.Problem) []int {
	nos := make([]int, 0, len(problems))
	for no := range problems {
		nos = append(nos, no)
	}
	sort.Ints(nos)
	return nos
}
