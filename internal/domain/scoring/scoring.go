// Package scoring turns a competitor's raw attempt list into a
// deduplicated, ranked, capped score set and a total.
package scoring

import (
	"sort"
	"time"

	"github.com/pumpfest/crux/internal/domain/model"
)

// RankedScore is one raw attempt joined with its problem record and
// valued for ranking. Attempt fields win over problem fields on
// collision; in particular CreatedAt is always the attempt's timestamp.
type RankedScore struct {
	ClimbNo      int    `json:"climb_no"`
	CompetitorNo int    `json:"competitor_no"`
	Category     string `json:"category"`
	Flashed      bool   `json:"flashed"`
	Topped       bool   `json:"topped"`

	// BaseScore is the problem's point value, zero when the problem
	// could not be joined.
	BaseScore int `json:"base_score"`

	// Value is the effective value: base points plus the flash bonus
	// when the attempt was flashed.
	Value int `json:"value"`

	Marking string `json:"marking,omitempty"`
	Station string `json:"station,omitempty"`

	// Unjoined marks an attempt whose climb number had no problem
	// record; problem-derived fields are omitted, raw fields kept.
	Unjoined bool `json:"unjoined,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Result is the aggregate of one competitor's attempts.
type Result struct {
	// Scores is the full deduplicated list ordered by descending
	// effective value, best attempt per problem. It always contains
	// every distinct problem attempted, even past the counting cap.
	Scores []RankedScore `json:"scores"`

	// Tops and Flashes count only the counted (capped) entries.
	Tops    int `json:"tops"`
	Flashes int `json:"flashes"`

	// Total is the sum of counted effective values.
	Total int `json:"total"`

	// Bonus is the flash bonus portion of Total.
	Bonus int `json:"bonus"`
}

// Aggregate joins, values, orders, dedupes and caps one competitor's
// raw attempts. Missing problem joins degrade to base zero rather than
// failing the computation. A zero cap yields a zero total while still
// returning the full deduped list for display.
func Aggregate(scores []model.Score, problems map[int]model.Problem, flashExtraPoints, pumpfestTopScores int) Result {
	joined := make([]RankedScore, 0, len(scores))
	for _, s := range scores {
		rs := RankedScore{
			ClimbNo:      s.ClimbNo,
			CompetitorNo: s.CompetitorNo,
			Category:     s.Category,
			Flashed:      s.Flashed,
			Topped:       s.Topped,
			CreatedAt:    s.CreatedAt,
		}
		if p, ok := problems[s.ClimbNo]; ok {
			rs.BaseScore = p.Score
			rs.Marking = p.Marking
			rs.Station = p.Station
		} else {
			rs.Unjoined = true
		}
		rs.Value = rs.BaseScore
		if s.Flashed {
			rs.Value += flashExtraPoints
		}
		joined = append(joined, rs)
	}

	// Highest effective value first; climb number breaks ties so the
	// ordering is deterministic across runs.
	sort.SliceStable(joined, func(i, j int) bool {
		if joined[i].Value != joined[j].Value {
			return joined[i].Value > joined[j].Value
		}
		return joined[i].ClimbNo < joined[j].ClimbNo
	})

	// Best attempt per problem: first occurrence wins after the sort.
	deduped := make([]RankedScore, 0, len(joined))
	seen := make(map[int]struct{}, len(joined))
	for _, rs := range joined {
		if _, dup := seen[rs.ClimbNo]; dup {
			continue
		}
		seen[rs.ClimbNo] = struct{}{}
		deduped = append(deduped, rs)
	}

	res := Result{Scores: deduped}
	counted := deduped
	if pumpfestTopScores <= 0 {
		counted = nil
	} else if len(counted) > pumpfestTopScores {
		counted = counted[:pumpfestTopScores]
	}
	for _, rs := range counted {
		res.Total += rs.Value
		res.Tops++
		if rs.Flashed {
			res.Flashes++
		}
	}
	res.Bonus = flashExtraPoints * res.Flashes
	return res
}

// LowestCountingScore returns the effective value of the cap-th best
// deduped score, or zero when fewer scores exist than the cap allows.
func (r Result) LowestCountingScore(pumpfestTopScores int) int {
	if pumpfestTopScores <= 0 || len(r.Scores) < pumpfestTopScores {
		return 0
	}
	return r.Scores[pumpfestTopScores-1].Value
}

// ProjectTotal recomputes the capped total as if the competitor also
// held a score worth value points. The receiver is not modified.
func (r Result) ProjectTotal(value, pumpfestTopScores int) int {
	if pumpfestTopScores <= 0 {
		return 0
	}
	values := make([]int, 0, len(r.Scores)+1)
	for _, rs := range r.Scores {
		values = append(values, rs.Value)
	}
	values = append(values, value)
	sort.Sort(sort.Reverse(sort.IntSlice(values)))
	if len(values) > pumpfestTopScores {
		values = values[:pumpfestTopScores]
	}
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
