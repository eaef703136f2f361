// Package leaderboard builds the ranked competitor table from a
// competition snapshot.
package leaderboard

import (
	"sort"

	"github.com/pumpfest/crux/internal/domain/model"
	"github.com/pumpfest/crux/internal/domain/scoring"
	"github.com/pumpfest/crux/pkg/metrics"
)

// Row is one ranked leaderboard entry. Rows are derived output joined
// back to competitor identity by number; the underlying Competitor
// records are never mutated.
type Row struct {
	CompetitorNo     int    `json:"competitor_no"`
	Name             string `json:"name"`
	CategoryCode     string `json:"category_code"`
	CategoryFullName string `json:"category_full_name"`
	FlashExtraPoints int    `json:"flash_extra_points"`

	Scores  []scoring.RankedScore `json:"scores"`
	Tops    int                   `json:"tops"`
	Flashes int                   `json:"flashes"`
	Total   int                   `json:"total"`
	Bonus   int                   `json:"bonus"`

	// Rank is a competition ranking: tied totals share a rank and the
	// next distinct total's rank is its 1-based position in the sorted
	// table, leaving gaps after ties.
	Rank int `json:"rank"`
}

// Build aggregates every competitor's scores and returns the full
// sorted, ranked table. Category filtering is a caller concern. An
// empty snapshot yields an empty table, never an error.
func Build(snap model.Snapshot) []Row {
	defer metrics.TimeLeaderboardBuild()()

	rows := make([]Row, 0, len(snap.Competitors))
	for no, comp := range snap.Competitors {
		row := Row{
			CompetitorNo: no,
			Name:         comp.Name,
			CategoryCode: comp.Category,
		}
		var flashBonus, topCap int
		if cat, ok := snap.Categories[comp.Category]; ok {
			row.CategoryFullName = cat.Name
			flashBonus = cat.FlashExtraPoints
			topCap = cat.PumpfestTopScores
		}
		row.FlashExtraPoints = flashBonus
		agg := scoring.Aggregate(snap.Scores[no], snap.Problems, flashBonus, topCap)
		row.Scores = agg.Scores
		row.Tops = agg.Tops
		row.Flashes = agg.Flashes
		row.Total = agg.Total
		row.Bonus = agg.Bonus
		rows = append(rows, row)
	}

	// Descending by total; competitor number breaks ties so map
	// iteration order never leaks into the output.
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Total != rows[j].Total {
			return rows[i].Total > rows[j].Total
		}
		return rows[i].CompetitorNo < rows[j].CompetitorNo
	})

	// Competition ranking: rank = 1-based index of the first row
	// carrying this total.
	for i := range rows {
		if i > 0 && rows[i].Total == rows[i-1].Total {
			rows[i].Rank = rows[i-1].Rank
			continue
		}
		rows[i].Rank = i + 1
	}
	return rows
}

// Index maps rows by competitor number for identity joins at the
// presentation boundary.
func Index(rows []Row) map[int]Row {
	idx := make(map[int]Row, len(rows))
	for _, r := range rows {
		idx[r.CompetitorNo] = r
	}
	return idx
}

// FilterCategory returns the rows belonging to one category, order
// preserved. Ranks are not reassigned; they remain the overall table's
// competition ranks.
func FilterCategory(rows []Row, categoryCode string) []Row {
	if categoryCode == "" {
		return rows
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.CategoryCode == categoryCode {
			out = append(out, r)
		}
	}
	return out
}
