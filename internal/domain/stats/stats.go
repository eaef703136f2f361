// Package stats aggregates per-problem top/flash counts and send lists,
// and builds the per-category population index used to normalize them.
package stats

import (
	"context"
	"sort"
	"time"

	"github.com/pumpfest/crux/internal/domain/dedupe"
	"github.com/pumpfest/crux/internal/domain/leaderboard"
	"github.com/pumpfest/crux/internal/domain/model"
	"github.com/pumpfest/crux/pkg/logger"
	"github.com/pumpfest/crux/pkg/metrics"
)

// Tally counts tops and flashes for one category on one problem.
type Tally struct {
	Tops    int `json:"tops"`
	Flashes int `json:"flashes"`
}

// Send records one competitor topping one problem, carrying the display
// fields the problem-level leaderboard needs.
type Send struct {
	CompetitorNo int       `json:"competitor_no"`
	Rank         int       `json:"rank"`
	Category     string    `json:"category"` // category display name
	CategoryCode string    `json:"category_code"`
	Name         string    `json:"name"`
	Flashed      bool      `json:"flashed"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProblemStats is the derived per-problem aggregate. It is a cache over
// the raw score records: rebuild it whenever scores change.
type ProblemStats struct {
	Stats map[string]Tally `json:"stats"` // category code -> tally
	Sends []Send           `json:"sends"`
}

// Table maps climb number to its derived stats. Problems nobody
// attempted have no entry, which downstream reads as "no attempts"
// rather than zero.
type Table map[int]*ProblemStats

// Builder aggregates problem statistics from a snapshot.
type Builder struct {
	log logger.Logger
}

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithLogger sets the logger used for data-quality warnings.
func WithLogger(log logger.Logger) Option {
	return func(b *Builder) {
		if log != nil {
			b.log = log
		}
	}
}

// NewBuilder creates a statistics builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{log: logger.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildProblemStats walks every raw score record once and returns the
// derived per-problem table. rowIndex supplies each sender's current
// rank, so run it after the leaderboard build. Duplicate raw records
// for the same (competitor, climb) pair are dropped with a warning,
// first occurrence winning. Records with an unrecognized category are
// excluded from statistics entirely; records whose climb has no problem
// entry are skipped as missing joins. Inputs are never mutated.
func (b *Builder) BuildProblemStats(ctx context.Context, snap model.Snapshot, rowIndex map[int]leaderboard.Row) Table {
	defer metrics.TimeStatsBuild()()

	table := make(Table)
	guard := dedupe.NewInMemoryDeduper()

	for _, no := range sortedCompetitorNos(snap.Scores) {
		for _, rec := range snap.Scores[no] {
			key := dedupe.RecordKey(rec.CompetitorNo, rec.ClimbNo)
			if guard.SeenAndRecord(ctx, key) {
				b.log.Warn(ctx, "duplicate score record dropped",
					logger.Int("competitorNo", rec.CompetitorNo),
					logger.Int("climbNo", rec.ClimbNo),
				)
				metrics.RecordDataQualityWarning("duplicate_record")
				continue
			}
			if _, ok := snap.Problems[rec.ClimbNo]; !ok {
				b.log.Warn(ctx, "score references unknown problem",
					logger.Int("climbNo", rec.ClimbNo),
					logger.Int("competitorNo", rec.CompetitorNo),
				)
				metrics.RecordDataQualityWarning("missing_problem")
				continue
			}
			cat, known := snap.Categories[rec.Category]
			if !known {
				b.log.Warn(ctx, "score carries unrecognized category, excluded from stats",
					logger.String("category", rec.Category),
					logger.Int("competitorNo", rec.CompetitorNo),
					logger.Int("climbNo", rec.ClimbNo),
				)
				metrics.RecordDataQualityWarning("unknown_category")
				continue
			}

			entry, ok := table[rec.ClimbNo]
			if !ok {
				entry = &ProblemStats{Stats: make(map[string]Tally, len(snap.Categories))}
				for code := range snap.Categories {
					entry.Stats[code] = Tally{}
				}
				table[rec.ClimbNo] = entry
			}

			tally := entry.Stats[rec.Category]
			if rec.Flashed {
				tally.Flashes++
			}
			if rec.Topped {
				tally.Tops++
				send := Send{
					CompetitorNo: rec.CompetitorNo,
					Category:     cat.Name,
					CategoryCode: rec.Category,
					Flashed:      rec.Flashed,
					CreatedAt:    rec.CreatedAt,
				}
				if comp, ok := snap.Competitors[rec.CompetitorNo]; ok {
					send.Name = comp.Name
				}
				if row, ok := rowIndex[rec.CompetitorNo]; ok {
					send.Rank = row.Rank
				}
				entry.Sends = append(entry.Sends, send)
			}
			entry.Stats[rec.Category] = tally
		}
	}
	return table
}

// TopsFor sums tops across all categories for one problem, zero when
// the problem has no entry.
func (t Table) TopsFor(climbNo int) int {
	entry, ok := t[climbNo]
	if !ok {
		return 0
	}
	total := 0
	for _, tally := range entry.Stats {
		total += tally.Tops
	}
	return total
}

// CategoryTopsFor returns one category's top count for a problem.
func (t Table) CategoryTopsFor(climbNo int, categoryCode string) int {
	entry, ok := t[climbNo]
	if !ok {
		return 0
	}
	return entry.Stats[categoryCode].Tops
}

func sortedCompetitorNos(scores map[int][]model.Score) []int {
	nos := make([]int, 0, len(scores))
	for no := range scores {
		nos = append(nos, no)
	}
	sort.Ints(nos)
	return nos
}
