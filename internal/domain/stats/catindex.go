package stats

import (
	"context"

	"github.com/pumpfest/crux/internal/domain/model"
	"github.com/pumpfest/crux/pkg/logger"
	"github.com/pumpfest/crux/pkg/metrics"
)

// CategoryIndex maps a category code to the per-competitor attempt
// counts of everyone scoring in it. It normalizes raw top counts into
// percentages of the attempting population.
type CategoryIndex map[string][]int

// BuildCategoryIndex buckets each competitor's score count under their
// category. Precondition: a competitor scores in a single category, so
// the category of their first score record stands for all of them; a
// mixed-category score set is flagged as a data-quality warning and the
// first category still wins. Competitors with no scores are excluded.
func (b *Builder) BuildCategoryIndex(ctx context.Context, snap model.Snapshot) CategoryIndex {
	idx := make(CategoryIndex, len(snap.Categories))

	for _, no := range sortedCompetitorNos(snap.Scores) {
		records := snap.Scores[no]
		if len(records) == 0 {
			continue
		}
		code := records[0].Category
		for _, rec := range records[1:] {
			if rec.Category != code {
				b.log.Warn(ctx, "mixed-category score set, first category wins",
					logger.Int("competitorNo", no),
					logger.String("first", code),
					logger.String("other", rec.Category),
				)
				metrics.RecordDataQualityWarning("mixed_category")
				break
			}
		}
		if _, known := snap.Categories[code]; !known {
			b.log.Warn(ctx, "competitor scored under unrecognized category, excluded from index",
				logger.Int("competitorNo", no),
				logger.String("category", code),
			)
			metrics.RecordDataQualityWarning("unknown_category")
			continue
		}
		idx[code] = append(idx[code], len(records))
	}
	return idx
}

// Population counts the competitors in a category bucket with at least
// minAttempts score records.
func (ci CategoryIndex) Population(code string, minAttempts int) int {
	count := 0
	for _, attempts := range ci[code] {
		if attempts >= minAttempts {
			count++
		}
	}
	return count
}

// TopPercentage converts a raw top count into a share of the attempting
// population, zero when the population is empty.
func TopPercentage(tops, population int) float64 {
	if population <= 0 {
		return 0
	}
	return float64(tops) / float64(population)
}
