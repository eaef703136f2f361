// Package fixture generates synthetic competition snapshots for demos,
// benchmarks and heavier tests.
package fixture

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/pumpfest/crux/internal/domain/model"
)

// Generation ranges.
const (
	baseScoreMin   = 50
	baseScoreStep  = 25
	baseScoreSteps = 30

	topProbability   = 0.55
	flashProbability = 0.35 // of topped attempts
	retryProbability = 0.15

	scoreSpreadPerCompetitor = 12
)

// Config tunes the generated competition.
type Config struct {
	Seed        int64
	Competitors int
	Problems    int
	Categories  []model.Category

	// Start and Span bound the score-event timestamps.
	Start time.Time
	Span  time.Duration
}

// DefaultConfig returns a medium-sized competition.
func DefaultConfig() Config {
	return Config{
		Seed:        1,
		Competitors: 60,
		Problems:    40,
		Categories: []model.Category{
			{Code: "MO", Name: "Male Open", FlashExtraPoints: 20, PumpfestTopScores: 7},
			{Code: "FO", Name: "Female Open", FlashExtraPoints: 20, PumpfestTopScores: 7},
			{Code: "MY", Name: "Male Youth", FlashExtraPoints: 10, PumpfestTopScores: 5},
		},
		Start: time.Date(2026, time.March, 7, 9, 0, 0, 0, time.UTC),
		Span:  8 * time.Hour,
	}
}

// Generate builds a deterministic snapshot from the config. The same
// seed always yields the same competition.
func Generate(cfg Config) model.Snapshot {
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // deterministic fixtures, not security material

	competitionID := uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "crux-fixture-%d", cfg.Seed)).String()

	problems := make([]model.Problem, 0, cfg.Problems)
	for i := 0; i < cfg.Problems; i++ {
		problems = append(problems, model.Problem{
			ClimbNo:   i + 1,
			Score:     baseScoreMin + rng.Intn(baseScoreSteps)*baseScoreStep,
			Marking:   fmt.Sprintf("P%02d", i+1),
			Station:   fmt.Sprintf("wall-%d", i%4+1),
			CreatedAt: cfg.Start,
		})
	}

	competitors := make([]model.Competitor, 0, cfg.Competitors)
	var scores []model.Score
	for i := 0; i < cfg.Competitors; i++ {
		no := 100 + i
		cat := cfg.Categories[i%len(cfg.Categories)]
		competitors = append(competitors, model.Competitor{
			CompetitorNo: no,
			Name:         fmt.Sprintf("Climber %03d", no),
			Category:     cat.Code,
		})

		attempts := 1 + rng.Intn(scoreSpreadPerCompetitor)
		for a := 0; a < attempts; a++ {
			climb := problems[rng.Intn(len(problems))]
			topped := rng.Float64() < topProbability
			flashed := topped && rng.Float64() < flashProbability && !cat.DisableFlash
			at := cfg.Start.Add(time.Duration(rng.Int63n(int64(cfg.Span))))
			scores = append(scores, model.Score{
				ClimbNo:      climb.ClimbNo,
				Category:     cat.Code,
				Flashed:      flashed,
				Topped:       topped,
				CompetitorNo: no,
				CreatedAt:    at,
			})
			// Occasional reattempt of the same problem later on.
			if topped && rng.Float64() < retryProbability {
				scores = append(scores, model.Score{
					ClimbNo:      climb.ClimbNo,
					Category:     cat.Code,
					Topped:       true,
					CompetitorNo: no,
					CreatedAt:    at.Add(30 * time.Minute),
				})
			}
		}
	}

	return model.NewSnapshot(competitionID, cfg.Categories, competitors, problems, scores)
}
