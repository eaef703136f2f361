// Package model contains domain models passed between layers.
package model

import "time"

// Category describes a scoring category loaded for a competition.
// Immutable once a snapshot is loaded.
type Category struct {
	Code string `json:"code"` // unique category code
	Name string `json:"name"` // display name

	// FlashExtraPoints is the bonus added to a flashed send's score.
	FlashExtraPoints int `json:"flash_extra_points"`

	// PumpfestTopScores caps how many of a competitor's best scores
	// count toward their total. Zero means nothing counts.
	PumpfestTopScores int `json:"pumpfest_top_scores"`

	DisableFlash bool `json:"disable_flash"`
	ScalePoints  bool `json:"scale_points"`
}

// Competitor identifies a registered competitor. Exactly one category
// per competitor for qualification scoring. Ranks are never written
// back here; they live on derived leaderboard rows.
type Competitor struct {
	CompetitorNo int    `json:"competitor_no"`
	Name         string `json:"name"`
	Category     string `json:"category"` // category code
}

// Problem is a single climb being scored. Stats and sends are derived
// tables keyed by climb number, not fields on the problem itself.
type Problem struct {
	ClimbNo   int       `json:"climb_no"`
	Score     int       `json:"score"` // base points
	Marking   string    `json:"marking"`
	Station   string    `json:"station"`
	CreatedAt time.Time `json:"created_at"`
}

// Score is a raw attempt event for one (competitor, problem) pair.
// Reattempts produce multiple records for the same pair.
type Score struct {
	ClimbNo      int       `json:"climb_no"`
	Category     string    `json:"category"` // code the attempt was scored under
	Flashed      bool      `json:"flashed"`
	Topped       bool      `json:"topped"`
	CompetitorNo int       `json:"competitor_no"`
	CreatedAt    time.Time `json:"created_at"`
}

// Snapshot is the in-memory data contract the core computes from. All
// four entity sets are loaded together for a single competition and
// replaced wholesale when the selected competition changes.
type Snapshot struct {
	CompetitionID string              `json:"competition_id"`
	Categories    map[string]Category `json:"categories"`
	Competitors   map[int]Competitor  `json:"competitors"`
	Problems      map[int]Problem     `json:"problems"`
	Scores        map[int][]Score     `json:"scores"` // competitorNo -> raw attempt list
}

// NewSnapshot builds a Snapshot from entity slices, indexing each set
// by its identity key. Later duplicates of the same key win, matching
// last-write semantics of the upstream fetch layer.
func NewSnapshot(competitionID string, categories []Category, competitors []Competitor, problems []Problem, scores []Score) Snapshot {
	s := Snapshot{
		CompetitionID: competitionID,
		Categories:    make(map[string]Category, len(categories)),
		Competitors:   make(map[int]Competitor, len(competitors)),
		Problems:      make(map[int]Problem, len(problems)),
		Scores:        make(map[int][]Score),
	}
	for _, c := range categories {
		s.Categories[c.Code] = c
	}
	for _, c := range competitors {
		s.Competitors[c.CompetitorNo] = c
	}
	for _, p := range problems {
		s.Problems[p.ClimbNo] = p
	}
	for _, sc := range scores {
		s.Scores[sc.CompetitorNo] = append(s.Scores[sc.CompetitorNo], sc)
	}
	return s
}

// Empty reports whether the snapshot carries no data at all. Callers
// distinguish "still loading" from "genuinely empty" with an external
// loading flag, not by inspecting core outputs.
func (s Snapshot) Empty() bool {
	return len(s.Categories) == 0 && len(s.Competitors) == 0 && len(s.Problems) == 0 && len(s.Scores) == 0
}

// AllScores returns every raw score record across all competitors.
// Order is unspecified.
func (s Snapshot) AllScores() []Score {
	var out []Score
	for _, list := range s.Scores {
		out = append(out, list...)
	}
	return out
}
