// Package history reconstructs leaderboards as they existed at past
// instants, derives rank deltas between instants, and tracks a
// competitor's rank over time, caching reconstructed snapshots in a
// two-tier store.
package history

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/pumpfest/crux/internal/adapters/cache"
	"github.com/pumpfest/crux/internal/domain/leaderboard"
	"github.com/pumpfest/crux/internal/domain/model"
	"github.com/pumpfest/crux/pkg/logger"
	"github.com/pumpfest/crux/pkg/metrics"
)

// Interval is the step between rank-history timepoints.
type Interval string

// Supported history intervals.
const (
	Hourly Interval = "hourly"
	Daily  Interval = "daily"
	Weekly Interval = "weekly"
)

// Duration returns the step size; unknown intervals fall back to
// hourly.
func (i Interval) Duration() time.Duration {
	switch i {
	case Daily:
		return 24 * time.Hour
	case Weekly:
		return 7 * 24 * time.Hour
	default:
		return time.Hour
	}
}

// Change is one competitor's movement between two instants. A
// competitor absent from the earlier snapshot is marked IsNew with a
// nil PreviousRank; RankChange is meaningful only when IsNew is false.
// Positive RankChange means the competitor rose.
type Change struct {
	leaderboard.Row

	IsNew        bool `json:"is_new"`
	PreviousRank *int `json:"previous_rank"`
	RankChange   int  `json:"rank_change"`
	ScoreChange  int  `json:"score_change"`
}

// Point is one sample of a competitor's rank history.
type Point struct {
	Instant time.Time `json:"instant"`
	Rank    int       `json:"rank"`
	Total   int       `json:"total"`
}

// Engine answers time-travel ranking queries over one competition
// snapshot. The timeline of score events is built once at construction;
// the engine assumes competition data is append-only for past instants,
// so cached reconstructions are never invalidated within a session.
type Engine struct {
	snap     model.Snapshot
	timeline []model.Score // ascending by CreatedAt
	store    cache.Store
	log      logger.Logger
	now      func() time.Time
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithCache sets the snapshot cache store. Without one the engine
// recomputes every query.
func WithCache(store cache.Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLogger sets the engine's logger.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithClock overrides the time source; tests pin it.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New builds an engine over one competition snapshot.
func New(snap model.Snapshot, opts ...Option) *Engine {
	e := &Engine{
		snap: snap,
		log:  logger.Nop(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.timeline = snap.AllScores()
	sort.SliceStable(e.timeline, func(i, j int) bool {
		return e.timeline[i].CreatedAt.Before(e.timeline[j].CreatedAt)
	})
	return e
}

// EarliestEvent returns the timestamp of the first score event and
// whether the timeline has any events at all.
func (e *Engine) EarliestEvent() (time.Time, bool) {
	if len(e.timeline) == 0 {
		return time.Time{}, false
	}
	return e.timeline[0].CreatedAt, true
}

// RankingsAt reconstructs the leaderboard as it stood at instant,
// optionally restricted to one category. Results are cached under
// (instant, categoryFilter); check order is memory, durable, compute,
// and computed results are written back through the cache's
// fire-and-forget path. A competitor enters the board with their first
// score event, so earlier instants simply omit them.
func (e *Engine) RankingsAt(ctx context.Context, instant time.Time, categoryFilter string) []leaderboard.Row {
	key := cache.Key{
		CompetitionID:  e.snap.CompetitionID,
		Instant:        instant,
		CategoryFilter: categoryFilter,
	}
	if e.store != nil {
		if payload, ok, err := e.store.Get(ctx, key); err == nil && ok {
			var rows []leaderboard.Row
			if err := json.Unmarshal(payload, &rows); err == nil {
				return rows
			}
			e.log.Warn(ctx, "cached snapshot undecodable, recomputing",
				logger.String("key", key.String()),
			)
		}
	}

	rows := e.compute(instant, categoryFilter)

	if e.store != nil {
		payload, err := json.Marshal(rows)
		if err != nil {
			e.log.Warn(ctx, "snapshot encode failed, skipping cache write", logger.Error(err))
			return rows
		}
		// Write errors stay inside the cache; the read path never
		// sees them.
		_ = e.store.Put(ctx, key, payload)
	}
	return rows
}

// RankChanges compares the boards at two instants. Each current
// competitor is matched to the earlier board by number; the unmatched
// are tagged new with their whole total as the score change.
func (e *Engine) RankChanges(ctx context.Context, current, previous time.Time, categoryFilter string) []Change {
	currentRows := e.RankingsAt(ctx, current, categoryFilter)
	previousRows := e.RankingsAt(ctx, previous, categoryFilter)
	prevIndex := leaderboard.Index(previousRows)

	changes := make([]Change, 0, len(currentRows))
	for _, row := range currentRows {
		change := Change{Row: row}
		if prev, ok := prevIndex[row.CompetitorNo]; ok {
			previousRank := prev.Rank
			change.PreviousRank = &previousRank
			change.RankChange = prev.Rank - row.Rank
			change.ScoreChange = row.Total - prev.Total
		} else {
			change.IsNew = true
			change.ScoreChange = row.Total
		}
		changes = append(changes, change)
	}
	return changes
}

// SignificantChanges partitions the rank changes into risers (change
// strictly above threshold, biggest first) and fallers (strictly below
// the negated threshold, most negative first). New competitors land in
// neither bucket.
func (e *Engine) SignificantChanges(ctx context.Context, current, previous time.Time, threshold int, categoryFilter string) (risers, fallers []Change) {
	for _, change := range e.RankChanges(ctx, current, previous, categoryFilter) {
		switch {
		case change.IsNew:
		case change.RankChange > threshold:
			risers = append(risers, change)
		case change.RankChange < -threshold:
			fallers = append(fallers, change)
		}
	}
	sort.SliceStable(risers, func(i, j int) bool {
		return risers[i].RankChange > risers[j].RankChange
	})
	sort.SliceStable(fallers, func(i, j int) bool {
		return fallers[i].RankChange < fallers[j].RankChange
	})
	return risers, fallers
}

// RankHistory samples one competitor's rank from the earliest score
// event to now, stepped by interval, with a final sample at now.
// Timepoints where the competitor is absent from the board are skipped.
func (e *Engine) RankHistory(ctx context.Context, competitorNo int, interval Interval, categoryFilter string) []Point {
	start, ok := e.EarliestEvent()
	if !ok {
		return nil
	}
	now := e.now()

	var instants []time.Time
	for t := start; t.Before(now); t = t.Add(interval.Duration()) {
		instants = append(instants, t)
	}
	instants = append(instants, now)

	var points []Point
	for _, instant := range instants {
		for _, row := range e.RankingsAt(ctx, instant, categoryFilter) {
			if row.CompetitorNo == competitorNo {
				points = append(points, Point{Instant: instant, Rank: row.Rank, Total: row.Total})
				break
			}
		}
	}
	return points
}

// ClearCache deletes every cached snapshot for this competition from
// all tiers.
func (e *Engine) ClearCache(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	return e.store.Clear(ctx, e.snap.CompetitionID)
}

// compute rebuilds the board from the raw timeline. Only competitors
// holding at least one score event at or before instant appear.
func (e *Engine) compute(instant time.Time, categoryFilter string) []leaderboard.Row {
	defer metrics.TimeHistoryCompute()()

	filtered := model.Snapshot{
		CompetitionID: e.snap.CompetitionID,
		Categories:    e.snap.Categories,
		Problems:      e.snap.Problems,
		Competitors:   make(map[int]model.Competitor),
		Scores:        make(map[int][]model.Score),
	}
	for no, comp := range e.snap.Competitors {
		if categoryFilter != "" && comp.Category != categoryFilter {
			continue
		}
		var kept []model.Score
		for _, s := range e.snap.Scores[no] {
			if !s.CreatedAt.After(instant) {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			continue
		}
		filtered.Competitors[no] = comp
		filtered.Scores[no] = kept
	}
	return leaderboard.Build(filtered)
}
