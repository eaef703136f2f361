// Package app provides the core service that holds the currently
// loaded competition snapshot and exposes the derived tables.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pumpfest/crux/internal/adapters/cache"
	"github.com/pumpfest/crux/internal/domain/leaderboard"
	"github.com/pumpfest/crux/internal/domain/model"
	"github.com/pumpfest/crux/internal/domain/recommend"
	"github.com/pumpfest/crux/internal/domain/stats"
	"github.com/pumpfest/crux/internal/history"
	"github.com/pumpfest/crux/pkg/logger"
	"github.com/pumpfest/crux/pkg/metrics"
)

// Service owns per-competition state: the loaded snapshot, the derived
// tables, and the rank-history engine with its cache. Loading a new
// snapshot replaces everything; nothing is merged across competitions.
// All query methods below the facade are pure functions of the loaded
// snapshot plus their explicit parameters.
type Service struct {
	mu sync.RWMutex

	// Configuration
	cachePath   string
	retention   int
	memoryMax   int
	writeQueue  int
	threshold   int
	interval    history.Interval
	clock       func() time.Time
	log         logger.Logger
	statBuilder *stats.Builder

	// Per-competition state
	snap     model.Snapshot
	rows     []leaderboard.Row
	rowIndex map[int]leaderboard.Row
	problems stats.Table
	catIndex stats.CategoryIndex
	engine   *history.Engine
	tiered   *cache.Tiered
	durable  *cache.BoltStore
	loaded   bool
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithCachePath sets the durable cache file. Empty disables the
// durable tier.
func WithCachePath(path string) Option {
	return func(s *Service) {
		s.cachePath = path
	}
}

// WithCacheRetention caps durable cache entries per competition.
func WithCacheRetention(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.retention = n
		}
	}
}

// WithMemoryCacheMaxEntries bounds the in-memory cache tier.
func WithMemoryCacheMaxEntries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.memoryMax = n
		}
	}
}

// WithCacheWriteQueueSize bounds the durable write-behind queue.
func WithCacheWriteQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.writeQueue = n
		}
	}
}

// WithSignificantChangeThreshold sets the default riser/faller cutoff.
func WithSignificantChangeThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.threshold = n
		}
	}
}

// WithHistoryInterval sets the default rank-history step.
func WithHistoryInterval(interval history.Interval) Option {
	return func(s *Service) {
		s.interval = interval
	}
}

// WithClock overrides the time source; tests pin it.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.clock = now
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		retention:  cache.DefaultRetention,
		memoryMax:  1000,
		writeQueue: 256,
		threshold:  3,
		interval:   history.Hourly,
		clock:      time.Now,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.statBuilder = stats.NewBuilder(stats.WithLogger(s.log))
	return s
}

// LoadSnapshot replaces all per-competition state with the given
// snapshot and rebuilds every derived table. The previous in-memory
// cache tier is discarded; the durable tier survives because its keys
// are namespaced by competition.
func (s *Service) LoadSnapshot(ctx context.Context, snap model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.durable == nil && s.cachePath != "" {
		durable, err := cache.NewBoltStore(s.cachePath, cache.WithRetention(s.retention))
		if err != nil {
			// Cache unavailability degrades to memory-only, never
			// blocks the leaderboard.
			s.log.Warn(ctx, "durable cache unavailable, running memory-only",
				logger.String("path", s.cachePath),
				logger.Error(err),
			)
		} else {
			s.durable = durable
		}
	}

	// Tear down the previous competition's memory tier.
	if s.tiered != nil {
		if err := s.tiered.Close(); err != nil {
			s.log.Warn(ctx, "closing previous cache failed", logger.Error(err))
		}
	}
	var durable cache.Store
	if s.durable != nil {
		durable = s.durable
	}
	s.tiered = cache.NewTiered(
		cache.NewMemoryStore(cache.WithMaxEntries(s.memoryMax)),
		durable,
		cache.WithLogger(s.log),
		cache.WithWriteQueueSize(s.writeQueue),
	)

	s.snap = snap
	s.rows = leaderboard.Build(snap)
	s.rowIndex = leaderboard.Index(s.rows)
	s.problems = s.statBuilder.BuildProblemStats(ctx, snap, s.rowIndex)
	s.catIndex = s.statBuilder.BuildCategoryIndex(ctx, snap)
	s.engine = history.New(snap,
		history.WithCache(s.tiered),
		history.WithLogger(s.log),
		history.WithClock(s.clock),
	)
	s.loaded = true

	scoreCount := 0
	for _, list := range snap.Scores {
		scoreCount += len(list)
	}
	metrics.RecordSnapshotLoad(len(snap.Competitors), len(snap.Problems), scoreCount)
	s.log.Info(ctx, "competition snapshot loaded",
		logger.String("competitionID", snap.CompetitionID),
		logger.Int("competitors", len(snap.Competitors)),
		logger.Int("problems", len(snap.Problems)),
		logger.Int("scores", scoreCount),
	)
	return nil
}

// Leaderboard returns the full ranked table for the loaded snapshot.
func (s *Service) Leaderboard() []leaderboard.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows
}

// CategoryLeaderboard returns the ranked rows of one category.
func (s *Service) CategoryLeaderboard(categoryCode string) []leaderboard.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return leaderboard.FilterCategory(s.rows, categoryCode)
}

// ProblemStats returns the derived per-problem statistics table.
func (s *Service) ProblemStats() stats.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.problems
}

// CategoryIndex returns the per-category population index.
func (s *Service) CategoryIndex() stats.CategoryIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catIndex
}

// RankingsAt reconstructs the leaderboard at a past instant.
func (s *Service) RankingsAt(ctx context.Context, instant time.Time, categoryFilter string) []leaderboard.Row {
	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()
	if engine == nil {
		return nil
	}
	return engine.RankingsAt(ctx, instant, categoryFilter)
}

// RankChanges computes per-competitor movement between two instants.
func (s *Service) RankChanges(ctx context.Context, current, previous time.Time, categoryFilter string) []history.Change {
	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()
	if engine == nil {
		return nil
	}
	return engine.RankChanges(ctx, current, previous, categoryFilter)
}

// SignificantChanges splits rank changes into risers and fallers using
// the configured threshold when threshold is zero or negative.
func (s *Service) SignificantChanges(ctx context.Context, current, previous time.Time, threshold int, categoryFilter string) (risers, fallers []history.Change) {
	s.mu.RLock()
	engine := s.engine
	configured := s.threshold
	s.mu.RUnlock()
	if engine == nil {
		return nil, nil
	}
	if threshold <= 0 {
		threshold = configured
	}
	return engine.SignificantChanges(ctx, current, previous, threshold, categoryFilter)
}

// RankHistory samples one competitor's rank over the competition,
// using the configured interval when interval is empty.
func (s *Service) RankHistory(ctx context.Context, competitorNo int, interval history.Interval, categoryFilter string) []history.Point {
	s.mu.RLock()
	engine := s.engine
	configured := s.interval
	s.mu.RUnlock()
	if engine == nil {
		return nil
	}
	if interval == "" {
		interval = configured
	}
	return engine.RankHistory(ctx, competitorNo, interval, categoryFilter)
}

// Recommend searches the competitor's unfinished problems for rank
// improvements.
func (s *Service) Recommend(ctx context.Context, q recommend.Query) []recommend.Candidate {
	s.mu.RLock()
	snap := s.snap
	rows := s.rows
	table := s.problems
	loaded := s.loaded
	s.mu.RUnlock()
	if !loaded {
		return nil
	}
	competitor, ok := snap.Competitors[q.CompetitorNo]
	if !ok {
		return nil
	}
	peers := leaderboard.FilterCategory(rows, competitor.Category)
	return recommend.Recommend(ctx, snap, peers, table, q)
}

// ClearHistoryCache empties the in-memory tier and deletes the current
// competition's durable entries.
func (s *Service) ClearHistoryCache(ctx context.Context) error {
	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()
	if engine == nil {
		return nil
	}
	return engine.ClearCache(ctx)
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scoreCount := 0
	for _, list := range s.snap.Scores {
		scoreCount += len(list)
	}
	return map[string]interface{}{
		"loaded":        s.loaded,
		"competitionID": s.snap.CompetitionID,
		"competitors":   len(s.snap.Competitors),
		"problems":      len(s.snap.Problems),
		"categories":    len(s.snap.Categories),
		"scores":        scoreCount,
		"durableCache":  s.durable != nil,
	}
}

// Close releases the cache tiers.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tiered != nil {
		if err := s.tiered.Close(); err != nil {
			return fmt.Errorf("close cache: %w", err)
		}
		s.tiered = nil
	}
	if s.durable != nil {
		if err := s.durable.Close(); err != nil {
			return fmt.Errorf("close durable cache: %w", err)
		}
		s.durable = nil
	}
	s.loaded = false
	return nil
}
