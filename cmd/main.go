// Command crux loads a competition snapshot and prints the derived
// leaderboard, movers and recommendations.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pumpfest/crux/internal/app"
	"github.com/pumpfest/crux/internal/config"
	"github.com/pumpfest/crux/internal/domain/model"
	"github.com/pumpfest/crux/internal/domain/recommend"
	"github.com/pumpfest/crux/internal/fixture"
	"github.com/pumpfest/crux/internal/history"
	"github.com/pumpfest/crux/pkg/logger"
)

const topRowsShown = 20

func main() {
	snapshotPath := flag.String("snapshot", "", "competition snapshot JSON file; empty generates a demo fixture")
	categoryFilter := flag.String("category", "", "restrict movers output to one category code")
	competitorNo := flag.Int("competitor", 0, "print recommendations for this competitor")
	station := flag.String("station", "", "restrict recommendations to one station")
	moversWindow := flag.Duration("movers-window", time.Hour, "look-back window for risers/fallers")
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	snap, err := loadSnapshot(*snapshotPath)
	if err != nil {
		log.Error(ctx, "failed to load snapshot", logger.Error(err))
		return
	}

	svc := app.New(
		app.WithLogger(log),
		app.WithCachePath(cfg.CachePath),
		app.WithCacheRetention(cfg.CacheRetention),
		app.WithMemoryCacheMaxEntries(cfg.MemoryCacheMaxEntries),
		app.WithCacheWriteQueueSize(cfg.CacheWriteQueueSize),
		app.WithSignificantChangeThreshold(cfg.SignificantChangeThreshold),
		app.WithHistoryInterval(history.Interval(cfg.HistoryInterval)),
	)
	defer func() {
		if err := svc.Close(); err != nil {
			log.Error(ctx, "service close failed", logger.Error(err))
		}
	}()

	if err := svc.LoadSnapshot(ctx, snap); err != nil {
		log.Error(ctx, "failed to load competition", logger.Error(err))
		return
	}

	printLeaderboard(svc)
	printMovers(ctx, svc, *moversWindow, *categoryFilter)
	if *competitorNo > 0 {
		printRecommendations(ctx, svc, *competitorNo, *station)
	}
}

func loadSnapshot(path string) (model.Snapshot, error) {
	if path == "" {
		return fixture.Generate(fixture.DefaultConfig()), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func printLeaderboard(svc *app.Service) {
	rows := svc.Leaderboard()
	fmt.Printf("Leaderboard (%d competitors):\n", len(rows))
	for i, row := range rows {
		if i >= topRowsShown {
			fmt.Printf("  ... %d more\n", len(rows)-topRowsShown)
			break
		}
		fmt.Printf("  %3d. %-14s %-12s total=%-5d tops=%-2d flashes=%d\n",
			row.Rank, row.Name, row.CategoryFullName, row.Total, row.Tops, row.Flashes)
	}
}

func printMovers(ctx context.Context, svc *app.Service, window time.Duration, categoryFilter string) {
	now := time.Now()
	risers, fallers := svc.SignificantChanges(ctx, now, now.Add(-window), 0, categoryFilter)
	fmt.Printf("\nMovers over the last %s:\n", window)
	for _, c := range risers {
		fmt.Printf("  ↑ %-14s +%d ranks (+%d pts)\n", c.Name, c.RankChange, c.ScoreChange)
	}
	for _, c := range fallers {
		fmt.Printf("  ↓ %-14s %d ranks (%+d pts)\n", c.Name, c.RankChange, c.ScoreChange)
	}
	if len(risers)+len(fallers) == 0 {
		fmt.Println("  none")
	}
}

func printRecommendations(ctx context.Context, svc *app.Service, competitorNo int, station string) {
	candidates := svc.Recommend(ctx, recommend.Query{
		CompetitorNo: competitorNo,
		Station:      station,
	})
	fmt.Printf("\nRecommended problems for competitor %d:\n", competitorNo)
	for _, c := range candidates {
		fmt.Printf("  %-5s at %-8s worth %-4d -> +%d pts, +%d ranks (%d tops)\n",
			c.Marking, c.Station, c.Score, c.AdditionalPoints, c.RankImprovement, c.Tops)
	}
	if len(candidates) == 0 {
		fmt.Println("  none")
	}
}
