// Command gen-snapshot writes a synthetic competition snapshot to a
// JSON file for demos and load testing.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/pumpfest/crux/internal/fixture"
)

func main() {
	out := flag.String("out", "snapshot.json", "output file")
	seed := flag.Int64("seed", 1, "generation seed")
	competitors := flag.Int("competitors", 60, "number of competitors")
	problems := flag.Int("problems", 40, "number of problems")
	flag.Parse()

	cfg := fixture.DefaultConfig()
	cfg.Seed = *seed
	cfg.Competitors = *competitors
	cfg.Problems = *problems

	snap := fixture.Generate(cfg)
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode snapshot:", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, raw, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "write snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s: %d competitors, %d problems, competition %s\n",
		*out, len(snap.Competitors), len(snap.Problems), snap.CompetitionID)
}
