// Package dedupe guards against processing the same raw score record
// twice when the upstream source delivers duplicates.
package dedupe

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
)

// Deduper records seen record keys for at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks whether key was seen and records
	// it if not. Returns true if key was already seen. First wins.
	SeenAndRecord(ctx context.Context, key string) bool

	Size() int64
}

// RecordKey is the synthetic identity of one raw score record for
// duplicate-delivery detection: one entry per (competitor, climb) pair.
func RecordKey(competitorNo, climbNo int) string {
	return strconv.Itoa(competitorNo) + "," + strconv.Itoa(climbNo)
}

// inMemoryDeduper implements Deduper with a mutex-guarded set. A stats
// build walks each record once, so the set is scoped to a single build
// and never evicts.
type inMemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
	size atomic.Int64
}

// NewInMemoryDeduper creates an empty in-memory deduper.
func NewInMemoryDeduper() Deduper {
	return &inMemoryDeduper{seen: make(map[string]struct{})}
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}
	d.seen[key] = struct{}{}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
