// Package cache provides the two-tier store for serialized ranking
// snapshots: an in-process map tier backed by a durable key-value tier,
// with recency-based retention per competition.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Tier names used in metrics and logs.
const (
	TierMemory  = "memory"
	TierDurable = "durable"
)

// DefaultRetention is how many entries the durable tier keeps per
// competition.
const DefaultRetention = 100

// Key identifies one cached ranking snapshot. Keys are namespaced by
// competition so two competitions never collide.
type Key struct {
	CompetitionID  string
	Instant        time.Time
	CategoryFilter string
}

// String returns the canonical encoding of the key. Instants collapse
// to UTC nanoseconds so equal instants encode identically regardless of
// wall-clock zone.
func (k Key) String() string {
	return k.CompetitionID + "|" + k.Entry()
}

// Entry returns the competition-local part of the key, used as the
// record key inside a competition's durable bucket. Zero-padding keeps
// lexical order chronological.
func (k Key) Entry() string {
	return fmt.Sprintf("%020d|%s", k.Instant.UTC().UnixNano(), k.CategoryFilter)
}

// HasPrefix reports whether an encoded key belongs to a competition.
func HasPrefix(encoded, competitionID string) bool {
	return strings.HasPrefix(encoded, competitionID+"|")
}

// Store is a uniform get/put/evict interface over one cache tier.
type Store interface {
	// Get returns the payload for key. The boolean reports a hit; a
	// miss is not an error.
	Get(ctx context.Context, key Key) ([]byte, bool, error)

	// Put stores the payload for key, evicting by recency of put when
	// the tier's retention bound is exceeded.
	Put(ctx context.Context, key Key, payload []byte) error

	// Evict removes a single entry if present.
	Evict(ctx context.Context, key Key) error

	// Clear removes every entry belonging to one competition.
	Clear(ctx context.Context, competitionID string) error
}
