package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/pumpfest/crux/pkg/metrics"
)

const boltOpenTimeout = time.Second

// boltEnvelope wraps a payload with its put sequence so retention can
// evict by recency of put rather than by instant.
type boltEnvelope struct {
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"payload"`
}

// BoltStore is the durable cache tier on a single bbolt file. One
// bucket per competition; retention prunes each bucket down to the N
// most recently put entries inside the same update transaction.
type BoltStore struct {
	db        *bolt.DB
	retention int
}

// BoltOption applies a configuration option to the BoltStore.
type BoltOption func(*BoltStore)

// WithRetention sets how many entries to keep per competition.
func WithRetention(n int) BoltOption {
	return func(s *BoltStore) {
		if n > 0 {
			s.retention = n
		}
	}
}

// NewBoltStore opens (creating if needed) the cache file at path.
func NewBoltStore(path string, opts ...BoltOption) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("open cache file: %w", err)
	}
	s := &BoltStore{db: db, retention: DefaultRetention}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get returns the payload for key if present.
func (s *BoltStore) Get(_ context.Context, key Key) ([]byte, bool, error) {
	var payload []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(key.CompetitionID))
		if bucket == nil {
			return nil
		}
		raw := bucket.Get([]byte(key.Entry()))
		if raw == nil {
			return nil
		}
		var env boltEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptEntry, err)
		}
		payload = append([]byte(nil), env.Payload...)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return payload, payload != nil, nil
}

// Put stores the payload and prunes the competition's bucket to the
// retention bound, oldest put first.
func (s *BoltStore) Put(_ context.Context, key Key, payload []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(key.CompetitionID))
		if err != nil {
			return fmt.Errorf("create competition bucket: %w", err)
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		raw, err := json.Marshal(boltEnvelope{Seq: seq, Payload: payload})
		if err != nil {
			return fmt.Errorf("encode cache entry: %w", err)
		}
		if err := bucket.Put([]byte(key.Entry()), raw); err != nil {
			return fmt.Errorf("put cache entry: %w", err)
		}
		return s.prune(bucket)
	})
}

// Evict removes a single entry if present.
func (s *BoltStore) Evict(_ context.Context, key Key) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(key.CompetitionID))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key.Entry()))
	})
}

// Clear drops the whole bucket for one competition.
func (s *BoltStore) Clear(_ context.Context, competitionID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(competitionID)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(competitionID))
	})
}

// Len returns the number of entries stored for one competition.
func (s *BoltStore) Len(competitionID string) (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(competitionID))
		if bucket == nil {
			return nil
		}
		count = bucket.Stats().KeyN
		return nil
	})
	return count, err
}

// Close closes the underlying file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// prune deletes the oldest-put entries beyond the retention bound.
// Runs inside the caller's update transaction.
func (s *BoltStore) prune(bucket *bolt.Bucket) error {
	type stored struct {
		key []byte
		seq uint64
	}
	var all []stored
	err := bucket.ForEach(func(k, v []byte) error {
		var env boltEnvelope
		if err := json.Unmarshal(v, &env); err != nil {
			// Unreadable entries are pruned first.
			all = append(all, stored{key: append([]byte(nil), k...), seq: 0})
			return nil
		}
		all = append(all, stored{key: append([]byte(nil), k...), seq: env.Seq})
		return nil
	})
	if err != nil {
		return err
	}
	if len(all) <= s.retention {
		return nil
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })
	for _, victim := range all[:len(all)-s.retention] {
		if err := bucket.Delete(victim.key); err != nil {
			return fmt.Errorf("prune cache entry: %w", err)
		}
		metrics.RecordCacheEviction(TierDurable)
	}
	return nil
}
