package cache

import (
	"context"
	"sync"

	"github.com/pumpfest/crux/pkg/logger"
	"github.com/pumpfest/crux/pkg/metrics"
)

const defaultWriteQueueSize = 256

// writeReq is one pending durable write, or a flush marker when flush
// is non-nil.
type writeReq struct {
	key     Key
	payload []byte
	flush   chan struct{}
}

// Tiered composes the memory and durable tiers. Reads check memory
// first, then the durable tier (a durable hit backfills memory). Writes
// land in memory synchronously and reach the durable tier through a
// bounded write-behind queue: a full queue or a failed write is logged
// and counted, never returned to the read path that triggered it.
type Tiered struct {
	memory  Store
	durable Store
	log     logger.Logger

	writes chan writeReq
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

// TieredOption applies a configuration option to the Tiered cache.
type TieredOption func(*Tiered)

// WithLogger sets the logger for write-behind failures.
func WithLogger(log logger.Logger) TieredOption {
	return func(t *Tiered) {
		if log != nil {
			t.log = log
		}
	}
}

// WithWriteQueueSize bounds the write-behind queue.
func WithWriteQueueSize(n int) TieredOption {
	return func(t *Tiered) {
		if n > 0 {
			t.writes = make(chan writeReq, n)
		}
	}
}

// NewTiered creates a two-tier cache. durable may be nil for a
// memory-only cache (durable tier unavailable degrades, not fails).
func NewTiered(memory, durable Store, opts ...TieredOption) *Tiered {
	t := &Tiered{
		memory:  memory,
		durable: durable,
		log:     logger.Nop(),
		writes:  make(chan writeReq, defaultWriteQueueSize),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	go t.drain()
	return t
}

// Get checks memory then the durable tier. Durable errors degrade to a
// miss.
func (t *Tiered) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	if payload, ok, err := t.memory.Get(ctx, key); err == nil && ok {
		metrics.RecordCacheHit(TierMemory)
		return payload, true, nil
	}
	metrics.RecordCacheMiss(TierMemory)

	if t.durable == nil {
		return nil, false, nil
	}
	payload, ok, err := t.durable.Get(ctx, key)
	if err != nil {
		t.log.Warn(ctx, "durable cache read failed, treating as miss",
			logger.String("key", key.String()),
			logger.Error(err),
		)
		metrics.RecordCacheMiss(TierDurable)
		return nil, false, nil
	}
	if !ok {
		metrics.RecordCacheMiss(TierDurable)
		return nil, false, nil
	}
	metrics.RecordCacheHit(TierDurable)
	// Backfill so the next read stops at the memory tier.
	if err := t.memory.Put(ctx, key, payload); err != nil {
		t.log.Warn(ctx, "memory cache backfill failed", logger.Error(err))
	}
	return payload, true, nil
}

// Put writes memory synchronously and queues the durable write.
func (t *Tiered) Put(ctx context.Context, key Key, payload []byte) error {
	if err := t.memory.Put(ctx, key, payload); err != nil {
		t.log.Warn(ctx, "memory cache write failed", logger.Error(err))
		metrics.RecordCacheWriteError(TierMemory)
	}
	if t.durable == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	select {
	case t.writes <- writeReq{key: key, payload: payload}:
	default:
		t.log.Warn(ctx, "durable cache write queue full, dropping write",
			logger.String("key", key.String()),
		)
		metrics.RecordCacheWriteError(TierDurable)
	}
	return nil
}

// Evict removes the entry from both tiers.
func (t *Tiered) Evict(ctx context.Context, key Key) error {
	if err := t.memory.Evict(ctx, key); err != nil {
		return err
	}
	if t.durable == nil {
		return nil
	}
	return t.durable.Evict(ctx, key)
}

// Clear removes a competition's entries from both tiers. Unlike puts,
// the durable delete is synchronous: callers clearing the cache expect
// it gone. Queued durable writes are applied first so none of them can
// land after the purge and resurrect a cleared entry.
func (t *Tiered) Clear(ctx context.Context, competitionID string) error {
	t.flushWrites()
	if err := t.memory.Clear(ctx, competitionID); err != nil {
		return err
	}
	if t.durable == nil {
		return nil
	}
	return t.durable.Clear(ctx, competitionID)
}

// flushWrites blocks until every write queued before the call has
// reached the durable tier.
func (t *Tiered) flushWrites() {
	if t.durable == nil {
		return
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	applied := make(chan struct{})
	// The drain goroutine never takes mu, so holding it across the
	// send cannot deadlock; it only delays concurrent puts.
	t.writes <- writeReq{flush: applied}
	t.mu.Unlock()
	<-applied
}

// Close stops the write-behind worker after draining queued writes.
func (t *Tiered) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.writes)
	t.mu.Unlock()

	<-t.done
	return nil
}

// drain applies queued durable writes until the queue closes.
func (t *Tiered) drain() {
	defer close(t.done)
	ctx := context.Background()
	for req := range t.writes {
		if req.flush != nil {
			close(req.flush)
			continue
		}
		if err := t.durable.Put(ctx, req.key, req.payload); err != nil {
			t.log.Warn(ctx, "durable cache write failed",
				logger.String("key", req.key.String()),
				logger.Error(err),
			)
			metrics.RecordCacheWriteError(TierDurable)
		}
	}
}
