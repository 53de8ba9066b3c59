// Package collection stores an ordered set of records as one versioned
// document and applies every change through a bounded compare-and-set loop.
package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"mentorlink/api/internal/docstore"

	"github.com/rs/zerolog"
)

var (
	// ErrWriteContention is returned when every compare-and-set attempt lost
	// to a concurrent writer. The caller may retry the whole operation.
	ErrWriteContention = errors.New("write contention: retries exhausted")
	// ErrUnchanged may be returned by a mutation to finish without writing.
	ErrUnchanged = errors.New("collection unchanged")
)

// Entry wraps a record with its insertion sequence number.
type Entry[T any] struct {
	Seq   uint64 `json:"seq"`
	Value T      `json:"value"`
}

// Snapshot is one consistent read of a collection.
type Snapshot[T any] struct {
	Revision uint64
	NextSeq  uint64
	Items    []Entry[T]
}

// Append adds value at the end of the snapshot and returns its sequence.
func (s *Snapshot[T]) Append(value T) uint64 {
	s.NextSeq++
	s.Items = append(s.Items, Entry[T]{Seq: s.NextSeq, Value: value})
	return s.NextSeq
}

// Values returns the records in insertion order.
func (s Snapshot[T]) Values() []T {
	out := make([]T, 0, len(s.Items))
	for _, item := range s.Items {
		out = append(out, item.Value)
	}
	return out
}

type wireSnapshot[T any] struct {
	NextSeq uint64     `json:"nextSeq"`
	Items   []Entry[T] `json:"items"`
}

// RetryPolicy bounds the compare-and-set loop.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	JitterFactor   float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    8,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     250 * time.Millisecond,
		JitterFactor:   0.5,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialBackoff < 0 {
		p.InitialBackoff = 0
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	return p
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	base := p.InitialBackoff
	for i := 1; i < attempt && base < p.MaxBackoff; i++ {
		base *= 2
	}
	if base > p.MaxBackoff {
		base = p.MaxBackoff
	}
	if p.JitterFactor <= 0 || base <= 0 {
		return base
	}
	jitter := (rand.Float64()*2 - 1) * p.JitterFactor
	return time.Duration(float64(base) * (1 + jitter))
}

// Collection is a typed view over one store key.
type Collection[T any] struct {
	store  docstore.Store
	key    string
	name   string
	policy RetryPolicy
	logger zerolog.Logger
}

// New binds a collection called name to the store key "collections/<name>".
func New[T any](store docstore.Store, name string, policy RetryPolicy, logger zerolog.Logger) *Collection[T] {
	return &Collection[T]{
		store:  store,
		key:    "collections/" + name,
		name:   name,
		policy: policy.normalized(),
		logger: logger.With().Str("collection", name).Logger(),
	}
}

func (c *Collection[T]) Key() string { return c.key }

// Load reads the current snapshot. A collection that was never written is
// returned empty at revision 0.
func (c *Collection[T]) Load(ctx context.Context) (Snapshot[T], error) {
	doc, err := c.store.Get(ctx, c.key)
	if err != nil {
		return Snapshot[T]{}, err
	}
	if !doc.Exists() {
		return Snapshot[T]{}, nil
	}

	var wire wireSnapshot[T]
	if err := json.Unmarshal(doc.Body, &wire); err != nil {
		return Snapshot[T]{}, &docstore.CorruptionError{Key: c.key, Reason: "undecodable collection", Err: err}
	}
	return Snapshot[T]{Revision: doc.Revision, NextSeq: wire.NextSeq, Items: wire.Items}, nil
}

// Update loads the snapshot, applies mutate and writes the result with
// compare-and-set, reloading and reapplying on conflict. mutate may run more
// than once and must derive everything it writes from the snapshot it is
// given. Returning ErrUnchanged ends the loop without a write; any other
// error aborts it.
func (c *Collection[T]) Update(ctx context.Context, mutate func(*Snapshot[T]) error) (Snapshot[T], error) {
	started := time.Now()
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Snapshot[T]{}, err
		}

		snap, err := c.Load(ctx)
		if err != nil {
			return Snapshot[T]{}, err
		}
		if err := mutate(&snap); err != nil {
			if errors.Is(err, ErrUnchanged) {
				return snap, nil
			}
			return Snapshot[T]{}, err
		}

		body, err := json.Marshal(wireSnapshot[T]{NextSeq: snap.NextSeq, Items: snap.Items})
		if err != nil {
			return Snapshot[T]{}, fmt.Errorf("encode %s: %w", c.name, err)
		}

		doc, err := c.store.CompareAndSet(ctx, c.key, snap.Revision, body)
		if err == nil {
			snap.Revision = doc.Revision
			writeAttempts.WithLabelValues(c.name).Observe(float64(attempt))
			writeDuration.WithLabelValues(c.name).Observe(time.Since(started).Seconds())
			return snap, nil
		}
		if !errors.Is(err, docstore.ErrVersionConflict) {
			return Snapshot[T]{}, err
		}

		writeConflicts.WithLabelValues(c.name).Inc()
		c.logger.Debug().Int("attempt", attempt).Uint64("revision", snap.Revision).Msg("compare-and-set conflict")
		if attempt == c.policy.MaxAttempts {
			break
		}

		timer := time.NewTimer(c.policy.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return Snapshot[T]{}, ctx.Err()
		case <-timer.C:
		}
	}

	writeContention.WithLabelValues(c.name).Inc()
	c.logger.Warn().Int("attempts", c.policy.MaxAttempts).Msg("write contention")
	return Snapshot[T]{}, fmt.Errorf("%s: %w after %d attempts", c.name, ErrWriteContention, c.policy.MaxAttempts)
}

// Seed writes items only if the collection has never been written. It
// reports whether the seed was applied; an existing collection is left
// untouched.
func (c *Collection[T]) Seed(ctx context.Context, items []T) (bool, error) {
	snap, err := c.Load(ctx)
	if err != nil {
		return false, err
	}
	if snap.Revision > 0 {
		return false, nil
	}

	for _, item := range items {
		snap.Append(item)
	}
	body, err := json.Marshal(wireSnapshot[T]{NextSeq: snap.NextSeq, Items: snap.Items})
	if err != nil {
		return false, fmt.Errorf("encode %s seed: %w", c.name, err)
	}
	if _, err := c.store.CompareAndSet(ctx, c.key, 0, body); err != nil {
		if errors.Is(err, docstore.ErrVersionConflict) {
			return false, nil
		}
		return false, err
	}
	c.logger.Info().Int("items", len(items)).Msg("collection seeded")
	return true, nil
}
