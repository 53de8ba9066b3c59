package ledger

import (
	"sync"
	"testing"
	"time"

	"mentorlink/api/internal/collection"
	"mentorlink/api/internal/docstore"

	"github.com/rs/zerolog"
)

// steppingClock advances by step on every call.
type steppingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newSteppingClock(step time.Duration) *steppingClock {
	return &steppingClock{now: time.UnixMilli(1_700_000_000_000), step: step}
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func (c *steppingClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func testPolicy() collection.RetryPolicy {
	return collection.RetryPolicy{MaxAttempts: 500, InitialBackoff: time.Microsecond, MaxBackoff: 2 * time.Millisecond, JitterFactor: 0.5}
}

func newLedgers(t *testing.T, store docstore.Store, clock Clock) (*MessageLedger, *ForumLedger) {
	t.Helper()
	return NewMessageLedger(store, testPolicy(), clock, zerolog.Nop()),
		NewForumLedger(store, testPolicy(), clock, zerolog.Nop())
}
