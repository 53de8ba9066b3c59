// Package ledger implements the append-mostly message and forum histories.
// Both ledgers keep no state of their own: every call reads or
// compare-and-sets a collection in the document store.
package ledger

import (
	"errors"
	"strings"
	"time"

	"mentorlink/api/internal/collection"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrWriteContention = collection.ErrWriteContention
)

// Clock returns the current time. Ledgers only read it; tests substitute a
// fixed or stepping clock.
type Clock func() time.Time

func (c Clock) millis() int64 {
	if c == nil {
		return time.Now().UnixMilli()
	}
	return c().UnixMilli()
}

// nextTimestamp never goes backwards relative to what is already stored.
func nextTimestamp(now, maxObserved int64) int64 {
	if now < maxObserved {
		return maxObserved
	}
	return now
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
