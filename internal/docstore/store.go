// Package docstore provides versioned key→JSON document storage. Every
// mutation is a compare-and-set against the revision the caller last read.
package docstore

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

var (
	// ErrVersionConflict is returned by CompareAndSet when the stored revision
	// differs from the caller's expected revision.
	ErrVersionConflict = errors.New("docstore: version conflict")
	// ErrStorageCorruption is matched by every CorruptionError.
	ErrStorageCorruption = errors.New("docstore: storage corruption")
	// ErrInvalidDocument is returned when a caller tries to store a body that
	// is not valid JSON.
	ErrInvalidDocument = errors.New("docstore: document is not valid JSON")
)

// CorruptionError reports a stored document that cannot be trusted.
type CorruptionError struct {
	Key    string
	Reason string
	Err    error
}

func (e *CorruptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("docstore: corrupt document %q: %s: %v", e.Key, e.Reason, e.Err)
	}
	return fmt.Sprintf("docstore: corrupt document %q: %s", e.Key, e.Reason)
}

func (e *CorruptionError) Is(target error) bool {
	return target == ErrStorageCorruption
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}

// Document is one stored value. Revision 0 means the key is absent.
type Document struct {
	Key      string
	Revision uint64
	Checksum string
	Body     json.RawMessage
}

// Exists reports whether the document has ever been written.
func (d Document) Exists() bool {
	return d.Revision > 0
}

// Store is implemented by every backend.
type Store interface {
	// Get returns the current document. A missing key yields a zero-revision
	// document and a nil error.
	Get(ctx context.Context, key string) (Document, error)
	// CompareAndSet writes body if the stored revision equals expected and
	// returns the new document. On mismatch it returns ErrVersionConflict and
	// leaves the stored value untouched.
	CompareAndSet(ctx context.Context, key string, expected uint64, body []byte) (Document, error)
	Ping(ctx context.Context) error
	Close() error
}

// Checksum returns the hex BLAKE2b-256 digest of body.
func Checksum(body []byte) string {
	sum := blake2b.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// envelope is the on-disk form used by the key/value backends.
type envelope struct {
	Revision uint64          `json:"rev"`
	Checksum string          `json:"sum"`
	Body     json.RawMessage `json:"body"`
}

func encodeEnvelope(revision uint64, body []byte) ([]byte, string, error) {
	sum := Checksum(body)
	raw, err := json.Marshal(envelope{Revision: revision, Checksum: sum, Body: body})
	if err != nil {
		return nil, "", fmt.Errorf("encode envelope: %w", err)
	}
	return raw, sum, nil
}

func decodeEnvelope(key string, raw []byte) (Document, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Document{}, &CorruptionError{Key: key, Reason: "unreadable envelope", Err: err}
	}
	return verify(key, env.Revision, env.Checksum, env.Body)
}

func verify(key string, revision uint64, checksum string, body []byte) (Document, error) {
	if revision == 0 {
		return Document{}, &CorruptionError{Key: key, Reason: "missing revision"}
	}
	if !json.Valid(body) {
		return Document{}, &CorruptionError{Key: key, Reason: "body is not valid JSON"}
	}
	if got := Checksum(body); got != checksum {
		return Document{}, &CorruptionError{Key: key, Reason: fmt.Sprintf("checksum mismatch (stored %s, computed %s)", shortSum(checksum), shortSum(got))}
	}
	return Document{Key: key, Revision: revision, Checksum: checksum, Body: json.RawMessage(body)}, nil
}

func validateBody(body []byte) error {
	if len(body) == 0 || !json.Valid(body) {
		return ErrInvalidDocument
	}
	return nil
}

func shortSum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
