package docstore

import (
	"context"
	"sync"
)

// MemoryStore keeps envelopes in process memory. It is used by tests and by
// the "memory" backend for throwaway demos.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Document, error) {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return Document{Key: key}, nil
	}
	return decodeEnvelope(key, raw)
}

func (s *MemoryStore) CompareAndSet(_ context.Context, key string, expected uint64, body []byte) (Document, error) {
	if err := validateBody(body); err != nil {
		return Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var current uint64
	if raw, ok := s.data[key]; ok {
		doc, err := decodeEnvelope(key, raw)
		if err != nil {
			return Document{}, err
		}
		current = doc.Revision
	}
	if current != expected {
		return Document{}, ErrVersionConflict
	}

	next := current + 1
	raw, sum, err := encodeEnvelope(next, body)
	if err != nil {
		return Document{}, err
	}
	s.data[key] = raw
	return Document{Key: key, Revision: next, Checksum: sum, Body: append([]byte(nil), body...)}, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
