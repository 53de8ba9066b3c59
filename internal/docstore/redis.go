package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps envelopes in Redis string keys. Compare-and-set uses
// WATCH/MULTI so that several API processes can share one collection.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "mentorlink:",
	}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

func (s *RedisStore) Get(ctx context.Context, key string) (Document, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Document{Key: key}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("redis get %s: %w", key, err)
	}
	return decodeEnvelope(key, raw)
}

func (s *RedisStore) CompareAndSet(ctx context.Context, key string, expected uint64, body []byte) (Document, error) {
	if err := validateBody(body); err != nil {
		return Document{}, err
	}

	redisKey := s.key(key)
	var written Document
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		var current uint64
		raw, err := tx.Get(ctx, redisKey).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			doc, err := decodeEnvelope(key, raw)
			if err != nil {
				return err
			}
			current = doc.Revision
		}
		if current != expected {
			return ErrVersionConflict
		}

		next := current + 1
		encoded, sum, err := encodeEnvelope(next, body)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisKey, encoded, 0)
			return nil
		})
		if err != nil {
			return err
		}
		written = Document{Key: key, Revision: next, Checksum: sum, Body: append([]byte(nil), body...)}
		return nil
	}, redisKey)
	switch {
	case err == nil:
		return written, nil
	case errors.Is(err, ErrVersionConflict), errors.Is(err, redis.TxFailedErr):
		return Document{}, ErrVersionConflict
	case errors.Is(err, ErrStorageCorruption):
		return Document{}, err
	default:
		return Document{}, fmt.Errorf("redis cas %s: %w", key, err)
	}
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
