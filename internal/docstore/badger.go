package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// BadgerConfig configures the embedded Badger backend.
type BadgerConfig struct {
	Path       string
	InMemory   bool
	SyncWrites bool
	GCInterval time.Duration
	Logger     zerolog.Logger
}

// BadgerStore is the embedded backend; documents survive process restarts
// when Path is set. Badger's optimistic transactions provide the
// compare-and-set guarantee across goroutines of one process.
type BadgerStore struct {
	db     *badger.DB
	logger zerolog.Logger
	stopGC chan struct{}
	doneGC chan struct{}
}

type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf(format, args...)
}

func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger: path is required for persistent storage")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create badger dir %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{logger: cfg.Logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	s := &BadgerStore{db: db, logger: cfg.Logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.doneGC = make(chan struct{})
		go s.runGC(cfg.GCInterval)
	}
	return s, nil
}

func (s *BadgerStore) Get(_ context.Context, key string) (Document, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Document{Key: key}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("badger get %s: %w", key, err)
	}
	return decodeEnvelope(key, raw)
}

func (s *BadgerStore) CompareAndSet(_ context.Context, key string, expected uint64, body []byte) (Document, error) {
	if err := validateBody(body); err != nil {
		return Document{}, err
	}

	var written Document
	err := s.db.Update(func(txn *badger.Txn) error {
		var current uint64
		item, err := txn.Get([]byte(key))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
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
		raw, sum, err := encodeEnvelope(next, body)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(key), raw); err != nil {
			return err
		}
		written = Document{Key: key, Revision: next, Checksum: sum, Body: append([]byte(nil), body...)}
		return nil
	})
	switch {
	case err == nil:
		return written, nil
	case errors.Is(err, ErrVersionConflict), errors.Is(err, badger.ErrConflict):
		return Document{}, ErrVersionConflict
	case errors.Is(err, ErrStorageCorruption):
		return Document{}, err
	default:
		return Document{}, fmt.Errorf("badger cas %s: %w", key, err)
	}
}

func (s *BadgerStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger: database closed")
	}
	return nil
}

func (s *BadgerStore) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.doneGC
	}
	return s.db.Close()
}

func (s *BadgerStore) runGC(interval time.Duration) {
	defer close(s.doneGC)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn().Err(err).Msg("badger value log GC failed")
			}
		}
	}
}
