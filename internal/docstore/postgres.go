package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// OpenPostgres opens a pooled connection through the pgx stdlib driver.
func OpenPostgres(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(20)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// PostgresStore stores one row per key in the documents table. The body is
// kept as TEXT so the checksum covers the exact bytes that were written.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (Document, error) {
	var (
		revision int64
		checksum string
		body     string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT revision, checksum, body FROM documents WHERE key = $1`, key,
	).Scan(&revision, &checksum, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{Key: key}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("select document %s: %w", key, err)
	}
	if revision < 0 {
		return Document{}, &CorruptionError{Key: key, Reason: "negative revision"}
	}
	return verify(key, uint64(revision), checksum, []byte(body))
}

func (s *PostgresStore) CompareAndSet(ctx context.Context, key string, expected uint64, body []byte) (Document, error) {
	if err := validateBody(body); err != nil {
		return Document{}, err
	}
	sum := Checksum(body)

	var (
		result sql.Result
		err    error
	)
	if expected == 0 {
		result, err = s.db.ExecContext(ctx, `
			INSERT INTO documents (key, revision, checksum, body)
			VALUES ($1, 1, $2, $3)
			ON CONFLICT (key) DO NOTHING
		`, key, sum, string(body))
	} else {
		result, err = s.db.ExecContext(ctx, `
			UPDATE documents
			SET revision = revision + 1, checksum = $3, body = $4, updated_at = NOW()
			WHERE key = $1 AND revision = $2
		`, key, int64(expected), sum, string(body))
	}
	if err != nil {
		return Document{}, fmt.Errorf("write document %s: %w", key, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return Document{}, fmt.Errorf("write document %s: %w", key, err)
	}
	if affected == 0 {
		return Document{}, ErrVersionConflict
	}
	return Document{Key: key, Revision: expected + 1, Checksum: sum, Body: append([]byte(nil), body...)}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
