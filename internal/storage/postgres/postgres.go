package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// NewPoolWithRetry creates a pool, retrying while the database is still
// coming up (e.g. the job started before its Postgres container is ready).
func NewPoolWithRetry(ctx context.Context, dsn string, retries int, delay time.Duration) (*Pool, error) {
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		pool, err := NewPool(ctx, dsn)
		if err == nil {
			return pool, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("database unavailable after %d attempts: %w", retries, lastErr)
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// ingestLockKey identifies the ingestion run advisory lock.
const ingestLockKey = int64(0x6c6c616d61) // "llama"

// IngestLock is a held ingestion advisory lock. Advisory locks are
// session-scoped, so the lock pins the pooled connection it was taken on
// until Release. Each run holds its own handle; nothing is shared through
// the Pool, so overlapping runs cannot clobber each other's lock state.
type IngestLock struct {
	conn *pgxpool.Conn
}

// TryIngestLock attempts to take the session advisory lock that serializes
// ingestion runs. Returns a nil lock when another run already holds it.
func (p *Pool) TryIngestLock(ctx context.Context) (*IngestLock, error) {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection for ingest lock: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, ingestLockKey).Scan(&acquired); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire ingest lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, nil
	}

	return &IngestLock{conn: conn}, nil
}

// Release frees the advisory lock and returns its connection to the pool.
// Safe to call on a nil lock.
func (l *IngestLock) Release(ctx context.Context) error {
	if l == nil || l.conn == nil {
		return nil
	}

	_, err := l.conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, ingestLockKey)
	l.conn.Release()
	l.conn = nil
	if err != nil {
		return fmt.Errorf("release ingest lock: %w", err)
	}
	return nil
}

// PostgreSQL error codes
const (
	pgErrUniqueViolation = "23505" // unique_violation
)

// isDuplicateKeyError checks if error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	// Use pgconn.PgError for reliable error code detection
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}

	return false
}

// isNotFoundError checks if error indicates no rows found.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
