package pgx

import (
	"context"

	"github.com/conorbowles51/owl-n4j-sub001/internal/util"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// CaseDBStorage implements the store.CaseStorage interface on PostgreSQL.
// Writes that hit transient failures (serialization conflicts, lock
// timeouts, dropped connections) are retried with backoff before the error
// is surfaced to the caller.
type CaseDBStorage struct {
	conn pgxIConn
	pool *pgxpool.Pool

	maxRetries int
}

type CaseDBStorageOption func(*CaseDBStorage)

// WithMaxRetries overrides the number of retry attempts for transient
// database errors.
func WithMaxRetries(n int) CaseDBStorageOption {
	return func(s *CaseDBStorage) {
		s.maxRetries = n
	}
}

// NewCaseDBStorageWithConnection creates a new CaseDBStorage using an
// existing database connection. The caller keeps ownership of the
// connection, Close is a no-op.
func NewCaseDBStorageWithConnection(
	conn pgxIConn,
	opts ...CaseDBStorageOption,
) *CaseDBStorage {
	s := &CaseDBStorage{
		conn:       conn,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// NewCaseDBStorage connects a pool to the given database URL and runs the
// embedded schema migrations.
func NewCaseDBStorage(
	ctx context.Context,
	databaseURL string,
	opts ...CaseDBStorageOption,
) (*CaseDBStorage, error) {
	if err := MigrateUp(databaseURL); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := util.RetryErrWithContext(ctx, 3, pool.Ping); err != nil {
		pool.Close()
		return nil, err
	}

	s := NewCaseDBStorageWithConnection(pool, opts...)
	s.pool = pool
	return s, nil
}

// Close releases the pool when this storage owns one.
func (s *CaseDBStorage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
