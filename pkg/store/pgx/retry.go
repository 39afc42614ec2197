package pgx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/conorbowles51/owl-n4j-sub001/pkg/logger"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	defaultMaxRetries = 3
	baseBackoff       = 200 * time.Millisecond
)

// transientPgCodes are SQLSTATE codes that indicate a failure likely to
// succeed on retry: serialization conflicts, deadlocks, resource pressure
// and lock or connection availability.
var transientPgCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"53100": true, // disk_full
	"53200": true, // out_of_memory
	"55P03": true, // lock_not_available
	"57P03": true, // cannot_connect_now
}

// isTransient reports whether an error is worth retrying. Context
// cancellation is never transient.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if transientPgCodes[pgErr.Code] {
			return true
		}
		// class 08: connection exceptions
		return strings.HasPrefix(pgErr.Code, "08")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	return false
}

// withRetry runs op, retrying transient failures with exponential backoff
// and jitter. The returned error names the operation and the attempt count
// so a failed write can be traced back from the log.
func (s *CaseDBStorage) withRetry(ctx context.Context, name string, op func(ctx context.Context) error) error {
	attempts := s.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	var err error
	attempt := 1
	for ; attempt <= attempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if !isTransient(err) || attempt == attempts {
			break
		}

		backoff := baseBackoff * time.Duration(1<<(attempt-1))
		backoff += time.Duration(rand.Int63n(int64(backoff / 2)))
		logger.Warn("[Store] Transient error, retrying",
			"op", name, "backoff", backoff, "attempt", attempt, "max_attempts", attempts, "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	if attempt > attempts {
		attempt = attempts
	}
	if isTransient(err) {
		return fmt.Errorf(
			"%s failed after %d attempt(s); the database kept reporting a transient condition, "+
				"check disk space, WAL and log volume state, lock contention from long-running "+
				"transactions, and the connection configuration: %w",
			name, attempt, err)
	}
	return fmt.Errorf("%s failed after %d attempt(s): %w", name, attempt, err)
}
