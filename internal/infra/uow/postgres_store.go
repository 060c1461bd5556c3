package uow

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"boxoffice/internal/infra"
	"boxoffice/internal/infra/db"
	"boxoffice/internal/infra/repository"
	"boxoffice/internal/pkg/config"
	"boxoffice/internal/pkg/errs"
	"boxoffice/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgErrCodeSerializationFailure = "40001"
	pgErrCodeDeadlockDetected     = "40P01"
	pgErrCodeLockNotAvailable     = "55P03"
)

var (
	errTransactionBegin   = errs.New("failed to begin transaction")
	errTransactionCommit  = errs.New("failed to commit transaction")
	errMaxRetriesExceeded = errs.New("transaction failed after max retries")
)

type PostgresStore struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

func NewPostgresStore(pool *pgxpool.Pool, lock config.LockConfig) shared.Store {
	return &PostgresStore{
		pool:        pool,
		lockTimeout: lock.Timeout,
	}
}

// ReadCommitted prevents dirty reads while allowing concurrent writes
func (s *PostgresStore) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return s.runInTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, nil, fn)
}

// WithinEventLock serializes the callback against all holders of the same
// event's advisory lock. The lock lives for the transaction; the wait is
// bounded by lock_timeout so contended commits fail fast instead of piling
// up. Lock timeouts are not retried here, the caller decides.
func (s *PostgresStore) WithinEventLock(ctx context.Context, eventID uuid.UUID, fn func(ctx context.Context, tx shared.Tx) error) error {
	acquire := func(ctx context.Context, dbtx pgx.Tx) error {
		timeoutMs := s.lockTimeout.Milliseconds()
		if _, err := dbtx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeoutMs)); err != nil {
			return errs.Wrap(err, "failed to set lock timeout")
		}
		if _, err := dbtx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))", eventID.String()); err != nil {
			if isLockTimeoutError(err) {
				return infra.WrapRepoErr(infra.KindLockTimeout, "event lock wait exceeded", err)
			}
			return errs.Wrap(err, "failed to acquire event lock")
		}
		return nil
	}
	return s.runInTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, acquire, fn)
}

func (s *PostgresStore) Reads() shared.CommandReads {
	return repository.NewCommandReads(s.pool)
}

// Avoids defer accumulation in retry loops to prevent connection leaks
func (s *PostgresStore) runInTx(ctx context.Context, options pgx.TxOptions, acquire func(ctx context.Context, dbtx pgx.Tx) error, fn func(ctx context.Context, tx shared.Tx) error) error {
	const maxRetries = 3
	base := 100 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		pgxTx, err := s.pool.BeginTx(ctx, options)
		if err != nil {
			return errs.Mark(err, errTransactionBegin)
		}

		err = nil
		if acquire != nil {
			err = acquire(ctx, pgxTx)
		}
		if err == nil {
			err = fn(ctx, &pgTx{dbtx: pgxTx})
		}
		if err == nil {
			if err = pgxTx.Commit(ctx); err == nil {
				return nil
			}
			err = errs.Mark(err, errTransactionCommit)
		}

		if rollbackErr := pgxTx.Rollback(ctx); rollbackErr != nil {
			if !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				slog.Warn("rollback failed", "attempt", attempt+1, "error", rollbackErr.Error())
			}
		}

		if !shouldRetry(err, attempt, maxRetries) {
			if attempt == maxRetries {
				slog.Error("transaction failed after max retries",
					"attempts", attempt+1,
					"error", err.Error())
				return errs.Mark(err, errMaxRetriesExceeded)
			}
			return err
		}

		waitTime := calculateBackoff(attempt, base)

		slog.Warn("retrying transaction due to retryable error",
			"attempt", attempt+1,
			"wait_ms", waitTime.Milliseconds(),
			"error", err.Error())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}

	return errMaxRetriesExceeded
}

func shouldRetry(err error, attempt, maxRetries int) bool {
	return isRetryableError(err) && attempt < maxRetries
}

func calculateBackoff(attempt int, base time.Duration) time.Duration {
	waitTime := time.Duration(1<<attempt) * base
	jitter := cryptoRandInt63n(int64(waitTime / 5))
	return waitTime + time.Duration(jitter)
}

func cryptoRandInt63n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Fallback to a simple calculation if crypto/rand fails
		return 0
	}
	// Safe conversion: mask high bit to ensure positive int64
	uval := binary.BigEndian.Uint64(buf[:]) & 0x7FFFFFFFFFFFFFFF
	// #nosec G115 -- Intentionally safe conversion after masking
	return int64(uval) % n
}

func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	switch pgErr.Code {
	case pgErrCodeSerializationFailure, pgErrCodeDeadlockDetected:
		return true
	default:
		return false
	}
}

func isLockTimeoutError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrCodeLockNotAvailable
}

type pgTx struct {
	dbtx db.DBTX

	// Lazy-initialized repositories
	orderRepo   shared.OrderRepository
	invoiceRepo shared.InvoiceRepository
	auditLog    shared.AuditLog
	quotaReads  shared.QuotaReads
}

func (t *pgTx) Orders() shared.OrderRepository {
	if t.orderRepo == nil {
		t.orderRepo = repository.NewOrderRepository(t.dbtx)
	}
	return t.orderRepo
}

func (t *pgTx) Invoices() shared.InvoiceRepository {
	if t.invoiceRepo == nil {
		t.invoiceRepo = repository.NewInvoiceRepository(t.dbtx)
	}
	return t.invoiceRepo
}

func (t *pgTx) Audit() shared.AuditLog {
	if t.auditLog == nil {
		t.auditLog = repository.NewAuditLog(t.dbtx)
	}
	return t.auditLog
}

func (t *pgTx) Quotas() shared.QuotaReads {
	if t.quotaReads == nil {
		t.quotaReads = repository.NewQuotaReads(t.dbtx)
	}
	return t.quotaReads
}
