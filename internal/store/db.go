package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"fsyportal/internal/apperr"
	"fsyportal/internal/metrics"
)

// ErrPoolExhausted is returned when every connection is busy and the wait
// queue is full. It is never retried.
var ErrPoolExhausted = errors.New("database pool and wait queue exhausted")

// Postgres error codes treated as transient connection trouble.
var transientCodes = map[string]bool{
	"53300": true, // too_many_connections
	"08000": true, // connection_exception
	"08001": true, // sqlclient_unable_to_establish_sqlconnection
	"08003": true, // connection_does_not_exist
	"08004": true, // sqlserver_rejected_establishment_of_sqlconnection
	"08006": true, // connection_failure
	"57P01": true, // admin_shutdown
	"57P03": true, // cannot_connect_now
}

// Options tunes the gateway.
type Options struct {
	MaxConns   int
	QueueLimit int
	MaxRetries int
	RetryBase  time.Duration
	VenueTZ    string // exposed to SQL as fsy.venue_tz
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// Gateway is the persistence entry point used by the repositories.
type Gateway interface {
	Query(ctx context.Context, sql string, scan func(pgx.Row) error, args ...any) error
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Tx(ctx context.Context, fn func(pgx.Tx) error) error
}

// DB wraps a pgx pool with a bounded wait queue and transient-error retries.
type DB struct {
	pool    *pgxpool.Pool
	slots   *semaphore.Weighted
	opts    Options
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewDB creates a Postgres pool sized by opts and pings it.
func NewDB(ctx context.Context, connString string, opts Options) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if opts.MaxConns <= 0 {
		opts.MaxConns = 10
	}
	cfg.MaxConns = int32(opts.MaxConns)
	cfg.MinConns = 0
	cfg.MaxConnIdleTime = 30 * time.Second
	cfg.MaxConnLifetime = time.Hour
	if opts.VenueTZ != "" {
		cfg.ConnConfig.RuntimeParams["fsy.venue_tz"] = opts.VenueTZ
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	d := newDB(pool, opts)
	if err := pool.Ping(ctx); err != nil {
		return d, fmt.Errorf("failed to ping database: %w", err)
	}
	return d, nil
}

func newDB(pool *pgxpool.Pool, opts Options) *DB {
	if opts.MaxConns <= 0 {
		opts.MaxConns = 10
	}
	if opts.QueueLimit < 0 {
		opts.QueueLimit = 0
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &DB{
		pool:    pool,
		slots:   semaphore.NewWeighted(int64(opts.MaxConns + opts.QueueLimit)),
		opts:    opts,
		log:     opts.Logger.Named("db"),
		metrics: opts.Metrics,
	}
}

// Close closes the pool.
func (d *DB) Close() {
	if d == nil || d.pool == nil {
		return
	}
	d.pool.Close()
}

// Healthy pings the database.
func (d *DB) Healthy(ctx context.Context) bool {
	if d == nil || d.pool == nil {
		return false
	}
	return d.pool.Ping(ctx) == nil
}

// Query runs sql and hands every result row to scan. The rows are closed, and
// the connection returned to the pool, before Query returns. Once a row has
// been handed to scan the statement is no longer retried.
func (d *DB) Query(ctx context.Context, sql string, scan func(pgx.Row) error, args ...any) error {
	return d.run(ctx, "query", func(ctx context.Context) error {
		rows, err := d.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		scanned := 0
		for rows.Next() {
			if err := scan(rows); err != nil {
				return backoff.Permanent(err)
			}
			scanned++
		}
		if err := rows.Err(); err != nil {
			if scanned > 0 {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	})
}

// Exec runs a statement that returns no rows.
func (d *DB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	var affected int64
	err := d.run(ctx, "exec", func(ctx context.Context) error {
		tag, err := d.pool.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	return affected, err
}

// Tx runs fn inside a transaction, committing on nil and rolling back otherwise.
func (d *DB) Tx(ctx context.Context, fn func(pgx.Tx) error) error {
	return d.run(ctx, "tx", func(ctx context.Context) error {
		tx, err := d.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				d.log.Warn("rollback failed", zap.Error(rbErr))
			}
		}()

		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
}

// run takes a slot in the bounded queue, then executes fn with retries.
func (d *DB) run(ctx context.Context, op string, fn func(context.Context) error) error {
	if !d.slots.TryAcquire(1) {
		if d.metrics != nil {
			d.metrics.DBRejected.Inc()
		}
		d.log.Warn("rejecting database operation", zap.String("op", op))
		return apperr.Transient("database busy", ErrPoolExhausted)
	}
	defer d.slots.Release(1)
	return d.withRetry(ctx, op, fn)
}

func (d *DB) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * d.opts.RetryBase
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 30 * d.opts.RetryBase

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := fn(ctx)
		if err == nil {
			return struct{}{}, nil
		}
		var perm *backoff.PermanentError
		if errors.As(err, &perm) || !IsTransient(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(d.opts.MaxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			if d.metrics != nil {
				d.metrics.DBRetries.Inc()
			}
			d.log.Warn("transient database error, retrying",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", next),
				zap.Error(err))
		}),
	)
	if err == nil {
		return nil
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	if IsTransient(err) {
		return apperr.Transient("database unavailable", err)
	}
	return err
}

// IsTransient reports whether err is a connection-level failure worth retrying.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrPoolExhausted) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientCodes[pgErr.Code]
	}
	if pgconn.SafeToRetry(err) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
