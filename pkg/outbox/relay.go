package outbox

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Relay polls one outbox table and hands unpublished rows to a Dispatcher.
// Rows are claimed with FOR UPDATE SKIP LOCKED, so several relays may poll
// the same table; SingleActive narrows that to one leader per table.
type Relay struct {
	pool       *pgxpool.Pool
	table      pgx.Identifier
	dispatcher Dispatcher
	opts       RelayOptions

	lockKey    int64
	m          *metrics
	tableLabel string
}

type beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func NewRelay(pool *pgxpool.Pool, table pgx.Identifier, dispatcher Dispatcher, opts RelayOptions) (*Relay, error) {
	if pool == nil {
		return nil, invalidConfig("pool is required")
	}
	if len(table) == 0 {
		return nil, invalidConfig("table is required")
	}
	if dispatcher == nil {
		return nil, invalidConfig("dispatcher is required")
	}
	opts.setDefaults()
	if opts.Logger == nil {
		opts.Logger = nopLogger()
	}
	return &Relay{
		pool:       pool,
		table:      table,
		dispatcher: dispatcher,
		opts:       opts,
		lockKey:    advisoryLockKey("outbox:" + TableLabel(table)),
		m:          getMetrics(),
		tableLabel: TableLabel(table),
	}, nil
}

// Run blocks until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	if !r.opts.SingleActive {
		r.m.leader.WithLabelValues(r.tableLabel).Set(1)
		return r.loop(ctx, r.pool)
	}
	for {
		conn, err := r.pool.Acquire(ctx)
		if err != nil {
			r.opts.Logger.WithError(err).Warn("outbox: acquire connection for leader election")
			if err := r.sleep(ctx); err != nil {
				return err
			}
			continue
		}

		var leader bool
		if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1::bigint)`, r.lockKey).Scan(&leader); err != nil || !leader {
			if err != nil {
				r.opts.Logger.WithError(err).Warn("outbox: advisory lock attempt failed")
			}
			r.m.leader.WithLabelValues(r.tableLabel).Set(0)
			conn.Release()
			if err := r.sleep(ctx); err != nil {
				return err
			}
			continue
		}

		r.m.leader.WithLabelValues(r.tableLabel).Set(1)
		r.opts.Logger.WithField("table", r.tableLabel).Info("outbox: relay became leader")
		err = r.loop(ctx, conn)
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1::bigint)`, r.lockKey)
		conn.Release()
		r.m.leader.WithLabelValues(r.tableLabel).Set(0)
		return err
	}
}

func (r *Relay) sleep(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.opts.PollInterval):
		return nil
	}
}

func (r *Relay) loop(ctx context.Context, db beginner) error {
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	nextDepthAt := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if time.Now().After(nextDepthAt) {
			if err := r.observeQueueDepth(ctx, db); err != nil {
				r.opts.Logger.WithError(err).Debug("outbox: observe queue depth failed")
			}
			nextDepthAt = time.Now().Add(r.opts.ObserveQueueDepthEvery)
		}

		if err := r.processOnce(ctx, db); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			r.opts.Logger.WithError(err).Warn("outbox: process tick failed")
		}
	}
}

type claimed struct {
	ID       uuid.UUID
	Topic    string
	Payload  []byte
	EventID  uuid.UUID
	Sequence int64
	Attempts int
}

func (c claimed) fields(table string) logrus.Fields {
	return logrus.Fields{
		"table":    table,
		"topic":    c.Topic,
		"event_id": c.EventID.String(),
		"sequence": c.Sequence,
		"attempts": c.Attempts,
	}
}

// processOnce claims one batch and dispatches it. Successful rows are
// marked published; failures are rescheduled with exponential backoff
// until MaxAttempts, after which they stay unpublished as dead rows.
func (r *Relay) processOnce(ctx context.Context, db beginner) error {
	now := time.Now()
	batch, err := r.claim(ctx, db, now, now.Add(-r.opts.LockTTL))
	if err != nil {
		return err
	}

	for _, c := range batch {
		dispatchCtx, cancel := context.WithTimeout(ctx, r.opts.DispatchTimeout)
		start := time.Now()
		err := r.dispatcher.Dispatch(dispatchCtx, DispatchedMessage{
			Meta: Meta{
				Table:    r.table,
				Topic:    c.Topic,
				EventID:  c.EventID,
				Sequence: c.Sequence,
				Attempts: c.Attempts,
			},
			Payload: c.Payload,
		})
		cancel()
		latency := time.Since(start)

		if err == nil {
			r.recordDispatch(c.Topic, "success", latency)
			if err := r.settle(ctx, db, ackQuery, c.ID); err != nil {
				r.opts.Logger.WithError(err).WithFields(c.fields(r.tableLabel)).Warn("outbox: ack failed")
			}
			continue
		}

		r.recordDispatch(c.Topic, "failure", latency)
		lastErr := lastError(err, r.opts.LastErrorMaxLen)
		if c.Attempts >= r.opts.MaxAttempts {
			r.m.dead.WithLabelValues(r.tableLabel, c.Topic).Inc()
			r.opts.Logger.WithError(err).WithFields(c.fields(r.tableLabel)).Error("outbox: message is dead")
			if err := r.settle(ctx, db, deadQuery, c.ID, lastErr); err != nil {
				r.opts.Logger.WithError(err).WithFields(c.fields(r.tableLabel)).Warn("outbox: dead update failed")
			}
			continue
		}

		next := time.Now().Add(retryDelay(c.Attempts, r.opts.MaxBackoff, r.opts.JitterMax, r.opts.Rand))
		if err := r.settle(ctx, db, nackQuery, c.ID, lastErr, next); err != nil {
			r.opts.Logger.WithError(err).WithFields(c.fields(r.tableLabel)).Warn("outbox: nack failed")
		}
	}
	return nil
}

const (
	claimQuery = `SELECT id, topic, payload, event_id, sequence, attempts
		FROM %s
		WHERE published_at IS NULL
		  AND available_at <= $1
		  AND attempts < $2
		  AND (locked_at IS NULL OR locked_at < $3)
		ORDER BY available_at, sequence
		LIMIT $4
		FOR UPDATE SKIP LOCKED`
	lockQuery = `UPDATE %s SET locked_at = $1, attempts = attempts + 1 WHERE id = ANY($2)`
	ackQuery  = `UPDATE %s SET published_at = now(), locked_at = NULL, last_error = NULL
		WHERE id = $1 AND published_at IS NULL`
	nackQuery = `UPDATE %s SET locked_at = NULL, last_error = $2, available_at = $3
		WHERE id = $1 AND published_at IS NULL`
	deadQuery = `UPDATE %s SET locked_at = NULL, last_error = $2, available_at = now()
		WHERE id = $1 AND published_at IS NULL`
)

func (r *Relay) withTx(ctx context.Context, db beginner, fn func(tx pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *Relay) claim(ctx context.Context, db beginner, now, lockCutoff time.Time) ([]claimed, error) {
	var items []claimed
	err := r.withTx(ctx, db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, fmt.Sprintf(claimQuery, r.table.Sanitize()),
			now, r.opts.MaxAttempts, lockCutoff, r.opts.BatchSize)
		if err != nil {
			return errors.Wrap(err, "outbox claim select")
		}
		defer rows.Close()

		var ids []uuid.UUID
		for rows.Next() {
			var c claimed
			if err := rows.Scan(&c.ID, &c.Topic, &c.Payload, &c.EventID, &c.Sequence, &c.Attempts); err != nil {
				return errors.Wrap(err, "outbox claim scan")
			}
			c.Attempts++
			items = append(items, c)
			ids = append(ids, c.ID)
		}
		if err := rows.Err(); err != nil {
			return errors.Wrap(err, "outbox claim rows")
		}
		if len(ids) == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, fmt.Sprintf(lockQuery, r.table.Sanitize()), now, pgtype.FlatArray[uuid.UUID](ids)); err != nil {
			return errors.Wrap(err, "outbox claim update")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Relay) settle(ctx context.Context, db beginner, query string, args ...any) error {
	return r.withTx(ctx, db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, fmt.Sprintf(query, r.table.Sanitize()), args...)
		return err
	})
}

func (r *Relay) observeQueueDepth(ctx context.Context, db beginner) error {
	var pending, locked int64
	q := fmt.Sprintf(`SELECT count(*), count(locked_at) FROM %s WHERE published_at IS NULL`, r.table.Sanitize())
	if err := db.QueryRow(ctx, q).Scan(&pending, &locked); err != nil {
		return errors.Wrap(err, "outbox queue depth")
	}
	r.m.pending.WithLabelValues(r.tableLabel).Set(float64(pending))
	r.m.locked.WithLabelValues(r.tableLabel).Set(float64(locked))
	return nil
}

func (r *Relay) recordDispatch(topic, result string, latency time.Duration) {
	r.m.dispatched.WithLabelValues(r.tableLabel, topic, result).Inc()
	r.m.latency.WithLabelValues(r.tableLabel, topic, result).Observe(latency.Seconds())
}

func advisoryLockKey(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
