package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Cleaner prunes published rows older than Retention and, when
// DeadRetention is set, rows that exhausted their attempts.
type Cleaner struct {
	db         execer
	opts       CleanerOptions
	tableLabel string
	published  string
	dead       string
	m          *metrics
}

func NewCleaner(pool *pgxpool.Pool, table pgx.Identifier, opts CleanerOptions) (*Cleaner, error) {
	if pool == nil {
		return nil, invalidConfig("pool is required")
	}
	return newCleaner(pool, table, opts)
}

func newCleaner(db execer, table pgx.Identifier, opts CleanerOptions) (*Cleaner, error) {
	if len(table) == 0 {
		return nil, invalidConfig("table is required")
	}
	opts.setDefaults()
	if opts.Logger == nil {
		opts.Logger = nopLogger()
	}
	if opts.DeadRetention > 0 && opts.DeadAttemptsThreshold <= 0 {
		return nil, invalidConfig("dead retention requires DeadAttemptsThreshold > 0")
	}
	name := table.Sanitize()
	return &Cleaner{
		db:         db,
		opts:       opts,
		tableLabel: TableLabel(table),
		published:  fmt.Sprintf(`DELETE FROM %s WHERE published_at IS NOT NULL AND published_at < $1`, name),
		dead: fmt.Sprintf(
			`DELETE FROM %s WHERE published_at IS NULL AND attempts >= $1 AND created_at < $2`, name),
		m: getMetrics(),
	}, nil
}

// Run prunes every Interval until ctx is done. A disabled cleaner returns
// immediately.
func (c *Cleaner) Run(ctx context.Context) error {
	if !c.opts.Enabled {
		return nil
	}
	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if _, err := c.clean(ctx, time.Now()); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.opts.Logger.WithError(err).WithField("table", c.tableLabel).Warn("outbox: cleaner tick failed")
		}
	}
}

func (c *Cleaner) clean(ctx context.Context, now time.Time) (int64, error) {
	tag, err := c.db.Exec(ctx, c.published, now.Add(-c.opts.Retention))
	if err != nil {
		return 0, errors.Wrap(err, "delete published")
	}
	removed := tag.RowsAffected()

	if c.opts.DeadRetention > 0 {
		tag, err = c.db.Exec(ctx, c.dead, c.opts.DeadAttemptsThreshold, now.Add(-c.opts.DeadRetention))
		if err != nil {
			return removed, errors.Wrap(err, "delete dead")
		}
		removed += tag.RowsAffected()
	}

	if removed > 0 {
		c.m.cleaned.WithLabelValues(c.tableLabel).Add(float64(removed))
		c.opts.Logger.WithFields(logrus.Fields{"table": c.tableLabel, "removed": removed}).Debug("outbox: pruned rows")
	}
	return removed, nil
}
