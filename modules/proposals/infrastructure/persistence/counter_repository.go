package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/gcir/gms/modules/proposals/domain/entities/sequence"
	"github.com/gcir/gms/pkg/composables"
)

const (
	advanceCounterQuery = `UPDATE proposal_code_counters
		SET last_serial = last_serial + 1, updated_at = now()
		WHERE prefix = $1
		RETURNING last_serial`

	seedCounterQuery = `INSERT INTO proposal_code_counters (prefix, last_serial, updated_at)
		VALUES ($1, $2 + 1, now())
		ON CONFLICT (prefix) DO UPDATE
		SET last_serial = proposal_code_counters.last_serial + 1, updated_at = now()
		RETURNING last_serial`

	peekCounterQuery = `SELECT last_serial FROM proposal_code_counters WHERE prefix = $1`
)

// CounterRepository keeps one row per prefix in proposal_code_counters.
// Advancing takes the row lock, so concurrent allocations for one prefix
// serialize until the owning transaction ends.
type CounterRepository struct{}

func NewCounterRepository() sequence.Repository {
	return &CounterRepository{}
}

func (r *CounterRepository) Next(ctx context.Context, prefix string, floor func(context.Context) (int, error)) (int, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var serial int
	err = tx.QueryRow(ctx, advanceCounterQuery, prefix).Scan(&serial)
	if err == nil {
		return serial, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, errors.Wrapf(err, "advance counter %s", prefix)
	}

	seed, err := floor(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "seed counter %s", prefix)
	}
	if err := tx.QueryRow(ctx, seedCounterQuery, prefix, seed).Scan(&serial); err != nil {
		return 0, errors.Wrapf(err, "seed counter %s", prefix)
	}
	return serial, nil
}

func (r *CounterRepository) Peek(ctx context.Context, prefix string, floor func(context.Context) (int, error)) (int, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var last int
	err = tx.QueryRow(ctx, peekCounterQuery, prefix).Scan(&last)
	switch {
	case err == nil:
		return last + 1, nil
	case errors.Is(err, pgx.ErrNoRows):
		seed, err := floor(ctx)
		if err != nil {
			return 0, err
		}
		return seed + 1, nil
	default:
		return 0, errors.Wrapf(err, "peek counter %s", prefix)
	}
}
