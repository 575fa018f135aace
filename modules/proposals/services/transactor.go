package services

import (
	"context"

	"github.com/gcir/gms/pkg/composables"
	"github.com/gcir/gms/pkg/eventbus"
)

// Transactor runs fn as one unit of work: everything fn writes commits
// together or not at all.
type Transactor interface {
	InTx(ctx context.Context, fn func(context.Context) error) error
}

type TransactorFunc func(ctx context.Context, fn func(context.Context) error) error

func (f TransactorFunc) InTx(ctx context.Context, fn func(context.Context) error) error {
	return f(ctx, fn)
}

// PgTransactor opens a pgx transaction on the pool bound to the context.
var PgTransactor Transactor = TransactorFunc(composables.InTx)

func inTx[T any](ctx context.Context, tx Transactor, fn func(txCtx context.Context) (T, error)) (T, error) {
	var out T
	err := tx.InTx(ctx, func(txCtx context.Context) error {
		var innerErr error
		out, innerErr = fn(txCtx)
		return innerErr
	})
	return out, err
}

// EventOutbox persists domain events with the mutation that produced them,
// for asynchronous delivery after commit.
type EventOutbox interface {
	Stage(ctx context.Context, event eventbus.Subjecter) error
}
