package sequence

import "context"

// Repository hands out gap-free serials per prefix. Next must run inside
// the transaction that persists the row carrying the serial, so a rollback
// returns the serial.
type Repository interface {
	// Next advances the counter for prefix. On first use the counter is
	// seeded with floor, the highest serial already in use.
	Next(ctx context.Context, prefix string, floor func(ctx context.Context) (int, error)) (int, error)
	// Peek returns the serial Next would issue without reserving it.
	Peek(ctx context.Context, prefix string, floor func(ctx context.Context) (int, error)) (int, error)
}
