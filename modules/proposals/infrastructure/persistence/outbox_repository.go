package persistence

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gcir/gms/pkg/composables"
	"github.com/gcir/gms/pkg/eventbus"
	"github.com/gcir/gms/pkg/outbox"
)

// DefaultOutboxTable is created by the proposals schema.
var DefaultOutboxTable = pgx.Identifier{"proposal_outbox"}

// OutboxRepository stages proposal events in the transaction bound to ctx.
type OutboxRepository struct {
	publisher outbox.Publisher
}

func NewOutboxRepository(table pgx.Identifier) (*OutboxRepository, error) {
	p, err := outbox.NewPublisher(table)
	if err != nil {
		return nil, err
	}
	return &OutboxRepository{publisher: p}, nil
}

func (r *OutboxRepository) Stage(ctx context.Context, event eventbus.Subjecter) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrapf(err, "marshal %s event", event.Subject())
	}
	_, err = r.publisher.Enqueue(ctx, tx, outbox.Message{
		Topic:   event.Subject(),
		EventID: uuid.New(),
		Payload: payload,
	})
	return err
}
