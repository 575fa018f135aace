package server

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/gcir/gms/pkg/outbox"
	natsdispatcher "github.com/gcir/gms/pkg/outbox/dispatchers/nats"
)

// startOutbox runs the relay and cleaner for the proposal outbox until ctx
// is cancelled. It is a no-op unless the outbox is in use and NATS is up.
func (rt *Runtime) startOutbox(ctx context.Context) error {
	events := rt.Conf.Events
	if !events.UseOutbox(rt.Conf.Store) || rt.nc == nil || rt.Pool == nil {
		return nil
	}
	table, err := outbox.ParseIdentifier(events.OutboxTable)
	if err != nil {
		return err
	}
	log := rt.Logger.WithField("component", "outbox")

	relay, err := outbox.NewRelay(rt.Pool, table, natsdispatcher.New(rt.nc, events.SubjectPrefix), outbox.RelayOptions{
		PollInterval: events.OutboxPoll,
		SingleActive: true,
		Logger:       log,
	})
	if err != nil {
		return errors.Wrap(err, "outbox relay")
	}
	cleaner, err := outbox.NewCleaner(rt.Pool, table, outbox.CleanerOptions{
		Enabled:   events.OutboxRetention > 0,
		Retention: events.OutboxRetention,
		Logger:    log,
	})
	if err != nil {
		return errors.Wrap(err, "outbox cleaner")
	}

	go runWorker(ctx, log.WithField("worker", "relay"), relay.Run)
	go runWorker(ctx, log.WithField("worker", "cleaner"), cleaner.Run)
	log.WithField("table", outbox.TableLabel(table)).Info("outbox relay started")
	return nil
}

func runWorker(ctx context.Context, log *logrus.Entry, run func(context.Context) error) {
	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("outbox worker stopped")
	}
}
