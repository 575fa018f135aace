package server

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/gcir/gms/modules"
	"github.com/gcir/gms/pkg/application"
	"github.com/gcir/gms/pkg/composables"
	"github.com/gcir/gms/pkg/configuration"
	"github.com/gcir/gms/pkg/eventbus"
)

// Runtime is a loaded application plus the connections it owns.
type Runtime struct {
	Conf   *configuration.Configuration
	App    application.Application
	Pool   *pgxpool.Pool
	Logger *logrus.Logger

	nc *nats.Conn
}

// Bootstrap opens the pool (postgres store only), loads the built-in
// modules and connects to NATS when EVENTS_NATS_URL is set. Events reach
// NATS through the outbox relay (see Serve) or, for the memory store, the
// in-process forwarder.
func Bootstrap(ctx context.Context, conf *configuration.Configuration) (*Runtime, error) {
	logger := conf.Logger()
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	rt := &Runtime{Conf: conf, Logger: logger}

	if conf.Store == configuration.StorePostgres {
		cfg, err := pgxpool.ParseConfig(conf.Database.Opts)
		if err != nil {
			return nil, errors.Wrap(err, "parse database config")
		}
		if conf.Database.MaxConns > 0 {
			cfg.MaxConns = conf.Database.MaxConns
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, errors.Wrap(err, "connect database")
		}
		rt.Pool = pool
	}

	bus := eventbus.NewEventPublisher(logger)
	rt.App = application.New(&application.ApplicationOptions{
		Pool:     rt.Pool,
		EventBus: bus,
		Logger:   logger,
	})
	mods, err := modules.BuiltInModules(conf)
	if err != nil {
		rt.Close()
		return nil, errors.Wrap(err, "configure modules")
	}
	if err := modules.Load(rt.App, mods...); err != nil {
		rt.Close()
		return nil, errors.Wrap(err, "load modules")
	}

	if conf.Events.NatsURL != "" {
		nc, forwarder, err := eventbus.Connect(conf.Events.NatsURL, conf.Events.SubjectPrefix, logger)
		if err != nil {
			logger.WithError(err).Warn("events: nats unavailable, domain events stay in-process")
		} else {
			rt.nc = nc
			if !conf.Events.UseOutbox(conf.Store) {
				forwarder.Attach(bus)
			}
		}
	}
	return rt, nil
}

// Context binds the pool and a logger for calls made outside an HTTP request.
func (rt *Runtime) Context(ctx context.Context) context.Context {
	if rt.Pool != nil {
		ctx = composables.WithPool(ctx, rt.Pool)
	}
	return composables.WithLogger(ctx, logrus.NewEntry(rt.Logger))
}

func (rt *Runtime) Close() {
	if rt.nc != nil {
		_ = rt.nc.Drain()
	}
	if rt.Pool != nil {
		rt.Pool.Close()
	}
}
