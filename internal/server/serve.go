package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/gcir/gms/pkg/logging"
	"github.com/gcir/gms/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

// Serve listens on the configured socket until ctx is cancelled, then
// drains in-flight requests.
func Serve(ctx context.Context, rt *Runtime) error {
	conf := rt.Conf
	if conf.OpenTelemetry.Enabled {
		cleanup := logging.SetupTracing(ctx, conf.OpenTelemetry.ServiceName, conf.OpenTelemetry.TempoURL)
		defer cleanup()
		rt.Logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}
	if conf.Prometheus.Enabled {
		rt.App.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	if err := rt.startOutbox(ctx); err != nil {
		return err
	}

	srv, err := Default(&DefaultOptions{
		Logger:        rt.Logger,
		Configuration: conf,
		Application:   rt.App,
		Pool:          rt.Pool,
	})
	if err != nil {
		return errors.Wrap(err, "create server")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(conf.SocketAddress)
	}()
	rt.Logger.WithField("store", conf.Store).Infof("Listening on: %s", conf.Origin)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "start server")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
