package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gcir/gms/pkg/application"
)

// PrometheusController exposes a Gatherer (the default registry unless
// overridden) in the Prometheus text or OpenMetrics format.
type PrometheusController struct {
	path     string
	gatherer prometheus.Gatherer
}

type Option func(*PrometheusController)

// WithGatherer serves g instead of prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(c *PrometheusController) { c.gatherer = g }
}

func NewPrometheusController(path string, opts ...Option) application.Controller {
	if path == "" {
		path = "/metrics"
	}
	c := &PrometheusController{path: path, gatherer: prometheus.DefaultGatherer}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *PrometheusController) Key() string {
	return c.path
}

func (c *PrometheusController) Register(r *mux.Router) {
	h := promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{EnableOpenMetrics: true})
	r.Handle(c.path, h).Methods(http.MethodGet)
}
