package routinggates

import (
	"sort"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	internalserver "github.com/gcir/gms/internal/server"
	"github.com/gcir/gms/modules"
	"github.com/gcir/gms/pkg/application"
	"github.com/gcir/gms/pkg/configuration"
	"github.com/gcir/gms/pkg/eventbus"
	pkgserver "github.com/gcir/gms/pkg/server"
)

func TestExposureBaseline_AllRoutesUnderAPIPrefix(t *testing.T) {
	srv := buildMainServerHTTPServer(t)

	var offending []string
	for _, p := range collectRoutePaths(t, srv.Router()) {
		if p != "/api/v1" && !strings.HasPrefix(p, "/api/v1/") {
			offending = append(offending, p)
		}
	}
	require.Empty(t, offending, "routes registered outside /api/v1")
}

func TestExposureBaseline_RequiredRoutes(t *testing.T) {
	srv := buildMainServerHTTPServer(t)
	paths := collectRoutePaths(t, srv.Router())

	for _, want := range []string{
		"/api/v1/codes/next",
		"/api/v1/proposals",
		"/api/v1/proposals/{code}",
		"/api/v1/proposals/{code}/transitions",
		"/api/v1/proposals/{code}/history",
		"/api/v1/changelog/weekly",
		"/api/v1/lookups/{kind}",
		"/api/v1/investigators",
		"/api/v1/investigators/external",
		"/api/v1/investigators/{id}",
	} {
		require.Contains(t, paths, want)
	}
}

func collectRoutePaths(t *testing.T, router *mux.Router) []string {
	t.Helper()

	var paths []string
	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		p := routePath(route)
		if strings.TrimSpace(p) != "" {
			paths = append(paths, p)
		}
		return nil
	})
	require.NoError(t, err)

	sort.Strings(paths)
	return paths
}

func routePath(route *mux.Route) string {
	if route == nil {
		return ""
	}
	if tmpl, err := route.GetPathTemplate(); err == nil {
		return tmpl
	}
	regexp, err := route.GetPathRegexp()
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(regexp, "^")
}

func buildMainServerHTTPServer(t *testing.T) *pkgserver.HTTPServer {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	conf := &configuration.Configuration{
		Store:           configuration.StoreMemory,
		PageSize:        25,
		MaxPageSize:     100,
		CorsOrigins:     "http://localhost:3000",
		RequestIDHeader: "X-Request-ID",
		RealIPHeader:    "X-Real-IP",
		ActorHeader:     "X-Actor",
		Report:          configuration.ReportOptions{Currency: "INR", Timezone: "UTC"},
	}

	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	mods, err := modules.BuiltInModules(conf)
	require.NoError(t, err)
	require.NoError(t, modules.Load(app, mods...))

	srv, err := internalserver.Default(&internalserver.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
	})
	require.NoError(t, err)
	return srv
}
