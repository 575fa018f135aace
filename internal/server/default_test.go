package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcir/gms/internal/server"
	"github.com/gcir/gms/modules/proposals"
	"github.com/gcir/gms/modules/proposals/presentation/controllers"
	"github.com/gcir/gms/modules/proposals/services"
	"github.com/gcir/gms/pkg/application"
	"github.com/gcir/gms/pkg/configuration"
	"github.com/gcir/gms/pkg/httpapi"
)

func newHandler(t *testing.T) http.Handler {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	conf := &configuration.Configuration{
		Store:           configuration.StoreMemory,
		CorsOrigins:     "http://localhost:3000",
		RequestIDHeader: "X-Request-ID",
		RealIPHeader:    "X-Real-IP",
		ActorHeader:     "X-Actor",
	}
	app := application.New(&application.ApplicationOptions{Logger: logger})
	require.NoError(t, proposals.NewModule(&proposals.ModuleOptions{
		Store:  configuration.StoreMemory,
		Paging: controllers.Paging{Default: 25, Max: 100},
		Report: services.ReportSettings{Currency: "INR", Location: time.UTC},
	}).Register(app))

	srv, err := server.Default(&server.DefaultOptions{Logger: logger, Configuration: conf, Application: app})
	require.NoError(t, err)
	return srv.Router()
}

func TestDefault_UnknownRouteIsJSON(t *testing.T) {
	h := newHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	req.Header.Set("X-Request-ID", "req-1")
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var env httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "NOT_FOUND", env.Code)
	assert.Equal(t, "req-1", env.Meta["request_id"])
}

func TestDefault_ServiceErrorCarriesRequestID(t *testing.T) {
	h := newHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/proposals/G-2025-CS-IND-001", nil)
	req.Header.Set("X-Request-ID", "req-2")
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "req-2", rec.Header().Get("X-Request-Id"))
	var env httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, services.CodeNotFound, env.Code)
	assert.Equal(t, "req-2", env.Meta["request_id"])
}

func TestDefault_CreateAgainstEmptyRegistries(t *testing.T) {
	h := newHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/proposals",
		strings.NewReader(`{"department":"CS","project_type":"IND","title":"x","investigators":[{"investigator_id":"G0001","role":"PI"}]}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var env httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, services.CodeInvalidLookupReference, env.Code)
}
