package server

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type helloController struct{}

func (helloController) Key() string { return "/hello" }
func (helloController) Register(r *mux.Router) {
	r.HandleFunc("/hello", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("hello ", 400)))
	}).Methods(http.MethodGet)
}

func TestHTTPServer_FallbackHandlersGetMiddleware(t *testing.T) {
	var hits int
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			next.ServeHTTP(w, r)
		})
	}
	s := &HTTPServer{
		Controllers:     nil,
		Middlewares:     []mux.MiddlewareFunc{mw},
		NotFoundHandler: http.NotFoundHandler(),
	}

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, 1, hits)
}

func TestHTTPServer_HandlerCompresses(t *testing.T) {
	s := &HTTPServer{}
	s.Controllers = append(s.Controllers, helloController{})

	req := httptest.NewRequest(http.MethodGet, "/hello", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(body), "hello hello"))
}
