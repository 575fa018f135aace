package server

import (
	"net/http"

	"github.com/gcir/gms/pkg/httpapi"
)

func NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusNotFound, "NOT_FOUND", "route not found",
			map[string]string{"path": r.URL.Path, "request_id": w.Header().Get("X-Request-Id")})
	})
}

func MethodNotAllowed() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed",
			map[string]string{"path": r.URL.Path, "method": r.Method, "request_id": w.Header().Get("X-Request-Id")})
	})
}
