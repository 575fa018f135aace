package middleware

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/gcir/gms/pkg/composables"
	"github.com/gcir/gms/pkg/configuration"
	"github.com/gcir/gms/pkg/constants"
)

// Provide binds value under key on every request context.
func Provide(key constants.ContextKey, value any) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), key, value)))
		})
	}
}

// WithActor reads the acting staff member from header and binds it for
// the changelog. Authentication happens upstream.
func WithActor(header string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := composables.WithActor(r.Context(), r.Header.Get(header))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestParams stores client metadata for handlers.
func RequestParams(conf *configuration.Configuration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := composables.WithParams(r.Context(), &composables.Params{
				IP:        getRealIP(r, conf),
				UserAgent: r.UserAgent(),
				Request:   r,
				Writer:    w,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
