package controllers

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/gcir/gms/modules/proposals/services"
	"github.com/gcir/gms/pkg/httpapi"
)

func requestID(w http.ResponseWriter) string {
	return w.Header().Get("X-Request-Id")
}

func writeAPIError(w http.ResponseWriter, status int, code, message string, meta map[string]string) {
	out := make(map[string]string, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	if id := requestID(w); id != "" {
		out["request_id"] = id
	}
	if len(out) == 0 {
		out = nil
	}
	_ = httpapi.WriteError(w, status, code, message, out)
}

func writeServiceError(w http.ResponseWriter, err error) {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		writeAPIError(w, svcErr.Status, svcErr.Code, svcErr.Message, svcErr.Meta)
		return
	}
	writeAPIError(w, http.StatusInternalServerError, services.CodeInternal, "internal error", nil)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeAPIError(w, http.StatusBadRequest, "INVALID_REQUEST", message, nil)
}
