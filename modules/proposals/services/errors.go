package services

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/gcir/gms/modules/proposals/domain/aggregates/proposal"
	"github.com/gcir/gms/modules/proposals/domain/entities/changelog"
	"github.com/gcir/gms/modules/proposals/domain/entities/investigator"
	"github.com/gcir/gms/modules/proposals/domain/entities/lookup"
)

const (
	CodeInvalidLookupReference = "INVALID_LOOKUP_REFERENCE"
	CodeAllocationConflict     = "ALLOCATION_CONFLICT"
	CodeIllegalTransition      = "ILLEGAL_TRANSITION"
	CodeMissingRequiredField   = "MISSING_REQUIRED_FIELD"
	CodeImmutableField         = "IMMUTABLE_FIELD"
	CodeInvalidField           = "INVALID_FIELD"
	CodeNotFound               = "NOT_FOUND"
	CodeConflict               = "CONFLICT"
	CodeAuditWriteFailure      = "AUDIT_WRITE_FAILURE"
	CodeInternal               = "INTERNAL"
)

type ServiceError struct {
	Status  int
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func newServiceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Status: status, Code: code, Message: message, Cause: cause}
}

func (e *ServiceError) with(key, value string) *ServiceError {
	if e.Meta == nil {
		e.Meta = map[string]string{}
	}
	e.Meta[key] = value
	return e
}

func invalidLookup(field, value string) *ServiceError {
	return newServiceError(http.StatusUnprocessableEntity, CodeInvalidLookupReference,
		fmt.Sprintf("unknown %s %q", field, value), nil).
		with("field", field).
		with("value", value)
}

// auditError marks a changelog write failure. It is never shown to callers.
type auditError struct {
	cause error
}

func (e *auditError) Error() string { return "changelog write failed: " + e.cause.Error() }
func (e *auditError) Unwrap() error { return e.cause }

// toServiceError maps domain and store errors onto the service taxonomy.
// Anything unrecognized becomes INTERNAL.
func toServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}

	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	var ae *auditError
	if errors.As(err, &ae) {
		return newServiceError(http.StatusInternalServerError, CodeAuditWriteFailure, "internal error", err)
	}

	var ite *proposal.IllegalTransitionError
	if errors.As(err, &ite) {
		return newServiceError(http.StatusConflict, CodeIllegalTransition, ite.Error(), err).
			with("current", string(ite.From)).
			with("target", string(ite.To))
	}
	var mfe *proposal.MissingFieldError
	if errors.As(err, &mfe) {
		return newServiceError(http.StatusUnprocessableEntity, CodeMissingRequiredField, mfe.Error(), err).
			with("field", mfe.Field)
	}
	var fe *proposal.FieldError
	if errors.As(err, &fe) {
		code := CodeInvalidField
		if errors.Is(err, proposal.ErrImmutableField) {
			code = CodeImmutableField
		}
		se := newServiceError(http.StatusUnprocessableEntity, code, fe.Error(), err)
		if fe.Field != "" {
			se = se.with("field", fe.Field)
		}
		return se
	}

	switch {
	case errors.Is(err, proposal.ErrNotFound),
		errors.Is(err, investigator.ErrNotFound),
		errors.Is(err, lookup.ErrNotFound):
		return newServiceError(http.StatusNotFound, CodeNotFound, "not found", err)
	case errors.Is(err, proposal.ErrCodeTaken):
		return newServiceError(http.StatusConflict, CodeAllocationConflict, "code allocation conflict, retry the request", err)
	case errors.Is(err, proposal.ErrMissingField):
		return newServiceError(http.StatusUnprocessableEntity, CodeMissingRequiredField, err.Error(), err)
	case errors.Is(err, proposal.ErrDuplicateInvestigator):
		return newServiceError(http.StatusUnprocessableEntity, CodeMissingRequiredField, err.Error(), err).
			with("field", "investigators")
	case errors.Is(err, proposal.ErrInvalidStatus):
		return newServiceError(http.StatusUnprocessableEntity, CodeInvalidField, err.Error(), err).with("field", "status")
	case errors.Is(err, proposal.ErrInvalidRole):
		return newServiceError(http.StatusUnprocessableEntity, CodeInvalidField, err.Error(), err).with("field", "investigators")
	case errors.Is(err, proposal.ErrInvalidCode),
		errors.Is(err, lookup.ErrInvalidCode),
		errors.Is(err, lookup.ErrInvalidKind),
		errors.Is(err, changelog.ErrInvalidRange):
		return newServiceError(http.StatusUnprocessableEntity, CodeInvalidField, err.Error(), err)
	case errors.Is(err, lookup.ErrCodeInUse),
		errors.Is(err, investigator.ErrDuplicate):
		return newServiceError(http.StatusConflict, CodeConflict, err.Error(), err)
	}
	return newServiceError(http.StatusInternalServerError, CodeInternal, "internal error", err)
}

// MapError converts a domain error raised outside the services, such as a
// request decoding failure, into a ServiceError.
func MapError(err error) *ServiceError {
	return toServiceError(err)
}
