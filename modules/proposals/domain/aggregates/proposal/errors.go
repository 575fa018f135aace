package proposal

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("proposal not found")
	ErrCodeTaken             = errors.New("proposal code already taken")
	ErrInvalidCode           = errors.New("invalid proposal code")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrInvalidRole           = errors.New("invalid investigator role")
	ErrIllegalTransition     = errors.New("illegal status transition")
	ErrMissingField          = errors.New("missing required field")
	ErrImmutableField        = errors.New("field is immutable")
	ErrInvalidField          = errors.New("invalid field value")
	ErrDuplicateInvestigator = errors.New("investigator listed more than once")

	ErrMissingPI  = &MissingFieldError{Field: "investigators", Reason: "exactly one PI is required"}
	ErrMultiplePI = &MissingFieldError{Field: "investigators", Reason: "only one PI is allowed"}
)

type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition from %s to %s", e.From, e.To)
}

func (e *IllegalTransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

type MissingFieldError struct {
	Field  string
	Reason string
}

func (e *MissingFieldError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("missing required field %s", e.Field)
	}
	return fmt.Sprintf("missing required field %s: %s", e.Field, e.Reason)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

type FieldError struct {
	Field  string
	Reason string
	kind   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.kind, e.Field, e.Reason)
}

func (e *FieldError) Is(target error) bool {
	return target == e.kind
}

func ImmutableField(field string) error {
	return &FieldError{Field: field, Reason: "cannot be changed after creation", kind: ErrImmutableField}
}

func InvalidField(field, reason string) error {
	return &FieldError{Field: field, Reason: reason, kind: ErrInvalidField}
}
