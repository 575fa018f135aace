package main

import (
	"github.com/go-faster/errors"

	"github.com/gcir/gms/modules/proposals/services"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitValidation = 2
	exitUsage      = 3
	exitDB         = 4
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

// exitCode maps client-side service failures to exitValidation and
// everything unclassified to 1.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	var se *services.ServiceError
	if errors.As(err, &se) && se.Status < 500 {
		return exitValidation
	}
	return 1
}
