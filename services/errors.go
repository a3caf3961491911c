package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anjiri1684/career_mentor/database"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("not allowed")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrUpstream        = errors.New("upstream service failed")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// translateStoreErr maps storage errors onto the service taxonomy and
// leaves anything else untouched. The storage sentinel stays reachable
// through errors.Is but its wording is cut from the message.
func translateStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrNotFound):
		return newStoreError(ErrNotFound, database.ErrNotFound, err)
	case errors.Is(err, database.ErrStatusConflict):
		return newStoreError(ErrConflict, database.ErrStatusConflict, err)
	case errors.Is(err, database.ErrInvalidTransition):
		return newStoreError(ErrConflict, database.ErrInvalidTransition, err)
	}
	return err
}

type storeError struct {
	kind   error
	cause  error
	detail string
}

func newStoreError(kind, sentinel, err error) *storeError {
	detail := strings.TrimPrefix(err.Error(), sentinel.Error())
	detail = strings.TrimSuffix(detail, sentinel.Error())
	detail = strings.Trim(detail, ": ")
	return &storeError{kind: kind, cause: err, detail: detail}
}

func (e *storeError) Error() string {
	if e.detail == "" {
		return e.kind.Error()
	}
	return e.kind.Error() + ": " + e.detail
}

func (e *storeError) Unwrap() []error { return []error{e.kind, e.cause} }
