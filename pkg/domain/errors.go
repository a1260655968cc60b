// Package domain holds the error taxonomy shared by every layer of the service.
package domain

import (
	"errors"
	"fmt"
)

// Error kinds. A DomainError always wraps exactly one of these.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrBadRequest   = errors.New("bad request")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal error")
)

// ErrStaleVersion is carried next to ErrConflict when an optimistic version
// check fails, so callers can tell a lost update from other conflicts.
var ErrStaleVersion = errors.New("stale version")

// DomainError is a failure with a kind and a human-readable message.
type DomainError struct {
	Err     error
	Message string
	cause   error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *DomainError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Err, e.cause}
	}
	return []error{e.Err}
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{Err: ErrNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewConflictError reports a state conflict.
func NewConflictError(message string) *DomainError {
	return &DomainError{Err: ErrConflict, Message: message}
}

// WrapConflictError reports a state conflict caused by err.
func WrapConflictError(message string, err error) *DomainError {
	return &DomainError{Err: ErrConflict, Message: message, cause: err}
}

// NewStaleVersionError reports that entity id changed after it was read.
func NewStaleVersionError(entity, id string) *DomainError {
	return &DomainError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s %s was modified by another transaction", entity, id),
		cause:   ErrStaleVersion,
	}
}

// NewInvalidStateError reports a forbidden state transition.
func NewInvalidStateError(from, to string) *DomainError {
	return &DomainError{Err: ErrConflict, Message: fmt.Sprintf("invalid state transition from %s to %s", from, to)}
}

// NewBadRequestError reports invalid input or a failed ownership check.
func NewBadRequestError(message string) *DomainError {
	return &DomainError{Err: ErrBadRequest, Message: message}
}

// NewForbiddenError reports a caller lacking access.
func NewForbiddenError(message string) *DomainError {
	return &DomainError{Err: ErrForbidden, Message: message}
}

// NewUnauthorizedError reports a missing or invalid identity.
func NewUnauthorizedError(message string) *DomainError {
	return &DomainError{Err: ErrUnauthorized, Message: message}
}

// NewInternalError wraps an unexpected fault.
func NewInternalError(message string, cause error) *DomainError {
	return &DomainError{Err: ErrInternal, Message: message, cause: cause}
}

// KindOf returns the kind carried by err, or ErrInternal for foreign errors.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrNotFound, ErrConflict, ErrBadRequest, ErrForbidden, ErrUnauthorized, ErrInternal} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternal
}

// IsNotFound reports whether err carries the not-found kind.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// AsInternal passes domain errors through and wraps anything else as ErrInternal.
func AsInternal(message string, err error) error {
	if err == nil {
		return nil
	}
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return err
	}
	return NewInternalError(message, err)
}
