package services

import (
	"errors"
)

// Error classes. Services return them wrapped in *Error so callers get a
// user-facing message while errors.Is still matches the class.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrBadRequest      = errors.New("bad request")
	ErrNotFound        = errors.New("not found")
	ErrStaleTrade      = errors.New("stale trade")
	ErrTooManyRequests = errors.New("too many requests")
)

type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func unauthenticated(action string) *Error {
	return newError(ErrUnauthenticated, "You must be logged in to "+action+".")
}

func unauthorized(msg string) *Error { return newError(ErrUnauthorized, msg) }

func badRequest(msg string) *Error { return newError(ErrBadRequest, msg) }

func notFound(msg string) *Error { return newError(ErrNotFound, msg) }
