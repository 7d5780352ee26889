package llm

import (
	"errors"
	"fmt"
)

// RouteError is the normalized failure result of a routing attempt.
// Every transport, authentication, or parsing failure is converted
// into a RouteError tagged with the provider name and a short cause so
// callers can log it and degrade; routing never panics or returns an
// unrecoverable failure.
type RouteError struct {
	Provider string
	Cause    string
	err      error
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Cause)
}

func (e *RouteError) Unwrap() error {
	return e.err
}

// NewRouteError builds a RouteError for the given provider.
// wrapped may be nil when there is no underlying error to preserve.
func NewRouteError(provider, cause string, wrapped error) *RouteError {
	return &RouteError{Provider: provider, Cause: cause, err: wrapped}
}

// AsRouteError extracts a RouteError from an error chain, or nil.
func AsRouteError(err error) *RouteError {
	var re *RouteError
	if errors.As(err, &re) {
		return re
	}
	return nil
}
