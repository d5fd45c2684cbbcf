// Package apperr defines the error kinds surfaced by the admin engine.
//
// Callers wrap one of the sentinels with context using fmt.Errorf("...: %w", ...)
// and classify with errors.Is. Handlers translate kinds to HTTP status codes.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrValidation marks a missing or malformed required field.
	ErrValidation = errors.New("validation error")
	// ErrInvalidState marks a transition attempted from a disallowed state.
	ErrInvalidState = errors.New("invalid state")
	// ErrNotFound marks a referenced document that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExternalCall marks a failed store or gateway call.
	ErrExternalCall = errors.New("external call failed")
	// ErrTimeout marks a store or gateway call that ran out of time.
	ErrTimeout = errors.New("external call timed out")
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func InvalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// External classifies a failure from a store or gateway call. Errors that already
// carry a kind are returned unchanged; deadline expiry becomes ErrTimeout.
func External(op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	if IsTimeout(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrExternalCall, err)
}

// IsTimeout reports whether err is a deadline expiry, including net timeouts.
func IsTimeout(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Classified reports whether err already wraps one of the kinds above.
func Classified(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrExternalCall) ||
		errors.Is(err, ErrTimeout)
}

// HTTPStatus maps an error kind to the response code handlers send.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrExternalCall):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
