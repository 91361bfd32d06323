package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling at the
// handler boundary.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	// ErrNotFound indicates an entity is absent or soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrConstraint indicates a store constraint was breached
	// (quick-access XOR rule, uniqueness rule).
	ErrConstraint = errors.New("constraint violation")

	// ErrConflict indicates an optimistic concurrency failure at the
	// remote store (e.g. a batch reorder racing another writer).
	ErrConflict = errors.New("conflict")

	// ErrShareNotFound indicates a share code that does not resolve to an
	// active shared folder.
	ErrShareNotFound = errors.New("share not found")

	// ErrSelfSubscription indicates an attempt to subscribe to one's own
	// shared folder.
	ErrSelfSubscription = errors.New("cannot subscribe to your own folder")

	// ErrAlreadySubscribed indicates a duplicate subscription attempt.
	ErrAlreadySubscribed = errors.New("already subscribed")

	// ErrInvalidReference indicates a quick-access reference that does not
	// resolve to a prompt the user may read.
	ErrInvalidReference = errors.New("invalid prompt reference")

	// ErrNetworkUnavailable indicates the remote store is unreachable; the
	// mutation stays queued and is retried on the next connectivity signal.
	ErrNetworkUnavailable = errors.New("network unavailable")

	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Terminal reports whether the error must be surfaced to the caller rather
// than retried by the sync loop. NetworkUnavailable is the only retryable
// kind; Conflict gets a bounded retry before it becomes terminal.
func Terminal(err error) bool {
	return err != nil &&
		!errors.Is(err, ErrNetworkUnavailable) &&
		!errors.Is(err, ErrConflict)
}

// StatusCode maps a domain error to an HTTP status. Errors implementing
// HTTPError take precedence over the sentinel mapping.
func StatusCode(err error) int {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode()
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrShareNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConstraint), errors.Is(err, ErrAlreadySubscribed), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrValidation), errors.Is(err, ErrSelfSubscription), errors.Is(err, ErrInvalidReference):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNetworkUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
