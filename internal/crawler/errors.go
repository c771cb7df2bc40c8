package crawler

import "errors"

var (
	// ErrTransientFetch marks a network error or a non-2xx, non-404 response.
	ErrTransientFetch = errors.New("transient fetch failure")
	// ErrEntityNotFound is returned when the upstream reports the resource as absent.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrFetchExhausted is returned once every retry attempt has failed transiently.
	ErrFetchExhausted = errors.New("fetch retries exhausted")
	// ErrMalformedEntity is returned when a successful response lacks a required field.
	ErrMalformedEntity = errors.New("malformed entity")
	// ErrPlayerExists is returned by stores when a player row is already present.
	ErrPlayerExists = errors.New("player already stored")
)

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrEntityNotFound):
		return "not_found"
	case errors.Is(err, ErrFetchExhausted):
		return "exhausted"
	case errors.Is(err, ErrMalformedEntity):
		return "malformed"
	default:
		return "other"
	}
}
