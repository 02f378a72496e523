package gateway

import (
	"context"
	"errors"
	"net/http"

	"animap/internal/jikan"
)

var (
	// ErrRateLimited marks a remote rate-limit signal. Retried without bound.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnavailable marks a transient failure that exhausted its retry budget.
	ErrUnavailable = errors.New("catalog unavailable")
	// ErrNotFound marks a terminal miss for a single lookup.
	ErrNotFound = errors.New("not found")
)

type errorKind int

const (
	kindTransient errorKind = iota
	kindRateLimited
	kindNotFound
	kindCanceled
)

func classify(err error) errorKind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return kindCanceled
	}
	var statusErr *jikan.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Code == http.StatusTooManyRequests:
			return kindRateLimited
		case statusErr.Code == http.StatusNotFound:
			return kindNotFound
		case statusErr.Code >= 500:
			return kindTransient
		default:
			// Other 4xx responses will not improve on retry.
			return kindNotFound
		}
	}
	return kindTransient
}
