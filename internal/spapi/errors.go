package spapi

import "errors"

var (
	// ErrRateLimited signals the upstream request quota was exceeded. Callers
	// recover with linear backoff and retry the same request.
	ErrRateLimited = errors.New("spapi: request quota exceeded")

	// ErrUnauthorized signals bad or missing credentials. Never retried; the
	// marketplace is skipped.
	ErrUnauthorized = errors.New("spapi: authorization failed")
)
