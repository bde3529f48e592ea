package ratelimiter

import "errors"

var (
	// ErrRateLimitExceeded marks a request denied by the bucket.
	ErrRateLimitExceeded = errors.New("ratelimiter: rate limit exceeded")

	ErrInvalidConfig     = errors.New("ratelimiter: invalid bucket configuration")
	ErrInvalidTokenCount = errors.New("ratelimiter: token count must be positive")
	ErrContextCancelled  = errors.New("ratelimiter: context cancelled")
	ErrStoreUnavailable  = errors.New("ratelimiter: no store configured")
)
