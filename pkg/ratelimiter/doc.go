// Package ratelimiter implements token bucket rate limiting over a pluggable
// Store.
//
// A bucket holds at most Capacity tokens and gains RefillRate tokens every
// RefillInterval. A request for n tokens is granted only when n tokens are
// available; a denied request leaves the bucket unchanged and reports the
// shortfall as a negative Remaining.
//
//	store := ratelimiter.NewMemoryStore()
//	go store.Run(ctx)() // sweeps idle buckets
//
//	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       20,
//		RefillRate:     5,
//		RefillInterval: time.Second,
//	})
//
//	res, err := limiter.Allow(ctx, sessionID)
//	if err == nil && !res.Allowed() {
//		// drop the request, retry after res.RetryAfter()
//	}
//
// Status inspects a bucket without consuming tokens and Reset forgets it.
package ratelimiter
