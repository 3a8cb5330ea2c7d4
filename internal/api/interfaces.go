// Package api exposes the voting platform over HTTP.
package api

import (
	"context"
)

// RateLimiter defines rate limiting operations.
type RateLimiter interface {
	// Allow reports whether the key may perform one more request.
	Allow(ctx context.Context, key string) (bool, error)
	// AllowN reports whether the key may perform n more requests.
	AllowN(ctx context.Context, key string, n int) (bool, error)
	// Reset clears the counter for a key.
	Reset(ctx context.Context, key string) error
	// GetRemaining returns how many requests remain in the current window.
	GetRemaining(ctx context.Context, key string) (int, error)
}

// Actor identifies who is making an API request. Until the identity service
// fronts this API, the actor arrives via trusted gateway headers.
type Actor struct {
	ID   string
	Role string
}
