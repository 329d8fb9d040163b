package service

import (
	"context"
	"time"
)

// boundStore caps how long a store round-trip may run so a stalled backend
// fails the request instead of hanging it. A zero or negative timeout leaves
// the context untouched.
func boundStore(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
