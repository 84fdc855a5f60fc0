package service

import (
	"context"
	"time"
)

// Clock abstracts time so scheduler and driver delays can be driven by
// simulated time in tests.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done; it reports whether the
	// full duration elapsed.
	Sleep(ctx context.Context, d time.Duration) bool
}

type realClock struct{}

// NewClock returns the wall clock.
func NewClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
