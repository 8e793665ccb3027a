package workflow

import (
	"context"
	"strings"
	"time"
)

// RetryPolicy bounds the verification polling loop. The webhook that settles a
// charge lands noticeably later on live keys than on sandbox keys, so the two
// environments carry different delays and attempt budgets.
type RetryPolicy struct {
	InitialDelay  time.Duration
	Interval      time.Duration
	MaxAttempts   int
	RedirectDelay time.Duration
}

var TestModePolicy = RetryPolicy{
	InitialDelay:  5 * time.Second,
	Interval:      5 * time.Second,
	MaxAttempts:   3,
	RedirectDelay: 2 * time.Second,
}

var LiveModePolicy = RetryPolicy{
	InitialDelay:  20 * time.Second,
	Interval:      10 * time.Second,
	MaxAttempts:   10,
	RedirectDelay: 3 * time.Second,
}

// PolicyForKey selects the retry policy from the gateway public key prefix.
func PolicyForKey(publicKey string) RetryPolicy {
	if strings.HasPrefix(publicKey, "pk_test_") {
		return TestModePolicy
	}
	return LiveModePolicy
}

type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
