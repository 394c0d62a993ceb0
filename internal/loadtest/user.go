package loadtest

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/schoolstack/sisgo/pkg/sissdk"
)

// VirtualUser is one simulated operator working the SIS. Each user owns its
// own client, so sessions, token refreshes and 401 recovery behave exactly
// as they would for independent real users.
type VirtualUser struct {
	ID     int
	Client *sissdk.Client

	rng      *rand.Rand
	limiter  *rate.Limiter // shared across all users; nil when uncapped
	rec      *Collector
	thinkMin time.Duration
	thinkMax time.Duration

	requests    int // issued so far; only this user's goroutine touches it
	maxRequests int // 0 means unlimited
}

// exhausted reports whether this user has spent its request budget.
func (u *VirtualUser) exhausted() bool {
	return u.maxRequests > 0 && u.requests >= u.maxRequests
}

// Do runs one named operation, honoring the global rate cap and recording
// its latency. The error is returned so scenarios can branch, but it is
// already recorded; scenarios don't need to re-report it.
func (u *VirtualUser) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	if u.limiter != nil {
		if err := u.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	u.requests++

	start := time.Now()
	err := fn(ctx)
	u.rec.Record(op, time.Since(start), err)
	return err
}

// Think pauses for a random interval inside the configured think-time
// bounds, returning early on cancellation.
func (u *VirtualUser) Think(ctx context.Context) error {
	if u.thinkMax <= 0 {
		return ctx.Err()
	}

	pause := u.thinkMin
	if spread := u.thinkMax - u.thinkMin; spread > 0 {
		pause += time.Duration(u.rng.Int63n(int64(spread)))
	}

	timer := time.NewTimer(pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// pick returns a random element of choices.
func pick[T any](rng *rand.Rand, choices []T) T {
	return choices[rng.Intn(len(choices))]
}
