// Package loadtest drives concurrent virtual users against a SIS API and
// reports latency percentiles, error breakdowns and tuning recommendations.
package loadtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/schoolstack/sisgo/pkg/sissdk"
)

// Config describes one load-test run.
type Config struct {
	// Scenario is the name of a registered scenario, see Scenarios().
	Scenario string

	// Users is the number of concurrent virtual users, each owning its own
	// authenticated client session.
	Users int

	// Duration bounds the measured phase of the run.
	Duration time.Duration

	// RampUp staggers user start times across this window so the target
	// isn't hit with every login at once.
	RampUp time.Duration

	// RPS caps the aggregate request rate across all users. Zero means
	// unlimited.
	RPS float64

	// MaxRequestsPerUser retires a virtual user after it has issued this
	// many requests, even if the run deadline has not passed. Zero means
	// unlimited.
	MaxRequestsPerUser int

	// ThinkMin and ThinkMax bound the random pause between iterations,
	// imitating a human working the UI.
	ThinkMin time.Duration
	ThinkMax time.Duration

	// Seed makes user behavior reproducible. Zero picks a random seed.
	Seed int64

	// Target carries the API endpoint and credentials every virtual user
	// logs in with.
	Target sissdk.Config
}

func (c *Config) Validate() error {
	if c.Scenario == "" {
		return errors.New("loadtest: scenario is required")
	}
	if _, ok := scenarios[c.Scenario]; !ok {
		return fmt.Errorf("loadtest: unknown scenario %q", c.Scenario)
	}
	if c.Users < 1 {
		return errors.New("loadtest: at least one user is required")
	}
	if c.Duration <= 0 {
		return errors.New("loadtest: duration must be positive")
	}
	if c.RampUp < 0 || c.RampUp >= c.Duration {
		return errors.New("loadtest: ramp-up must be shorter than the run duration")
	}
	if c.ThinkMax < c.ThinkMin {
		return errors.New("loadtest: think-time max below min")
	}
	if c.Target.BaseURL == "" {
		return errors.New("loadtest: target base URL is required")
	}
	if c.Target.Email == "" || c.Target.Password == "" {
		return errors.New("loadtest: target credentials are required")
	}
	return nil
}
