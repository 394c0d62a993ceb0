package loadtest

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/schoolstack/sisgo/pkg/idx"
	"github.com/schoolstack/sisgo/pkg/sissdk"
	"github.com/schoolstack/sisgo/pkg/slogx"
)

// Runner executes one load-test run.
type Runner struct {
	cfg Config
}

func NewRunner(cfg Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg}, nil
}

// Run drives the configured scenario with Users concurrent virtual users
// until Duration elapses or ctx is cancelled, then assembles the report.
// A user that cannot log in is counted and benched; it never aborts the
// whole run.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	runID := idx.New().String()
	ctx = slogx.WithRunID(ctx, runID)
	log := slogx.FromContext(ctx)

	scenario := scenarios[r.cfg.Scenario]
	collector := NewCollector()

	seed := r.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var limiter *rate.Limiter
	if r.cfg.RPS > 0 {
		burst := int(r.cfg.RPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(r.cfg.RPS), burst)
	}

	log.Info("load test starting",
		"scenario", scenario.Name,
		"users", r.cfg.Users,
		"duration", r.cfg.Duration,
		"rps_cap", r.cfg.RPS,
	)

	started := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, r.cfg.Duration)
	defer cancel()

	var benched atomic.Int32
	g, runCtx := errgroup.WithContext(runCtx)

	for i := 0; i < r.cfg.Users; i++ {
		user := &VirtualUser{
			ID:          i,
			rng:         rand.New(rand.NewSource(seed + int64(i))),
			limiter:     limiter,
			rec:         collector,
			thinkMin:    r.cfg.ThinkMin,
			thinkMax:    r.cfg.ThinkMax,
			maxRequests: r.cfg.MaxRequestsPerUser,
		}

		var stagger time.Duration
		if r.cfg.Users > 1 && r.cfg.RampUp > 0 {
			stagger = r.cfg.RampUp * time.Duration(i) / time.Duration(r.cfg.Users-1)
		}

		g.Go(func() error {
			if err := sleepCtx(runCtx, stagger); err != nil {
				return nil
			}

			client, err := sissdk.New(r.cfg.Target)
			if err != nil {
				return err // misconfiguration, not load
			}
			user.Client = client

			if err := user.Do(runCtx, "auth.login", func(ctx context.Context) error {
				_, err := client.Login(ctx, "", "", "")
				return err
			}); err != nil {
				benched.Add(1)
				log.Warn("virtual user benched, login failed", "user", user.ID, "error", err)
				return nil
			}
			defer func() {
				logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(runCtx), 5*time.Second)
				defer cancel()
				client.Logout(logoutCtx)
			}()

			for runCtx.Err() == nil && !user.exhausted() {
				if err := scenario.Iterate(runCtx, user); err != nil && runCtx.Err() == nil {
					// Iteration errors are already recorded; keep going.
					continue
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	elapsed := time.Since(started)

	report := buildReport(runID, r.cfg, scenario, started, elapsed, int(benched.Load()), collector)
	log.Info("load test finished",
		"requests", report.TotalRequests,
		"failed", report.Failed,
		"p95", report.Overall.P95,
		"benched_users", report.BenchedUsers,
	)
	return report, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
