package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/schoolstack/sisgo/internal/loadtest"
	"github.com/schoolstack/sisgo/internal/results"
)

func newLoadtestCommand() *cobra.Command {
	var (
		scenario string
		users    int
		duration time.Duration
		rampUp   time.Duration
		rps      float64
		thinkMin time.Duration
		thinkMax time.Duration
		maxReqs  int
		seed     int64
		noSave   bool
	)

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Run a load-test scenario against the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := fromCommand(cmd)
			if err := cc.Config.requireTarget(); err != nil {
				return err
			}

			runner, err := loadtest.NewRunner(loadtest.Config{
				Scenario:           scenario,
				Users:              users,
				Duration:           duration,
				RampUp:             rampUp,
				RPS:                rps,
				ThinkMin:           thinkMin,
				ThinkMax:           thinkMax,
				MaxRequestsPerUser: maxReqs,
				Seed:               seed,
				Target:             cc.Config.Target(),
			})
			if err != nil {
				return err
			}

			report, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}

			if !noSave {
				if err := saveLoadtestRun(cmd, cc.Config, report); err != nil {
					cc.Logger.Warn("run not saved", "error", err)
				}
			}

			return renderResult(cmd, cc.Config, report, func() {
				report.Render(cmd.OutOrStdout())
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&scenario, "scenario", "mixed_workflow", "Scenario to run (see 'loadtest scenarios')")
	flags.IntVar(&users, "users", 10, "Concurrent virtual users")
	flags.DurationVar(&duration, "duration", time.Minute, "Measured run duration")
	flags.DurationVar(&rampUp, "ramp-up", 5*time.Second, "Window over which users start")
	flags.Float64Var(&rps, "rps", 0, "Aggregate request rate cap (0 = unlimited)")
	flags.DurationVar(&thinkMin, "think-min", 500*time.Millisecond, "Minimum think time between iterations")
	flags.DurationVar(&thinkMax, "think-max", 2*time.Second, "Maximum think time between iterations")
	flags.IntVar(&maxReqs, "max-requests", 0, "Request budget per user (0 = unlimited)")
	flags.Int64Var(&seed, "seed", 0, "Random seed for reproducible behavior (0 = random)")
	flags.BoolVar(&noSave, "no-save", false, "Skip recording the run in the local store")

	cmd.AddCommand(newLoadtestScenariosCommand())
	return cmd
}

func newLoadtestScenariosCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the available load-test scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, s := range loadtest.Scenarios() {
				fmt.Fprintf(out, "%-18s %s\n", s.Name, s.Description)
			}
			return nil
		},
	}
}

func saveLoadtestRun(cmd *cobra.Command, cfg *Config, report *loadtest.Report) error {
	store, err := results.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}

	return store.SaveRun(cmd.Context(), results.Run{
		ID:            report.RunID,
		Kind:          "loadtest",
		Scenario:      report.Scenario,
		Tenant:        cfg.TenantSlug,
		StartedAt:     report.StartedAt,
		Duration:      report.Duration,
		TotalRequests: report.TotalRequests,
		Succeeded:     report.Succeeded,
		Failed:        report.Failed,
		P95:           report.Overall.P95,
		P99:           report.Overall.P99,
		Report:        raw,
	})
}

// renderResult writes either the human rendering or the full JSON document,
// per the --output flag.
func renderResult(cmd *cobra.Command, cfg *Config, doc any, text func()) error {
	if cfg.Output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
	text()
	return nil
}
