package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/schoolstack/sisgo/internal/loadtest"
)

// newSimulateCommand is background-traffic mode: a light mixed workload that
// runs until interrupted, for keeping a staging environment lively.
func newSimulateCommand() *cobra.Command {
	var (
		users    int
		rps      float64
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate steady background traffic until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := fromCommand(cmd)
			if err := cc.Config.requireTarget(); err != nil {
				return err
			}

			runner, err := loadtest.NewRunner(loadtest.Config{
				Scenario: "mixed_workflow",
				Users:    users,
				Duration: duration,
				RampUp:   30 * time.Second,
				RPS:      rps,
				ThinkMin: 2 * time.Second,
				ThinkMax: 10 * time.Second,
				Target:   cc.Config.Target(),
			})
			if err != nil {
				return err
			}

			// Ctrl-C cancels the context; the runner winds down and the
			// partial report still prints.
			report, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}

			return renderResult(cmd, cc.Config, report, func() {
				report.Render(cmd.OutOrStdout())
			})
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&users, "users", 5, "Concurrent simulated users")
	flags.Float64Var(&rps, "rps", 5, "Aggregate request rate cap")
	flags.DurationVar(&duration, "duration", 24*time.Hour, "Maximum simulation length")
	return cmd
}
