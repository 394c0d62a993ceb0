package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/schoolstack/sisgo/internal/results"
)

func newRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded load-test and workflow runs",
	}
	cmd.AddCommand(newRunsListCommand())
	cmd.AddCommand(newRunsShowCommand())
	cmd.AddCommand(newRunsPruneCommand())
	return cmd
}

func newRunsListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := fromCommand(cmd)
			store, err := results.Open(cc.Config.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			return renderResult(cmd, cc.Config, runs, func() {
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "no runs recorded yet")
					return
				}
				fmt.Fprintf(out, "%-26s  %-9s %-20s %-8s %8s %6s %8s\n",
					"RUN", "KIND", "SCENARIO", "WHEN", "REQS", "FAIL", "P95")
				for _, run := range runs {
					fmt.Fprintf(out, "%-26s  %-9s %-20s %-8s %8d %6d %8s\n",
						run.ID, run.Kind, run.Scenario,
						run.StartedAt.Local().Format("Jan 02"),
						run.TotalRequests, run.Failed,
						run.P95.Round(time.Millisecond))
				}
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	return cmd
}

func newRunsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the full stored report for one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := fromCommand(cmd)
			store, err := results.Open(cc.Config.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(run.Report))
			return nil
		},
	}
}

func newRunsPruneCommand() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := fromCommand(cmd)
			store, err := results.Open(cc.Config.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			deleted, err := store.DeleteRunsBefore(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d runs\n", deleted)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age cutoff, e.g. 720h")
	return cmd
}
