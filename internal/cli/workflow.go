package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/schoolstack/sisgo/internal/results"
	"github.com/schoolstack/sisgo/internal/workflow"
	"github.com/schoolstack/sisgo/pkg/sissdk"
)

func newWorkflowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Run scripted workflows against the API",
	}
	cmd.AddCommand(newWorkflowRunCommand())
	cmd.AddCommand(newWorkflowListCommand())
	return cmd
}

func newWorkflowRunCommand() *cobra.Command {
	var (
		builtin string
		noSave  bool
	)

	cmd := &cobra.Command{
		Use:   "run [workflow.yaml]",
		Short: "Execute a workflow file or a builtin workflow",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := fromCommand(cmd)
			if err := cc.Config.requireTarget(); err != nil {
				return err
			}

			var (
				wf  *workflow.Workflow
				err error
			)
			switch {
			case builtin != "" && len(args) > 0:
				return fmt.Errorf("pass either a workflow file or --builtin, not both")
			case builtin != "":
				wf, err = workflow.Builtin(builtin)
			case len(args) == 1:
				wf, err = workflow.Load(args[0])
			default:
				return fmt.Errorf("pass a workflow file or --builtin (see 'workflow list')")
			}
			if err != nil {
				return err
			}

			client, err := sissdk.New(cc.Config.Target())
			if err != nil {
				return err
			}
			if _, err := client.Login(cmd.Context(), "", "", ""); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			defer client.Logout(cmd.Context())

			result, err := workflow.NewRunner(client).Run(cmd.Context(), wf)
			if err != nil {
				return err
			}

			if !noSave {
				if err := saveWorkflowRun(cmd, cc.Config, result); err != nil {
					cc.Logger.Warn("run not saved", "error", err)
				}
			}

			if err := renderResult(cmd, cc.Config, result, func() {
				renderWorkflowResult(cmd, result)
			}); err != nil {
				return err
			}
			if !result.Passed {
				return fmt.Errorf("workflow %s failed", wf.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&builtin, "builtin", "", "Run a builtin workflow by name")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Skip recording the run in the local store")
	return cmd
}

func newWorkflowListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the builtin workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range workflow.BuiltinNames() {
				wf, err := workflow.Builtin(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-20s %d steps  %s\n", wf.Name, len(wf.Steps), wf.Description)
			}
			return nil
		},
	}
}

func renderWorkflowResult(cmd *cobra.Command, result *workflow.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Workflow %s  run=%s\n", result.Workflow, result.RunID)
	for _, step := range result.Steps {
		marker := map[string]string{
			workflow.StepPassed:  "ok",
			workflow.StepFailed:  "FAIL",
			workflow.StepSkipped: "skip",
		}[step.Status]

		fmt.Fprintf(out, "  [%-4s] %-24s %s  %s\n",
			marker, step.Name, step.Action, step.Elapsed.Round(time.Millisecond))
		if step.Error != "" {
			fmt.Fprintf(out, "         %s\n", step.Error)
		}
		for _, check := range step.Checks {
			if !check.OK {
				fmt.Fprintf(out, "         check %s: %s\n", check.Field, check.Detail)
			}
		}
	}
	fmt.Fprintf(out, "  cleaned %d created resources\n", result.Cleaned)
	for _, cerr := range result.CleanupErrors {
		fmt.Fprintf(out, "  cleanup failed: %s\n", cerr)
	}
	if result.Passed {
		fmt.Fprintln(out, "PASSED")
	} else {
		fmt.Fprintln(out, "FAILED")
	}
}

func saveWorkflowRun(cmd *cobra.Command, cfg *Config, result *workflow.Result) error {
	store, err := results.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}

	total, failed := 0, 0
	for _, step := range result.Steps {
		if step.Status == workflow.StepSkipped {
			continue
		}
		total++
		if step.Status == workflow.StepFailed {
			failed++
		}
	}

	return store.SaveRun(cmd.Context(), results.Run{
		ID:            result.RunID,
		Kind:          "workflow",
		Scenario:      result.Workflow,
		Tenant:        cfg.TenantSlug,
		StartedAt:     result.StartedAt,
		Duration:      result.Duration,
		TotalRequests: total,
		Succeeded:     total - failed,
		Failed:        failed,
		Report:        raw,
	})
}
