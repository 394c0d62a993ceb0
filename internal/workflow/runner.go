package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/schoolstack/sisgo/pkg/idx"
	"github.com/schoolstack/sisgo/pkg/sissdk"
	"github.com/schoolstack/sisgo/pkg/slogx"
)

// Step statuses.
const (
	StepPassed  = "passed"
	StepFailed  = "failed"
	StepSkipped = "skipped"
)

// CheckResult is the outcome of one assertion.
type CheckResult struct {
	Field  string `json:"field"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// StepResult is the outcome of one executed step.
type StepResult struct {
	Name    string        `json:"name"`
	Action  string        `json:"action"`
	Status  string        `json:"status"`
	Elapsed time.Duration `json:"elapsed"`
	Error   string        `json:"error,omitempty"`
	Checks  []CheckResult `json:"checks,omitempty"`
}

// Result is the outcome of one workflow run.
type Result struct {
	RunID     string        `json:"runId"`
	Workflow  string        `json:"workflow"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Passed    bool          `json:"passed"`
	Steps     []StepResult  `json:"steps"`

	// Cleanup accounting: resources removed after the run, and any that
	// could not be.
	Cleaned       int      `json:"cleaned"`
	CleanupErrors []string `json:"cleanupErrors,omitempty"`
}

// Runner executes workflows against one authenticated client.
type Runner struct {
	client *sissdk.Client
}

func NewRunner(client *sissdk.Client) *Runner {
	return &Runner{client: client}
}

// Run executes every step in order. A failing step stops the run unless it
// sets continueOnError; cleanup of created resources always happens, newest
// first, and a resource the workflow already deleted itself is not an error.
func (r *Runner) Run(ctx context.Context, wf *Workflow) (*Result, error) {
	if err := wf.Validate(); err != nil {
		return nil, err
	}

	runID := idx.New().String()
	ctx = slogx.WithRunID(ctx, runID)
	log := slogx.FromContext(ctx)
	log.Info("workflow starting", "workflow", wf.Name, "steps", len(wf.Steps))

	result := &Result{
		RunID:     runID,
		Workflow:  wf.Name,
		StartedAt: time.Now().UTC(),
		Passed:    true,
	}
	vars := make(map[string]any)
	var created []createdResource

	defer func() {
		result.Cleaned, result.CleanupErrors = r.cleanup(ctx, created)
		result.Duration = time.Since(result.StartedAt)
	}()

	halted := false
	for _, step := range wf.Steps {
		if halted {
			result.Steps = append(result.Steps, StepResult{
				Name: step.Name, Action: step.Action, Status: StepSkipped,
			})
			continue
		}

		sr := r.runStep(ctx, step, vars, &created)
		result.Steps = append(result.Steps, sr)

		if sr.Status == StepFailed {
			result.Passed = false
			if !step.ContinueOnError {
				halted = true
			}
		}
	}

	log.Info("workflow finished", "passed", result.Passed)
	return result, nil
}

func (r *Runner) runStep(ctx context.Context, step Step, vars map[string]any, created *[]createdResource) StepResult {
	log := slogx.FromContext(ctx)
	sr := StepResult{Name: step.Name, Action: step.Action, Status: StepPassed}
	start := time.Now()
	defer func() { sr.Elapsed = time.Since(start) }()

	with, err := resolveParams(step.With, vars)
	if err != nil {
		sr.Status = StepFailed
		sr.Error = err.Error()
		return sr
	}

	raw, res, err := actions[step.Action](ctx, r.client, with)
	if res != nil {
		*created = append(*created, *res)
	}
	if err != nil {
		sr.Status = StepFailed
		sr.Error = err.Error()
		log.Warn("step failed", "step", step.Name, "error", err)
		return sr
	}

	decoded := genericize(raw)
	for _, check := range step.Expect {
		// Expected values may reference earlier steps too.
		if check.Equals != nil {
			resolved, rerr := resolveValue(check.Equals, vars)
			if rerr != nil {
				sr.Checks = append(sr.Checks, CheckResult{Field: check.Field, Detail: rerr.Error()})
				sr.Status = StepFailed
				continue
			}
			check.Equals = resolved
		}
		cr := evaluate(check, decoded)
		sr.Checks = append(sr.Checks, cr)
		if !cr.OK {
			sr.Status = StepFailed
		}
	}

	if step.Register != "" {
		vars[step.Register] = decoded
	}
	log.Debug("step done", "step", step.Name, "status", sr.Status)
	return sr
}

// cleanup deletes created resources newest first so dependents go before
// their parents (enrollments before classes, grades before students).
func (r *Runner) cleanup(ctx context.Context, created []createdResource) (cleaned int, errs []string) {
	for i := len(created) - 1; i >= 0; i-- {
		res := created[i]
		var err error
		switch res.Kind {
		case "students":
			err = r.client.Students().Delete(ctx, res.ID)
		case "teachers":
			err = r.client.Teachers().Delete(ctx, res.ID)
		case "classes":
			err = r.client.Classes().Delete(ctx, res.ID)
		case "grades":
			err = r.client.Grades().Delete(ctx, res.ID)
		case "attendance":
			err = r.client.Attendance().Delete(ctx, res.ID)
		}

		if err == nil || sissdk.IsNotFound(err) {
			cleaned++
			continue
		}
		errs = append(errs, fmt.Sprintf("%s/%s: %v", res.Kind, res.ID, err))
	}
	return cleaned, errs
}

// genericize reshapes a typed action result into nested maps so checks and
// templating can address fields by their JSON names.
func genericize(v any) any {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func evaluate(check Check, result any) CheckResult {
	value, found := lookup(result, check.Field)

	if check.Equals != nil {
		if !found {
			return CheckResult{Field: check.Field, Detail: "field not present"}
		}
		want := fmt.Sprint(check.Equals)
		got := fmt.Sprint(value)
		if want != got {
			return CheckResult{Field: check.Field, Detail: fmt.Sprintf("want %q, got %q", want, got)}
		}
		return CheckResult{Field: check.Field, OK: true}
	}

	if !found || value == nil || value == "" {
		return CheckResult{Field: check.Field, Detail: "field not present"}
	}
	return CheckResult{Field: check.Field, OK: true}
}
