package loadtest

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// Report is the outcome of one load-test run.
type Report struct {
	RunID     string    `json:"runId"`
	Scenario  string    `json:"scenario"`
	StartedAt time.Time `json:"startedAt"`

	Duration     time.Duration `json:"duration"`
	Users        int           `json:"users"`
	BenchedUsers int           `json:"benchedUsers"` // users that never got past login

	TotalRequests int     `json:"totalRequests"`
	Succeeded     int     `json:"succeeded"`
	Failed        int     `json:"failed"`
	Throughput    float64 `json:"throughput"` // requests per second

	Overall      Stats            `json:"overall"`
	PerOperation map[string]Stats `json:"perOperation"`
	ErrorsByKind map[string]int   `json:"errorsByKind"`

	Recommendations []string `json:"recommendations,omitempty"`
}

func buildReport(
	runID string,
	cfg Config,
	scenario Scenario,
	started time.Time,
	elapsed time.Duration,
	benched int,
	collector *Collector,
) *Report {
	perOp, byKind := collector.Snapshot()

	var allSamples []time.Duration
	total, failed := 0, 0
	for _, stats := range perOp {
		total += stats.Count
		failed += stats.Errors
	}
	// Overall percentiles need the raw samples, not per-op summaries.
	collector.mu.Lock()
	for _, samples := range collector.samples {
		allSamples = append(allSamples, samples...)
	}
	collector.mu.Unlock()

	report := &Report{
		RunID:         runID,
		Scenario:      scenario.Name,
		StartedAt:     started.UTC(),
		Duration:      elapsed,
		Users:         cfg.Users,
		BenchedUsers:  benched,
		TotalRequests: total,
		Succeeded:     total - failed,
		Failed:        failed,
		Overall:       summarize(allSamples, failed),
		PerOperation:  perOp,
		ErrorsByKind:  byKind,
	}
	if elapsed > 0 {
		report.Throughput = float64(total) / elapsed.Seconds()
	}
	report.Recommendations = recommendations(report)
	return report
}

// recommendations flags the patterns worth a second look. Thresholds are
// deliberately coarse; the report is a conversation starter, not an SLO.
func recommendations(r *Report) []string {
	var recs []string

	if r.TotalRequests == 0 {
		return []string{"no requests completed; check target URL and credentials"}
	}

	errRate := float64(r.Failed) / float64(r.TotalRequests)
	switch {
	case errRate > 0.10:
		recs = append(recs, fmt.Sprintf("error rate %.1f%% is critical; reduce load or investigate server capacity", errRate*100))
	case errRate > 0.01:
		recs = append(recs, fmt.Sprintf("error rate %.1f%% is elevated; inspect the error breakdown", errRate*100))
	}

	if r.Overall.P95 > time.Second {
		recs = append(recs, fmt.Sprintf("p95 latency %s exceeds 1s; users will notice", r.Overall.P95.Round(time.Millisecond)))
	}
	if r.Overall.P99 > 3*time.Second {
		recs = append(recs, fmt.Sprintf("p99 latency %s suggests queuing under load", r.Overall.P99.Round(time.Millisecond)))
	}

	if n := r.ErrorsByKind["rate_limit"]; n > 0 {
		recs = append(recs, fmt.Sprintf("%d requests were rate limited; lower the RPS cap or raise server limits", n))
	}
	if n := r.ErrorsByKind["authentication"]; n > 0 {
		recs = append(recs, fmt.Sprintf("%d authentication failures; token lifetime may be shorter than the run", n))
	}
	if r.BenchedUsers > 0 {
		recs = append(recs, fmt.Sprintf("%d of %d users never logged in; verify credentials and login capacity", r.BenchedUsers, r.Users))
	}

	return recs
}

// Render writes a human-readable summary. JSON consumers should marshal the
// Report instead.
func (r *Report) Render(w io.Writer) {
	fmt.Fprintf(w, "Load test %s  scenario=%s\n", r.RunID, r.Scenario)
	fmt.Fprintf(w, "  duration      %s  (%d users, %d benched)\n", r.Duration.Round(time.Millisecond), r.Users, r.BenchedUsers)
	fmt.Fprintf(w, "  requests      %d total, %d failed  (%.1f req/s)\n", r.TotalRequests, r.Failed, r.Throughput)
	fmt.Fprintf(w, "  latency       p50=%s p95=%s p99=%s max=%s\n",
		r.Overall.Median.Round(time.Millisecond),
		r.Overall.P95.Round(time.Millisecond),
		r.Overall.P99.Round(time.Millisecond),
		r.Overall.Max.Round(time.Millisecond),
	)

	ops := make([]string, 0, len(r.PerOperation))
	for op := range r.PerOperation {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	fmt.Fprintln(w, "  operations:")
	for _, op := range ops {
		s := r.PerOperation[op]
		fmt.Fprintf(w, "    %-24s n=%-6d err=%-4d p95=%s\n",
			op, s.Count, s.Errors, s.P95.Round(time.Millisecond))
	}

	if len(r.ErrorsByKind) > 0 {
		fmt.Fprintln(w, "  errors by kind:")
		kinds := make([]string, 0, len(r.ErrorsByKind))
		for kind := range r.ErrorsByKind {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Fprintf(w, "    %-24s %d\n", kind, r.ErrorsByKind[kind])
		}
	}

	for _, rec := range r.Recommendations {
		fmt.Fprintf(w, "  ! %s\n", rec)
	}
}
