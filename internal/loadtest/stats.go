package loadtest

import (
	"sort"
	"sync"
	"time"

	"github.com/schoolstack/sisgo/pkg/sissdk"
)

// Stats summarizes the latency samples recorded for one operation.
type Stats struct {
	Count  int           `json:"count"`
	Errors int           `json:"errors"`
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Mean   time.Duration `json:"mean"`
	Median time.Duration `json:"median"`
	P95    time.Duration `json:"p95"`
	P99    time.Duration `json:"p99"`
}

// Collector accumulates per-operation latency samples from every virtual
// user. Safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	samples map[string][]time.Duration
	errors  map[string]int
	byKind  map[string]int
}

func NewCollector() *Collector {
	return &Collector{
		samples: make(map[string][]time.Duration),
		errors:  make(map[string]int),
		byKind:  make(map[string]int),
	}
}

// Record logs one operation outcome. Failed operations still contribute a
// latency sample; slow failures matter as much as slow successes.
func (c *Collector) Record(op string, elapsed time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.samples[op] = append(c.samples[op], elapsed)
	if err != nil {
		c.errors[op]++
		c.byKind[errorKind(err)]++
	}
}

// errorKind buckets an error for the report breakdown.
func errorKind(err error) string {
	if e, ok := sissdk.AsError(err); ok {
		return string(e.Kind)
	}
	return "other"
}

// Snapshot computes final statistics for every operation recorded so far.
func (c *Collector) Snapshot() (perOp map[string]Stats, errorsByKind map[string]int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	perOp = make(map[string]Stats, len(c.samples))
	for op, samples := range c.samples {
		perOp[op] = summarize(samples, c.errors[op])
	}

	errorsByKind = make(map[string]int, len(c.byKind))
	for kind, n := range c.byKind {
		errorsByKind[kind] = n
	}
	return perOp, errorsByKind
}

func summarize(samples []time.Duration, errors int) Stats {
	if len(samples) == 0 {
		return Stats{Errors: errors}
	}

	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, s := range sorted {
		total += s
	}

	return Stats{
		Count:  len(sorted),
		Errors: errors,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   total / time.Duration(len(sorted)),
		Median: percentile(sorted, 50),
		P95:    percentile(sorted, 95),
		P99:    percentile(sorted, 99),
	}
}

// percentile picks the nearest-rank percentile from an ascending slice.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
