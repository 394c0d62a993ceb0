package loadtest

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPercentileNearestRank(t *testing.T) {
	t.Parallel()

	samples := make([]time.Duration, 100)
	for i := range samples {
		samples[i] = time.Duration(i+1) * time.Millisecond
	}

	require.Equal(t, 50*time.Millisecond, percentile(samples, 50))
	require.Equal(t, 95*time.Millisecond, percentile(samples, 95))
	require.Equal(t, 99*time.Millisecond, percentile(samples, 99))
	require.Equal(t, 100*time.Millisecond, percentile(samples, 100))

	single := []time.Duration{7 * time.Millisecond}
	require.Equal(t, 7*time.Millisecond, percentile(single, 99))
	require.Equal(t, time.Duration(0), percentile(nil, 95))
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	samples := []time.Duration{
		40 * time.Millisecond,
		10 * time.Millisecond,
		30 * time.Millisecond,
		20 * time.Millisecond,
	}
	s := summarize(samples, 1)
	require.Equal(t, 4, s.Count)
	require.Equal(t, 1, s.Errors)
	require.Equal(t, 10*time.Millisecond, s.Min)
	require.Equal(t, 40*time.Millisecond, s.Max)
	require.Equal(t, 25*time.Millisecond, s.Mean)
	require.Equal(t, 20*time.Millisecond, s.Median)
}

func TestCollectorConcurrentRecord(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				var err error
				if j%10 == 0 {
					err = errors.New("boom")
				}
				c.Record("students.list", time.Millisecond, err)
			}
		}()
	}
	wg.Wait()

	perOp, byKind := c.Snapshot()
	require.Equal(t, 800, perOp["students.list"].Count)
	require.Equal(t, 80, perOp["students.list"].Errors)
	require.Equal(t, 80, byKind["other"])
}

func TestRecommendations(t *testing.T) {
	t.Parallel()

	t.Run("empty run", func(t *testing.T) {
		t.Parallel()
		recs := recommendations(&Report{})
		require.Len(t, recs, 1)
		require.Contains(t, recs[0], "no requests completed")
	})

	t.Run("high error rate and slow p95", func(t *testing.T) {
		t.Parallel()
		recs := recommendations(&Report{
			TotalRequests: 100,
			Failed:        20,
			Overall:       Stats{P95: 2 * time.Second},
			ErrorsByKind:  map[string]int{"rate_limit": 5},
		})
		require.Len(t, recs, 3)
	})

	t.Run("healthy run", func(t *testing.T) {
		t.Parallel()
		recs := recommendations(&Report{
			TotalRequests: 1000,
			Succeeded:     1000,
			Overall:       Stats{P95: 120 * time.Millisecond},
		})
		require.Empty(t, recs)
	})
}
