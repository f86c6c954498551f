package sim

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Distribution summarizes one real-valued measurement across a batch of
// runs: mean/stddev plus the percentiles AggregatorOptions requested (§4.6).
type Distribution struct {
	Mean        float64
	Std         float64
	Percentiles map[int]float64
}

// CriticalPathShare is one entry of the top-K most common critical paths
// across a batch (§4.6).
type CriticalPathShare struct {
	Path  string
	Count int
	Share float64
}

// Summary collapses N RunResults into the aggregate statistics a caller
// reports (§4.6, central component alongside Scheduler).
type Summary struct {
	RunCount int

	Makespan  Distribution
	FirstUI   Distribution
	LastUI    Distribution
	UIRunRate float64

	TopCriticalPaths []CriticalPathShare

	// TaskMetadata carries the model's per-task metadata through to the
	// summary unchanged (§6.2: v2-only field). Callers building a
	// schema_version 1 summary should pass nil.
	TaskMetadata map[string]TaskMeta
}

// AggregatorOptions configures how Aggregate collapses a batch (§4.6, §6.1).
type AggregatorOptions struct {
	// Percentiles defaults to {50, 90, 95, 99} when empty.
	Percentiles []int
	// TopK defaults to 10 when zero.
	TopK int
}

// DefaultAggregatorOptions mirrors the defaults SPEC_FULL.md §A.3 fixes for
// the run-config loader.
func DefaultAggregatorOptions() AggregatorOptions {
	return AggregatorOptions{Percentiles: []int{50, 90, 95, 99}, TopK: 10}
}

// Aggregate builds a Summary from results. results need not be sorted by
// RunIndex; Aggregate never depends on input order since every statistic it
// computes is order-independent (mean/stddev/percentile/count). taskMetadata
// is carried through to the Summary verbatim (pass nil for schema_version 1
// batches, where task_metadata has no place in the output).
func Aggregate(results []*RunResult, taskMetadata map[string]TaskMeta, opts AggregatorOptions) *Summary {
	percentiles := opts.Percentiles
	if len(percentiles) == 0 {
		percentiles = []int{50, 90, 95, 99}
	}
	topK := opts.TopK
	if topK == 0 {
		topK = 10
	}

	n := len(results)
	makespans := make([]float64, n)
	var firstUIs, lastUIs []float64
	uiRuns := 0

	pathCounts := make(map[string]int)
	var pathOrder []string

	for i, r := range results {
		makespans[i] = r.MakespanMs
		if r.HasUIEvent {
			firstUIs = append(firstUIs, r.FirstUIEventTimeMs)
			lastUIs = append(lastUIs, r.LastUIEventTimeMs)
			uiRuns++
		}
		if r.CriticalPathTasks != "" {
			if _, seen := pathCounts[r.CriticalPathTasks]; !seen {
				pathOrder = append(pathOrder, r.CriticalPathTasks)
			}
			pathCounts[r.CriticalPathTasks]++
		}
	}

	summary := &Summary{
		RunCount:         n,
		Makespan:         summarize(makespans, percentiles),
		FirstUI:          summarize(firstUIs, percentiles),
		LastUI:           summarize(lastUIs, percentiles),
		TopCriticalPaths: topPaths(pathCounts, pathOrder, n, topK),
		TaskMetadata:     taskMetadata,
	}
	if n > 0 {
		summary.UIRunRate = float64(uiRuns) / float64(n)
	}
	return summary
}

func summarize(values []float64, percentiles []int) Distribution {
	d := Distribution{Percentiles: make(map[int]float64, len(percentiles))}
	if len(values) == 0 {
		return d
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	d.Mean, d.Std = stat.MeanStdDev(sorted, nil)
	for _, p := range percentiles {
		d.Percentiles[p] = percentile(sorted, float64(p))
	}
	return d
}

// percentile linearly interpolates between the closest ranks of a sorted
// sample, ported from the teacher's CalculatePercentile. p is in [0, 100].
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	rank := (p / 100) * float64(n-1)
	lo := int(rank)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// topPaths ranks critical paths by frequency, breaking ties lexicographically
// (§4.6), then by first-seen declaration order as a final stable tie-break.
func topPaths(counts map[string]int, order []string, totalRuns, topK int) []CriticalPathShare {
	shares := make([]CriticalPathShare, 0, len(order))
	for _, path := range order {
		share := 0.0
		if totalRuns > 0 {
			share = float64(counts[path]) / float64(totalRuns)
		}
		shares = append(shares, CriticalPathShare{Path: path, Count: counts[path], Share: share})
	}

	sort.SliceStable(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return shares[i].Path < shares[j].Path
	})

	if len(shares) > topK {
		shares = shares[:topK]
	}
	return shares
}
