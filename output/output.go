// Package output writes the per-run and aggregate result records the core
// produces into the wire formats §6.2 fixes: trace.csv, runs.csv, and
// summary.json.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/latencylab/latencylab/sim"
)

var traceHeader = []string{
	"run_index", "instance_id", "task_name", "context",
	"enqueue_ms", "start_ms", "end_ms",
	"parent_task_instance_id", "capacity_parent_instance_id", "synthetic",
}

// WriteTraceCSV writes one row per TaskInstance across results, in
// (run_index, instance id) order, with unset parent ids rendered as empty
// cells (§6.2).
func WriteTraceCSV(w io.Writer, results []*sim.RunResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(traceHeader); err != nil {
		return fmt.Errorf("writing trace header: %w", err)
	}
	for _, r := range results {
		for _, inst := range r.Instances {
			row := []string{
				strconv.Itoa(r.RunIndex),
				strconv.FormatInt(inst.ID, 10),
				inst.TaskName,
				inst.Context,
				formatMs(inst.EnqueueMs),
				formatMs(inst.StartMs),
				formatMs(inst.EndMs),
				formatParent(inst.ParentInstanceID),
				formatParent(inst.CapacityParentInstanceID),
				strconv.FormatBool(inst.Synthetic),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing trace row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

var runsHeader = []string{
	"run_index", "seed", "makespan_ms",
	"first_ui_event_time_ms", "last_ui_event_time_ms", "critical_path_tasks",
}

// WriteRunsCSV writes one row per run (§6.2). UI timing cells are empty
// when the run observed no UI-tagged event.
func WriteRunsCSV(w io.Writer, results []*sim.RunResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(runsHeader); err != nil {
		return fmt.Errorf("writing runs header: %w", err)
	}
	for _, r := range results {
		firstUI, lastUI := "", ""
		if r.HasUIEvent {
			firstUI = formatMs(r.FirstUIEventTimeMs)
			lastUI = formatMs(r.LastUIEventTimeMs)
		}
		row := []string{
			strconv.Itoa(r.RunIndex),
			strconv.FormatInt(r.Seed, 10),
			formatMs(r.MakespanMs),
			firstUI,
			lastUI,
			r.CriticalPathTasks,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing runs row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// toSummaryPercentiles renders exactly the percentiles the aggregator
// actually computed (d.Percentiles), keyed "p<N>" — never a fixed
// p50/p90/p95/p99 set, since AggregatorOptions.Percentiles is caller-
// configurable (§6.1) and a percentile the caller didn't request has no
// value to report.
func toSummaryPercentiles(d sim.Distribution) map[string]float64 {
	out := make(map[string]float64, len(d.Percentiles))
	for p, v := range d.Percentiles {
		out[percentileKey(p)] = v
	}
	return out
}

func percentileKey(p int) string {
	return "p" + strconv.Itoa(p)
}

type summaryPathJSON struct {
	Path  string  `json:"path"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

type taskMetaJSON struct {
	Category string            `json:"category,omitempty"`
	Tags     []string          `json:"tags,omitempty"`
	Labels   map[string]string `json:"labels,omitempty"`
}

type summaryJSON struct {
	Percentiles      map[string]map[string]float64 `json:"percentiles"`
	TopCriticalPaths []summaryPathJSON              `json:"top_critical_paths"`
	TaskMetadata     map[string]taskMetaJSON        `json:"task_metadata,omitempty"`
}

// WriteSummaryJSON writes summary.json (§6.2). summary.TaskMetadata is
// included only when non-nil (v2-only field per §4.6).
func WriteSummaryJSON(w io.Writer, summary *sim.Summary) error {
	doc := summaryJSON{
		Percentiles: map[string]map[string]float64{
			"makespan_ms":            toSummaryPercentiles(summary.Makespan),
			"first_ui_event_time_ms": toSummaryPercentiles(summary.FirstUI),
			"last_ui_event_time_ms":  toSummaryPercentiles(summary.LastUI),
		},
	}
	for _, p := range summary.TopCriticalPaths {
		doc.TopCriticalPaths = append(doc.TopCriticalPaths, summaryPathJSON{Path: p.Path, Count: p.Count, Share: p.Share})
	}
	if summary.TaskMetadata != nil {
		doc.TaskMetadata = make(map[string]taskMetaJSON, len(summary.TaskMetadata))
		for name, meta := range summary.TaskMetadata {
			doc.TaskMetadata[name] = taskMetaJSON{Category: meta.Category, Tags: meta.Tags, Labels: meta.Labels}
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func formatMs(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatParent(id int64) string {
	if id < 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
