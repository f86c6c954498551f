package sim

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/latencylab/latencylab/sim/internal/testutil"
)

// decodeGoldenModel builds a *Model from a GoldenCase's raw JSON without
// depending on the modelio package (sim must not import its own consumers),
// duplicating just enough of the wire shape to exercise the scheduler.
func decodeGoldenModel(t *testing.T, raw []byte) *Model {
	t.Helper()

	var doc struct {
		SchemaVersion int `json:"schema_version"`
		Contexts      []struct {
			Name        string `json:"name"`
			Concurrency int    `json:"concurrency"`
			Policy      string `json:"policy"`
		} `json:"contexts"`
		Events []struct {
			Name string   `json:"name"`
			Tags []string `json:"tags"`
		} `json:"events"`
		Tasks []struct {
			Name       string `json:"name"`
			Context    string `json:"context"`
			DurationMs struct {
				Kind  string  `json:"kind"`
				Value float64 `json:"value"`
			} `json:"duration_ms"`
			Emit []string `json:"emit"`
		} `json:"tasks"`
		Wiring map[string][]string `json:"wiring"`
	}
	assert.NoError(t, json.Unmarshal(raw, &doc))

	var contexts []ContextDef
	for _, c := range doc.Contexts {
		contexts = append(contexts, ContextDef{Name: c.Name, Concurrency: c.Concurrency, Policy: ContextPolicy(c.Policy)})
	}
	var events []EventDef
	for _, e := range doc.Events {
		events = append(events, EventDef{Name: e.Name, Tags: toTagSet(e.Tags)})
	}
	var tasks []TaskDef
	for _, ta := range doc.Tasks {
		dist := fixed(t, ta.DurationMs.Value)
		tasks = append(tasks, TaskDef{Name: ta.Name, Context: ta.Context, DurationMs: dist, Emit: ta.Emit})
	}
	var wiring []WiringEdge
	// Wiring targets must fire in JSON array declaration order, which
	// map-of-string-to-[]string already preserves per key (§4.2); only the
	// key iteration order is unspecified, and the golden fixtures below
	// never rely on cross-event ordering.
	for event, targets := range doc.Wiring {
		for _, task := range targets {
			wiring = append(wiring, WiringEdge{Event: event, Task: task})
		}
	}

	model, err := NewModel(doc.SchemaVersion, contexts, events, tasks, wiring)
	assert.NoError(t, err)
	return model
}

func toTagSet(tags []string) map[string]struct{} {
	if len(tags) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		set[tag] = struct{}{}
	}
	return set
}

func TestGoldenDataset_MatchesScheduler(t *testing.T) {
	dataset := testutil.LoadGoldenDataset(t)
	for _, c := range dataset.Cases {
		t.Run(c.Name, func(t *testing.T) {
			model := decodeGoldenModel(t, c.Model)
			es := NewExecutorStrategy()
			results, err := es.RunMany(context.Background(), model, c.Runs, c.Seed, RunOpts{})
			assert.NoError(t, err)
			assert.Len(t, results, c.Runs)

			for _, r := range results {
				assert.Equal(t, c.Expected.MakespanMs, r.MakespanMs)
				assert.Equal(t, c.Expected.HasUIEvent, r.HasUIEvent)
				if c.Expected.HasUIEvent {
					assert.Equal(t, c.Expected.FirstUIEventMs, r.FirstUIEventTimeMs)
					assert.Equal(t, c.Expected.LastUIEventMs, r.LastUIEventTimeMs)
				}
				assert.Equal(t, c.Expected.CriticalPathTasks, r.CriticalPathTasks)
				assert.Len(t, r.Instances, c.Expected.InstanceCount)
			}
		})
	}
}
