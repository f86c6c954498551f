// Package modelio loads a LatencyLab model from its JSON wire form (§6.3)
// and validates it into a *sim.Model. It is the thin collaborator §6.1
// assumes sits upstream of the core: it translates the wire form and
// checks distribution parameters, and leaves name-reference resolution
// and the remaining model checks to sim.NewModel, which it calls.
package modelio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/latencylab/latencylab/sim"
)

// distJSON is the wire shape of a DurationDist (§6.3): a kind tag plus the
// fields relevant to it. A bare JSON number is normalized to Fixed by the
// caller before unmarshalling into this type (see decodeDist).
type distJSON struct {
	Kind   string   `json:"kind"`
	Value  float64  `json:"value"`
	Mean   float64  `json:"mean"`
	Std    float64  `json:"std"`
	Min    *float64 `json:"min"`
	Mu     float64  `json:"mu"`
	Sigma  float64  `json:"sigma"`
}

func (d distJSON) toDist() (sim.DurationDist, error) {
	switch d.Kind {
	case "", "fixed":
		return sim.NewFixed(d.Value)
	case "normal":
		return sim.NewNormal(d.Mean, d.Std, d.Min != nil, derefOr(d.Min, 0))
	case "lognormal":
		return sim.NewLognormal(d.Mu, d.Sigma)
	default:
		return sim.DurationDist{}, fmt.Errorf("unknown distribution kind %q", d.Kind)
	}
}

func derefOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

type contextJSON struct {
	Name        string `json:"name"`
	Concurrency int    `json:"concurrency"`
	Policy      string `json:"policy"`
}

type eventJSON struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

type taskMetaJSON struct {
	Category string            `json:"category"`
	Tags     []string          `json:"tags"`
	Labels   map[string]string `json:"labels"`
}

type taskJSON struct {
	Name       string        `json:"name"`
	Context    string        `json:"context"`
	DurationMs json.RawMessage `json:"duration_ms"`
	Emit       []string      `json:"emit"`
	Meta       *taskMetaJSON `json:"meta"`
}

// wiringTargetJSON is either a bare task name string or an object with an
// optional delay_ms (§6.3: "event -> [TaskNameString | {task, delay_ms?}]").
type wiringTargetJSON struct {
	Task     string          `json:"task"`
	DelayMs  json.RawMessage `json:"delay_ms"`
	isString bool
	str      string
}

func (w *wiringTargetJSON) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		w.isString = true
		w.str = s
		return nil
	}
	type alias wiringTargetJSON
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*w = wiringTargetJSON(a)
	return nil
}

type modelJSON struct {
	SchemaVersion int                           `json:"schema_version"`
	Version       int                           `json:"version"`
	ModelVersion  int                           `json:"model_version"`
	Contexts      []contextJSON                 `json:"contexts"`
	Events        []eventJSON                   `json:"events"`
	Tasks         []taskJSON                    `json:"tasks"`
	Wiring        map[string][]wiringTargetJSON `json:"wiring"`
}

func (m modelJSON) schemaVersion() int {
	switch {
	case m.SchemaVersion != 0:
		return m.SchemaVersion
	case m.Version != 0:
		return m.Version
	default:
		return m.ModelVersion
	}
}

// Load reads and validates a model from a JSON file at path.
func Load(path string) (*sim.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, sim.NewModelInvalidError("modelio.Load", fmt.Errorf("opening model file: %w", err))
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads and validates a model from r.
func Decode(r io.Reader) (*sim.Model, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, sim.NewModelInvalidError("modelio.Decode", fmt.Errorf("reading model: %w", err))
	}

	var raw modelJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, sim.NewModelInvalidError("modelio.Decode", fmt.Errorf("parsing model JSON: %w", err))
	}

	contexts := make([]sim.ContextDef, 0, len(raw.Contexts))
	for _, c := range raw.Contexts {
		policy := c.Policy
		if policy == "" {
			policy = string(sim.PolicyFIFO)
		}
		contexts = append(contexts, sim.ContextDef{
			Name:        c.Name,
			Concurrency: c.Concurrency,
			Policy:      sim.ContextPolicy(policy),
		})
	}

	events := make([]sim.EventDef, 0, len(raw.Events))
	for _, e := range raw.Events {
		events = append(events, sim.EventDef{Name: e.Name, Tags: toTagSet(e.Tags)})
	}

	tasks := make([]sim.TaskDef, 0, len(raw.Tasks))
	for _, t := range raw.Tasks {
		dist, err := decodeDist(t.DurationMs)
		if err != nil {
			return nil, sim.NewModelInvalidError("modelio.Decode", fmt.Errorf("task %q: duration_ms: %w", t.Name, err))
		}
		var meta *sim.TaskMeta
		if t.Meta != nil {
			meta = &sim.TaskMeta{Category: t.Meta.Category, Tags: t.Meta.Tags, Labels: t.Meta.Labels}
		}
		tasks = append(tasks, sim.TaskDef{
			Name:       t.Name,
			Context:    t.Context,
			DurationMs: dist,
			Emit:       t.Emit,
			Meta:       meta,
		})
	}

	wiring, err := decodeWiring(raw.Wiring)
	if err != nil {
		return nil, sim.NewModelInvalidError("modelio.Decode", err)
	}

	model, err := sim.NewModel(raw.schemaVersion(), contexts, events, tasks, wiring)
	if err != nil {
		return nil, err
	}
	return model, nil
}

func decodeDist(raw json.RawMessage) (sim.DurationDist, error) {
	if len(raw) == 0 {
		return sim.DurationDist{}, fmt.Errorf("missing")
	}
	// A bare number is Fixed{value} (§6.3).
	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return sim.NewFixed(asNumber)
	}
	var d distJSON
	if err := json.Unmarshal(raw, &d); err != nil {
		return sim.DurationDist{}, err
	}
	return d.toDist()
}

func decodeWiring(raw map[string][]wiringTargetJSON) ([]sim.WiringEdge, error) {
	var edges []sim.WiringEdge
	eventNames := make([]string, 0, len(raw))
	for name := range raw {
		eventNames = append(eventNames, name)
	}
	// Wiring declaration order is load-bearing for FIFO tie-breaks, but a
	// Go map has no order of its own; sort event names so a given JSON
	// document always produces the same edge order regardless of the
	// runtime's map iteration (targets within one event keep document order).
	sort.Strings(eventNames)

	for _, event := range eventNames {
		for _, target := range raw[event] {
			var edge sim.WiringEdge
			edge.Event = event
			if target.isString {
				edge.Task = target.str
				edges = append(edges, edge)
				continue
			}
			edge.Task = target.Task
			if len(target.DelayMs) > 0 {
				dist, err := decodeDist(target.DelayMs)
				if err != nil {
					return nil, fmt.Errorf("wiring %q -> %q: delay_ms: %w", event, target.Task, err)
				}
				edge.Delay = &dist
			}
			edges = append(edges, edge)
		}
	}
	return edges, nil
}

func toTagSet(tags []string) map[string]struct{} {
	if len(tags) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}
