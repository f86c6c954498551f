package sim

import "fmt"

// ContextPolicy identifies a context's admission discipline. Only FIFO is
// supported; the field exists so the model's wire format can carry it
// explicitly and reject anything else at validation time.
type ContextPolicy string

const (
	// PolicyFIFO admits ready instances in enqueue order.
	PolicyFIFO ContextPolicy = "fifo"

	// delayContextName is the reserved, capacity-unconstrained context that
	// hosts synthetic delay instances (§4.3).
	delayContextName = "__delay__"
)

// ContextDef is a named execution pool with a fixed concurrency cap.
type ContextDef struct {
	Name        string
	Concurrency int
	Policy      ContextPolicy
}

// EventDef is a named signal a task can emit on completion.
type EventDef struct {
	Name string
	Tags map[string]struct{}
}

// HasTag reports whether the event carries the given tag (e.g. "ui").
func (e EventDef) HasTag(tag string) bool {
	_, ok := e.Tags[tag]
	return ok
}

// DistKind tags the variant held by a DurationDist.
type DistKind int

const (
	// DistFixed always samples the same value.
	DistFixed DistKind = iota
	// DistNormal samples from a (optionally clamped) Gaussian.
	DistNormal
	// DistLognormal samples exp(mu + sigma*Z), Z standard normal.
	DistLognormal
)

func (k DistKind) String() string {
	switch k {
	case DistFixed:
		return "fixed"
	case DistNormal:
		return "normal"
	case DistLognormal:
		return "lognormal"
	default:
		return "unknown"
	}
}

// DurationDist is a tagged variant over the three sampling shapes §4.1
// supports. Only the fields relevant to Kind are meaningful; others are
// zero. Use the NewFixed/NewNormal/NewLognormal constructors to build one
// validated.
type DurationDist struct {
	Kind DistKind

	// Fixed
	Value float64

	// Normal
	Mean    float64
	Std     float64
	HasMin  bool
	Min     float64

	// Lognormal
	Mu    float64
	Sigma float64
}

// NewFixed builds a Fixed{value} distribution. value must be >= 0.
func NewFixed(value float64) (DurationDist, error) {
	if value < 0 {
		return DurationDist{}, newError(KindModelInvalid, "NewFixed", fmt.Errorf("value must be >= 0, got %v", value))
	}
	return DurationDist{Kind: DistFixed, Value: value}, nil
}

// NewNormal builds a Normal{mean, std, min?} distribution. std must be >= 0;
// if hasMin, min must be >= 0.
func NewNormal(mean, std float64, hasMin bool, min float64) (DurationDist, error) {
	if std < 0 {
		return DurationDist{}, newError(KindModelInvalid, "NewNormal", fmt.Errorf("std must be >= 0, got %v", std))
	}
	if hasMin && min < 0 {
		return DurationDist{}, newError(KindModelInvalid, "NewNormal", fmt.Errorf("min must be >= 0, got %v", min))
	}
	return DurationDist{Kind: DistNormal, Mean: mean, Std: std, HasMin: hasMin, Min: min}, nil
}

// NewLognormal builds a Lognormal{mu, sigma} distribution. sigma must be >= 0.
func NewLognormal(mu, sigma float64) (DurationDist, error) {
	if sigma < 0 {
		return DurationDist{}, newError(KindModelInvalid, "NewLognormal", fmt.Errorf("sigma must be >= 0, got %v", sigma))
	}
	return DurationDist{Kind: DistLognormal, Mu: mu, Sigma: sigma}, nil
}

// TaskMeta carries measurement-only metadata passed through to the
// aggregate Summary; it never influences scheduling.
type TaskMeta struct {
	Category string
	Tags     []string
	Labels   map[string]string
}

// TaskDef is a named unit of work bound to a context.
type TaskDef struct {
	Name       string
	Context    string
	DurationMs DurationDist
	Emit       []string
	Meta       *TaskMeta
}

// WiringEdge dispatches a source event to a target task, optionally after a
// sampled delay.
type WiringEdge struct {
	Event string
	Task  string
	Delay *DurationDist
}

// Model is the validated, immutable description of a simulation: its
// execution contexts, events, tasks, and wiring. Model is read-only once
// built and is shared across every run of a batch.
type Model struct {
	SchemaVersion int
	Contexts      map[string]ContextDef
	Events        map[string]EventDef
	Tasks         map[string]TaskDef
	// Wiring maps a source event name to the edges it fires, in declaration
	// order (this order is load-bearing for FIFO tie-breaks, §4.2, §9).
	Wiring map[string][]WiringEdge

	// taskOrder and eventOrder preserve declaration order; map iteration in
	// Go is randomized per-process, so initial-event bootstrap (§9) and any
	// other FIFO-by-declaration-order tie-break must walk these slices
	// instead of ranging over Tasks/Events/Wiring directly.
	taskOrder  []string
	eventOrder []string
}

// NewModel validates references and bounds across the supplied entities and
// returns an immutable Model, or a KindModelInvalid error naming the first
// problem found. This is the minimal validation the core itself relies on
// to run safely; a full collaborator validator (§6.1) may do much more.
func NewModel(schemaVersion int, contexts []ContextDef, events []EventDef, tasks []TaskDef, wiring []WiringEdge) (*Model, error) {
	if schemaVersion != 1 && schemaVersion != 2 {
		return nil, newError(KindModelInvalid, "NewModel", fmt.Errorf("schema_version must be 1 or 2, got %d", schemaVersion))
	}

	m := &Model{
		SchemaVersion: schemaVersion,
		Contexts:      make(map[string]ContextDef, len(contexts)),
		Events:        make(map[string]EventDef, len(events)),
		Tasks:         make(map[string]TaskDef, len(tasks)),
		Wiring:        make(map[string][]WiringEdge),
	}

	for _, c := range contexts {
		if c.Concurrency < 1 {
			return nil, newError(KindModelInvalid, "NewModel", fmt.Errorf("context %q: concurrency must be >= 1, got %d", c.Name, c.Concurrency))
		}
		if c.Policy != PolicyFIFO {
			return nil, newError(KindModelInvalid, "NewModel", fmt.Errorf("context %q: unsupported policy %q", c.Name, c.Policy))
		}
		if c.Name == delayContextName {
			return nil, newError(KindModelInvalid, "NewModel", fmt.Errorf("context name %q is reserved", delayContextName))
		}
		m.Contexts[c.Name] = c
	}

	for _, e := range events {
		m.Events[e.Name] = e
		m.eventOrder = append(m.eventOrder, e.Name)
	}

	for _, t := range tasks {
		if _, ok := m.Contexts[t.Context]; !ok {
			return nil, newError(KindModelInvalid, "NewModel", fmt.Errorf("task %q: unknown context %q", t.Name, t.Context))
		}
		for _, ev := range t.Emit {
			if _, ok := m.Events[ev]; !ok {
				return nil, newError(KindModelInvalid, "NewModel", fmt.Errorf("task %q: emits unknown event %q", t.Name, ev))
			}
		}
		m.Tasks[t.Name] = t
		m.taskOrder = append(m.taskOrder, t.Name)
	}

	for _, w := range wiring {
		if _, ok := m.Events[w.Event]; !ok {
			return nil, newError(KindModelInvalid, "NewModel", fmt.Errorf("wiring: unknown event %q", w.Event))
		}
		if _, ok := m.Tasks[w.Task]; !ok {
			return nil, newError(KindModelInvalid, "NewModel", fmt.Errorf("wiring: unknown task %q", w.Task))
		}
		m.Wiring[w.Event] = append(m.Wiring[w.Event], w)
	}

	return m, nil
}

// initialEvents returns, in declaration order, the events that no task
// emits — the run's bootstrap set (§9 open question, resolved in
// SPEC_FULL.md §D.1: every event with no producing task is injected at
// t=0, FIFO by declaration order).
func (m *Model) initialEvents() []string {
	produced := make(map[string]struct{})
	for _, taskName := range m.taskOrder {
		for _, ev := range m.Tasks[taskName].Emit {
			produced[ev] = struct{}{}
		}
	}

	var initial []string
	for _, evName := range m.eventOrder {
		if _, isProduced := produced[evName]; !isProduced {
			initial = append(initial, evName)
		}
	}
	return initial
}
