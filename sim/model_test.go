package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewModel_RejectsUnknownSchemaVersion(t *testing.T) {
	_, err := NewModel(3, nil, nil, nil, nil)
	assert.True(t, IsKind(err, KindModelInvalid))
}

func TestNewModel_RejectsZeroConcurrency(t *testing.T) {
	_, err := NewModel(1, []ContextDef{{Name: "cpu", Concurrency: 0, Policy: PolicyFIFO}}, nil, nil, nil)
	assert.True(t, IsKind(err, KindModelInvalid))
}

func TestNewModel_RejectsNonFIFOPolicy(t *testing.T) {
	_, err := NewModel(1, []ContextDef{{Name: "cpu", Concurrency: 1, Policy: "lifo"}}, nil, nil, nil)
	assert.True(t, IsKind(err, KindModelInvalid))
}

func TestNewModel_RejectsReservedContextName(t *testing.T) {
	_, err := NewModel(1, []ContextDef{{Name: delayContextName, Concurrency: 1, Policy: PolicyFIFO}}, nil, nil, nil)
	assert.True(t, IsKind(err, KindModelInvalid))
}

func TestNewModel_RejectsTaskWithUnknownContext(t *testing.T) {
	tasks := []TaskDef{{Name: "t1", Context: "missing"}}
	_, err := NewModel(1, nil, nil, tasks, nil)
	assert.True(t, IsKind(err, KindModelInvalid))
}

func TestNewModel_RejectsTaskEmittingUnknownEvent(t *testing.T) {
	contexts := []ContextDef{{Name: "cpu", Concurrency: 1, Policy: PolicyFIFO}}
	tasks := []TaskDef{{Name: "t1", Context: "cpu", Emit: []string{"missing"}}}
	_, err := NewModel(1, contexts, nil, tasks, nil)
	assert.True(t, IsKind(err, KindModelInvalid))
}

func TestNewModel_RejectsWiringToUnknownTaskOrEvent(t *testing.T) {
	events := []EventDef{{Name: "e1"}}
	contexts := []ContextDef{{Name: "cpu", Concurrency: 1, Policy: PolicyFIFO}}
	tasks := []TaskDef{{Name: "t1", Context: "cpu"}}

	_, err := NewModel(1, contexts, events, tasks, []WiringEdge{{Event: "missing", Task: "t1"}})
	assert.True(t, IsKind(err, KindModelInvalid))

	_, err = NewModel(1, contexts, events, tasks, []WiringEdge{{Event: "e1", Task: "missing"}})
	assert.True(t, IsKind(err, KindModelInvalid))
}

func TestModel_InitialEvents_ExcludesProducedEvents(t *testing.T) {
	contexts := []ContextDef{{Name: "cpu", Concurrency: 1, Policy: PolicyFIFO}}
	events := []EventDef{{Name: "start"}, {Name: "mid"}, {Name: "done"}}
	tasks := []TaskDef{
		{Name: "t1", Context: "cpu", Emit: []string{"mid"}},
		{Name: "t2", Context: "cpu", Emit: []string{"done"}},
	}
	m, err := NewModel(1, contexts, events, tasks, nil)
	assert.NoError(t, err)
	assert.Equal(t, []string{"start"}, m.initialEvents())
}

func TestModel_InitialEvents_PreservesDeclarationOrder(t *testing.T) {
	contexts := []ContextDef{{Name: "cpu", Concurrency: 1, Policy: PolicyFIFO}}
	events := []EventDef{{Name: "c"}, {Name: "a"}, {Name: "b"}}
	m, err := NewModel(1, contexts, events, nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, m.initialEvents())
}

func TestEventDef_HasTag(t *testing.T) {
	ev := EventDef{Name: "rendered", Tags: map[string]struct{}{"ui": {}}}
	assert.True(t, ev.HasTag("ui"))
	assert.False(t, ev.HasTag("background"))
}

func TestNewFixed_RejectsNegativeValue(t *testing.T) {
	_, err := NewFixed(-1)
	assert.True(t, IsKind(err, KindModelInvalid))
}

func TestNewNormal_RejectsNegativeStd(t *testing.T) {
	_, err := NewNormal(10, -1, false, 0)
	assert.True(t, IsKind(err, KindModelInvalid))
}

func TestNewNormal_RejectsNegativeMin(t *testing.T) {
	_, err := NewNormal(10, 1, true, -1)
	assert.True(t, IsKind(err, KindModelInvalid))
}

func TestNewLognormal_RejectsNegativeSigma(t *testing.T) {
	_, err := NewLognormal(1, -1)
	assert.True(t, IsKind(err, KindModelInvalid))
}

func TestDistKind_String(t *testing.T) {
	assert.Equal(t, "fixed", DistFixed.String())
	assert.Equal(t, "normal", DistNormal.String())
	assert.Equal(t, "lognormal", DistLognormal.String())
	assert.Equal(t, "unknown", DistKind(99).String())
}
