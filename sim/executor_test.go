package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func singleTaskModel(t *testing.T, schemaVersion int) *Model {
	contexts := []ContextDef{{Name: "cpu", Concurrency: 1, Policy: PolicyFIFO}}
	events := []EventDef{{Name: "start"}}
	tasks := []TaskDef{{Name: "t1", Context: "cpu", DurationMs: fixed(t, 3), Emit: nil}}
	wiring := []WiringEdge{{Event: "start", Task: "t1"}}
	model, err := NewModel(schemaVersion, contexts, events, tasks, wiring)
	assert.NoError(t, err)
	return model
}

func TestExecutorStrategy_RunMany_OrdersResultsByRunIndex(t *testing.T) {
	model := singleTaskModel(t, 1)
	es := NewExecutorStrategy()
	results, err := es.RunMany(context.Background(), model, 20, 42, RunOpts{MaxParallelism: 4})
	assert.NoError(t, err)
	assert.Len(t, results, 20)
	for i, r := range results {
		assert.Equal(t, i, r.RunIndex)
	}
}

func TestExecutorStrategy_RunMany_DeterministicAcrossParallelism(t *testing.T) {
	model := singleTaskModel(t, 2)
	es := NewExecutorStrategy()

	serial, err := es.RunMany(context.Background(), model, 10, 7, RunOpts{MaxParallelism: 1})
	assert.NoError(t, err)
	parallel, err := es.RunMany(context.Background(), model, 10, 7, RunOpts{MaxParallelism: 8})
	assert.NoError(t, err)

	assert.Equal(t, len(serial), len(parallel))
	for i := range serial {
		assert.Equal(t, serial[i].Seed, parallel[i].Seed)
		assert.Equal(t, serial[i].MakespanMs, parallel[i].MakespanMs)
	}
}

func TestExecutorStrategy_RunMany_DispatchesLegacyVsExtendedBySchemaVersion(t *testing.T) {
	es := NewExecutorStrategy()

	legacy, err := es.engineFor(singleTaskModel(t, 1))
	assert.NoError(t, err)
	assert.Equal(t, EngineLegacy, legacy)

	extended, err := es.engineFor(singleTaskModel(t, 2))
	assert.NoError(t, err)
	assert.Equal(t, EngineExtended, extended)
}

func TestExecutorStrategy_RunMany_LegacyUnavailable(t *testing.T) {
	es := &ExecutorStrategy{AllowLegacy: false}
	_, err := es.RunMany(context.Background(), singleTaskModel(t, 1), 1, 1, RunOpts{})
	assert.True(t, IsKind(err, KindLegacyUnavailable))
}

func TestExecutorStrategy_RunMany_CancelledBetweenRuns(t *testing.T) {
	model := singleTaskModel(t, 1)
	es := NewExecutorStrategy()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := es.RunMany(ctx, model, 5, 1, RunOpts{MaxParallelism: 1})
	assert.True(t, IsKind(err, KindCancelled))
	assert.Empty(t, results)
}

// brokenModel's wiring references a task absent from Tasks, bypassing
// NewModel's own reference validation so every run of it hits
// KindInvariantViolated deep in the scheduler.
func brokenModel(t *testing.T, schemaVersion int) *Model {
	model := singleTaskModel(t, schemaVersion)
	model.Wiring["start"] = append(model.Wiring["start"], WiringEdge{Event: "start", Task: "no-such-task"})
	return model
}

func TestExecutorStrategy_RunMany_AbortsBatchOnInvariantViolation(t *testing.T) {
	model := brokenModel(t, 1)
	es := NewExecutorStrategy()

	results, err := es.RunMany(context.Background(), model, 50, 1, RunOpts{MaxParallelism: 1})
	assert.True(t, IsKind(err, KindInvariantViolated))
	assert.Empty(t, results)
}

func TestExecutorStrategy_RunMany_DeadlineExceededBetweenRuns(t *testing.T) {
	model := singleTaskModel(t, 1)
	es := NewExecutorStrategy()
	zero := int64(0)

	results, err := es.RunMany(context.Background(), model, 5, 1, RunOpts{MaxParallelism: 1, DeadlineMs: &zero})
	assert.True(t, IsKind(err, KindDeadlineExceeded))
	assert.Empty(t, results)
}
