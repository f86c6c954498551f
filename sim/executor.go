package sim

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// RunOpts configures a batch of runs (§4.5 opts).
type RunOpts struct {
	// CollectTraces, when false, still runs the simulation but callers may
	// discard per-instance traces downstream; the core always builds them
	// (dropping them costs nothing the scheduler itself can skip — trace
	// construction is inseparable from scheduling), so this only documents
	// caller intent.
	CollectTraces bool
	// MaxParallelism bounds concurrent runs; 0 means unbounded (capped
	// internally at GOMAXPROCS to avoid spawning thousands of goroutines
	// for a large batch).
	MaxParallelism int
	// DeadlineMs, if non-nil, is a wall-clock budget for the whole batch,
	// checked between runs (§5 Cancellation).
	DeadlineMs *int64
}

// DefaultRunOpts returns the spec's documented defaults (§4.5).
func DefaultRunOpts() RunOpts {
	return RunOpts{CollectTraces: true}
}

// ExecutorStrategy selects and drives a concrete run engine, fanning out N
// independent runs across seeds derived from a master seed (§4.5).
type ExecutorStrategy struct {
	// AllowLegacy gates the v1 frozen-oracle engine. False surfaces
	// KindLegacyUnavailable instead of silently running schema_version==1
	// models against the extended engine (§9, SPEC_FULL.md §C.4).
	AllowLegacy bool
}

// NewExecutorStrategy returns a strategy with the legacy engine enabled.
func NewExecutorStrategy() *ExecutorStrategy {
	return &ExecutorStrategy{AllowLegacy: true}
}

// engineFor dispatches on schema_version (§4.5, §9: "a small sum type
// {Legacy, Extended} with a dispatch function; no open polymorphism
// required").
func (es *ExecutorStrategy) engineFor(model *Model) (EngineKind, error) {
	switch model.SchemaVersion {
	case 1:
		if !es.AllowLegacy {
			return 0, newError(KindLegacyUnavailable, "ExecutorStrategy.RunMany", nil)
		}
		return EngineLegacy, nil
	default:
		return EngineExtended, nil
	}
}

// RunMany executes nRuns independent runs of model, returning RunResults
// ordered by RunIndex ascending. Parallelism is permitted across runs —
// each owns its own RNG and instance arena; only the read-only Model is
// shared (§5). If ctx is cancelled or opts.DeadlineMs elapses, RunMany
// stops launching new runs (checked between runs, never mid-run) and
// returns whichever RunResults had already completed alongside a
// KindCancelled/KindDeadlineExceeded error.
func (es *ExecutorStrategy) RunMany(ctx context.Context, model *Model, nRuns int, baseSeed int64, opts RunOpts) ([]*RunResult, error) {
	engine, err := es.engineFor(model)
	if err != nil {
		return nil, err
	}

	parallelism := opts.MaxParallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	if parallelism > nRuns {
		parallelism = nRuns
	}
	if parallelism < 1 {
		parallelism = 1
	}

	logrus.Infof("running %d simulation(s) (engine=%v, parallelism=%d)", nRuns, engine, parallelism)

	var deadline time.Time
	hasDeadline := opts.DeadlineMs != nil
	if hasDeadline {
		deadline = time.Now().Add(time.Duration(*opts.DeadlineMs) * time.Millisecond)
	}

	key := NewSimulationKey(baseSeed)
	results := make([]*RunResult, nRuns)
	errs := make([]error, nRuns)

	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup
	var failed atomic.Bool

	var stopErr error
	for i := 0; i < nRuns; i++ {
		if failed.Load() {
			// A prior run already hit KindInvariantViolated; the batch is
			// aborting (§7), so stop launching runs that would only be
			// discarded once errs[] is scanned below.
			break
		}
		select {
		case <-ctx.Done():
			stopErr = newError(KindCancelled, "ExecutorStrategy.RunMany", ctx.Err())
		default:
		}
		if hasDeadline && time.Now().After(deadline) {
			stopErr = newError(KindDeadlineExceeded, "ExecutorStrategy.RunMany", nil)
		}
		if stopErr != nil {
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(runIndex int) {
			defer wg.Done()
			defer func() { <-sem }()

			seed := mixSeed(key, runIndex)
			sched := newScheduler(model, engine, seed)
			result, runErr := sched.run(runIndex, seed)
			results[runIndex] = result
			errs[runIndex] = runErr
			if runErr != nil {
				failed.Store(true)
			}
		}(i)
	}
	wg.Wait()

	completed := make([]*RunResult, 0, nRuns)
	for i := 0; i < nRuns; i++ {
		if errs[i] != nil {
			logrus.Warnf("run %d aborted: %v", i, errs[i])
			return compact(completed), errs[i]
		}
		if results[i] != nil {
			completed = append(completed, results[i])
		}
	}

	if stopErr != nil {
		return compact(completed), stopErr
	}
	return completed, nil
}

func compact(results []*RunResult) []*RunResult {
	out := make([]*RunResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
