// Package sim provides the core discrete-event simulation engine for
// LatencyLab.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - model.go: the declarative model (contexts, events, tasks, wiring)
//   - instance.go: TaskInstance/RunResult, the per-run output
//   - scheduler.go: the event loop, context capacity/admission, delayed wiring
//   - criticalpath.go: reconstructs the longest causal chain of a run
//   - executor.go: dispatches legacy/extended engines and fans out N runs
//   - aggregator.go: collapses many RunResults into a Summary
//
// # Architecture
//
// Two engines share the scheduler: a legacy engine frozen to reproduce v1
// schema numeric output byte-for-byte, and an extended engine supporting
// delayed wiring (schema_version >= 2). ExecutorStrategy picks between them
// per model.SchemaVersion. Both drive the same Scheduler loop; they differ
// only in their RNG discipline (rng.go, sampler.go).
package sim
