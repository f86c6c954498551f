package sim

import (
	"container/heap"
	"fmt"

	"github.com/sirupsen/logrus"
)

// itemKind distinguishes the two ScheduledItem variants the event queue
// carries (§4.2).
type itemKind int

const (
	kindEnqueueTask itemKind = iota
	kindEndInstance
)

// scheduledItem is one entry in the scheduler's event queue, keyed by
// (time, seq) for a stable, insertion-ordered tie-break (§4.2).
type scheduledItem struct {
	time float64
	seq  int64
	kind itemKind

	// kindEnqueueTask
	taskName         string
	parentInstanceID int64

	// kindEndInstance
	instanceID int64
}

// eventHeap implements container/heap.Interface, ordering items by
// (time, seq) ascending — the same shape as the teacher's EventQueue
// (sim/simulator.go in the teacher repo), generalized to a two-field key
// since §4.2 requires an explicit tiebreak_seq rather than relying on
// insertion-stable sort.
type eventHeap []scheduledItem

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(scheduledItem))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// pendingEnqueue is one entry in a context's FIFO ready queue.
type pendingEnqueue struct {
	taskName         string
	enqueueMs        float64
	parentInstanceID int64
}

// contextState is the scheduler's per-context admission bookkeeping
// (§4.2: a ready_queue and a running set sized <= Concurrency).
type contextState struct {
	def          ContextDef
	ready        fifoQueue[pendingEnqueue]
	runningCount int
	// pendingFreed holds, oldest first, the IDs of instances whose end
	// freed a slot not yet claimed by an admission. Consumed FIFO so the
	// invariant "A freed the slot B occupies" holds per §3.
	pendingFreed []int64
}

// Scheduler executes exactly one run of a Model against a private RNG,
// producing a RunResult with full causality (§4.2, central component).
type Scheduler struct {
	model *Model
	rng   runRNG

	now   float64
	queue eventHeap
	seq   int64

	nextInstanceID int64
	instances      []TaskInstance

	contexts map[string]*contextState

	// delayTargets maps a synthetic delay instance's ID to the task it
	// will enqueue once its EndInstance is processed (§4.3).
	delayTargets map[int64]string

	makespanMs float64
	hasUI      bool
	firstUIMs  float64
	lastUIMs   float64
}

// EngineKind selects the RNG discipline a Scheduler runs with (§4.1, §4.5,
// §9: "a small sum type {Legacy, Extended} with a dispatch function").
type EngineKind int

const (
	// EngineLegacy is the frozen oracle: schema_version == 1 models run
	// against it and must match v1 numeric output byte-for-byte.
	EngineLegacy EngineKind = iota
	// EngineExtended supports delayed wiring; schema_version >= 2 models
	// run against it.
	EngineExtended
)

// newScheduler builds a Scheduler for one run. seed is the per-run seed
// already derived via mixSeed — Scheduler never mixes seeds itself.
func newScheduler(model *Model, engine EngineKind, seed int64) *Scheduler {
	var rng runRNG
	switch engine {
	case EngineLegacy:
		rng = newLegacyRNG(seed)
	default:
		rng = newExtendedRNG(seed)
	}

	contexts := make(map[string]*contextState, len(model.Contexts))
	for name, def := range model.Contexts {
		contexts[name] = &contextState{def: def}
	}

	return &Scheduler{
		model:        model,
		rng:          rng,
		contexts:     contexts,
		delayTargets: make(map[int64]string),
	}
}

func (s *Scheduler) push(item scheduledItem) {
	item.seq = s.seq
	s.seq++
	heap.Push(&s.queue, item)
}

func (s *Scheduler) allocID() int64 {
	id := s.nextInstanceID
	s.nextInstanceID++
	return id
}

// run drives the main loop (§4.2) to completion and returns the finished
// RunResult, or a *Error of KindInvariantViolated if the model surfaces a
// bad reference mid-run.
func (s *Scheduler) run(runIndex int, seed int64) (*RunResult, error) {
	for _, evName := range s.model.initialEvents() {
		s.emitEvent(evName, noParent, 0)
	}

	for s.queue.Len() > 0 {
		item := heap.Pop(&s.queue).(scheduledItem)
		s.now = item.time

		switch item.kind {
		case kindEnqueueTask:
			if err := s.handleEnqueueTask(item); err != nil {
				return nil, err
			}
		case kindEndInstance:
			if err := s.handleEndInstance(item); err != nil {
				return nil, err
			}
		}
	}

	result := &RunResult{
		RunIndex:           runIndex,
		Seed:               seed,
		Instances:          s.instances,
		MakespanMs:         s.makespanMs,
		HasUIEvent:         s.hasUI,
		FirstUIEventTimeMs: s.firstUIMs,
		LastUIEventTimeMs:  s.lastUIMs,
	}
	result.CriticalPathTasks = criticalPath(result)
	return result, nil
}

func (s *Scheduler) handleEnqueueTask(item scheduledItem) error {
	task, ok := s.model.Tasks[item.taskName]
	if !ok {
		return newError(KindInvariantViolated, "Scheduler.run", fmt.Errorf("enqueue of unknown task %q", item.taskName))
	}
	ctx, ok := s.contexts[task.Context]
	if !ok {
		return newError(KindInvariantViolated, "Scheduler.run", fmt.Errorf("task %q: unknown context %q", item.taskName, task.Context))
	}
	logrus.Debugf("[t=%07.2f] enqueue %s on %s", s.now, item.taskName, task.Context)
	ctx.ready.Enqueue(pendingEnqueue{
		taskName:         item.taskName,
		enqueueMs:        s.now,
		parentInstanceID: item.parentInstanceID,
	})
	return s.admit(ctx)
}

// admit pops as many ready instances as the context's free capacity allows
// (§4.2 Admission), sampling each duration and scheduling its EndInstance.
func (s *Scheduler) admit(ctx *contextState) error {
	for ctx.runningCount < ctx.def.Concurrency && ctx.ready.Len() > 0 {
		pe, _ := ctx.ready.Dequeue()
		task, ok := s.model.Tasks[pe.taskName]
		if !ok {
			return newError(KindInvariantViolated, "Scheduler.admit", fmt.Errorf("ready queue holds unknown task %q", pe.taskName))
		}

		duration := sample(task.DurationMs, s.rng)
		if duration < 0 {
			return newError(KindInvariantViolated, "Scheduler.admit", fmt.Errorf("task %q sampled negative duration %v", pe.taskName, duration))
		}

		capParent := noParent
		if len(ctx.pendingFreed) > 0 {
			capParent = ctx.pendingFreed[0]
			ctx.pendingFreed = ctx.pendingFreed[1:]
		}

		id := s.allocID()
		inst := TaskInstance{
			ID:                       id,
			TaskName:                 pe.taskName,
			Context:                  ctx.def.Name,
			EnqueueMs:                pe.enqueueMs,
			StartMs:                  s.now,
			EndMs:                    s.now + duration,
			ParentInstanceID:         pe.parentInstanceID,
			CapacityParentInstanceID: capParent,
		}
		s.instances = append(s.instances, inst)
		ctx.runningCount++
		s.push(scheduledItem{time: inst.EndMs, kind: kindEndInstance, instanceID: id})
	}
	return nil
}

func (s *Scheduler) handleEndInstance(item scheduledItem) error {
	if item.instanceID < 0 || int(item.instanceID) >= len(s.instances) {
		return newError(KindInvariantViolated, "Scheduler.run", fmt.Errorf("end of unknown instance %d", item.instanceID))
	}
	s.instances[item.instanceID].EndMs = s.now
	// Copy the fields this function needs out of the slice before calling
	// s.admit below: admit may append new instances, which can reallocate
	// the backing array and strand a pointer taken into it.
	instID, instContext, instTaskName, instSynthetic, instEndMs :=
		s.instances[item.instanceID].ID,
		s.instances[item.instanceID].Context,
		s.instances[item.instanceID].TaskName,
		s.instances[item.instanceID].Synthetic,
		s.instances[item.instanceID].EndMs

	if instSynthetic {
		target, ok := s.delayTargets[instID]
		if !ok {
			return newError(KindInvariantViolated, "Scheduler.run", fmt.Errorf("synthetic instance %d has no delay target", instID))
		}
		s.push(scheduledItem{time: s.now, kind: kindEnqueueTask, taskName: target, parentInstanceID: instID})
		return nil
	}

	if instEndMs > s.makespanMs {
		s.makespanMs = instEndMs
	}

	ctx, ok := s.contexts[instContext]
	if !ok {
		return newError(KindInvariantViolated, "Scheduler.run", fmt.Errorf("instance %d: unknown context %q", instID, instContext))
	}
	ctx.runningCount--
	ctx.pendingFreed = append(ctx.pendingFreed, instID)
	if err := s.admit(ctx); err != nil {
		return err
	}

	task, ok := s.model.Tasks[instTaskName]
	if !ok {
		return newError(KindInvariantViolated, "Scheduler.run", fmt.Errorf("instance %d: unknown task %q", instID, instTaskName))
	}
	for _, evName := range task.Emit {
		s.emitEvent(evName, instID, s.now)
	}
	return nil
}

// emitEvent records UI timing (if the event is ui-tagged) and fires every
// wiring edge registered for it, in declaration order (§4.2 step 3, §9
// initial-event bootstrap).
func (s *Scheduler) emitEvent(event string, emittingInstanceID int64, now float64) {
	if ev, ok := s.model.Events[event]; ok && ev.HasTag("ui") {
		if !s.hasUI || now < s.firstUIMs {
			s.firstUIMs = now
		}
		if !s.hasUI || now > s.lastUIMs {
			s.lastUIMs = now
		}
		s.hasUI = true
	}

	for _, edge := range s.model.Wiring[event] {
		if edge.Delay == nil {
			s.push(scheduledItem{time: now, kind: kindEnqueueTask, taskName: edge.Task, parentInstanceID: emittingInstanceID})
			continue
		}

		d := sample(*edge.Delay, s.rng)
		id := s.allocID()
		inst := TaskInstance{
			ID:                       id,
			TaskName:                 delayInstanceName(edge.Event, edge.Task),
			Context:                  delayContextName,
			EnqueueMs:                now,
			StartMs:                  now,
			EndMs:                    now + d,
			ParentInstanceID:         emittingInstanceID,
			CapacityParentInstanceID: noParent,
			Synthetic:                true,
		}
		s.instances = append(s.instances, inst)
		s.delayTargets[id] = edge.Task
		s.push(scheduledItem{time: inst.EndMs, kind: kindEndInstance, instanceID: id})
	}
}
