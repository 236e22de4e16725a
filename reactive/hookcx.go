package reactive

import "sync"

// ConsumerID names one registered hook-body consumer within a Scheduler.
type ConsumerID uint64

// HookCx is the per-consumer, per-frame context passed into a hook body. It
// carries the current stage, this consumer's FunctionMemory, its wake flag,
// and access to the scheduler's shared-compute registry.
type HookCx struct {
	stage    StageKind
	mem      *FunctionMemory
	waked    bool
	sched    *Scheduler
	consumer ConsumerID
}

func (cx *HookCx) Stage() StageKind   { return cx.stage }
func (cx *HookCx) IsSpawning() bool   { return cx.stage == SpawnStage }
func (cx *HookCx) Memory() *FunctionMemory { return cx.mem }

// SkipIfNotWaked runs fn only if this consumer was woken this frame,
// otherwise it is entirely skipped — the body inside is never entered, so
// none of its hook calls run and none of its cells are touched.
func (cx *HookCx) SkipIfNotWaked(fn func(cx *HookCx)) {
	if !cx.waked {
		return
	}
	fn(cx)
}

// KeyedScope delegates to the consumer's FunctionMemory, re-wrapping the
// sub-memory into a nested HookCx so nested hook bodies keep stage/wake
// context.
func (cx *HookCx) KeyedScope(key any, fn func(cx *HookCx)) {
	cx.mem.KeyedScope(key, func(sub *FunctionMemory) {
		nested := &HookCx{stage: cx.stage, mem: sub, waked: cx.waked, sched: cx.sched, consumer: cx.consumer}
		fn(nested)
	})
}

// Scope is an unconditional nested call-site scope, for hook bodies that
// want to group a block of hook calls without branching on a runtime key.
func (cx *HookCx) Scope(fn func(cx *HookCx)) {
	cx.KeyedScope(struct{}{}, fn)
}

// sharedEntry backs one use_shared_compute producer: the cached UseResult
// from the last time the factory ran, plus a live consumer count.
type sharedEntry struct {
	mu        sync.Mutex
	producer  func(cx *HookCx) UseResult[any]
	mem       *FunctionMemory
	consumers int
	cached    UseResult[any]
	computed  bool
}

// UseSharedCompute deduplicates identical sub-graphs across consumers by a
// stable share-key: the first caller in a frame installs the producer and
// runs factory; every other caller sharing key this frame reuses its
// result. When the last consumer referencing key drops (via Release), the
// producer's memory is torn down.
func UseSharedCompute[T any](cx *HookCx, key any, factory func(cx *HookCx) UseResult[T]) UseResult[T] {
	cx.sched.mu.Lock()
	entry, ok := cx.sched.shared[key]
	if !ok {
		entry = &sharedEntry{mem: NewFunctionMemory()}
		cx.sched.shared[key] = entry
	}
	entry.consumers++
	cx.sched.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if !entry.computed {
		sub := &HookCx{stage: cx.stage, mem: entry.mem, waked: true, sched: cx.sched, consumer: cx.consumer}
		entry.mem.Begin()
		result := factory(sub)
		entry.mem.End()
		entry.cached = MapUseResult(result, func(v T) any { return v })
		entry.computed = true
	}

	return MapUseResult(entry.cached, func(v any) T { return v.(T) })
}

// ReleaseSharedCompute drops this consumer's reference to key. Once the
// last consumer releases, the shared producer's memory is torn down and the
// cached result is cleared so a later UseSharedCompute call reinstalls it
// fresh.
func ReleaseSharedCompute(sched *Scheduler, key any) {
	sched.mu.Lock()
	defer sched.mu.Unlock()
	entry, ok := sched.shared[key]
	if !ok {
		return
	}
	entry.consumers--
	if entry.consumers <= 0 {
		entry.mem.Begin()
		entry.mem.End() // tears down every cell's destructor
		delete(sched.shared, key)
	}
}

// endOfFrameResetShared clears the computed flag on every shared entry so the next
// frame's first caller re-runs the factory, matching a fresh per-frame poll.
func (s *Scheduler) endOfFrameResetShared() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.shared {
		e.computed = false
	}
}
