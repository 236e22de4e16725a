package reactive

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// HookBody is one consumer's per-frame callback. It is invoked once during
// the spawn stage, where the scheduler awaits any future it returns, and,
// unless that spawn-stage result was NotInStage, once more during the
// resolve stage. The resolve-stage invocation is not handed the spawn-stage
// result.
type HookBody func(cx *HookCx) UseResult[any]

type consumerEntry struct {
	id     ConsumerID
	mem    *FunctionMemory
	body   HookBody
	waked  bool
	cancel context.CancelFunc
}

// Scheduler is the reactive core's frame driver: it owns every registered
// consumer's memory, runs the two-phase frame (Spawn then Resolve), and
// hosts the shared-compute registry used by UseSharedCompute.
type Scheduler struct {
	mu        sync.Mutex
	consumers map[ConsumerID]*consumerEntry
	shared    map[any]*sharedEntry
	nextID    uint64

	spawnResults map[ConsumerID]UseResult[any]
	extensions   []FrameExtension
}

// FrameExtension observes frame-level lifecycle events without participating
// in the hook graph itself. See extensions.LoggingExtension and
// extensions.GraphDebugExtension for concrete implementations.
type FrameExtension interface {
	OnSpawnStage(ctx context.Context, woken int)
	OnResolveStage(results int)
	OnConsumerError(id ConsumerID, err error)
}

// Option configures a Scheduler at construction time via the functional
// options pattern.
type Option func(*Scheduler)

// WithExtension installs a FrameExtension observing every frame this
// Scheduler runs.
func WithExtension(ext FrameExtension) Option {
	return func(s *Scheduler) { s.extensions = append(s.extensions, ext) }
}

func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		consumers:    make(map[ConsumerID]*consumerEntry),
		shared:       make(map[any]*sharedEntry),
		spawnResults: make(map[ConsumerID]UseResult[any]),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a new consumer with its own persistent hook memory and
// returns its id. The consumer participates starting with the next call to
// RunFrame.
func (s *Scheduler) Register(body HookBody) ConsumerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := ConsumerID(s.nextID)
	s.consumers[id] = &consumerEntry{id: id, mem: NewFunctionMemory(), body: body, waked: true}
	return id
}

// Wake marks a consumer to be entered on the next frame. Newly registered
// consumers start woken so their first frame always runs.
func (s *Scheduler) Wake(id ConsumerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.consumers[id]; ok {
		c.waked = true
	}
}

// Drop removes a consumer, cancelling any outstanding spawned task it owns
// and tearing down its hook memory before reclaiming it.
func (s *Scheduler) Drop(id ConsumerID) {
	s.mu.Lock()
	c, ok := s.consumers[id]
	if ok {
		delete(s.consumers, id)
		delete(s.spawnResults, id)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.mem.Begin()
	c.mem.End()
}

// RunSpawnStage enters every woken consumer's hook body under the spawn
// stage, in parallel via errgroup: spawned tasks execute concurrently and
// their completion order is unobservable. Consumers that were
// not woken are skipped entirely (their body is never entered) and their
// wake flag does not reset until they actually run, so an externally
// triggered Wake persists until consumed.
func (s *Scheduler) RunSpawnStage(ctx context.Context) error {
	s.mu.Lock()
	entries := make([]*consumerEntry, 0, len(s.consumers))
	for _, c := range s.consumers {
		entries = append(entries, c)
	}
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	results := make([]UseResult[any], len(entries))

	woken := 0
	for i, c := range entries {
		i, c := i, c
		if !c.waked {
			results[i] = NotInStage[any]()
			continue
		}
		woken++
		cctx, cancel := context.WithCancel(gctx)
		c.cancel = cancel

		g.Go(func() error {
			cx := &HookCx{stage: SpawnStage, mem: c.mem, waked: true, sched: s, consumer: c.id}
			c.mem.Begin()
			r := c.body(cx)
			c.mem.End()

			if fut, ok := r.IfSpawnStageFuture(); ok {
				v, err := fut(cctx)
				if err != nil {
					for _, ext := range s.extensions {
						ext.OnConsumerError(c.id, err)
					}
					return err
				}
				results[i] = SpawnStageReady[any](v)
				return nil
			}
			results[i] = r
			return nil
		})
	}

	for _, ext := range s.extensions {
		ext.OnSpawnStage(ctx, woken)
	}

	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	for i, c := range entries {
		s.spawnResults[c.id] = results[i]
		c.waked = false
	}
	s.mu.Unlock()
	return nil
}

// RunResolveStage re-enters every consumer's hook body under the resolve
// stage, single-threaded and in registration order. Consumers whose
// spawn-stage result was NotInStage are skipped.
func (s *Scheduler) RunResolveStage() map[ConsumerID]UseResult[any] {
	s.mu.Lock()
	entries := make([]*consumerEntry, 0, len(s.consumers))
	// ids are handed out in increasing order by Register.
	for id := ConsumerID(1); id <= ConsumerID(s.nextID); id++ {
		if c, ok := s.consumers[id]; ok {
			entries = append(entries, c)
		}
	}
	spawnResults := s.spawnResults
	s.spawnResults = make(map[ConsumerID]UseResult[any])
	s.mu.Unlock()

	out := make(map[ConsumerID]UseResult[any], len(entries))
	for _, c := range entries {
		sr, ok := spawnResults[c.id]
		if !ok || sr.IsNotInStage() {
			continue
		}
		cx := &HookCx{stage: ResolveStage, mem: c.mem, waked: true, sched: s, consumer: c.id}
		c.mem.Begin()
		r := c.body(cx)
		c.mem.End()
		out[c.id] = r
	}

	s.endOfFrameResetShared()
	for _, ext := range s.extensions {
		ext.OnResolveStage(len(out))
	}
	return out
}

// RunFrame drives one complete spawn-then-resolve cycle and returns the
// resolve-stage results keyed by consumer.
func (s *Scheduler) RunFrame(ctx context.Context) (map[ConsumerID]UseResult[any], error) {
	if err := s.RunSpawnStage(ctx); err != nil {
		return nil, err
	}
	return s.RunResolveStage(), nil
}

// NewFrameID returns a fresh, process-unique id for a frame or execution
// node, used by diagnostics.
func NewFrameID() string { return uuid.NewString() }
