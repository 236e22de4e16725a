// Package recs implements the reactive core of a 3D scene engine: a
// column-oriented entity-component store, the query algebra that turns its
// write events into incrementally maintained derived views, a hook-structured
// compute scheduler that drives per-frame re-derivation, and a set of GPU
// mirror adapters that translate derived views into buffer writes.
//
// # Overview
//
// The module is organized as five layered packages:
//
//  1. handle: generational entity identity (Arena, RawEntityHandle, the
//     phantom-typed EntityHandle[E]).
//  2. ecdb: the column store itself — Database, EntityComponentGroup,
//     ComponentHandle[V], the writer/transaction protocol, and live watchers.
//  3. query: the reactive query algebra — Query/DualQuery/TriQuery,
//     ValueChange's merge law, and combinators (Fanout, IntoRevRef,
//     DeriveTree) that turn change streams into other change streams.
//  4. reactive: the hook-structured Scheduler — a two-phase (spawn, resolve)
//     frame driver over per-consumer hook bodies with call-site-indexed
//     persistent memory, closing over UseResult's four-variant sum type.
//  5. gpumirror: buffer-shaped sinks (uniform, indexed array, growable
//     storage) that apply a frame's ValueChange set as a minimal set of
//     byte-range writes.
//
// serialize builds a snapshot/replay-log subsystem on top of ecdb and query;
// extensions hosts cross-cutting FrameExtension implementations (structured
// logging, derivation-tree debug dumps) that a Scheduler can be configured
// with at construction time; internal/refcount is an advisory reference-count
// tracker, fed by the drain function WatchForeignKey returns and called by
// its owner, never an authority over deletion.
//
// # Basic usage
//
// Declare an entity kind and a component, write through a transaction, and
// watch the result:
//
//	db := ecdb.NewDatabase()
//	mesh := db.DeclareEntity("mesh")
//	color := ecdb.DeclareComponent[[3]float32](mesh)
//
//	watch := ecdb.WatchComponent(color)
//
//	w := ecdb.TypedWriter[MeshEntity](mesh)
//	e := w.NewEntity()
//	ecdb.Write(w, color, e, [3]float32{1, 0, 0})
//
//	dq := watch.Drain()
//	v, _ := dq.View().Access(e.Raw)
//
// # Foreign keys and fanout
//
// A component declared via DeclareForeignKey holds a handle.RawEntityHandle
// pointing at another entity group. Combined with query.IntoRevRef and
// query.Fanout, a change to a shared target (e.g. a material's albedo)
// propagates to every referencing entity without re-scanning the whole
// column:
//
//	materialFK := ecdb.DeclareForeignKey[MaterialEntity](nodes, materials)
//	rev := query.IntoRevRef[uint32, uint32](nodeToMaterialDualQuery)
//	out := query.Fanout[uint32, uint32, Color](nodeToMaterialDualQuery.View(), albedoDualQuery.View())
//	// ... and on a material's Albedo changing, query.FanoutChanges combines
//	// nodeToMaterialDualQuery.Changes() with rev.InverseView() to re-derive
//	// only the nodes actually referencing the changed material.
//
// # Tree derivation
//
// query.DeriveTree recomputes a combined value (e.g. a world transform) for
// every node reachable from a changed node, walking up to the nearest
// unchanged-to-changed boundary first so unaffected subtrees are never
// revisited:
//
//	deltas := query.DeriveTree(changedNodes, parentOf, localOffsets, cache,
//	    children, combineWorldTransform)
//
// # Driving derivation through a frame
//
// reactive.Scheduler registers hook bodies that run once per frame across two
// stages: Spawn (parallel, may return a future) and Resolve (single-threaded,
// sees every spawn result that settled):
//
//	sched := reactive.NewScheduler(reactive.WithExtension(loggingExt))
//	id := sched.Register(func(cx *reactive.HookCx) reactive.UseResult[any] {
//	    if cx.IsSpawning() {
//	        return reactive.SpawnStageReady[any](nil)
//	    }
//	    // resolve-stage body: drain watchers, derive, push into gpumirror.
//	    return reactive.ResolveStageReady[any](nil)
//	})
//	sched.Wake(id)
//	results, err := sched.RunFrame(context.Background())
//
// # Extensions
//
// FrameExtension observes a Scheduler's frame lifecycle without participating
// in the hook graph:
//
//	type auditExtension struct{ log zerolog.Logger }
//
//	func (a *auditExtension) OnSpawnStage(ctx context.Context, woken int) {
//	    a.log.Info().Int("woken", woken).Msg("spawn stage")
//	}
//
//	func (a *auditExtension) OnResolveStage(results int) {}
//
//	func (a *auditExtension) OnConsumerError(id reactive.ConsumerID, err error) {
//	    a.log.Error().Err(err).Uint64("consumer", uint64(id)).Msg("consumer failed")
//	}
//
//	sched := reactive.NewScheduler(reactive.WithExtension(&auditExtension{log}))
package recs
