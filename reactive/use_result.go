// Package reactive implements the hook-structured compute scheduler: a
// two-phase (spawn, resolve) frame driver over per-consumer hook bodies
// whose call-site-indexed memory cells persist across frames.
//
// UseResult is a closed four-variant sum type describing what a hook body
// returned from a given stage — never an unsafe stage transmute.
package reactive

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// StageKind distinguishes the frame's current phase. Hooks branch their
// behavior on it; a hook calling a resolve-only helper during Spawn (or
// vice versa) is a stage-mismatch programmer error.
type StageKind uint8

const (
	SpawnStage StageKind = iota
	ResolveStage
)

// useResultKind is UseResult[T]'s closed variant tag.
type useResultKind uint8

const (
	krNotInStage useResultKind = iota
	krSpawnStageFuture
	krSpawnStageReady
	krResolveStageReady
)

// UseResult is the value a hook returns: either concrete data ready now
// (SpawnStageReady/ResolveStageReady), a future that will resolve before the
// next resolve stage (SpawnStageFuture), or NotInStage when the hook found
// nothing to report this call (e.g. skipped by wake pruning).
type UseResult[T any] struct {
	kind   useResultKind
	ready  T
	future func(ctx context.Context) (T, error)
}

func NotInStage[T any]() UseResult[T] { return UseResult[T]{kind: krNotInStage} }

func SpawnStageReady[T any](v T) UseResult[T] { return UseResult[T]{kind: krSpawnStageReady, ready: v} }

func ResolveStageReady[T any](v T) UseResult[T] {
	return UseResult[T]{kind: krResolveStageReady, ready: v}
}

func SpawnStageFuture[T any](fn func(ctx context.Context) (T, error)) UseResult[T] {
	return UseResult[T]{kind: krSpawnStageFuture, future: fn}
}

func (u UseResult[T]) IsResolveStage() bool { return u.kind == krResolveStageReady }
func (u UseResult[T]) IsNotInStage() bool   { return u.kind == krNotInStage }

// IfSpawnStageFuture returns the boxed future and true only if u is a
// SpawnStageFuture.
func (u UseResult[T]) IfSpawnStageFuture() (func(ctx context.Context) (T, error), bool) {
	if u.kind == krSpawnStageFuture {
		return u.future, true
	}
	return nil, false
}

// IfReady returns u's value and true for either *StageReady variant.
func (u UseResult[T]) IfReady() (T, bool) {
	if u.kind == krSpawnStageReady || u.kind == krResolveStageReady {
		return u.ready, true
	}
	var zero T
	return zero, false
}

// ExpectResolveStage panics if u is not ResolveStageReady — the stage
// mismatch is a fatal programmer error.
func (u UseResult[T]) ExpectResolveStage() T {
	if u.kind != krResolveStageReady {
		panic("reactive: expect_resolve_stage called on a UseResult not in the resolve stage")
	}
	return u.ready
}

// IntoFuture converts any variant into a future: ready variants resolve
// immediately, NotInStage yields the zero value, and an existing future
// passes through unchanged.
func (u UseResult[T]) IntoFuture() func(ctx context.Context) (T, error) {
	switch u.kind {
	case krSpawnStageFuture:
		return u.future
	case krSpawnStageReady, krResolveStageReady:
		v := u.ready
		return func(context.Context) (T, error) { return v, nil }
	default:
		return func(context.Context) (T, error) { var zero T; return zero, nil }
	}
}

// MapUseResult transforms a UseResult's payload type, preserving which
// variant it is (it cannot be a method because Go methods can't introduce a
// new type parameter).
func MapUseResult[T, R any](u UseResult[T], fn func(T) R) UseResult[R] {
	switch u.kind {
	case krNotInStage:
		return NotInStage[R]()
	case krSpawnStageReady:
		return SpawnStageReady(fn(u.ready))
	case krResolveStageReady:
		return ResolveStageReady(fn(u.ready))
	default:
		inner := u.future
		return SpawnStageFuture(func(ctx context.Context) (R, error) {
			v, err := inner(ctx)
			if err != nil {
				var zero R
				return zero, err
			}
			return fn(v), nil
		})
	}
}

// JoinUseResult awaits two UseResults together: if both are already
// resolve-stage ready, it combines them directly with no concurrency; if
// either carries a future, both sides run in parallel via errgroup and are
// joined (parallel await, not sequential). A NotInStage on either side
// poisons the join: it panics.
func JoinUseResult[A, B, R any](a UseResult[A], b UseResult[B], combine func(A, B) R) UseResult[R] {
	if a.kind == krNotInStage || b.kind == krNotInStage {
		panic("reactive: join source corrupted: a dependency was not in stage")
	}
	if a.kind == krResolveStageReady && b.kind == krResolveStageReady {
		return ResolveStageReady(combine(a.ready, b.ready))
	}
	af := a.IntoFuture()
	bf := b.IntoFuture()
	return SpawnStageFuture(func(ctx context.Context) (R, error) {
		var av A
		var bv B
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			v, err := af(gctx)
			av = v
			return err
		})
		g.Go(func() error {
			v, err := bf(gctx)
			bv = v
			return err
		})
		if err := g.Wait(); err != nil {
			var zero R
			return zero, err
		}
		return combine(av, bv), nil
	})
}
