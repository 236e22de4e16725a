package extensions

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/reactivescene/recs/query"
	"github.com/reactivescene/recs/reactive"
)

// TreeSnapshot is a caller-supplied accessor returning the current roots and
// parent/child shape of whatever derivation tree the embedder wants dumped
// on error (e.g. the scene graph's transform tree). label formats a node key
// for display. This is the one piece GraphDebugExtension cannot discover on
// its own, since the core has no single global scene tree.
type TreeSnapshot[K comparable] struct {
	Roots    []K
	Children map[K][]K
	Label    func(K) string
}

// GraphDebugExtension logs a query.DumpTree rendering of a scene derivation
// tree whenever a consumer's spawned task fails.
type GraphDebugExtension[K comparable] struct {
	mu       sync.Mutex
	log      zerolog.Logger
	snapshot func() TreeSnapshot[K]
}

// NewGraphDebugExtension wires snapshot as the tree dumped on every
// OnConsumerError call.
func NewGraphDebugExtension[K comparable](log zerolog.Logger, snapshot func() TreeSnapshot[K]) *GraphDebugExtension[K] {
	return &GraphDebugExtension[K]{
		log:      log.With().Str("component", "graph-debug").Logger(),
		snapshot: snapshot,
	}
}

func (e *GraphDebugExtension[K]) OnSpawnStage(ctx context.Context, woken int)  {}
func (e *GraphDebugExtension[K]) OnResolveStage(results int)                  {}

func (e *GraphDebugExtension[K]) OnConsumerError(id reactive.ConsumerID, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.snapshot()
	rendered := query.DumpTree(snap.Roots, snap.Children, snap.Label)

	e.log.Error().
		Uint64("consumer_id", uint64(id)).
		Err(err).
		Str("derivation_tree", rendered).
		Msg("consumer failed; dumping derivation tree")
}

var _ reactive.FrameExtension = (*GraphDebugExtension[string])(nil)
