// Package extensions provides cross-cutting FrameExtension implementations
// for reactive.Scheduler: structured logging and derivation-tree debug
// dumps that observe a scheduler's frame lifecycle without participating in
// the hook graph itself.
package extensions

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/reactivescene/recs/reactive"
)

// LoggingExtension logs every spawn/resolve stage and consumer error through
// structured zerolog events.
type LoggingExtension struct {
	log   zerolog.Logger
	spawn time.Time
}

func NewLoggingExtension(log zerolog.Logger) *LoggingExtension {
	return &LoggingExtension{log: log.With().Str("component", "reactive.scheduler").Logger()}
}

func (e *LoggingExtension) OnSpawnStage(ctx context.Context, woken int) {
	e.spawn = time.Now()
	e.log.Debug().Int("woken_consumers", woken).Msg("spawn stage starting")
}

func (e *LoggingExtension) OnResolveStage(results int) {
	e.log.Debug().
		Int("resolved_consumers", results).
		Dur("frame_duration", time.Since(e.spawn)).
		Msg("resolve stage complete")
}

func (e *LoggingExtension) OnConsumerError(id reactive.ConsumerID, err error) {
	e.log.Error().Uint64("consumer_id", uint64(id)).Err(err).Msg("spawned task failed")
}

var _ reactive.FrameExtension = (*LoggingExtension)(nil)
