package coordlog

import (
	"context"

	"github.com/onyxstream/coordlog/internal/coordclient"
	"github.com/onyxstream/coordlog/internal/metrics"
)

// GCLogEntry deletes the log entry at position. Callers must have advanced
// the origin snapshot to at least position first; subscribers that trip over
// the deleted node recover by re-seeking to the origin.
func (b *Backend) GCLogEntry(ctx context.Context, position int64) error {
	start := b.clock.Now()
	if err := b.client.Delete(ctx, b.paths.LogEntry(position)); err != nil {
		return coordclient.Guard(err)
	}
	b.metrics.Emit("gc_log_entry", metrics.Latency(b.clock.Now().Sub(start)), metrics.Position(position))
	b.logger.Debug("log entry collected", "position", position)
	return nil
}
