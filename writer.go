package coordlog

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/onyxstream/coordlog/internal/coordclient"
	"github.com/onyxstream/coordlog/internal/metrics"
)

// WriteLogEntry appends value to the log and returns the position the
// coordination service assigned. Ordering is delegated entirely to the
// service's sequential-node semantics; concurrent writers need no in-process
// coordination.
func (b *Backend) WriteLogEntry(ctx context.Context, value any) (int64, error) {
	start := b.clock.Now()
	data, err := b.codec.Encode(value)
	if err != nil {
		return 0, err
	}
	created, err := b.client.Create(ctx, b.paths.LogEntrySeqPrefix(), data, true, true)
	if err != nil {
		return 0, coordclient.Guard(err)
	}
	position, err := parseEntryPosition(path.Base(created))
	if err != nil {
		return 0, err
	}
	b.metrics.Emit("write_log_entry", metrics.Latency(b.clock.Now().Sub(start)), metrics.Bytes(len(data)), metrics.Position(position))
	b.logger.Trace("log entry written", "position", position, "bytes", len(data))
	return position, nil
}

// parseEntryPosition extracts the position from a log entry node name.
func parseEntryPosition(name string) (int64, error) {
	suffix, ok := strings.CutPrefix(name, logEntryPrefix)
	if !ok {
		return 0, fmt.Errorf("coordlog: malformed log entry node %q", name)
	}
	return coordclient.ParseSequentialID(suffix)
}
