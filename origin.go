package coordlog

import (
	"context"
	"errors"
	"fmt"

	"github.com/onyxstream/coordlog/internal/coordclient"
	"github.com/onyxstream/coordlog/internal/metrics"
)

// Origin is the canonical starting state for new subscribers: the replica
// serialized at MessageID. GC of log entries at or below MessageID is safe
// once the snapshot is stored.
type Origin struct {
	MessageID int64 `yaml:"message-id" json:"message-id"`
	Replica   any   `yaml:"replica" json:"replica"`
}

// ReadOrigin reads the current origin snapshot.
func (b *Backend) ReadOrigin(ctx context.Context) (Origin, error) {
	start := b.clock.Now()
	origin, err := b.readOrigin(ctx)
	if err != nil {
		return Origin{}, err
	}
	b.metrics.Emit("read_origin", metrics.Latency(b.clock.Now().Sub(start)), metrics.MessageID(origin.MessageID))
	return origin, nil
}

func (b *Backend) readOrigin(ctx context.Context) (Origin, error) {
	data, _, err := b.client.Get(ctx, b.paths.Origin())
	if err != nil {
		return Origin{}, coordclient.Guard(err)
	}
	var origin Origin
	if err := b.codec.Decode(data, &origin); err != nil {
		return Origin{}, err
	}
	return origin, nil
}

// UpdateOrigin advances the origin snapshot to {messageID, replica} when
// messageID is strictly greater than the stored snapshot's. The write is a
// CAS against the version observed while reading; a concurrent winner's
// ErrBadVersion is treated as a no-op since some future update with a higher
// message id will land. A regression (messageID at or below the stored one)
// is also a no-op.
func (b *Backend) UpdateOrigin(ctx context.Context, replica any, messageID int64) error {
	start := b.clock.Now()
	node := b.paths.Origin()
	st, err := b.client.Exists(ctx, node, nil)
	if err != nil {
		return coordclient.Guard(err)
	}
	if st == nil {
		return fmt.Errorf("coordlog: origin node missing, bootstrap required: %w", coordclient.ErrNoNode)
	}
	current, err := b.readOrigin(ctx)
	if err != nil {
		return err
	}
	if current.MessageID >= messageID {
		b.logger.Trace("origin update skipped", "message_id", messageID, "current", current.MessageID)
		return nil
	}
	data, err := b.codec.Encode(Origin{MessageID: messageID, Replica: replica})
	if err != nil {
		return err
	}
	if _, err := b.client.Set(ctx, node, data, st.Version); err != nil {
		if errors.Is(err, coordclient.ErrBadVersion) {
			b.logger.Trace("origin update lost CAS", "message_id", messageID)
			return nil
		}
		return coordclient.Guard(err)
	}
	b.metrics.Emit("write_origin", metrics.Latency(b.clock.Now().Sub(start)), metrics.MessageID(messageID))
	b.logger.Debug("origin advanced", "message_id", messageID)
	return nil
}
