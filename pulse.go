package coordlog

import (
	"context"
	"sync"

	"github.com/onyxstream/coordlog/internal/coordclient"
	"github.com/onyxstream/coordlog/internal/metrics"
)

// RegisterPulse creates the ephemeral liveness node for peerID. The node is
// removed by the coordination service when this session ends. A duplicate
// registration fails with ErrNodeExists.
func (b *Backend) RegisterPulse(ctx context.Context, peerID string) error {
	start := b.clock.Now()
	node, err := b.paths.Pulse(peerID)
	if err != nil {
		return err
	}
	if _, err := b.client.Create(ctx, node, nil, false, false); err != nil {
		return coordclient.Guard(err)
	}
	b.metrics.Emit("register_pulse", metrics.Latency(b.clock.Now().Sub(start)), metrics.ID(peerID))
	b.logger.Debug("pulse registered", "peer", peerID)
	return nil
}

// GroupExists reports whether peerID's pulse node is present.
func (b *Backend) GroupExists(ctx context.Context, peerID string) (bool, error) {
	node, err := b.paths.Pulse(peerID)
	if err != nil {
		return false, err
	}
	st, err := b.client.Exists(ctx, node, nil)
	if err != nil {
		return false, coordclient.Guard(err)
	}
	return st != nil, nil
}

// ListPulses returns the peer ids with a live pulse node.
func (b *Backend) ListPulses(ctx context.Context) ([]string, error) {
	names, err := b.client.Children(ctx, b.paths.PulseRoot(), nil)
	if err != nil {
		return nil, coordclient.Guard(err)
	}
	return names, nil
}

// OnPulseDelete arranges for exactly one true to be sent on out when
// peerID's pulse node is deleted. When the node is already absent at
// registration, or the existence check fails, true is sent immediately.
// Membership tracking layers on this to notice dead peers.
func (b *Backend) OnPulseDelete(ctx context.Context, peerID string, out chan<- bool) error {
	node, err := b.paths.Pulse(peerID)
	if err != nil {
		return err
	}
	w := &pulseWatch{backend: b, path: node, out: out}
	w.arm(ctx)
	return nil
}

// pulseWatch re-arms its one-shot existence watch across data-change fires
// until the node is gone, then delivers exactly once.
type pulseWatch struct {
	backend *Backend
	path    string
	out     chan<- bool
	once    sync.Once
}

func (w *pulseWatch) arm(ctx context.Context) {
	st, err := w.backend.client.Exists(ctx, w.path, w.fire)
	if err != nil || st == nil {
		w.deliver()
	}
}

func (w *pulseWatch) fire() {
	// The watch fires on any change. A data write re-arms; an absent node is
	// the deletion the caller asked about.
	w.arm(context.Background())
}

func (w *pulseWatch) deliver() {
	w.once.Do(func() {
		w.out <- true
	})
}
