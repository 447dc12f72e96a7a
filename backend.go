package coordlog

import (
	"context"
	"fmt"
	"sync"

	"pkt.systems/pslog"

	"github.com/onyxstream/coordlog/internal/clock"
	"github.com/onyxstream/coordlog/internal/codec"
	"github.com/onyxstream/coordlog/internal/coordclient"
	"github.com/onyxstream/coordlog/internal/coordclient/diskfs"
	"github.com/onyxstream/coordlog/internal/coordclient/memtest"
	"github.com/onyxstream/coordlog/internal/lifecycle"
	"github.com/onyxstream/coordlog/internal/loggingutil"
	"github.com/onyxstream/coordlog/internal/metrics"
)

// Backend is one peer's handle on the coordination log: the log writer and
// subscriber, the chunk store, the origin manager, pulse registration, and
// GC all hang off it. A Backend owns one coordination client and is safe for
// concurrent use by multiple writers and subscribers.
type Backend struct {
	cfg     Config
	client  coordclient.Client
	codec   codec.Codec
	paths   Paths
	metrics metrics.Emitter
	logger  pslog.Logger
	clock   clock.Clock

	lifecycle *lifecycle.Manager

	closeOnce sync.Once
	closeErr  error
}

// New validates cfg and constructs a Backend. The coordination client is
// built (or taken from cfg.Client) but not yet connected; call Start.
func New(cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	paths, err := NewPaths(cfg.TenancyID)
	if err != nil {
		return nil, err
	}
	cdc, err := codec.ForName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Wall{}
	}
	emitter := cfg.Metrics
	if emitter == nil {
		emitter = metrics.Noop{}
	}
	client := cfg.Client
	if client == nil {
		switch cfg.Backend {
		case BackendMem:
			client = memtest.NewWithConfig(memtest.Config{Clock: clk})
		case BackendDisk:
			client, err = diskfs.New(diskfs.Config{Root: cfg.BackendRoot, Clock: clk})
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("coordlog: unknown backend %q", cfg.Backend)
		}
	}
	logger := loggingutil.WithSubsystem(cfg.Logger, "coordlog").With("tenancy", cfg.TenancyID)
	b := &Backend{
		cfg:     cfg,
		client:  client,
		codec:   cdc,
		paths:   paths,
		metrics: emitter,
		logger:  logger,
		clock:   clk,
	}
	if lc, ok := client.(coordclient.ListenableClient); ok {
		manager, err := lifecycle.New(lifecycle.Config{
			Client:         lc,
			ConnectAttempt: cfg.ConnectAttempt,
			Logger:         cfg.Logger,
			Clock:          clk,
		})
		if err != nil {
			return nil, err
		}
		b.lifecycle = manager
	}
	return b, nil
}

// Start connects the coordination client, blocking until the first session
// is established, and launches the reconnect driver.
func (b *Backend) Start(ctx context.Context) error {
	if b.lifecycle == nil {
		if !b.client.BlockUntilConnected(ctx, b.cfg.ConnectAttempt) {
			return fmt.Errorf("coordlog: connect to %s: %w", b.cfg.Address, ctx.Err())
		}
		return nil
	}
	return b.lifecycle.Start(ctx)
}

// Close stops the reconnect driver and releases the coordination client,
// deleting any ephemeral nodes (pulses) this session owns.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		if b.lifecycle != nil {
			b.closeErr = b.lifecycle.Stop()
			return
		}
		if b.client.IsStarted() {
			b.closeErr = b.client.Close()
		}
	})
	return b.closeErr
}

// Paths exposes the tenancy's path derivations.
func (b *Backend) Paths() Paths { return b.paths }

// Client exposes the underlying coordination client. Intended for
// diagnostics and tests; production callers go through the typed
// operations.
func (b *Backend) Client() coordclient.Client { return b.client }

// decode unmarshals node payload bytes into a generic value.
func (b *Backend) decode(data []byte) (any, error) {
	var out any
	if err := b.codec.Decode(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
