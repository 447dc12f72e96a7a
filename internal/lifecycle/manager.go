// Package lifecycle drives the coordination-service connection: the initial
// connect loop, the session-loss listener, and the background reconnect
// task. One Manager owns one client's connection state for its lifetime.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pkt.systems/pslog"

	"github.com/onyxstream/coordlog/internal/clock"
	"github.com/onyxstream/coordlog/internal/coordclient"
	"github.com/onyxstream/coordlog/internal/loggingutil"
)

// DefaultConnectAttempt bounds each individual BlockUntilConnected attempt
// during the initial connect loop and during reconnects.
const DefaultConnectAttempt = 5 * time.Second

// Config configures a connection lifecycle Manager.
type Config struct {
	// Client is the coordination client whose connection this Manager owns.
	Client coordclient.ListenableClient
	// ConnectAttempt bounds each connect attempt; defaults to
	// DefaultConnectAttempt.
	ConnectAttempt time.Duration
	// Logger receives lifecycle transitions; defaults to a disabled logger.
	Logger pslog.Logger
	// Clock is held by the Manager; defaults to clock.Wall{}. Connect
	// attempts are bounded by ConnectAttempt through context deadlines, not
	// through this clock.
	Clock clock.Clock
}

// Manager connects the client, listens for session loss, and reconnects in
// the background. Start blocks until the first session is established; after
// that, session-loss notifications enqueue onto a single-slot restart channel
// drained by one background goroutine, so at most one reconnect is in flight
// and repeated loss notifications collapse into it.
type Manager struct {
	client  coordclient.ListenableClient
	attempt time.Duration
	logger  pslog.Logger
	clock   clock.Clock

	restart chan struct{}
	kill    chan struct{}
	done    chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
}

// New constructs a Manager for the supplied client.
func New(cfg Config) (*Manager, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("lifecycle: client required")
	}
	attempt := cfg.ConnectAttempt
	if attempt <= 0 {
		attempt = DefaultConnectAttempt
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Wall{}
	}
	return &Manager{
		client:  cfg.Client,
		attempt: attempt,
		logger:  loggingutil.WithSubsystem(cfg.Logger, loggingutil.Subsystem("coordlog", "lifecycle")),
		clock:   clk,
		restart: make(chan struct{}, 1),
		kill:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// Start blocks until the client reports a live session, registers the
// session-loss listener, and launches the reconnect goroutine. It is
// idempotent; only the first call does the work.
func (m *Manager) Start(ctx context.Context) error {
	var err error
	m.startOnce.Do(func() {
		for !m.client.BlockUntilConnected(ctx, m.attempt) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = fmt.Errorf("lifecycle: initial connect: %w", ctxErr)
				return
			}
			m.logger.Warn("connect attempt timed out, retrying", "attempt", m.attempt)
		}
		m.client.AddStateListener(m)
		m.started = true
		go m.reconnectLoop()
		m.logger.Info("connected")
	})
	return err
}

// OnStateChange implements coordclient.StateListener. A StateLost transition
// enqueues a reconnect signal; the single-slot channel drops the signal when
// a reconnect is already pending.
func (m *Manager) OnStateChange(state coordclient.ConnState) {
	if state != coordclient.StateLost {
		return
	}
	select {
	case m.restart <- struct{}{}:
		m.logger.Warn("session lost, reconnect queued")
	default:
	}
}

func (m *Manager) reconnectLoop() {
	defer close(m.done)
	for {
		select {
		case <-m.kill:
			return
		case <-m.restart:
		}
		for {
			select {
			case <-m.kill:
				return
			default:
			}
			ctx, cancel := context.WithTimeout(context.Background(), m.attempt)
			ok := m.client.BlockUntilConnected(ctx, m.attempt)
			cancel()
			if ok {
				m.logger.Info("reconnected")
				break
			}
			m.logger.Warn("reconnect attempt timed out, retrying", "attempt", m.attempt)
		}
	}
}

// Connected reports whether the client currently holds a live session.
func (m *Manager) Connected() bool {
	return m.client.IsStarted()
}

// Await blocks until the client holds a live session or ctx is done.
func (m *Manager) Await(ctx context.Context) error {
	for !m.client.BlockUntilConnected(ctx, m.attempt) {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Stop removes the session-loss listener, cancels the reconnect goroutine,
// and closes the client if it is still started. The listener is removed
// before the client closes so no callback can race the shutdown.
func (m *Manager) Stop() error {
	var err error
	m.stopOnce.Do(func() {
		if !m.started {
			close(m.kill)
			close(m.done)
			if m.client.IsStarted() {
				err = m.client.Close()
			}
			return
		}
		m.client.RemoveStateListener(m)
		close(m.kill)
		<-m.done
		if m.client.IsStarted() {
			err = m.client.Close()
		}
		m.logger.Info("stopped")
	})
	return err
}
