package coordlog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/onyxstream/coordlog/internal/coordclient"
	"github.com/onyxstream/coordlog/internal/metrics"
)

// Operations carried by Entry.Op.
const (
	// OpSetReplica marks the synthetic entry a subscriber emits before real
	// entries: the consumer must replace its replica with Entry.Replica and
	// expect the next real entry at Entry.MessageID+1.
	OpSetReplica = "set-replica!"
	// OpLogEntry marks a real log entry.
	OpLogEntry = "log-entry"
)

// ErrIncompatibleLogVersion is returned by Subscribe when the cluster's
// log-parameters node carries a log version this build does not speak.
var ErrIncompatibleLogVersion = errors.New("coordlog: incompatible log version")

// LogParameters is the cluster-wide parameter set stored at
// P/log-parameters/log-parameters.
type LogParameters struct {
	LogVersion int64 `yaml:"log-version" json:"log-version"`
}

// Entry is one element of a subscriber's output stream. Exactly one of the
// three shapes is populated: a synthetic set-replica entry (Op, MessageID,
// Replica), a real log entry (Op, MessageID, CreatedAt, Value), or a
// terminal error (Err). After an Err entry the subscriber has exited and the
// caller is expected to recreate it once reconnected.
type Entry struct {
	Op        string
	MessageID int64
	CreatedAt time.Time
	Value     any
	Replica   any
	Err       error
}

// InitialState is the aggregate Subscribe returns once the tail is ready:
// the origin snapshot's replica merged with the cluster parameters.
type InitialState struct {
	Replica    any
	Parameters LogParameters
}

// Subscription is the handle on a running subscriber task.
type Subscription struct {
	kill     chan struct{}
	done     chan struct{}
	killOnce sync.Once
}

// Stop signals the subscriber to terminate and waits for it to exit. Safe to
// call more than once.
func (s *Subscription) Stop() {
	s.killOnce.Do(func() { close(s.kill) })
	<-s.done
}

// Done is closed when the subscriber task has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Subscribe starts a resumable tail of the log onto out. The subscriber
// first emits a synthetic set-replica entry carrying the origin snapshot's
// replica, then every log entry from origin.MessageID+1 upward in strictly
// increasing order, blocking on a children watch when it reaches the head.
// An entry missing where one was expected (garbage-collected beneath the
// cursor) triggers a re-seek: the origin is re-read, a fresh set-replica
// entry is emitted, and the cursor restarts at origin.MessageID+1.
//
// Sends on out block; a slow consumer stalls this subscriber only. Failures
// are surfaced as a final Entry with Err set, after which the task exits;
// recovery across a connection loss is the caller's recreate-and-resubscribe.
func (b *Backend) Subscribe(ctx context.Context, out chan<- Entry) (InitialState, *Subscription, error) {
	params, err := b.awaitLogParameters(ctx)
	if err != nil {
		return InitialState{}, nil, err
	}
	if params.LogVersion != CurrentLogVersion {
		return InitialState{}, nil, fmt.Errorf("%w: cluster has %d, this build speaks %d",
			ErrIncompatibleLogVersion, params.LogVersion, CurrentLogVersion)
	}
	origin, err := b.readOrigin(ctx)
	if err != nil {
		return InitialState{}, nil, err
	}
	sub := &Subscription{
		kill: make(chan struct{}),
		done: make(chan struct{}),
	}
	go b.tail(ctx, sub, out, origin)
	b.logger.Debug("subscriber started", "origin_message_id", origin.MessageID)
	return InitialState{Replica: origin.Replica, Parameters: params}, sub, nil
}

// awaitLogParameters reads the cluster parameters, retrying on any failure
// with a fixed delay. The retry is unbounded short of ctx cancellation;
// peers cannot make progress without the parameters.
func (b *Backend) awaitLogParameters(ctx context.Context) (LogParameters, error) {
	for {
		data, _, err := b.client.Get(ctx, b.paths.LogParameters())
		if err == nil {
			var params LogParameters
			if err = b.codec.Decode(data, &params); err == nil {
				return params, nil
			}
		}
		if errors.Is(err, coordclient.ErrClosed) {
			return LogParameters{}, err
		}
		b.logger.Warn("log parameters unavailable, retrying",
			"delay", b.cfg.LogParametersRetryDelay, "error", err)
		select {
		case <-ctx.Done():
			return LogParameters{}, ctx.Err()
		case <-b.clock.After(b.cfg.LogParametersRetryDelay):
		}
	}
}

// tail is the subscriber task. position always points at the next entry to
// deliver; it only advances after a successful emit, so a watch that fired
// on a GC delete rather than a create re-checks the same position and takes
// the re-seek path instead of skipping an entry.
func (b *Backend) tail(ctx context.Context, sub *Subscription, out chan<- Entry, origin Origin) {
	defer close(sub.done)
	if !b.send(sub, out, Entry{Op: OpSetReplica, MessageID: origin.MessageID, Replica: origin.Replica}) {
		return
	}
	position := origin.MessageID + 1
	for {
		select {
		case <-sub.kill:
			return
		default:
		}
		entryPath := b.paths.LogEntry(position)
		st, err := b.client.Exists(ctx, entryPath, nil)
		if err != nil {
			b.fail(sub, out, coordclient.Guard(err))
			return
		}
		if st != nil {
			next, ok := b.readEmit(ctx, sub, out, position)
			if !ok {
				return
			}
			position = next
			continue
		}

		// The entry is missing. When the origin has advanced to or past the
		// cursor, the entry was collected and will never reappear; re-seek
		// instead of waiting for a create that cannot happen.
		current, err := b.readOrigin(ctx)
		if err != nil {
			b.fail(sub, out, err)
			return
		}
		if current.MessageID >= position {
			next, ok := b.reseekTo(sub, out, current, position)
			if !ok {
				return
			}
			position = next
			continue
		}

		// Head of the log. Arm a one-shot children watch, then re-check the
		// position to close the registration-vs-creation race before
		// blocking.
		fired := make(chan struct{}, 1)
		watch := func() {
			select {
			case fired <- struct{}{}:
			default:
			}
		}
		if _, err := b.client.Children(ctx, b.paths.LogRoot(), watch); err != nil {
			b.fail(sub, out, coordclient.Guard(err))
			return
		}
		st, err = b.client.Exists(ctx, entryPath, nil)
		if err != nil {
			b.fail(sub, out, coordclient.Guard(err))
			return
		}
		if st != nil {
			next, ok := b.readEmit(ctx, sub, out, position)
			if !ok {
				return
			}
			position = next
			continue
		}
		select {
		case <-sub.kill:
			return
		case <-fired:
			// The child set changed: a create at our position, a create
			// beyond it, or a GC delete. Loop and re-check; the exists
			// check decides between read, wait again, and re-seek.
		}
	}
}

// readEmit reads the entry at position, emits it, and returns the next
// cursor position. A NoNode or NodeExists during the read means the entry
// was collected beneath us; re-seek to the origin instead.
func (b *Backend) readEmit(ctx context.Context, sub *Subscription, out chan<- Entry, position int64) (int64, bool) {
	start := b.clock.Now()
	data, st, err := b.client.Get(ctx, b.paths.LogEntry(position))
	if err != nil {
		if errors.Is(err, coordclient.ErrNoNode) || errors.Is(err, coordclient.ErrNodeExists) {
			return b.reseek(ctx, sub, out, position)
		}
		b.fail(sub, out, coordclient.Guard(err))
		return 0, false
	}
	value, err := b.decode(data)
	if err != nil {
		b.fail(sub, out, err)
		return 0, false
	}
	b.metrics.Emit("read_log_entry", metrics.Latency(b.clock.Now().Sub(start)), metrics.Position(position))
	if !b.send(sub, out, Entry{Op: OpLogEntry, MessageID: position, CreatedAt: st.Ctime, Value: value}) {
		return 0, false
	}
	return position + 1, true
}

// reseek re-reads the origin snapshot, emits a fresh set-replica entry, and
// restarts the cursor just past the snapshot.
func (b *Backend) reseek(ctx context.Context, sub *Subscription, out chan<- Entry, position int64) (int64, bool) {
	origin, err := b.readOrigin(ctx)
	if err != nil {
		b.fail(sub, out, err)
		return 0, false
	}
	return b.reseekTo(sub, out, origin, position)
}

func (b *Backend) reseekTo(sub *Subscription, out chan<- Entry, origin Origin, position int64) (int64, bool) {
	b.logger.Debug("re-seeking to origin", "from_position", position, "origin_message_id", origin.MessageID)
	if !b.send(sub, out, Entry{Op: OpSetReplica, MessageID: origin.MessageID, Replica: origin.Replica}) {
		return 0, false
	}
	return origin.MessageID + 1, true
}

// send delivers e on out, or returns false when the subscription was killed
// while blocked.
func (b *Backend) send(sub *Subscription, out chan<- Entry, e Entry) bool {
	select {
	case out <- e:
		return true
	case <-sub.kill:
		return false
	}
}

// fail emits a terminal error entry unless the subscription was killed.
func (b *Backend) fail(sub *Subscription, out chan<- Entry, err error) {
	b.logger.Warn("subscriber terminating", "error", err)
	select {
	case out <- Entry{Err: err}:
	case <-sub.kill:
	}
}
