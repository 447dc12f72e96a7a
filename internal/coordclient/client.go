// Package coordclient defines the thin adapter boundary over an external
// ZooKeeper-equivalent coordination service: hierarchical paths, persistent
// and ephemeral and sequential creation modes, one-shot watches, and
// version-counted CAS writes. The package carries no business logic; it is
// the contract every backend (memtest, diskfs, or a future real driver)
// implements, and the point at which connection-loss errors are normalized
// for callers further up the stack.
package coordclient

import (
	"context"
	"errors"
	"time"
)

// Error kinds normalized by every Client implementation. Callers compare
// against these with errors.Is; backends must never leak their own
// driver-specific error types across this boundary.
var (
	// ErrNoNode indicates a read or write targeted a path that does not exist.
	ErrNoNode = errors.New("coordclient: no node")
	// ErrNodeExists indicates a create targeted a path that already exists.
	ErrNodeExists = errors.New("coordclient: node exists")
	// ErrBadVersion indicates a CAS write's expected version did not match.
	ErrBadVersion = errors.New("coordclient: bad version")
	// ErrConnectionLoss indicates a transient loss of the underlying session.
	ErrConnectionLoss = errors.New("coordclient: connection loss")
	// ErrSessionExpired indicates the underlying session expired and must be
	// re-established; ephemeral nodes owned by the session are gone.
	ErrSessionExpired = errors.New("coordclient: session expired")
	// ErrClosed indicates the client has been closed.
	ErrClosed = errors.New("coordclient: closed")
	// ErrOther wraps any backend failure that doesn't map to a specific kind.
	ErrOther = errors.New("coordclient: other")
)

// Stat carries the version counter and creation time of a node, returned
// alongside data reads and existence checks. EntryCount is the node's
// current child count, populated by Exists on backends that can supply it
// cheaply; it serves diagnostics only and no core algorithm reads it.
type Stat struct {
	Version    int64
	Ctime      time.Time
	EntryCount int
}

// WatchFunc is invoked at most once for the watch it was registered with,
// when the watched path or its children changes. Backends must guarantee
// at-most-once delivery per registration.
type WatchFunc func()

// Client is the coordination-service adapter every component in this module
// is built on. Implementations must be safe for concurrent use by multiple
// writers and subscribers.
type Client interface {
	// Create makes a single node. The parent of path must already exist,
	// except when sequential is true, in which case path is treated as a
	// sequential-node name prefix and the returned path has the assigned
	// numeric suffix appended.
	Create(ctx context.Context, path string, data []byte, persistent, sequential bool) (string, error)
	// CreateAll behaves like Create but creates any missing intermediate
	// parents first. It never creates sequential nodes.
	CreateAll(ctx context.Context, path string, data []byte, persistent bool) (string, error)
	// Exists reports whether path exists and, if watch is non-nil, arms a
	// one-shot watch that fires on the next change to path (data write,
	// delete, or, for watches armed via Exists specifically, creation).
	Exists(ctx context.Context, path string, watch WatchFunc) (*Stat, error)
	// Get reads the data and Stat at path. Returns ErrNoNode if absent.
	Get(ctx context.Context, path string) ([]byte, Stat, error)
	// Set performs a CAS write: it succeeds only if the node's current
	// version equals expectedVersion, and returns the new version.
	Set(ctx context.Context, path string, data []byte, expectedVersion int64) (int64, error)
	// Children lists the immediate child names of path (not full paths). If
	// watch is non-nil, arms a one-shot watch that fires the next time the
	// child set changes (creation or deletion of an immediate child).
	Children(ctx context.Context, path string, watch WatchFunc) ([]string, error)
	// Delete removes the node at path. Returns ErrNoNode if absent.
	Delete(ctx context.Context, path string) error
	// Close releases the client's session and any ephemeral nodes it owns.
	Close() error
	// IsStarted reports whether the client has been started and not closed.
	IsStarted() bool
	// BlockUntilConnected waits up to timeout for a live session, returning
	// true if one is established within the deadline.
	BlockUntilConnected(ctx context.Context, timeout time.Duration) bool
}

// StateListener receives connection-state transitions. Lost is delivered on
// session loss; Connected is delivered once a new session is established.
type StateListener interface {
	OnStateChange(state ConnState)
}

// ConnState enumerates the connection states a Client may report to a
// registered StateListener.
type ConnState int

const (
	// StateUnknown is the zero value; no transition has been observed yet.
	StateUnknown ConnState = iota
	// StateConnected indicates a live session.
	StateConnected
	// StateLost indicates the session was lost and must be re-established.
	StateLost
)

// ListenableClient is implemented by backends that support registering and
// removing a single StateListener, the hook the connection lifecycle manager
// depends on to learn about session loss.
type ListenableClient interface {
	Client
	AddStateListener(StateListener)
	RemoveStateListener(StateListener)
}
