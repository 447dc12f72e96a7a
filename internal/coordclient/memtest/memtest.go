// Package memtest implements an in-process coordclient.Client over a
// mutex-guarded tree of nodes: the embedded testing coordination server.
// Tests and local development use it in place of a real ZooKeeper-equivalent
// cluster; it supports ephemeral, persistent, and sequential creation,
// one-shot watches, and version-counted CAS writes.
package memtest

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/onyxstream/coordlog/internal/clock"
	"github.com/onyxstream/coordlog/internal/coordclient"
)

// Config controls the in-memory store's behaviour.
type Config struct {
	// Clock supplies node creation timestamps; defaults to clock.Wall{}.
	Clock clock.Clock
}

type node struct {
	data       []byte
	version    int64
	ctime      time.Time
	persistent bool
	children   map[string]struct{}
	nextSeq    int64

	existsWatchers   []coordclient.WatchFunc
	childrenWatchers []coordclient.WatchFunc
}

// Store is an in-process coordclient.Client. The zero value is not usable;
// construct with New or NewWithConfig.
type Store struct {
	mu      sync.Mutex
	clock   clock.Clock
	nodes   map[string]*node
	started bool
	closed  bool

	listeners []coordclient.StateListener
}

// New returns a ready-to-use in-memory store rooted at "/".
func New() *Store {
	return NewWithConfig(Config{})
}

// NewWithConfig returns a ready-to-use in-memory store configured per cfg.
func NewWithConfig(cfg Config) *Store {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Wall{}
	}
	s := &Store{
		clock: clk,
		nodes: map[string]*node{
			"/": {persistent: true, children: map[string]struct{}{}, ctime: clk.Now()},
		},
		started: true,
	}
	return s
}

func normalize(p string) string {
	p = path.Clean("/" + p)
	return p
}

func parentOf(p string) string {
	dir := path.Dir(p)
	if dir == "." {
		return "/"
	}
	return dir
}

func baseOf(p string) string {
	return path.Base(p)
}

// Create implements coordclient.Client.
func (s *Store) Create(ctx context.Context, p string, data []byte, persistent, sequential bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p = normalize(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.closed {
		return "", coordclient.ErrClosed
	}
	parentPath := parentOf(p)
	parent, ok := s.nodes[parentPath]
	if !ok {
		return "", coordclient.ErrNoNode
	}
	finalPath := p
	name := baseOf(p)
	if sequential {
		seq := parent.nextSeq
		parent.nextSeq++
		name = name + coordclient.PadSequentialID(seq)
		finalPath = path.Join(parentPath, name)
	}
	if _, exists := s.nodes[finalPath]; exists {
		return "", coordclient.ErrNodeExists
	}
	n := &node{
		data:       append([]byte(nil), data...),
		version:    0,
		ctime:      s.clock.Now(),
		persistent: persistent,
		children:   map[string]struct{}{},
	}
	s.nodes[finalPath] = n
	parent.children[baseOf(finalPath)] = struct{}{}
	s.fireChildrenWatchers(parent)
	s.fireExistsWatchers(s.nodes[finalPath])
	return finalPath, nil
}

// CreateAll implements coordclient.Client.
func (s *Store) CreateAll(ctx context.Context, p string, data []byte, persistent bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p = normalize(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.closed {
		return "", coordclient.ErrClosed
	}
	segments := strings.Split(strings.TrimPrefix(p, "/"), "/")
	cur := "/"
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		cur = path.Join(cur, seg)
		leaf := i == len(segments)-1
		if _, ok := s.nodes[cur]; ok {
			if leaf {
				return "", coordclient.ErrNodeExists
			}
			continue
		}
		parent := s.nodes[parentOf(cur)]
		n := &node{
			version:    0,
			ctime:      s.clock.Now(),
			persistent: true,
			children:   map[string]struct{}{},
		}
		if leaf {
			n.data = append([]byte(nil), data...)
			n.persistent = persistent
		}
		s.nodes[cur] = n
		parent.children[baseOf(cur)] = struct{}{}
		s.fireChildrenWatchers(parent)
		s.fireExistsWatchers(n)
	}
	return p, nil
}

// Exists implements coordclient.Client.
func (s *Store) Exists(ctx context.Context, p string, watch coordclient.WatchFunc) (*coordclient.Stat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p = normalize(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.closed {
		return nil, coordclient.ErrClosed
	}
	n, ok := s.nodes[p]
	if !ok {
		if watch != nil {
			s.armPendingExistsWatch(p, watch)
		}
		return nil, nil
	}
	if watch != nil {
		n.existsWatchers = append(n.existsWatchers, watch)
	}
	return &coordclient.Stat{Version: n.version, Ctime: n.ctime, EntryCount: len(n.children)}, nil
}

// armPendingExistsWatch registers a watch on a path that does not exist yet
// by attaching to its parent's children-watcher list; the wrapper re-checks
// existence on every children change and either fires or re-arms itself.
// Once the store is closed it fires unconditionally.
func (s *Store) armPendingExistsWatch(p string, watch coordclient.WatchFunc) {
	parentPath := parentOf(p)
	parent, ok := s.nodes[parentPath]
	if !ok {
		return
	}
	var wrapped coordclient.WatchFunc
	wrapped = func() {
		s.mu.Lock()
		_, exists := s.nodes[p]
		if !exists && !s.closed {
			if pp, ok := s.nodes[parentPath]; ok {
				pp.childrenWatchers = append(pp.childrenWatchers, wrapped)
			}
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		watch()
	}
	parent.childrenWatchers = append(parent.childrenWatchers, wrapped)
}

// Get implements coordclient.Client.
func (s *Store) Get(ctx context.Context, p string) ([]byte, coordclient.Stat, error) {
	if err := ctx.Err(); err != nil {
		return nil, coordclient.Stat{}, err
	}
	p = normalize(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.closed {
		return nil, coordclient.Stat{}, coordclient.ErrClosed
	}
	n, ok := s.nodes[p]
	if !ok {
		return nil, coordclient.Stat{}, coordclient.ErrNoNode
	}
	return append([]byte(nil), n.data...), coordclient.Stat{Version: n.version, Ctime: n.ctime}, nil
}

// Set implements coordclient.Client.
func (s *Store) Set(ctx context.Context, p string, data []byte, expectedVersion int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p = normalize(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.closed {
		return 0, coordclient.ErrClosed
	}
	n, ok := s.nodes[p]
	if !ok {
		return 0, coordclient.ErrNoNode
	}
	if n.version != expectedVersion {
		return 0, coordclient.ErrBadVersion
	}
	n.data = append([]byte(nil), data...)
	n.version++
	s.fireExistsWatchers(n)
	return n.version, nil
}

// Children implements coordclient.Client.
func (s *Store) Children(ctx context.Context, p string, watch coordclient.WatchFunc) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p = normalize(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.closed {
		return nil, coordclient.ErrClosed
	}
	n, ok := s.nodes[p]
	if !ok {
		return nil, coordclient.ErrNoNode
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	if watch != nil {
		n.childrenWatchers = append(n.childrenWatchers, watch)
	}
	return names, nil
}

// Delete implements coordclient.Client.
func (s *Store) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p = normalize(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.closed {
		return coordclient.ErrClosed
	}
	n, ok := s.nodes[p]
	if !ok {
		return coordclient.ErrNoNode
	}
	delete(s.nodes, p)
	parentPath := parentOf(p)
	if parent, ok := s.nodes[parentPath]; ok {
		delete(parent.children, baseOf(p))
		s.fireChildrenWatchers(parent)
	}
	s.fireExistsWatchers(n)
	return nil
}

// Close implements coordclient.Client. It marks the store closed and fires
// every outstanding watcher, simulating the session-expiry notification a
// real coordination service delivers on session loss.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var toFire []coordclient.WatchFunc
	for _, n := range s.nodes {
		toFire = append(toFire, n.existsWatchers...)
		toFire = append(toFire, n.childrenWatchers...)
		n.existsWatchers = nil
		n.childrenWatchers = nil
	}
	listeners := append([]coordclient.StateListener(nil), s.listeners...)
	s.mu.Unlock()
	for _, l := range listeners {
		l.OnStateChange(coordclient.StateLost)
	}
	for _, w := range toFire {
		w()
	}
	return nil
}

// IsStarted implements coordclient.Client.
func (s *Store) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.closed
}

// BlockUntilConnected implements coordclient.Client; the in-memory backend is
// always connected once started, so it returns immediately.
func (s *Store) BlockUntilConnected(ctx context.Context, timeout time.Duration) bool {
	return s.IsStarted()
}

// AddStateListener implements coordclient.ListenableClient.
func (s *Store) AddStateListener(l coordclient.StateListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// RemoveStateListener implements coordclient.ListenableClient.
func (s *Store) RemoveStateListener(l coordclient.StateListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.listeners {
		if existing == l {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// SimulateSessionLoss notifies registered listeners of a StateLost
// transition without closing the store, letting tests exercise the
// connection lifecycle manager's reconnect driver in isolation.
func (s *Store) SimulateSessionLoss() {
	s.mu.Lock()
	listeners := append([]coordclient.StateListener(nil), s.listeners...)
	s.mu.Unlock()
	for _, l := range listeners {
		l.OnStateChange(coordclient.StateLost)
	}
}

func (s *Store) fireExistsWatchers(n *node) {
	watchers := n.existsWatchers
	n.existsWatchers = nil
	for _, w := range watchers {
		go w()
	}
}

func (s *Store) fireChildrenWatchers(n *node) {
	watchers := n.childrenWatchers
	n.childrenWatchers = nil
	for _, w := range watchers {
		go w()
	}
}

