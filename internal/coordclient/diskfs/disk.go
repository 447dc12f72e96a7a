// Package diskfs implements coordclient.Client over the local filesystem,
// giving the coordlog library a real, durable backend that can be exercised
// without standing up an external ZooKeeper-equivalent cluster. Each logical
// node is a directory; CAS writes are guarded by a per-path mutex plus an
// advisory file lock (read current, compare, atomic rename). Children and
// existence watches are implemented with github.com/fsnotify/fsnotify
// watching the relevant directories, translating filesystem events into
// one-shot watch fires.
package diskfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/onyxstream/coordlog/internal/clock"
	"github.com/onyxstream/coordlog/internal/coordclient"
)

const (
	dataFileName = "data.bin"
	metaFileName = "meta.json"
	seqFileName  = ".seq"
)

type nodeMeta struct {
	Version       int64 `json:"version"`
	CtimeUnixNano int64 `json:"ctime_unix_nano"`
	Persistent    bool  `json:"persistent"`
}

// Config controls the filesystem backend's tunables.
type Config struct {
	// Root is the directory the node tree is rooted at. Required.
	Root string
	// Clock supplies node creation timestamps; defaults to clock.Wall{}.
	Clock clock.Clock
}

// Store is a filesystem-backed coordclient.Client. One Store represents one
// coordination-service session: ephemeral nodes it creates are removed when
// Close is called, simulating session expiry.
type Store struct {
	root  string
	clock clock.Clock
	locks *lockCache

	watcher *fsnotify.Watcher
	watchMu sync.Mutex
	watched map[string]struct{}

	waitMu    sync.Mutex
	existsW   map[string][]coordclient.WatchFunc
	childrenW map[string][]coordclient.WatchFunc

	mu        sync.Mutex
	ephemeral map[string]struct{}
	closed    bool
	started   bool
	listeners []coordclient.StateListener

	done chan struct{}
}

// New initializes a filesystem-backed store rooted at cfg.Root.
func New(cfg Config) (*Store, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("diskfs: root path required")
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Wall{}
	}
	root := filepath.Clean(cfg.Root)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("diskfs: prepare root %q: %w", root, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("diskfs: create watcher: %w", err)
	}
	if err := watcher.Add(root); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("diskfs: watch root: %w", err)
	}
	s := &Store{
		root:      root,
		clock:     clk,
		locks:     newLockCache(),
		watcher:   watcher,
		watched:   map[string]struct{}{root: {}},
		existsW:   map[string][]coordclient.WatchFunc{},
		childrenW: map[string][]coordclient.WatchFunc{},
		ephemeral: map[string]struct{}{},
		started:   true,
		done:      make(chan struct{}),
	}
	go s.dispatchLoop()
	return s, nil
}

func (s *Store) fsPath(logical string) string {
	logical = path.Clean("/" + logical)
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(logical, "/")))
}

func (s *Store) dispatchLoop() {
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(ev.Name)
		case _, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
		case <-s.done:
			return
		}
	}
}

// handleEvent fires any watchers registered against the changed path or its
// parent directory. It over-fires relative to the minimal set a real
// coordination service would notify: every watcher is one-shot and every
// caller re-checks state after a fire, so a spurious fire only costs one
// extra round trip, never correctness.
func (s *Store) handleEvent(fsPath string) {
	dir := filepath.Dir(fsPath)
	s.fireExists(fsPath)
	s.fireExists(dir)
	s.fireChildren(dir)
}

func (s *Store) fireExists(fsPath string) {
	s.waitMu.Lock()
	fns := s.existsW[fsPath]
	delete(s.existsW, fsPath)
	s.waitMu.Unlock()
	for _, fn := range fns {
		go fn()
	}
}

func (s *Store) fireChildren(fsPath string) {
	s.waitMu.Lock()
	fns := s.childrenW[fsPath]
	delete(s.childrenW, fsPath)
	s.waitMu.Unlock()
	for _, fn := range fns {
		go fn()
	}
}

func (s *Store) ensureWatched(dir string) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if _, ok := s.watched[dir]; ok {
		return
	}
	if err := s.watcher.Add(dir); err == nil {
		s.watched[dir] = struct{}{}
	}
}

func (s *Store) readMeta(dir string) (nodeMeta, error) {
	raw, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nodeMeta{}, coordclient.ErrNoNode
		}
		return nodeMeta{}, err
	}
	var m nodeMeta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nodeMeta{}, fmt.Errorf("diskfs: corrupt meta at %q: %w", dir, err)
	}
	return m, nil
}

func (s *Store) writeNode(dir string, data []byte, m nodeMeta) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(dir, dataFileName), data); err != nil {
		return err
	}
	metaRaw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, metaFileName), metaRaw)
}

func writeAtomic(dest string, data []byte) error {
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, dest)
}

func nextSequence(parentDir string) (int64, error) {
	lockPath := filepath.Join(parentDir, seqFileName+".lock")
	lf, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return 0, err
	}
	defer lf.Close()
	if err := lockFile(lf); err != nil {
		return 0, err
	}
	defer unlockFile(lf)

	seqPath := filepath.Join(parentDir, seqFileName)
	raw, err := os.ReadFile(seqPath)
	var cur int64
	if err == nil {
		fmt.Sscanf(string(raw), "%d", &cur)
	} else if !os.IsNotExist(err) {
		return 0, err
	}
	if err := writeAtomic(seqPath, []byte(fmt.Sprintf("%d", cur+1))); err != nil {
		return 0, err
	}
	return cur, nil
}

// Create implements coordclient.Client.
func (s *Store) Create(ctx context.Context, p string, data []byte, persistent, sequential bool) (string, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}
	logical := path.Clean("/" + p)
	parentLogical := parentOf(logical)
	parentDir := s.fsPath(parentLogical)
	if st, err := os.Stat(parentDir); err != nil || !st.IsDir() {
		return "", coordclient.ErrNoNode
	}

	finalLogical := logical
	if sequential {
		seq, err := nextSequence(parentDir)
		if err != nil {
			return "", err
		}
		finalLogical = parentLogical + "/" + baseOf(logical) + coordclient.PadSequentialID(seq)
		finalLogical = path.Clean(finalLogical)
	}
	dir := s.fsPath(finalLogical)
	lock := s.locks.get(finalLogical)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(dir); err == nil {
		if _, metaErr := s.readMeta(dir); metaErr == nil {
			return "", coordclient.ErrNodeExists
		}
	}
	m := nodeMeta{Version: 0, CtimeUnixNano: s.clock.Now().UnixNano(), Persistent: persistent}
	if err := s.writeNode(dir, data, m); err != nil {
		return "", err
	}
	if !persistent {
		s.mu.Lock()
		s.ephemeral[finalLogical] = struct{}{}
		s.mu.Unlock()
	}
	return finalLogical, nil
}

// CreateAll implements coordclient.Client.
func (s *Store) CreateAll(ctx context.Context, p string, data []byte, persistent bool) (string, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}
	logical := path.Clean("/" + p)
	segments := strings.Split(strings.TrimPrefix(logical, "/"), "/")
	cur := "/"
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		cur = path.Join(cur, seg)
		dir := s.fsPath(cur)
		leaf := i == len(segments)-1
		if _, err := s.readMeta(dir); err == nil {
			if leaf {
				return "", coordclient.ErrNodeExists
			}
			continue
		}
		m := nodeMeta{Version: 0, CtimeUnixNano: s.clock.Now().UnixNano(), Persistent: true}
		var payload []byte
		if leaf {
			payload = data
			m.Persistent = persistent
		}
		lock := s.locks.get(cur)
		lock.Lock()
		err := s.writeNode(dir, payload, m)
		lock.Unlock()
		if err != nil {
			return "", err
		}
		if leaf && !persistent {
			s.mu.Lock()
			s.ephemeral[cur] = struct{}{}
			s.mu.Unlock()
		}
	}
	return logical, nil
}

// Exists implements coordclient.Client.
func (s *Store) Exists(ctx context.Context, p string, watch coordclient.WatchFunc) (*coordclient.Stat, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	logical := path.Clean("/" + p)
	dir := s.fsPath(logical)
	m, err := s.readMeta(dir)
	if err != nil {
		if watch != nil {
			s.ensureWatched(filepath.Dir(dir))
			s.waitMu.Lock()
			s.existsW[dir] = append(s.existsW[dir], watch)
			s.waitMu.Unlock()
		}
		if err == coordclient.ErrNoNode {
			return nil, nil
		}
		return nil, err
	}
	if watch != nil {
		s.ensureWatched(dir)
		s.ensureWatched(filepath.Dir(dir))
		s.waitMu.Lock()
		s.existsW[dir] = append(s.existsW[dir], watch)
		s.waitMu.Unlock()
	}
	return &coordclient.Stat{Version: m.Version, Ctime: time.Unix(0, m.CtimeUnixNano), EntryCount: s.childCount(dir)}, nil
}

// childCount counts the node directories directly under dir. One ReadDir is
// cheap enough for the diagnostic Exists path that carries it.
func (s *Store) childCount(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := s.readMeta(filepath.Join(dir, e.Name())); err == nil {
			count++
		}
	}
	return count
}

// Get implements coordclient.Client.
func (s *Store) Get(ctx context.Context, p string) ([]byte, coordclient.Stat, error) {
	if err := s.checkOpen(); err != nil {
		return nil, coordclient.Stat{}, err
	}
	logical := path.Clean("/" + p)
	dir := s.fsPath(logical)
	m, err := s.readMeta(dir)
	if err != nil {
		return nil, coordclient.Stat{}, err
	}
	data, err := os.ReadFile(filepath.Join(dir, dataFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, coordclient.Stat{}, nil
		}
		return nil, coordclient.Stat{}, err
	}
	return data, coordclient.Stat{Version: m.Version, Ctime: time.Unix(0, m.CtimeUnixNano)}, nil
}

// Set implements coordclient.Client; it performs a CAS write guarded by both
// an in-process mutex and an advisory file lock.
func (s *Store) Set(ctx context.Context, p string, data []byte, expectedVersion int64) (int64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	logical := path.Clean("/" + p)
	dir := s.fsPath(logical)
	lock := s.locks.get(logical)
	lock.Lock()
	defer lock.Unlock()

	lf, err := os.OpenFile(filepath.Join(dir, metaFileName+".lock"), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return 0, err
	}
	defer lf.Close()
	if err := lockFile(lf); err != nil {
		return 0, err
	}
	defer unlockFile(lf)

	m, err := s.readMeta(dir)
	if err != nil {
		return 0, err
	}
	if m.Version != expectedVersion {
		return 0, coordclient.ErrBadVersion
	}
	m.Version++
	if err := s.writeNode(dir, data, m); err != nil {
		return 0, err
	}
	return m.Version, nil
}

// Children implements coordclient.Client.
func (s *Store) Children(ctx context.Context, p string, watch coordclient.WatchFunc) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	logical := path.Clean("/" + p)
	dir := s.fsPath(logical)
	if _, err := s.readMeta(dir); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, metaErr := s.readMeta(filepath.Join(dir, e.Name())); metaErr == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if watch != nil {
		s.ensureWatched(dir)
		s.waitMu.Lock()
		s.childrenW[dir] = append(s.childrenW[dir], watch)
		s.waitMu.Unlock()
	}
	return names, nil
}

// Delete implements coordclient.Client.
func (s *Store) Delete(ctx context.Context, p string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	logical := path.Clean("/" + p)
	dir := s.fsPath(logical)
	lock := s.locks.get(logical)
	lock.Lock()
	defer lock.Unlock()
	if _, err := s.readMeta(dir); err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.ephemeral, logical)
	s.mu.Unlock()
	return nil
}

// Close implements coordclient.Client: it removes every ephemeral node this
// session created, simulating session expiry, then stops the watch
// dispatcher and fires any outstanding watchers.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	eph := make([]string, 0, len(s.ephemeral))
	for p := range s.ephemeral {
		eph = append(eph, p)
	}
	listeners := append([]coordclient.StateListener(nil), s.listeners...)
	s.mu.Unlock()

	for _, p := range eph {
		os.RemoveAll(s.fsPath(p))
	}
	for _, l := range listeners {
		l.OnStateChange(coordclient.StateLost)
	}

	close(s.done)
	s.watcher.Close()

	s.waitMu.Lock()
	var fns []coordclient.WatchFunc
	for _, fn := range s.existsW {
		fns = append(fns, fn...)
	}
	for _, fn := range s.childrenW {
		fns = append(fns, fn...)
	}
	s.existsW = map[string][]coordclient.WatchFunc{}
	s.childrenW = map[string][]coordclient.WatchFunc{}
	s.waitMu.Unlock()
	for _, fn := range fns {
		go fn()
	}
	return nil
}

// IsStarted implements coordclient.Client.
func (s *Store) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.closed
}

// BlockUntilConnected implements coordclient.Client; the filesystem is
// always "connected" once opened.
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

func (s *Store) checkOpen() error {
	if !s.IsStarted() {
		return coordclient.ErrClosed
	}
	return nil
}

func parentOf(logical string) string {
	dir := path.Dir(logical)
	if dir == "." {
		return "/"
	}
	return dir
}

func baseOf(logical string) string {
	return path.Base(logical)
}
