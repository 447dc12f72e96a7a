package diskfs

import (
	"context"
	"testing"
	"time"

	"github.com/onyxstream/coordlog/internal/coordclient"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateSequentialAssignsIncreasingSuffixes(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()
	if _, err := s.CreateAll(ctx, "/log", nil, true); err != nil {
		t.Fatalf("CreateAll: %v", err)
	}
	want := []string{"/log/entry-0000000000", "/log/entry-0000000001", "/log/entry-0000000002"}
	for i := 0; i < 3; i++ {
		p, err := s.Create(ctx, "/log/entry-", []byte("x"), true, true)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if p != want[i] {
			t.Fatalf("path %d = %q, want %q", i, p, want[i])
		}
	}
}

func TestSetEnforcesCAS(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()
	if _, err := s.CreateAll(ctx, "/origin/origin", []byte("v0"), true); err != nil {
		t.Fatalf("CreateAll: %v", err)
	}
	_, stat, err := s.Get(ctx, "/origin/origin")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := s.Set(ctx, "/origin/origin", []byte("v1"), stat.Version); err != nil {
		t.Fatalf("Set with correct version: %v", err)
	}
	if _, err := s.Set(ctx, "/origin/origin", []byte("v2"), stat.Version); err != coordclient.ErrBadVersion {
		t.Fatalf("Set with stale version: got %v, want ErrBadVersion", err)
	}
	data, stat2, err := s.Get(ctx, "/origin/origin")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "v1" || stat2.Version != stat.Version+1 {
		t.Fatalf("node = %q v%d, want v1 v%d", data, stat2.Version, stat.Version+1)
	}
}

func TestCloseRemovesEphemeralNodes(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	s, err := New(Config{Root: root})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if _, err := s.CreateAll(ctx, "/pulse", nil, true); err != nil {
		t.Fatalf("CreateAll: %v", err)
	}
	if _, err := s.Create(ctx, "/pulse/peer-1", nil, false, false); err != nil {
		t.Fatalf("Create ephemeral: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// A fresh session over the same root must not see the dead session's
	// ephemeral node, only the persistent skeleton.
	s2, err := New(Config{Root: root})
	if err != nil {
		t.Fatalf("New second session: %v", err)
	}
	defer s2.Close()
	st, err := s2.Exists(ctx, "/pulse/peer-1", nil)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if st != nil {
		t.Fatal("ephemeral node survived session end")
	}
	if st, err := s2.Exists(ctx, "/pulse", nil); err != nil || st == nil {
		t.Fatalf("persistent node missing after restart: %v", err)
	}
}

func TestExistsReportsEntryCount(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()
	if _, err := s.CreateAll(ctx, "/log", nil, true); err != nil {
		t.Fatalf("CreateAll: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.Create(ctx, "/log/entry-", nil, true, true); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	st, err := s.Exists(ctx, "/log", nil)
	if err != nil || st == nil {
		t.Fatalf("Exists: %v", err)
	}
	if st.EntryCount != 3 {
		t.Fatalf("EntryCount = %d, want 3", st.EntryCount)
	}
}

func TestChildrenWatchFiresOnCreate(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()
	if _, err := s.CreateAll(ctx, "/log", nil, true); err != nil {
		t.Fatalf("CreateAll: %v", err)
	}
	fired := make(chan struct{}, 1)
	if _, err := s.Children(ctx, "/log", func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatalf("Children: %v", err)
	}
	if _, err := s.Create(ctx, "/log/entry-0000000000", []byte("x"), true, false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("children watch did not fire on create")
	}
}

func TestDeleteFiresExistsWatch(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()
	if _, err := s.CreateAll(ctx, "/pulse/peer-1", nil, true); err != nil {
		t.Fatalf("CreateAll: %v", err)
	}
	fired := make(chan struct{}, 1)
	if _, err := s.Exists(ctx, "/pulse/peer-1", func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if err := s.Delete(ctx, "/pulse/peer-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("exists watch did not fire on delete")
	}
}
