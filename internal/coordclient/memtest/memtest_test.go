package memtest

import (
	"context"
	"testing"
	"time"

	"github.com/onyxstream/coordlog/internal/coordclient"
)

func TestCreateSequentialAssignsIncreasingSuffixes(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	if _, err := s.CreateAll(ctx, "/log", nil, true); err != nil {
		t.Fatalf("CreateAll: %v", err)
	}
	var paths []string
	for i := 0; i < 3; i++ {
		p, err := s.Create(ctx, "/log/entry-", []byte("x"), true, true)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		paths = append(paths, p)
	}
	want := []string{"/log/entry-0000000000", "/log/entry-0000000001", "/log/entry-0000000002"}
	for i, p := range paths {
		if p != want[i] {
			t.Fatalf("path %d = %q, want %q", i, p, want[i])
		}
	}
}

func TestSetEnforcesCAS(t *testing.T) {
	t.Parallel()
	s := New()
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
}

func TestExistsWatchFiresOnCreate(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	if _, err := s.CreateAll(ctx, "/log", nil, true); err != nil {
		t.Fatalf("CreateAll: %v", err)
	}
	fired := make(chan struct{}, 1)
	if _, err := s.Exists(ctx, "/log/entry-0000000000", func() { fired <- struct{}{} }); err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if _, err := s.Create(ctx, "/log/entry-0000000000", []byte("x"), true, false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("watch did not fire within timeout")
	}
}

func TestChildrenWatchFiresOnDelete(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	if _, err := s.CreateAll(ctx, "/log", nil, true); err != nil {
		t.Fatalf("CreateAll: %v", err)
	}
	if _, err := s.Create(ctx, "/log/entry-0000000000", []byte("x"), true, false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	fired := make(chan struct{}, 1)
	if _, err := s.Children(ctx, "/log", func() { fired <- struct{}{} }); err != nil {
		t.Fatalf("Children: %v", err)
	}
	if err := s.Delete(ctx, "/log/entry-0000000000"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("watch did not fire within timeout")
	}
}

func TestCloseFiresAllOutstandingWatchers(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	if _, err := s.CreateAll(ctx, "/pulse", nil, true); err != nil {
		t.Fatalf("CreateAll: %v", err)
	}
	if _, err := s.Create(ctx, "/pulse/peer-1", nil, false, false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	fired := make(chan struct{}, 1)
	if _, err := s.Exists(ctx, "/pulse/peer-1", func() { fired <- struct{}{} }); err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("watch did not fire on close")
	}
	if s.IsStarted() {
		t.Fatal("expected IsStarted to be false after Close")
	}
}

func TestExistsReportsEntryCount(t *testing.T) {
	t.Parallel()
	s := New()
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

func TestDeleteMissingNodeReturnsNoNode(t *testing.T) {
	t.Parallel()
	s := New()
	if err := s.Delete(context.Background(), "/nope"); err != coordclient.ErrNoNode {
		t.Fatalf("Delete missing: got %v, want ErrNoNode", err)
	}
}
