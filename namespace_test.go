package coordlog

import (
	"strings"
	"testing"
)

func TestNewPathsValidation(t *testing.T) {
	t.Parallel()
	if _, err := NewPaths(""); err == nil {
		t.Fatal("expected error for empty tenancy id")
	}
	if _, err := NewPaths("a/b"); err == nil {
		t.Fatal("expected error for tenancy id with separator")
	}
	if _, err := NewPaths(".."); err == nil {
		t.Fatal("expected error for reserved tenancy id")
	}
	p, err := NewPaths(" t1 ")
	if err != nil {
		t.Fatalf("NewPaths: %v", err)
	}
	if p.Prefix() != "/onyx/t1" {
		t.Fatalf("Prefix = %q, want /onyx/t1", p.Prefix())
	}
}

func TestPathDerivations(t *testing.T) {
	t.Parallel()
	p, err := NewPaths("t1")
	if err != nil {
		t.Fatalf("NewPaths: %v", err)
	}
	if got := p.LogEntry(0); got != "/onyx/t1/log/entry-0000000000" {
		t.Fatalf("LogEntry(0) = %q", got)
	}
	if got := p.LogEntry(42); got != "/onyx/t1/log/entry-0000000042" {
		t.Fatalf("LogEntry(42) = %q", got)
	}
	if got := p.Origin(); got != "/onyx/t1/origin/origin" {
		t.Fatalf("Origin = %q", got)
	}
	if got := p.LogParameters(); got != "/onyx/t1/log-parameters/log-parameters" {
		t.Fatalf("LogParameters = %q", got)
	}
	pulse, err := p.Pulse("peer-1")
	if err != nil {
		t.Fatalf("Pulse: %v", err)
	}
	if pulse != "/onyx/t1/pulse/peer-1" {
		t.Fatalf("Pulse = %q", pulse)
	}
	if _, err := p.Pulse("../escape"); err == nil {
		t.Fatal("expected error for peer id with separator")
	}
}

func TestChunkPaths(t *testing.T) {
	t.Parallel()
	p, err := NewPaths("t1")
	if err != nil {
		t.Fatalf("NewPaths: %v", err)
	}
	cases := []struct {
		kind  ChunkKind
		id    string
		sub   []string
		want  string
		fails bool
	}{
		{kind: ChunkCatalog, id: "j1", want: "/onyx/t1/catalog/j1"},
		{kind: ChunkJobHash, id: "j1", want: "/onyx/t1/job-hash/j1"},
		{kind: ChunkTask, id: "j1", sub: []string{"t7"}, want: "/onyx/t1/task/j1/t7"},
		{kind: ChunkChunk, id: "c1", want: "/onyx/t1/chunk/c1/chunk"},
		{kind: ChunkTask, id: "j1", fails: true},               // sub id missing
		{kind: ChunkCatalog, id: "j1", sub: []string{"x"}, fails: true}, // unexpected sub id
		{kind: ChunkCatalog, id: "a/b", fails: true},
	}
	for _, tc := range cases {
		got, err := p.Chunk(tc.kind, tc.id, tc.sub...)
		if tc.fails {
			if err == nil {
				t.Fatalf("Chunk(%s, %q, %v): expected error", tc.kind, tc.id, tc.sub)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Chunk(%s, %q, %v): %v", tc.kind, tc.id, tc.sub, err)
		}
		if got != tc.want {
			t.Fatalf("Chunk(%s, %q, %v) = %q, want %q", tc.kind, tc.id, tc.sub, got, tc.want)
		}
	}
}

func TestSubtreeRootsCoverEveryKind(t *testing.T) {
	t.Parallel()
	p, err := NewPaths("t1")
	if err != nil {
		t.Fatalf("NewPaths: %v", err)
	}
	roots := p.SubtreeRoots()
	for _, want := range []string{"log", "pulse", "origin", "log-parameters"} {
		assertContainsRoot(t, roots, "/onyx/t1/"+want)
	}
	for _, kind := range ChunkKinds() {
		assertContainsRoot(t, roots, "/onyx/t1/"+kind.String())
	}
}

func assertContainsRoot(t *testing.T, roots []string, want string) {
	t.Helper()
	for _, root := range roots {
		if root == want {
			return
		}
	}
	t.Fatalf("roots %v missing %q", roots, want)
}

func TestChunkKindForName(t *testing.T) {
	t.Parallel()
	kind, err := ChunkKindForName("job-metadata")
	if err != nil {
		t.Fatalf("ChunkKindForName: %v", err)
	}
	if kind != ChunkJobMetadata {
		t.Fatalf("kind = %v, want ChunkJobMetadata", kind)
	}
	if _, err := ChunkKindForName("nope"); err == nil || !strings.Contains(err.Error(), "unknown chunk kind") {
		t.Fatalf("expected unknown-kind error, got %v", err)
	}
}
