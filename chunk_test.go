package coordlog

import (
	"context"
	"errors"
	"testing"

	"github.com/onyxstream/coordlog/internal/coordclient"
)

func TestChunkRoundTripEveryKind(t *testing.T) {
	t.Parallel()
	b := bootstrappedBackend(t, map[string]any{})
	ctx := context.Background()

	for _, kind := range ChunkKinds() {
		var sub []string
		if kind == ChunkTask {
			sub = []string{"task-1"}
		}
		value := map[string]any{"kind": kind.String()}
		if err := b.WriteChunk(ctx, kind, "id-1", value, sub...); err != nil {
			t.Fatalf("WriteChunk(%s): %v", kind, err)
		}
		got, err := b.ReadChunk(ctx, kind, "id-1", sub...)
		if err != nil {
			t.Fatalf("ReadChunk(%s): %v", kind, err)
		}
		if got.(map[string]any)["kind"] != kind.String() {
			t.Fatalf("ReadChunk(%s) = %#v", kind, got)
		}
	}
}

func TestWriteChunkIsCreateOnly(t *testing.T) {
	t.Parallel()
	b := bootstrappedBackend(t, map[string]any{})
	ctx := context.Background()

	if err := b.WriteChunk(ctx, ChunkCatalog, "j1", map[string]any{"v": 1}); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	err := b.WriteChunk(ctx, ChunkCatalog, "j1", map[string]any{"v": 2})
	if !errors.Is(err, coordclient.ErrNodeExists) {
		t.Fatalf("second write error = %v, want ErrNodeExists", err)
	}
	got, err := b.ReadChunk(ctx, ChunkCatalog, "j1")
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	if got.(map[string]any)["v"] != 1 {
		t.Fatalf("chunk = %#v, want original value", got)
	}
}

func TestReadChunkMissing(t *testing.T) {
	t.Parallel()
	b := bootstrappedBackend(t, map[string]any{})
	if _, err := b.ReadChunk(context.Background(), ChunkWorkflow, "absent"); !errors.Is(err, coordclient.ErrNoNode) {
		t.Fatalf("error = %v, want ErrNoNode", err)
	}
}

func TestForceWriteChunkOverwrites(t *testing.T) {
	t.Parallel()
	b := bootstrappedBackend(t, map[string]any{})
	ctx := context.Background()

	if err := b.ForceWriteChunk(ctx, ChunkChunk, "c", map[string]any{"v": 1}); err != nil {
		t.Fatalf("first ForceWriteChunk: %v", err)
	}
	if err := b.ForceWriteChunk(ctx, ChunkChunk, "c", map[string]any{"v": 2}); err != nil {
		t.Fatalf("second ForceWriteChunk: %v", err)
	}
	got, err := b.ReadChunk(ctx, ChunkChunk, "c")
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	if got.(map[string]any)["v"] != 2 {
		t.Fatalf("chunk = %#v, want v:2", got)
	}
}

func TestForceWriteChunkRejectsOtherKinds(t *testing.T) {
	t.Parallel()
	b := bootstrappedBackend(t, map[string]any{})
	if err := b.ForceWriteChunk(context.Background(), ChunkCatalog, "j1", map[string]any{}); err == nil {
		t.Fatal("expected error for non-forceable kind")
	}
}

// staleSetClient makes every CAS write observe a stale version, standing in
// for a concurrent force-writer winning the race between the existence check
// and the set.
type staleSetClient struct {
	coordclient.Client
}

func (staleSetClient) Set(context.Context, string, []byte, int64) (int64, error) {
	return 0, coordclient.ErrBadVersion
}

func TestForceWriteChunkSurfacesBadVersion(t *testing.T) {
	t.Parallel()
	b := bootstrappedBackend(t, map[string]any{})
	ctx := context.Background()

	if err := b.ForceWriteChunk(ctx, ChunkChunk, "c", map[string]any{"v": 1}); err != nil {
		t.Fatalf("ForceWriteChunk: %v", err)
	}

	raced, err := New(Config{TenancyID: "t1", Client: staleSetClient{Client: b.Client()}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := raced.ForceWriteChunk(ctx, ChunkChunk, "c", map[string]any{"v": 2}); !errors.Is(err, coordclient.ErrBadVersion) {
		t.Fatalf("error = %v, want ErrBadVersion", err)
	}
}

func TestTaskChunksAreScopedPerJob(t *testing.T) {
	t.Parallel()
	b := bootstrappedBackend(t, map[string]any{})
	ctx := context.Background()

	if err := b.WriteChunk(ctx, ChunkTask, "job-1", map[string]any{"n": 1}, "t1"); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	if err := b.WriteChunk(ctx, ChunkTask, "job-2", map[string]any{"n": 2}, "t1"); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	got, err := b.ReadChunk(ctx, ChunkTask, "job-2", "t1")
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	if got.(map[string]any)["n"] != 2 {
		t.Fatalf("chunk = %#v, want n:2", got)
	}
}
