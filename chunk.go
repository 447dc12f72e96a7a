package coordlog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/onyxstream/coordlog/internal/coordclient"
	"github.com/onyxstream/coordlog/internal/metrics"
)

// ChunkKind enumerates the typed artifact subtrees of the namespace. Each
// kind maps to a subtree name, a write strategy, and a path shape in the
// chunk table below; the write and read entry points are parameterized by
// kind rather than dispatched per type.
type ChunkKind int

const (
	// ChunkJobHash stores job definition hashes under P/job-hash/<id>.
	ChunkJobHash ChunkKind = iota
	// ChunkCatalog stores catalogs under P/catalog/<id>.
	ChunkCatalog
	// ChunkWorkflow stores workflows under P/workflow/<id>.
	ChunkWorkflow
	// ChunkFlow stores flow conditions under P/flow/<id>.
	ChunkFlow
	// ChunkLifecycles stores lifecycles under P/lifecycles/<id>.
	ChunkLifecycles
	// ChunkWindows stores windows under P/windows/<id>.
	ChunkWindows
	// ChunkTriggers stores triggers under P/triggers/<id>.
	ChunkTriggers
	// ChunkJobMetadata stores job metadata under P/job-metadata/<id>.
	ChunkJobMetadata
	// ChunkException stores exception payloads under P/exception/<id>.
	ChunkException
	// ChunkTask stores per-job task descriptors under P/task/<job-id>/<task-id>.
	ChunkTask
	// ChunkChunk stores CAS-able chunks under P/chunk/<id>/chunk; the only
	// kind ForceWriteChunk accepts.
	ChunkChunk
)

// writeStrategy selects how WriteChunk creates the node for a kind.
type writeStrategy int

const (
	// strategyCreate requires the kind's subtree root to exist already.
	strategyCreate writeStrategy = iota
	// strategyCreateAll creates missing intermediate parents.
	strategyCreateAll
)

type chunkSpec struct {
	subtree   string
	strategy  writeStrategy
	twoLevel  bool
	leaf      string
	forceable bool
}

var chunkSpecs = map[ChunkKind]chunkSpec{
	ChunkJobHash:     {subtree: "job-hash", strategy: strategyCreate},
	ChunkCatalog:     {subtree: "catalog", strategy: strategyCreate},
	ChunkWorkflow:    {subtree: "workflow", strategy: strategyCreate},
	ChunkFlow:        {subtree: "flow", strategy: strategyCreate},
	ChunkLifecycles:  {subtree: "lifecycles", strategy: strategyCreate},
	ChunkWindows:     {subtree: "windows", strategy: strategyCreate},
	ChunkTriggers:    {subtree: "triggers", strategy: strategyCreate},
	ChunkJobMetadata: {subtree: "job-metadata", strategy: strategyCreate},
	ChunkException:   {subtree: "exception", strategy: strategyCreate},
	ChunkTask:        {subtree: "task", strategy: strategyCreateAll, twoLevel: true},
	ChunkChunk:       {subtree: "chunk", strategy: strategyCreateAll, leaf: "chunk", forceable: true},
}

var chunkKindOrder = []ChunkKind{
	ChunkJobHash, ChunkCatalog, ChunkWorkflow, ChunkFlow, ChunkLifecycles,
	ChunkWindows, ChunkTriggers, ChunkJobMetadata, ChunkException,
	ChunkTask, ChunkChunk,
}

// ChunkKinds returns every chunk kind in subtree order.
func ChunkKinds() []ChunkKind {
	out := make([]ChunkKind, len(chunkKindOrder))
	copy(out, chunkKindOrder)
	return out
}

// ChunkKindForName resolves a subtree name back to its kind.
func ChunkKindForName(name string) (ChunkKind, error) {
	for _, kind := range chunkKindOrder {
		if chunkSpecs[kind].subtree == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("coordlog: unknown chunk kind %q", name)
}

func (k ChunkKind) spec() (chunkSpec, error) {
	spec, ok := chunkSpecs[k]
	if !ok {
		return chunkSpec{}, fmt.Errorf("coordlog: unknown chunk kind %d", int(k))
	}
	return spec, nil
}

// String returns the kind's subtree name.
func (k ChunkKind) String() string {
	if spec, ok := chunkSpecs[k]; ok {
		return spec.subtree
	}
	return fmt.Sprintf("chunk-kind-%d", int(k))
}

// eventName renders "<op>_<kind>" with the subtree's dashes flattened, e.g.
// write_job_hash.
func (k ChunkKind) eventName(op string) string {
	return op + "_" + strings.ReplaceAll(k.String(), "-", "_")
}

// WriteChunk encodes value and stores it at the kind's path for id. Task
// chunks take the task id as the single subID. Writes are create-only;
// mutating an existing chunk requires the CAS-able kind and
// ForceWriteChunk.
func (b *Backend) WriteChunk(ctx context.Context, kind ChunkKind, id string, value any, subID ...string) error {
	start := b.clock.Now()
	spec, err := kind.spec()
	if err != nil {
		return err
	}
	node, err := b.paths.Chunk(kind, id, subID...)
	if err != nil {
		return err
	}
	data, err := b.codec.Encode(value)
	if err != nil {
		return err
	}
	switch spec.strategy {
	case strategyCreateAll:
		_, err = b.client.CreateAll(ctx, node, data, true)
	default:
		_, err = b.client.Create(ctx, node, data, true, false)
	}
	if err != nil {
		return coordclient.Guard(err)
	}
	b.metrics.Emit(kind.eventName("write"), metrics.Latency(b.clock.Now().Sub(start)), metrics.ID(id), metrics.Bytes(len(data)))
	b.logger.Trace("chunk written", "kind", kind.String(), "id", id, "bytes", len(data))
	return nil
}

// ReadChunk reads and decodes the chunk stored at the kind's path for id.
func (b *Backend) ReadChunk(ctx context.Context, kind ChunkKind, id string, subID ...string) (any, error) {
	start := b.clock.Now()
	node, err := b.paths.Chunk(kind, id, subID...)
	if err != nil {
		return nil, err
	}
	data, _, err := b.client.Get(ctx, node)
	if err != nil {
		return nil, coordclient.Guard(err)
	}
	value, err := b.decode(data)
	if err != nil {
		return nil, err
	}
	b.metrics.Emit(kind.eventName("read"), metrics.Latency(b.clock.Now().Sub(start)), metrics.ID(id))
	return value, nil
}

// ForceWriteChunk overwrites the CAS-able chunk at id, creating it when
// absent. The version observed by the existence check guards the set; a
// concurrent force-write surfaces as ErrBadVersion and retrying is the
// caller's decision.
func (b *Backend) ForceWriteChunk(ctx context.Context, kind ChunkKind, id string, value any) error {
	start := b.clock.Now()
	spec, err := kind.spec()
	if err != nil {
		return err
	}
	if !spec.forceable {
		return fmt.Errorf("coordlog: chunk kind %s does not support force-write", kind)
	}
	node, err := b.paths.Chunk(kind, id)
	if err != nil {
		return err
	}
	data, err := b.codec.Encode(value)
	if err != nil {
		return err
	}
	st, err := b.client.Exists(ctx, node, nil)
	if err != nil {
		return coordclient.Guard(err)
	}
	if st == nil {
		if _, err := b.client.CreateAll(ctx, node, data, true); err != nil {
			if errors.Is(err, coordclient.ErrNodeExists) {
				return coordclient.ErrBadVersion
			}
			return coordclient.Guard(err)
		}
	} else {
		if _, err := b.client.Set(ctx, node, data, st.Version); err != nil {
			return coordclient.Guard(err)
		}
	}
	b.metrics.Emit(kind.eventName("force_write"), metrics.Latency(b.clock.Now().Sub(start)), metrics.ID(id), metrics.Bytes(len(data)))
	b.logger.Trace("chunk force-written", "kind", kind.String(), "id", id, "bytes", len(data))
	return nil
}
