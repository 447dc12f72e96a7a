package coordlog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/onyxstream/coordlog/internal/coordclient"
)

const (
	namespaceRoot  = "/onyx"
	logEntryPrefix = "entry-"
)

// Paths derives every coordination-service path for one tenancy. All nodes
// live under the prefix /onyx/<tenancy-id>.
type Paths struct {
	prefix string
}

// NewPaths validates the tenancy id and returns its path derivations.
func NewPaths(tenancyID string) (Paths, error) {
	tenancyID = strings.TrimSpace(tenancyID)
	if tenancyID == "" {
		return Paths{}, fmt.Errorf("coordlog: tenancy id is required")
	}
	if err := validateSegment("tenancy id", tenancyID); err != nil {
		return Paths{}, err
	}
	return Paths{prefix: namespaceRoot + "/" + tenancyID}, nil
}

// validateSegment rejects values that would escape or restructure the
// namespace when joined into a node path.
func validateSegment(what, value string) error {
	if value == "" {
		return fmt.Errorf("coordlog: %s is required", what)
	}
	if strings.ContainsAny(value, "/\\") {
		return fmt.Errorf("coordlog: %s %q must not contain path separators", what, value)
	}
	if value == "." || value == ".." {
		return fmt.Errorf("coordlog: %s %q is reserved", what, value)
	}
	return nil
}

// Prefix returns the tenancy prefix all nodes live under.
func (p Paths) Prefix() string { return p.prefix }

// LogRoot returns the append-only log's parent node.
func (p Paths) LogRoot() string { return p.prefix + "/log" }

// LogEntry returns the node path of the log entry at position.
func (p Paths) LogEntry(position int64) string {
	return p.LogRoot() + "/" + logEntryPrefix + coordclient.PadSequentialID(position)
}

// LogEntrySeqPrefix returns the sequential-create name prefix for new log
// entries; the coordination service appends the zero-padded position.
func (p Paths) LogEntrySeqPrefix() string {
	return p.LogRoot() + "/" + logEntryPrefix
}

// PulseRoot returns the parent node of all liveness pulses.
func (p Paths) PulseRoot() string { return p.prefix + "/pulse" }

// Pulse returns the ephemeral pulse node path for a peer.
func (p Paths) Pulse(peerID string) (string, error) {
	if err := validateSegment("peer id", peerID); err != nil {
		return "", err
	}
	return p.PulseRoot() + "/" + peerID, nil
}

// OriginRoot returns the parent node of the origin snapshot.
func (p Paths) OriginRoot() string { return p.prefix + "/origin" }

// Origin returns the origin snapshot node path.
func (p Paths) Origin() string { return p.OriginRoot() + "/origin" }

// LogParametersRoot returns the parent node of the cluster parameters.
func (p Paths) LogParametersRoot() string { return p.prefix + "/log-parameters" }

// LogParameters returns the cluster parameters node path.
func (p Paths) LogParameters() string { return p.LogParametersRoot() + "/log-parameters" }

// ChunkRoot returns the parent node of a chunk kind's subtree.
func (p Paths) ChunkRoot(kind ChunkKind) (string, error) {
	spec, err := kind.spec()
	if err != nil {
		return "", err
	}
	return p.prefix + "/" + spec.subtree, nil
}

// Chunk returns the node path of one chunk. Two-level kinds (task) require
// exactly one subID; single-level kinds require none.
func (p Paths) Chunk(kind ChunkKind, id string, subID ...string) (string, error) {
	spec, err := kind.spec()
	if err != nil {
		return "", err
	}
	if err := validateSegment(spec.subtree+" id", id); err != nil {
		return "", err
	}
	switch {
	case spec.twoLevel:
		if len(subID) != 1 {
			return "", fmt.Errorf("coordlog: chunk kind %s requires exactly one sub id", kind)
		}
		if err := validateSegment(spec.subtree+" sub id", subID[0]); err != nil {
			return "", err
		}
		return p.prefix + "/" + spec.subtree + "/" + id + "/" + subID[0], nil
	case spec.leaf != "":
		if len(subID) != 0 {
			return "", fmt.Errorf("coordlog: chunk kind %s takes no sub id", kind)
		}
		return p.prefix + "/" + spec.subtree + "/" + id + "/" + spec.leaf, nil
	default:
		if len(subID) != 0 {
			return "", fmt.Errorf("coordlog: chunk kind %s takes no sub id", kind)
		}
		return p.prefix + "/" + spec.subtree + "/" + id, nil
	}
}

// SubtreeRoots returns every subtree root the bootstrap must ensure exists.
func (p Paths) SubtreeRoots() []string {
	roots := []string{
		p.LogRoot(),
		p.PulseRoot(),
		p.OriginRoot(),
		p.LogParametersRoot(),
	}
	for _, kind := range ChunkKinds() {
		root, err := p.ChunkRoot(kind)
		if err != nil {
			continue
		}
		roots = append(roots, root)
	}
	return roots
}

// Bootstrap creates the tenancy's path skeleton: every subtree root, the
// origin snapshot seeded with {message-id: -1, replica: baseReplica}, and
// the log-parameters node carrying the current log version. Creation of an
// already-existing node is a no-op, so Bootstrap is safe to run from every
// peer on startup.
func (b *Backend) Bootstrap(ctx context.Context, baseReplica any) error {
	for _, root := range b.paths.SubtreeRoots() {
		if _, err := b.client.CreateAll(ctx, root, nil, true); err != nil && !errors.Is(err, coordclient.ErrNodeExists) {
			return coordclient.Guard(err)
		}
	}
	if err := b.ensureNode(ctx, b.paths.Origin(), Origin{MessageID: -1, Replica: baseReplica}); err != nil {
		return err
	}
	if err := b.ensureNode(ctx, b.paths.LogParameters(), LogParameters{LogVersion: CurrentLogVersion}); err != nil {
		return err
	}
	b.logger.Info("bootstrap complete", "prefix", b.paths.Prefix())
	return nil
}

// ensureNode creates path with the encoded value unless it already exists.
func (b *Backend) ensureNode(ctx context.Context, path string, value any) error {
	st, err := b.client.Exists(ctx, path, nil)
	if err != nil {
		return coordclient.Guard(err)
	}
	if st != nil {
		return nil
	}
	data, err := b.codec.Encode(value)
	if err != nil {
		return err
	}
	if _, err := b.client.Create(ctx, path, data, true, false); err != nil && !errors.Is(err, coordclient.ErrNodeExists) {
		return coordclient.Guard(err)
	}
	return nil
}
