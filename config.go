package coordlog

import (
	"fmt"
	"strings"
	"time"

	"pkt.systems/pslog"

	"github.com/onyxstream/coordlog/internal/clock"
	"github.com/onyxstream/coordlog/internal/codec"
	"github.com/onyxstream/coordlog/internal/coordclient"
	"github.com/onyxstream/coordlog/internal/lifecycle"
	"github.com/onyxstream/coordlog/internal/metrics"
)

const (
	// BackendMem selects the in-process in-memory coordination backend, the
	// embedded testing server.
	BackendMem = "mem"
	// BackendDisk selects the local-filesystem coordination backend.
	BackendDisk = "disk"
)

const (
	// CurrentLogVersion is the log schema version this build reads and
	// writes. Subscribers fail fast when the cluster's log-parameters node
	// carries a different version.
	CurrentLogVersion = int64(1)
	// DefaultAddress is the coordination-service connect string used when
	// none is configured.
	DefaultAddress = "127.0.0.1:2181"
	// DefaultServerPort is the embedded server's listening port.
	DefaultServerPort = 2181
	// DefaultBackend selects the backend when none is configured.
	DefaultBackend = BackendMem
	// DefaultCodec names the payload codec used when none is configured.
	DefaultCodec = codec.NameYAMLSnappy
	// DefaultConnectAttempt bounds each connect attempt during start and
	// reconnect.
	DefaultConnectAttempt = lifecycle.DefaultConnectAttempt
	// DefaultLogParametersRetryDelay is the fixed backoff between attempts
	// to read the cluster's log-parameters node during subscriber setup.
	// The retry is unbounded: peers cannot make progress without it.
	DefaultLogParametersRetryDelay = 500 * time.Millisecond
)

var validBackends = []string{BackendMem, BackendDisk}

// ValidBackends returns the supported backend selectors.
func ValidBackends() []string {
	out := make([]string, len(validBackends))
	copy(out, validBackends)
	return out
}

// Config captures the tunables for a coordlog Backend instance.
type Config struct {
	// TenancyID isolates this cluster instance's namespace under
	// /onyx/<tenancy-id>. Required.
	TenancyID string
	// Address is the coordination-service connect string. Recorded for
	// operators and future real drivers; the shipped backends do not dial.
	Address string
	// Server starts the embedded in-process coordination server instead of
	// connecting to Address. Implies the mem backend.
	Server bool
	// ServerPort is the embedded server's port setting. It is validated and
	// defaulted only: the in-process server opens no network listener.
	ServerPort int
	// Backend selects the coordination backend ("mem" or "disk").
	Backend string
	// BackendRoot is the disk backend's root directory. Required for disk.
	BackendRoot string
	// Codec names the payload codec ("yaml-snappy" or "json"). Writers and
	// subscribers of the same tenancy must agree.
	Codec string
	// ConnectAttempt bounds each individual connect attempt.
	ConnectAttempt time.Duration
	// LogParametersRetryDelay is the backoff between log-parameters reads
	// during subscriber setup.
	LogParametersRetryDelay time.Duration
	// Logger receives structured logs; nil disables logging.
	Logger pslog.Logger
	// Metrics receives one monitoring event per storage operation; nil
	// disables emission.
	Metrics metrics.Emitter
	// Clock supplies timing; defaults to the real clock.
	Clock clock.Clock
	// Client injects a pre-built coordination client, overriding Backend,
	// BackendRoot, and Server.
	Client coordclient.Client
}

// Validate applies defaults and sanity-checks the configuration.
func (c *Config) Validate() error {
	c.TenancyID = strings.TrimSpace(c.TenancyID)
	if c.TenancyID == "" {
		return fmt.Errorf("config: tenancy id is required")
	}
	if strings.ContainsAny(c.TenancyID, "/\\") {
		return fmt.Errorf("config: tenancy id %q must not contain path separators", c.TenancyID)
	}
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	if c.Server {
		if c.Backend != "" && c.Backend != BackendMem {
			return fmt.Errorf("config: embedded server requires the %q backend, not %q", BackendMem, c.Backend)
		}
		c.Backend = BackendMem
		if c.ServerPort == 0 {
			c.ServerPort = DefaultServerPort
		}
	}
	if c.ServerPort < 0 {
		return fmt.Errorf("config: server port must be >= 0")
	}
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	switch c.Backend {
	case BackendMem:
	case BackendDisk:
		if strings.TrimSpace(c.BackendRoot) == "" {
			return fmt.Errorf("config: backend root is required for the %q backend", BackendDisk)
		}
	default:
		return fmt.Errorf("config: unknown backend %q (options: %s)", c.Backend, strings.Join(ValidBackends(), ", "))
	}
	if c.Codec == "" {
		c.Codec = DefaultCodec
	}
	if _, err := codec.ForName(c.Codec); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.ConnectAttempt < 0 {
		return fmt.Errorf("config: connect attempt must be >= 0")
	}
	if c.ConnectAttempt == 0 {
		c.ConnectAttempt = DefaultConnectAttempt
	}
	if c.LogParametersRetryDelay < 0 {
		return fmt.Errorf("config: log parameters retry delay must be >= 0")
	}
	if c.LogParametersRetryDelay == 0 {
		c.LogParametersRetryDelay = DefaultLogParametersRetryDelay
	}
	return nil
}
