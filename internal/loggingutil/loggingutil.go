// Package loggingutil carries the logging helpers the coordlog components
// share: a disabled fallback logger and the subsystem tagging every
// component applies to the logger it is handed, so log lines from the
// backend, the lifecycle manager, and the CLI are distinguishable in one
// stream.
package loggingutil

import (
	"io"
	"strings"
	"sync"

	"pkt.systems/pslog"
)

var (
	noopOnce sync.Once
	noop     pslog.Logger
)

// NoopLogger returns a disabled pslog.Logger that discards all entries. It
// is the default wherever a Config leaves Logger nil.
func NoopLogger() pslog.Logger {
	noopOnce.Do(func() {
		noop = pslog.NewWithOptions(io.Discard, pslog.Options{
			Mode:     pslog.ModeStructured,
			MinLevel: pslog.Disabled,
		})
	})
	return noop
}

// EnsureLogger returns l when non-nil, otherwise the disabled logger.
func EnsureLogger(l pslog.Logger) pslog.Logger {
	if l != nil {
		return l
	}
	return NoopLogger()
}

// Subsystem joins name fragments into the dot-delimited subsystem path
// carried in the "sys" field, skipping empty fragments:
// Subsystem("coordlog", "lifecycle") == "coordlog.lifecycle".
func Subsystem(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Trim(part, ". ")
		if part == "" {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, ".")
}

// WithSubsystem tags every entry logged through the returned logger with
// the subsystem path. Components apply it once to the logger they are
// handed.
func WithSubsystem(logger pslog.Logger, subsystem string) pslog.Logger {
	logger = EnsureLogger(logger)
	if subsystem == "" {
		return logger
	}
	return logger.With(pslog.TrustedString("sys"), subsystem)
}
