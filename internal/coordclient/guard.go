package coordclient

import "errors"

// ErrSubscriberClosed is the sentinel surfaced to callers when a guarded
// adapter call observes ErrConnectionLoss or ErrSessionExpired. It replaces
// the underlying error entirely; callers outside the guarded region never
// see the raw connection error, only this sentinel.
var ErrSubscriberClosed = errors.New("coordclient: subscriber closed")

// Guard wraps a single adapter call's error, translating ErrConnectionLoss
// and ErrSessionExpired into ErrSubscriberClosed. Every storage operation
// (the log writer, subscriber, chunk store, origin manager,
// pulse/membership, and GC) routes its adapter error through Guard before
// propagating it, so those components never have to know about the two
// underlying connection failure kinds individually. Only those two kinds
// are translated: ErrClosed means the adapter was shut down deliberately
// and propagates as itself, like every other logical error.
func Guard(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConnectionLoss) || errors.Is(err, ErrSessionExpired) {
		return ErrSubscriberClosed
	}
	return err
}
