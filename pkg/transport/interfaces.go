package transport

import "context"

// Session represents one connected client: a BLE central holding a GATT
// link, or a peer on the Unix domain socket. It is the unit the
// notification hub (pkg/notify) delivers to and the unit authorization
// state (pending BLE credential accumulation) is scoped to.
type Session interface {
	// ID uniquely identifies the session for the lifetime of the process.
	ID() string

	// Kind names the transport the session arrived over, e.g. "ble" or
	// "unix". Used only for logging/diagnostics.
	Kind() string

	// Send delivers an out-of-band message (a notification payload) to the
	// client. Implementations must not block the caller for long; the
	// notification hub already treats a slow/broken session as a dropped
	// delivery rather than retrying.
	Send(payload []byte) error

	// Close tears down the session. Idempotent.
	Close() error
}

// Transport owns the lifecycle of a front end's sessions (accepting BLE
// central connections, or Unix socket clients) and is driven by the
// daemon's two-phase shutdown (spec §5): Stop must stop accepting new
// sessions but may return before in-flight engine work handled by existing
// sessions has drained — draining is the caller's responsibility via the
// commissioning facade.
type Transport interface {
	// Start begins accepting sessions. It returns once the transport is
	// listening; it does not block for the transport's lifetime.
	Start(ctx context.Context) error

	// Stop stops accepting new sessions and closes any it currently holds.
	Stop(ctx context.Context) error
}
