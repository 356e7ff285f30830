// Package notify implements the commissioning daemon's notification hub
// (spec §4.6): best-effort, per-session fan-out of scan/connection state
// change events. A full or broken session never blocks the publisher; the
// event is dropped for that session and the drop is recorded.
package notify
