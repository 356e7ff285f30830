// Package scanengine implements the scan state machine and single-flight
// scan execution described in spec §4.4. It publishes scan_state_changed
// notifications through the shared hub on every state transition.
package scanengine
