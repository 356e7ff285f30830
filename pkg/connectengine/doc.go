// Package connectengine implements the connection state machine described
// in spec §4.5, including the atomic-success persistence rule: SaveConfig
// is only ever called after the backend has reported a successful
// association and IP assignment, never on a failure path. It publishes
// connection_state_changed notifications through the shared hub on every
// state transition.
package connectengine
