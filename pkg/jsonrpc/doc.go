// Package jsonrpc implements the Unix-domain-socket JSON-RPC 2.0 front end
// (spec §6): a length-framed dispatcher exposing authorize, scan,
// get_scan_results, connect, get_connection_state, disconnect, plus the
// supplemented ping and get_version, and forwarding scan_state_changed /
// connection_state_changed as server-initiated notifications. This
// transport elides the authorization check (spec §4.2): filesystem
// permissions on the socket are its sole gate.
package jsonrpc
