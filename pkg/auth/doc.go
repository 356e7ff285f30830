// Package auth implements the commissioning daemon's single authorization
// primitive (spec §4.2): a SHA3-256 hash of a daemon-configured shared
// secret, compared constant-time against what the client offers, gating a
// time-bounded grant. There is no PAKE exchange and no rate limiting here —
// the BLE link is assumed paired, and the local socket is gated by
// filesystem permissions instead.
package auth
