// Package commissioning implements CommissioningService (spec §4.3, C6):
// the single facade both the BLE and Unix-socket front ends drive. It owns
// the shared writer-exclusion lock, the authorization grant, the scan and
// connect engines, and the notification hub, and enforces the request
// validation and error taxonomy described in spec §4.5/§4.7.
//
// This package previously held a SPAKE2+/PASE commissioning protocol; that
// code does not fit this domain's much simpler SHA3-256 hash-compare
// authorization (spec §4.7 — "no PAKE exchange, no rate limiting") and has
// been replaced outright rather than adapted. See DESIGN.md.
package commissioning
