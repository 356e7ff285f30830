// Package codec implements the byte-level encodings the BLE adapter needs
// to keep GATT payloads within 7-bit ASCII: hex-escaping of non-printable
// SSID bytes, and JSON string escaping layered on top (spec §4.8).
package codec
