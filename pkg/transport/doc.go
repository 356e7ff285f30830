// Package transport defines the boundary contracts a commissioning front
// end implements to plug into CommissioningService (spec §4.3, C10): a
// Session per connected client, used for notification delivery, and a
// Transport that owns the session lifecycle. The BLE GATT adapter
// (pkg/ble) and the Unix-socket JSON-RPC dispatcher (pkg/jsonrpc) are both
// clients of these contracts; they share no state with each other — all
// cross-transport effects flow through pkg/notify.
package transport
