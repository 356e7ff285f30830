// Package ble implements the BLE GATT protocol adapter (spec §4.7, C8): a
// translation layer between characteristic I/O (read, write,
// notify-subscribe) and commissioning.Service. The adapter's logic is
// tested independently of any concrete BLE peripheral stack; see
// gattperipheral.go for the thin binding that wires it to a real
// peripheral library, analogous to how pkg/wifi/wifimock stands in for a
// concrete WifiBackend.
package ble
