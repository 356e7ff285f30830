// Package wifi defines the domain model shared by every component of the
// commissioning daemon: network observations, the scan/connection state
// machines' value types, and the WifiBackend contract that abstracts the
// local supplicant.
package wifi
