package ble

// UUID strings are bit-exact and frozen by spec §6; they must never be
// altered independently of a protocol version bump.
const (
	AuthServiceUUID = "d69a37ee-1d8a-4329-bd24-25db4af3c865"
	AuthKeyCharUUID = "d69a37ee-1d8a-4329-bd24-25db4af3c866"

	ScanServiceUUID     = "d69a37ee-1d8a-4329-bd24-25db4af3c863"
	ScanControlCharUUID = "d69a37ee-1d8a-4329-bd24-25db4af3c867"
	ScanStateCharUUID   = "d69a37ee-1d8a-4329-bd24-25db4af3c868"
	ScanResultsCharUUID = "d69a37ee-1d8a-4329-bd24-25db4af3c869"

	ConnectServiceUUID     = "d69a37ee-1d8a-4329-bd24-25db4af3c864"
	ConnectSSIDCharUUID    = "d69a37ee-1d8a-4329-bd24-25db4af3c86a"
	ConnectPSKCharUUID     = "d69a37ee-1d8a-4329-bd24-25db4af3c86b"
	ConnectControlCharUUID = "d69a37ee-1d8a-4329-bd24-25db4af3c86c"
	ConnectStateCharUUID   = "d69a37ee-1d8a-4329-bd24-25db4af3c86d"
)

// ResultsChunkSize is the maximum size, in bytes, of a single Results
// characteristic read (spec §4.7).
const ResultsChunkSize = 100

// Control byte values accepted by the Scan and Connect Control
// characteristics.
const (
	ScanControlScan = 0x01

	ConnectControlConnect    = 0x01
	ConnectControlDisconnect = 0x02
)

// gattError mirrors the small set of ATT/GATT error causes the adapter
// needs to distinguish; a concrete peripheral binding maps these onto its
// library's own error-code type.
type gattError int

const (
	errInvalidValue gattError = iota
	errAuthentication
	errOutOfRange
)

func (e gattError) Error() string {
	switch e {
	case errInvalidValue:
		return "ble: invalid characteristic value"
	case errAuthentication:
		return "ble: authentication required"
	case errOutOfRange:
		return "ble: read offset out of range"
	default:
		return "ble: unknown error"
	}
}
