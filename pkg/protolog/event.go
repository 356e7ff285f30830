// Package protolog is an optional structured protocol event logger for
// field diagnostics: BLE characteristic I/O and JSON-RPC calls and
// notifications, encoded compactly for on-disk storage. Disabled (a
// no-op) unless a CLI flag enables it.
package protolog

import "time"

// Direction indicates the flow of an event relative to the daemon.
type Direction uint8

const (
	DirectionIn Direction = iota
	DirectionOut
)

func (d Direction) String() string {
	if d == DirectionOut {
		return "OUT"
	}
	return "IN"
}

// Transport identifies which front end produced an event.
type Transport uint8

const (
	TransportBLE Transport = iota
	TransportUnix
)

func (t Transport) String() string {
	if t == TransportUnix {
		return "unix"
	}
	return "ble"
}

// Category classifies the kind of event captured.
type Category uint8

const (
	// CategoryCharacteristicIO is a BLE GATT characteristic read/write.
	CategoryCharacteristicIO Category = iota
	// CategoryRPCCall is a JSON-RPC request/response pair.
	CategoryRPCCall
	// CategoryNotification is a server-initiated notification.
	CategoryNotification
	// CategoryStateChange is a scan/connection state transition.
	CategoryStateChange
)

func (c Category) String() string {
	switch c {
	case CategoryCharacteristicIO:
		return "characteristic_io"
	case CategoryRPCCall:
		return "rpc_call"
	case CategoryNotification:
		return "notification"
	case CategoryStateChange:
		return "state_change"
	default:
		return "unknown"
	}
}

// Event is one protocol-level occurrence. CBOR encoding uses integer keys
// for compactness, mirroring the teacher's protocol log format.
type Event struct {
	Timestamp time.Time `cbor:"1,keyasint"`
	SessionID string    `cbor:"2,keyasint"`
	Transport Transport `cbor:"3,keyasint"`
	Direction Direction `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// Characteristic is the characteristic UUID suffix for a
	// characteristic_io event, e.g. "c867".
	Characteristic string `cbor:"6,keyasint,omitempty"`

	// Method is the JSON-RPC method name for an rpc_call event, or the
	// notification method for a notification event.
	Method string `cbor:"7,keyasint,omitempty"`

	// DataSize is the payload size in bytes; Data carries a possibly
	// truncated copy for inspection.
	DataSize  int    `cbor:"8,keyasint,omitempty"`
	Data      []byte `cbor:"9,keyasint,omitempty"`
	Truncated bool   `cbor:"10,keyasint,omitempty"`

	// Err, if non-empty, records a failure associated with this event.
	Err string `cbor:"11,keyasint,omitempty"`
}

// MaxLoggedDataSize bounds the payload copy retained in an Event to avoid
// unbounded memory/disk use for large scan-result chunks.
const MaxLoggedDataSize = 4096

// NewEvent builds an Event, truncating data beyond MaxLoggedDataSize.
func NewEvent(sessionID string, transport Transport, dir Direction, cat Category, data []byte) Event {
	e := Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Transport: transport,
		Direction: dir,
		Category:  cat,
		DataSize:  len(data),
	}
	if len(data) > MaxLoggedDataSize {
		e.Data = append([]byte(nil), data[:MaxLoggedDataSize]...)
		e.Truncated = true
	} else {
		e.Data = append([]byte(nil), data...)
	}
	return e
}
