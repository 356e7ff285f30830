package ble

import (
	"context"
	"sync"

	"github.com/wcd-project/wifi-commissiond/pkg/commissioning"
	"github.com/wcd-project/wifi-commissiond/pkg/wifi"
)

// Adapter is the BLE GATT protocol adapter (spec §4.7, C8). It holds no
// dependency on any concrete peripheral stack; gattperipheral.go binds it
// to one.
type Adapter struct {
	svc *commissioning.Service

	mu       sync.Mutex
	sessions map[string]*sessionState
}

// New creates an Adapter driving svc.
func New(svc *commissioning.Service) *Adapter {
	return &Adapter{svc: svc, sessions: make(map[string]*sessionState)}
}

func (a *Adapter) sessionFor(id string) *sessionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[id]
	if !ok {
		s = newSessionState(id)
		a.sessions[id] = s
	}
	return s
}

// OnDisconnect clears a link's accumulation buffers and pagination cursor
// without committing anything (spec §4.7: "a session disconnect clears
// them without committing"). It does not touch the authorization grant,
// which is governed solely by its own 5-minute timer (spec §5).
func (a *Adapter) OnDisconnect(sessionID string) {
	a.mu.Lock()
	s, ok := a.sessions[sessionID]
	delete(a.sessions, sessionID)
	a.mu.Unlock()
	if ok {
		s.mu.Lock()
		s.pending.reset()
		s.mu.Unlock()
	}
}

// HandleAuthWrite services a write to the Auth/AuthKey characteristic. It
// requires no existing grant — this is the operation that creates one.
func (a *Adapter) HandleAuthWrite(data []byte) error {
	if len(data) != 32 {
		return errInvalidValue
	}
	var hash [32]byte
	copy(hash[:], data)
	if err := a.svc.Authorize(hash); err != nil {
		return errAuthentication
	}
	return nil
}

// HandleScanControlWrite services a write to the Scan/Control
// characteristic.
func (a *Adapter) HandleScanControlWrite(ctx context.Context, data []byte) error {
	if len(data) != 1 || data[0] != ScanControlScan {
		return errInvalidValue
	}
	if err := a.svc.Scan(ctx, commissioning.RequireAuth); err != nil {
		return mapServiceError(err)
	}
	return nil
}

// HandleScanStateRead services a read of the Scan/State characteristic.
func (a *Adapter) HandleScanStateRead() []byte {
	return []byte{scanStateByte(a.svc.ScanState().Kind)}
}

// HandleScanResultsRead services a read of the Scan/Results
// characteristic for the given session, returning the next paginated
// chunk and advancing that session's cursor.
func (a *Adapter) HandleScanResultsRead(sessionID string) ([]byte, error) {
	s := a.sessionFor(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resultsCursor == 0 {
		networks, _ := a.svc.ScanResults()
		doc, err := canonicalScanResultsJSON(networks)
		if err != nil {
			return nil, err
		}
		s.resultsDoc = doc
	}
	chunk, next := nextResultsChunk(s.resultsDoc, s.resultsCursor)
	s.resultsCursor = next
	return chunk, nil
}

// HandleConnectSSIDWrite appends data to the session's accumulating SSID
// buffer.
func (a *Adapter) HandleConnectSSIDWrite(sessionID string, data []byte) error {
	s := a.sessionFor(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending.ssidBuf)+len(data) > wifi.MaxSSIDLength {
		return errInvalidValue
	}
	s.pending.ssidBuf = append(s.pending.ssidBuf, data...)
	return nil
}

// maxPendingPSKLen bounds PSK accumulation; the spec's own commit-time
// check is the exact-32-byte rule below, this just prevents an
// unbounded-length write storm.
const maxPendingPSKLen = 64

// HandleConnectPSKWrite appends data to the session's accumulating PSK
// buffer.
func (a *Adapter) HandleConnectPSKWrite(sessionID string, data []byte) error {
	s := a.sessionFor(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending.pskBuf)+len(data) > maxPendingPSKLen {
		return errInvalidValue
	}
	s.pending.pskBuf = append(s.pending.pskBuf, data...)
	return nil
}

// HandleConnectControlWrite services a write to the Connect/Control
// characteristic: commit (connect) or disconnect. On commit, the
// accumulated buffers are always cleared afterward, whether the connect
// attempt was accepted or rejected (spec §4.7).
func (a *Adapter) HandleConnectControlWrite(ctx context.Context, sessionID string, data []byte) error {
	if len(data) != 1 {
		return errInvalidValue
	}

	switch data[0] {
	case ConnectControlConnect:
		s := a.sessionFor(sessionID)
		s.mu.Lock()
		ssid := append([]byte(nil), s.pending.ssidBuf...)
		psk := append([]byte(nil), s.pending.pskBuf...)
		s.pending.reset()
		s.mu.Unlock()

		// BLE delivers PSK only as a 32-byte binary PMK (spec §4.7); any
		// other length fails the commit before the service is consulted.
		if len(psk) != 32 {
			return errInvalidValue
		}
		if err := a.svc.Connect(ctx, commissioning.RequireAuth, ssid, psk); err != nil {
			return mapServiceError(err)
		}
		return nil

	case ConnectControlDisconnect:
		if err := a.svc.Disconnect(ctx, commissioning.RequireAuth); err != nil {
			return mapServiceError(err)
		}
		return nil

	default:
		return errInvalidValue
	}
}

// HandleConnectStateRead services a read of the Connect/State
// characteristic.
func (a *Adapter) HandleConnectStateRead() []byte {
	return []byte{connStateByte(a.svc.ConnectionState().Kind)}
}

func scanStateByte(k wifi.ScanStateKind) byte {
	switch k {
	case wifi.ScanIdle:
		return 0
	case wifi.ScanScanning:
		return 1
	case wifi.ScanFinished:
		return 2
	default:
		return 3
	}
}

func connStateByte(k wifi.ConnectionStateKind) byte {
	switch k {
	case wifi.ConnIdle:
		return 0
	case wifi.ConnConnecting:
		return 1
	case wifi.ConnConnected:
		return 2
	default:
		return 3
	}
}

// mapServiceError maps a commissioning.Error onto the adapter's GATT error
// taxonomy; a concrete peripheral binding maps gattError onto its own
// ATT status codes.
func mapServiceError(err error) error {
	switch commissioning.CodeOf(err) {
	case commissioning.CodeUnauthorized:
		return errAuthentication
	case commissioning.CodeInvalidParams:
		return errInvalidValue
	default:
		return errInvalidValue
	}
}
