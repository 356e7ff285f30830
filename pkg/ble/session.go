package ble

import "sync"

// pendingCredentials accumulates a session's in-progress SSID/PSK write
// (spec §4.7: "each write appends ... until the first Control write
// commits"). Cleared on commit, on disconnect, and on any authorization
// revocation.
type pendingCredentials struct {
	ssidBuf []byte
	pskBuf  []byte
}

func (p *pendingCredentials) reset() {
	for i := range p.ssidBuf {
		p.ssidBuf[i] = 0
	}
	for i := range p.pskBuf {
		p.pskBuf[i] = 0
	}
	p.ssidBuf = nil
	p.pskBuf = nil
}

// sessionState is the adapter's per-BLE-link state: the in-progress
// connect accumulation buffers and the Results-characteristic pagination
// cursor. One sessionState exists per connected central for the lifetime
// of its link.
type sessionState struct {
	mu sync.Mutex

	id string

	pending       pendingCredentials
	resultsDoc    []byte
	resultsCursor int
}

// newSessionState creates per-link state for a newly connected central.
func newSessionState(id string) *sessionState {
	return &sessionState{id: id}
}
