package scanengine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wcd-project/wifi-commissiond/pkg/notify"
	"github.com/wcd-project/wifi-commissiond/pkg/wifi"
)

// ErrInvalidState is returned when Scan is called while a scan is already
// in flight, or Results is called before any scan has finished.
var ErrInvalidState = errors.New("scanengine: invalid state")

// DefaultTimeout is the operation-level deadline applied to a backend scan
// (spec §5: default 30s).
const DefaultTimeout = 30 * time.Second

// Engine drives the ScanState machine (spec §4.4):
//
//	Idle --scan()--> Scanning --ok(results)--> Finished
//	                        \--err(msg)-----> Error
//	Finished --scan()--> Scanning
//	Error    --scan()--> Scanning
//
// The engine takes a *sync.RWMutex shared with the rest of the
// commissioning facade: every caller serializes through that single
// writer-exclusion primitive (spec §5), while the backend call itself runs
// with no lock held so readbacks are never stalled behind a multi-second
// scan.
type Engine struct {
	lock    *sync.RWMutex
	backend wifi.Backend
	hub     *notify.Hub
	timeout time.Duration

	busy  bool
	state wifi.ScanState
}

// New creates an Engine in the Idle state, sharing lock with the owning
// facade and publishing transitions through hub.
func New(backend wifi.Backend, hub *notify.Hub, lock *sync.RWMutex) *Engine {
	return &Engine{
		lock:    lock,
		backend: backend,
		hub:     hub,
		timeout: DefaultTimeout,
		state:   wifi.IdleScanState(),
	}
}

// SetTimeout overrides the default backend scan deadline. Not safe to call
// concurrently with Scan.
func (e *Engine) SetTimeout(d time.Duration) { e.timeout = d }

// State returns a snapshot of the current scan state. Safe to call while a
// scan is in flight (readbacks exclude only writers, spec §5).
func (e *Engine) State() wifi.ScanState {
	e.lock.RLock()
	defer e.lock.RUnlock()
	return e.state
}

// Results returns the networks from the Finished state, or ErrInvalidState
// if the engine is not currently Finished.
func (e *Engine) Results() ([]wifi.WifiNetwork, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()
	if e.state.Kind != wifi.ScanFinished {
		return nil, ErrInvalidState
	}
	return e.state.Results, nil
}

// Scan triggers a scan and returns as soon as it has been accepted and
// recorded as Scanning — it does not wait for the backend to resolve. The
// request that calls Scan is not the same task that drives the backend
// call to completion, so a client disconnecting or its RPC call timing out
// cannot abort an in-flight scan (spec §5). Completion is observed via the
// scan_state_changed notification and/or a later Results call. Scan fails
// ErrInvalidState if a scan is already in flight.
func (e *Engine) Scan(ctx context.Context) error {
	e.lock.Lock()
	if e.busy {
		e.lock.Unlock()
		return ErrInvalidState
	}
	e.busy = true
	startedAt := time.Now()
	e.state = wifi.ScanningState(startedAt)
	e.lock.Unlock()

	e.hub.Publish(notify.Event{Kind: notify.ScanStateChanged, Payload: ScanStateChangedPayload{
		State: wifi.ScanScanning,
	}})

	go e.run()
	return nil
}

// run drives the backend scan call to its terminal state. It holds no
// writer lock for the duration of the backend call; the lock is acquired
// only to publish the resulting transition.
func (e *Engine) run() {
	scanCtx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	results, err := e.backend.Scan(scanCtx)

	e.lock.Lock()
	e.busy = false
	if err != nil {
		e.state = wifi.ErrorScanState(err.Error(), time.Now())
	} else {
		e.state = wifi.FinishedScanState(wifi.SortNetworks(results), time.Now())
	}
	final := e.state
	e.lock.Unlock()

	if final.Kind == wifi.ScanError {
		e.hub.Publish(notify.Event{Kind: notify.ScanStateChanged, Payload: ScanStateChangedPayload{
			State:   wifi.ScanError,
			Message: final.Message,
		}})
		return
	}

	e.hub.Publish(notify.Event{Kind: notify.ScanStateChanged, Payload: ScanStateChangedPayload{
		State:    wifi.ScanFinished,
		Networks: final.Results,
	}})
}

// ScanStateChangedPayload is the notify.Event payload published on every
// scan state transition; it doubles as the JSON-RPC notification body.
type ScanStateChangedPayload struct {
	State    wifi.ScanStateKind `json:"-"`
	Networks []wifi.WifiNetwork `json:"networks,omitempty"`
	Message  string             `json:"message,omitempty"`
}
