package connectengine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/wcd-project/wifi-commissiond/pkg/notify"
	"github.com/wcd-project/wifi-commissiond/pkg/wifi"
)

// ErrInvalidState is returned when Connect is called while a connection
// attempt is already in flight.
var ErrInvalidState = errors.New("connectengine: invalid state")

// DefaultTimeout is the operation-level deadline applied to a backend
// connect call (spec §5: default 60s).
const DefaultTimeout = 60 * time.Second

// Engine drives the ConnectionState machine (spec §4.5):
//
//	Idle       --connect()--> Connecting
//	Connecting --ok(ip)-----> Connected   (SaveConfig called exactly here)
//	Connecting --err---------> Error
//	Connected  --connect()--> Connecting
//	Connected  --disconnect()--> Idle
//	Error      --connect()--> Connecting
//
// SaveConfig is the single most important invariant this engine upholds: it
// is called if and only if the backend has reported both a successful
// association and an assigned IP address, on the Connecting->Connected
// transition, and never on any failure path. A device that loses power
// mid-handshake with a bad PSK must come back up still able to retry with
// its last-known-good credentials, not a half-written config.
type Engine struct {
	lock    *sync.RWMutex
	backend wifi.Backend
	hub     *notify.Hub
	timeout time.Duration
	logger  *slog.Logger

	busy  bool
	state wifi.ConnectionState
}

// New creates an Engine in the Idle state, sharing lock with the owning
// facade and publishing transitions through hub.
func New(backend wifi.Backend, hub *notify.Hub, lock *sync.RWMutex) *Engine {
	return &Engine{
		lock:    lock,
		backend: backend,
		hub:     hub,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
		state:   wifi.IdleConnectionState(),
	}
}

// SetTimeout overrides the default backend connect deadline. Not safe to
// call concurrently with Connect.
func (e *Engine) SetTimeout(d time.Duration) { e.timeout = d }

// SetLogger overrides the logger used to record non-fatal SaveConfig
// failures. Not safe to call concurrently with Connect.
func (e *Engine) SetLogger(l *slog.Logger) {
	if l != nil {
		e.logger = l
	}
}

// State returns a snapshot of the current connection state.
func (e *Engine) State() wifi.ConnectionState {
	e.lock.RLock()
	defer e.lock.RUnlock()
	return e.state
}

// Connect triggers a connection attempt and returns as soon as it has been
// accepted and recorded as Connecting — it does not wait for the backend to
// associate. ssid and psk are assumed already validated by the caller
// (spec §4.5 places that validation at the service boundary). Connect fails
// ErrInvalidState if a connect attempt is already in flight.
func (e *Engine) Connect(ctx context.Context, ssid, psk []byte) error {
	e.lock.Lock()
	if e.busy {
		e.lock.Unlock()
		return ErrInvalidState
	}
	e.busy = true
	startedAt := time.Now()
	e.state = wifi.ConnectingState(ssid, startedAt)
	e.lock.Unlock()

	e.hub.Publish(notify.Event{Kind: notify.ConnectionStateChanged, Payload: ConnectionStateChangedPayload{
		State: wifi.ConnConnecting,
		SSID:  ssid,
	}})

	ssidCopy := append([]byte(nil), ssid...)
	pskCopy := append([]byte(nil), psk...)
	go e.run(ssidCopy, pskCopy)
	return nil
}

// zero overwrites buf in place so no PSK representation outlives the
// attempt that used it (spec §9).
func zero(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}

// Disconnect tears down the current connection via the backend and returns
// to Idle. It does not clear any persisted configuration (spec §4.5: a
// disconnect is a runtime action only). Disconnect fails ErrInvalidState if
// a connect attempt is currently in flight.
func (e *Engine) Disconnect(ctx context.Context) error {
	e.lock.Lock()
	if e.busy {
		e.lock.Unlock()
		return ErrInvalidState
	}
	e.busy = true
	e.lock.Unlock()

	err := e.backend.Disconnect(ctx)

	e.lock.Lock()
	e.busy = false
	if err != nil {
		e.lock.Unlock()
		return err
	}
	e.state = wifi.IdleConnectionState()
	e.lock.Unlock()

	e.hub.Publish(notify.Event{Kind: notify.ConnectionStateChanged, Payload: ConnectionStateChangedPayload{
		State: wifi.ConnIdle,
	}})
	return nil
}

// run drives the backend connect call to its terminal state and, on
// success only, persists the configuration. It holds no writer lock for
// the duration of either backend call.
func (e *Engine) run(ssid, psk []byte) {
	connectCtx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	err := e.backend.Connect(connectCtx, ssid, psk)
	defer zero(psk)

	if err != nil {
		kind := wifi.KindOf(err).String()
		e.lock.Lock()
		e.busy = false
		e.state = wifi.ErrorConnectionState(kind, err.Error(), time.Now())
		e.lock.Unlock()

		e.hub.Publish(notify.Event{Kind: notify.ConnectionStateChanged, Payload: ConnectionStateChangedPayload{
			State:     wifi.ConnError,
			SSID:      ssid,
			ErrorKind: kind,
			Message:   err.Error(),
		}})
		return
	}

	status, statusErr := e.backend.Status(connectCtx)
	ip := ""
	if statusErr == nil && status.HasIP {
		ip = status.IP
	}

	// Atomic-success persistence: SaveConfig is reached only from this
	// branch, after both association (err == nil above) and IP assignment
	// have been observed.
	if saveErr := e.backend.SaveConfig(context.Background()); saveErr != nil {
		e.logger.Error("save_config failed after successful connect",
			"ssid", string(ssid), "error", saveErr)
	}

	e.lock.Lock()
	e.busy = false
	e.state = wifi.ConnectedState(ssid, ip)
	e.lock.Unlock()

	e.hub.Publish(notify.Event{Kind: notify.ConnectionStateChanged, Payload: ConnectionStateChangedPayload{
		State: wifi.ConnConnected,
		SSID:  ssid,
		IP:    ip,
	}})
}

// ConnectionStateChangedPayload is the notify.Event payload published on
// every connection state transition; it doubles as the JSON-RPC
// notification body.
type ConnectionStateChangedPayload struct {
	State     wifi.ConnectionStateKind `json:"-"`
	SSID      []byte                   `json:"ssid,omitempty"`
	IP        string                   `json:"ip,omitempty"`
	ErrorKind string                   `json:"kind,omitempty"`
	Message   string                   `json:"message,omitempty"`
}
