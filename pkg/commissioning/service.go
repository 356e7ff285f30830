package commissioning

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wcd-project/wifi-commissiond/pkg/auth"
	"github.com/wcd-project/wifi-commissiond/pkg/connectengine"
	"github.com/wcd-project/wifi-commissiond/pkg/notify"
	"github.com/wcd-project/wifi-commissiond/pkg/scanengine"
	"github.com/wcd-project/wifi-commissiond/pkg/wifi"
)

// AuthScope tells a mutating call whether it must consult the
// authorization grant. The BLE transport always requires a live grant; the
// Unix-socket transport elides the check because filesystem permissions on
// the socket are the sole gate (spec §4.2).
type AuthScope int

const (
	// RequireAuth consults the grant before acting (BLE transport).
	RequireAuth AuthScope = iota
	// SkipAuth proceeds unconditionally (Unix-socket transport).
	SkipAuth
)

// Service is CommissioningService (spec §4.3, C6): the single facade the
// BLE and Unix-socket front ends drive. All mutable state — scan state,
// connection state, and the authorization grant — sits behind one
// writer-exclusion lock shared with both engines (spec §5); readbacks
// proceed concurrently with each other and exclude only writers.
type Service struct {
	lock sync.RWMutex

	authorizer *auth.Authorizer
	scan       *scanengine.Engine
	connect    *connectengine.Engine
	hub        *notify.Hub

	shutdownOnce sync.Once
	closing      chan struct{}
}

// New wires a Service around backend, with secret as the daemon-configured
// shared authorization secret (hashed once at startup, spec §4.2).
func New(backend wifi.Backend, secret []byte) *Service {
	hub := notify.New()
	s := &Service{
		authorizer: auth.New(secret),
		hub:        hub,
		closing:    make(chan struct{}),
	}
	s.scan = scanengine.New(backend, hub, &s.lock)
	s.connect = connectengine.New(backend, hub, &s.lock)
	return s
}

// Hub returns the shared notification hub front ends subscribe sessions
// against.
func (s *Service) Hub() *notify.Hub { return s.hub }

// Authorize verifies offeredHash against the daemon secret and, on
// success, grants a new 5-minute authorization window (spec §4.2).
func (s *Service) Authorize(offeredHash [32]byte) error {
	if err := s.authorizer.Authorize(offeredHash); err != nil {
		return wrapErr(CodeUnauthorized, "authorization failed", err)
	}
	return nil
}

// IsAuthorized reports whether a live grant currently exists.
func (s *Service) IsAuthorized() bool {
	return s.authorizer.IsAuthorized(time.Now())
}

func (s *Service) checkAuth(scope AuthScope) error {
	if scope == SkipAuth {
		return nil
	}
	if !s.authorizer.IsAuthorized(time.Now()) {
		return newErr(CodeUnauthorized, "no valid authorization grant")
	}
	return nil
}

// Scan requests a new network scan. It returns once the request has been
// accepted (the engine is Scanning); completion arrives later as a
// scan_state_changed notification, never from this call (spec §5, §4.4).
func (s *Service) Scan(ctx context.Context, scope AuthScope) error {
	select {
	case <-s.closing:
		return newErr(CodeInvalidState, "service is shutting down")
	default:
	}
	if err := s.checkAuth(scope); err != nil {
		return err
	}
	if err := s.scan.Scan(ctx); err != nil {
		return wrapErr(CodeInvalidState, "scan already in progress", err)
	}
	return nil
}

// ScanResults returns the most recently finished scan's networks, already
// sorted (spec §4.4). Fails CodeInvalidState if no scan has finished.
func (s *Service) ScanResults() ([]wifi.WifiNetwork, error) {
	results, err := s.scan.Results()
	if err != nil {
		return nil, wrapErr(CodeInvalidState, "no finished scan available", err)
	}
	return results, nil
}

// ScanState returns a snapshot of the scan state machine.
func (s *Service) ScanState() wifi.ScanState { return s.scan.State() }

// Connect requests a connection attempt to the given network. ssid and psk
// are validated at this boundary (spec §4.5) before being handed to the
// connect engine; the engine itself assumes pre-validated input.
func (s *Service) Connect(ctx context.Context, scope AuthScope, ssid, psk []byte) error {
	select {
	case <-s.closing:
		return newErr(CodeInvalidState, "service is shutting down")
	default:
	}
	if err := s.checkAuth(scope); err != nil {
		return err
	}
	if err := validateSSID(ssid); err != nil {
		return err
	}
	if err := validatePSK(psk); err != nil {
		return err
	}
	if err := s.connect.Connect(ctx, ssid, psk); err != nil {
		return wrapErr(CodeInvalidState, "connect already in progress", err)
	}
	return nil
}

// Disconnect tears down the current connection. It does not clear
// persisted configuration (spec §4.5).
func (s *Service) Disconnect(ctx context.Context, scope AuthScope) error {
	if err := s.checkAuth(scope); err != nil {
		return err
	}
	if err := s.connect.Disconnect(ctx); err != nil {
		switch {
		case errors.Is(err, connectengine.ErrInvalidState):
			return wrapErr(CodeInvalidState, "disconnect already in progress", err)
		case errors.Is(err, context.DeadlineExceeded):
			return wrapErr(CodeTimeout, "disconnect timed out", err)
		default:
			return wrapErr(CodeBackendError, "disconnect failed", err)
		}
	}
	return nil
}

// ConnectionState returns a snapshot of the connection state machine.
func (s *Service) ConnectionState() wifi.ConnectionState { return s.connect.State() }

// Shutdown stops accepting new mutating requests immediately and waits,
// bounded by ctx's deadline, for any in-flight scan or connect to reach a
// terminal state (spec §5's drain requirement). Readbacks remain available
// throughout. Safe to call more than once; only the first call drains.
func (s *Service) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { close(s.closing) })

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if s.ScanState().Kind != wifi.ScanScanning && s.ConnectionState().Kind != wifi.ConnConnecting {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
