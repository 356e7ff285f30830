// Package wifimock provides a deterministic, in-memory wifi.Backend used by
// the engine and service test suites. It stands in for the generated mocks
// the teacher produces with mockery (no code generator is available in this
// environment), following the same shape: a hand-rollable fake with
// controllable timing and scripted outcomes.
package wifimock

import (
	"context"
	"sync"
	"time"

	"github.com/wcd-project/wifi-commissiond/pkg/wifi"
)

// ConnectOutcome scripts the result of a single Connect call.
type ConnectOutcome struct {
	// Delay is how long Connect blocks before resolving, simulating the
	// backend's asynchronous association handshake.
	Delay time.Duration

	// IP is returned on success. Leave empty together with Err set for a
	// failure outcome.
	IP string

	// Err, if non-nil, is returned from Connect and no IP is assigned.
	Err error
}

// Backend is a deterministic wifi.Backend for tests.
type Backend struct {
	mu sync.Mutex

	// ScanResults is returned by the next Scan call (already in whatever
	// order the test wants to assert is re-sorted by the backend boundary).
	ScanResults []wifi.WifiNetwork
	ScanDelay   time.Duration
	ScanErr     error
	ScanCalls   int

	// ConnectOutcomes is consumed in order, one per Connect call. If
	// exhausted, the last entry (or a zero-value success) repeats.
	ConnectOutcomes []ConnectOutcome
	connectCall     int
	ConnectCalls    []connectCall

	SaveConfigErr   error
	SaveConfigCalls int

	DisconnectErr   error
	DisconnectCalls int

	status      wifi.ConnectionStatus
	StatusErr   error
	StatusCalls int
}

type connectCall struct {
	SSID []byte
	PSK  []byte
}

// New creates an empty mock backend in the idle/disconnected state.
func New() *Backend {
	return &Backend{status: wifi.ConnectionStatus{State: wifi.ConnIdle}}
}

// Scan implements wifi.Backend.
func (b *Backend) Scan(ctx context.Context) ([]wifi.WifiNetwork, error) {
	b.mu.Lock()
	delay := b.ScanDelay
	results := b.ScanResults
	err := b.ScanErr
	b.ScanCalls++
	b.mu.Unlock()

	if !waitOrCancel(ctx, delay) {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	out := make([]wifi.WifiNetwork, len(results))
	copy(out, results)
	return out, nil
}

// Connect implements wifi.Backend.
func (b *Backend) Connect(ctx context.Context, ssid, psk []byte) error {
	b.mu.Lock()
	idx := b.connectCall
	b.connectCall++
	b.ConnectCalls = append(b.ConnectCalls, connectCall{SSID: append([]byte(nil), ssid...), PSK: append([]byte(nil), psk...)})

	var outcome ConnectOutcome
	switch {
	case len(b.ConnectOutcomes) == 0:
		// Default: immediate success with no IP (caller should script one).
	case idx < len(b.ConnectOutcomes):
		outcome = b.ConnectOutcomes[idx]
	default:
		outcome = b.ConnectOutcomes[len(b.ConnectOutcomes)-1]
	}
	b.mu.Unlock()

	if !waitOrCancel(ctx, outcome.Delay) {
		return ctx.Err()
	}
	if outcome.Err != nil {
		return outcome.Err
	}

	b.mu.Lock()
	b.status = wifi.ConnectionStatus{State: wifi.ConnConnected, SSID: ssid, HasSSID: true, IP: outcome.IP, HasIP: outcome.IP != ""}
	b.mu.Unlock()
	return nil
}

// SaveConfig implements wifi.Backend.
func (b *Backend) SaveConfig(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.SaveConfigCalls++
	return b.SaveConfigErr
}

// Disconnect implements wifi.Backend.
func (b *Backend) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.DisconnectCalls++
	if b.DisconnectErr != nil {
		return b.DisconnectErr
	}
	b.status = wifi.ConnectionStatus{State: wifi.ConnIdle}
	return nil
}

// Status implements wifi.Backend.
func (b *Backend) Status(ctx context.Context) (wifi.ConnectionStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.StatusCalls++
	return b.status, b.StatusErr
}

// SaveConfigCallCount is safe to read concurrently with backend operations.
func (b *Backend) SaveConfigCallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.SaveConfigCalls
}

// LastConnectCall returns the SSID/PSK passed to the most recent Connect
// call, or (nil, nil) if Connect has not been called.
func (b *Backend) LastConnectCall() ([]byte, []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.ConnectCalls) == 0 {
		return nil, nil
	}
	last := b.ConnectCalls[len(b.ConnectCalls)-1]
	return last.SSID, last.PSK
}

// waitOrCancel sleeps for d, returning false early if ctx is cancelled
// first.
func waitOrCancel(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
