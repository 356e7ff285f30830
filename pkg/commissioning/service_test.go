package commissioning

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"

	"github.com/wcd-project/wifi-commissiond/pkg/wifi"
	"github.com/wcd-project/wifi-commissiond/pkg/wifi/wifimock"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestBLERequiresAuthorization(t *testing.T) {
	backend := wifimock.New()
	svc := New(backend, []byte("s3cret"))

	err := svc.Scan(context.Background(), RequireAuth)
	require.Equal(t, CodeUnauthorized, CodeOf(err), "expected CodeUnauthorized before authorize")

	hash := sha3.Sum256([]byte("s3cret"))
	require.NoError(t, svc.Authorize(hash))

	assert.NoError(t, svc.Scan(context.Background(), RequireAuth))
}

func TestUnixSocketSkipsAuthorization(t *testing.T) {
	backend := wifimock.New()
	svc := New(backend, []byte("s3cret"))

	assert.NoError(t, svc.Scan(context.Background(), SkipAuth))
}

func TestAuthorizeWrongSecretFails(t *testing.T) {
	backend := wifimock.New()
	svc := New(backend, []byte("s3cret"))

	hash := sha3.Sum256([]byte("wrong"))
	err := svc.Authorize(hash)
	assert.Equal(t, CodeUnauthorized, CodeOf(err))
}

func TestConnectValidatesSSIDAndPSK(t *testing.T) {
	backend := wifimock.New()
	svc := New(backend, []byte("s3cret"))

	cases := []struct {
		name string
		ssid []byte
		psk  []byte
	}{
		{"empty ssid", []byte{}, []byte("password1")},
		{"ssid too long", make([]byte, 33), []byte("password1")},
		{"psk too short", []byte("Home"), []byte("short")},
		{"psk too long", []byte("Home"), make([]byte, 64)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Connect(context.Background(), SkipAuth, tc.ssid, tc.psk)
			assert.Equal(t, CodeInvalidParams, CodeOf(err))
		})
	}
}

func TestConnectAcceptsBinaryPMK(t *testing.T) {
	backend := wifimock.New()
	backend.ConnectOutcomes = []wifimock.ConnectOutcome{{IP: "10.0.0.1"}}
	svc := New(backend, []byte("s3cret"))

	pmk := make([]byte, 32)
	for i := range pmk {
		pmk[i] = 0xAB
	}
	assert.NoError(t, svc.Connect(context.Background(), SkipAuth, []byte("Home"), pmk))
}

func TestScanResultsInvalidStateBeforeFinish(t *testing.T) {
	backend := wifimock.New()
	svc := New(backend, []byte("s3cret"))

	_, err := svc.ScanResults()
	assert.Equal(t, CodeInvalidState, CodeOf(err))
}

func TestShutdownDrainsInFlightScan(t *testing.T) {
	backend := wifimock.New()
	backend.ScanDelay = 30 * time.Millisecond
	svc := New(backend, []byte("s3cret"))

	require.NoError(t, svc.Scan(context.Background(), SkipAuth))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(ctx), "shutdown should drain the in-flight scan")
	assert.Equal(t, wifi.ScanFinished, svc.ScanState().Kind)

	err := svc.Scan(context.Background(), SkipAuth)
	assert.Equal(t, CodeInvalidState, CodeOf(err), "scan should be rejected after shutdown")
}

func TestDisconnectReturnsToIdleThroughService(t *testing.T) {
	backend := wifimock.New()
	backend.ConnectOutcomes = []wifimock.ConnectOutcome{{IP: "10.0.0.1"}}
	svc := New(backend, []byte("s3cret"))

	require.NoError(t, svc.Connect(context.Background(), SkipAuth, []byte("Home"), []byte("password1")))
	waitFor(t, time.Second, func() bool { return svc.ConnectionState().Kind == wifi.ConnConnected })

	require.NoError(t, svc.Disconnect(context.Background(), SkipAuth))
	assert.Equal(t, wifi.ConnIdle, svc.ConnectionState().Kind)
}
