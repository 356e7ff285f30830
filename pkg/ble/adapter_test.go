package ble

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/wcd-project/wifi-commissiond/pkg/commissioning"
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

func authorizedAdapter(t *testing.T, backend wifi.Backend) *Adapter {
	t.Helper()
	svc := commissioning.New(backend, []byte("s3cret"))
	a := New(svc)
	hashBytes := sha3.Sum256([]byte("s3cret"))
	if err := a.HandleAuthWrite(hashBytes[:]); err != nil {
		t.Fatalf("HandleAuthWrite failed: %v", err)
	}
	return a
}

func TestAuthWriteRejectsWrongLength(t *testing.T) {
	a := New(commissioning.New(wifimock.New(), []byte("s3cret")))
	if err := a.HandleAuthWrite(make([]byte, 16)); err == nil {
		t.Fatal("expected error for non-32-byte auth write")
	}
}

func TestScanRequiresAuthorization(t *testing.T) {
	a := New(commissioning.New(wifimock.New(), []byte("s3cret")))
	err := a.HandleScanControlWrite(context.Background(), []byte{ScanControlScan})
	if err != errAuthentication {
		t.Fatalf("expected errAuthentication, got %v", err)
	}
}

func TestScanStateRoundTrip(t *testing.T) {
	backend := wifimock.New()
	backend.ScanResults = []wifi.WifiNetwork{
		{SSID: []byte("Home"), SignalDBm: -55, SecurityMode: wifi.SecurityWPA2PSK},
	}
	a := authorizedAdapter(t, backend)

	if b := a.HandleScanStateRead(); b[0] != 0 {
		t.Fatalf("expected Idle(0) before scan, got %d", b[0])
	}

	if err := a.HandleScanControlWrite(context.Background(), []byte{ScanControlScan}); err != nil {
		t.Fatalf("HandleScanControlWrite failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return a.HandleScanStateRead()[0] == 2 })
}

func TestScanResultsPagination(t *testing.T) {
	backend := wifimock.New()
	var networks []wifi.WifiNetwork
	for i := 0; i < 10; i++ {
		networks = append(networks, wifi.WifiNetwork{
			SSID:         []byte(fmt.Sprintf("LongNetworkName%02d", i)),
			SignalDBm:    -40 - i,
			SecurityMode: wifi.SecurityWPA2PSK,
		})
	}
	backend.ScanResults = networks
	a := authorizedAdapter(t, backend)

	if err := a.HandleScanControlWrite(context.Background(), []byte{ScanControlScan}); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	waitFor(t, time.Second, func() bool { return a.HandleScanStateRead()[0] == 2 })

	var full []byte
	for i := 0; i < 1000; i++ {
		chunk, err := a.HandleScanResultsRead("sess-1")
		if err != nil {
			t.Fatalf("HandleScanResultsRead failed: %v", err)
		}
		if len(chunk) == 0 {
			break
		}
		if len(chunk) > ResultsChunkSize {
			t.Fatalf("chunk exceeds max size: %d", len(chunk))
		}
		full = append(full, chunk...)
	}

	var decoded []scanResultEntry
	if err := json.Unmarshal(full, &decoded); err != nil {
		t.Fatalf("reassembled document is not valid JSON: %v\n%s", err, full)
	}
	if len(decoded) != 10 {
		t.Fatalf("expected 10 entries, got %d", len(decoded))
	}

	// A fresh read cycle restarts from offset 0.
	chunk, err := a.HandleScanResultsRead("sess-1")
	if err != nil {
		t.Fatalf("restart read failed: %v", err)
	}
	if len(chunk) == 0 {
		t.Fatal("expected non-empty chunk on restart")
	}
}

func TestConnectAccumulationAndCommit(t *testing.T) {
	backend := wifimock.New()
	backend.ConnectOutcomes = []wifimock.ConnectOutcome{{IP: "10.0.0.7"}}
	a := authorizedAdapter(t, backend)

	if err := a.HandleConnectSSIDWrite("sess-1", []byte("Ho")); err != nil {
		t.Fatalf("ssid write 1 failed: %v", err)
	}
	if err := a.HandleConnectSSIDWrite("sess-1", []byte("me")); err != nil {
		t.Fatalf("ssid write 2 failed: %v", err)
	}

	pmk := make([]byte, 32)
	for i := range pmk {
		pmk[i] = byte(i)
	}
	if err := a.HandleConnectPSKWrite("sess-1", pmk[:16]); err != nil {
		t.Fatalf("psk write 1 failed: %v", err)
	}
	if err := a.HandleConnectPSKWrite("sess-1", pmk[16:]); err != nil {
		t.Fatalf("psk write 2 failed: %v", err)
	}

	if err := a.HandleConnectControlWrite(context.Background(), "sess-1", []byte{ConnectControlConnect}); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	ssid, psk := backend.LastConnectCall()
	if string(ssid) != "Home" {
		t.Fatalf("expected committed ssid Home, got %q", ssid)
	}
	if len(psk) != 32 {
		t.Fatalf("expected 32-byte psk, got %d", len(psk))
	}

	// Buffers are cleared after commit.
	s := a.sessionFor("sess-1")
	if len(s.pending.ssidBuf) != 0 || len(s.pending.pskBuf) != 0 {
		t.Fatal("expected buffers cleared after commit")
	}
}

func TestConnectCommitRejectsNon32BytePSK(t *testing.T) {
	backend := wifimock.New()
	a := authorizedAdapter(t, backend)

	if err := a.HandleConnectSSIDWrite("sess-1", []byte("Home")); err != nil {
		t.Fatalf("ssid write failed: %v", err)
	}
	if err := a.HandleConnectPSKWrite("sess-1", []byte("short")); err != nil {
		t.Fatalf("psk write failed: %v", err)
	}

	if err := a.HandleConnectControlWrite(context.Background(), "sess-1", []byte{ConnectControlConnect}); err != errInvalidValue {
		t.Fatalf("expected errInvalidValue for non-32-byte psk, got %v", err)
	}
	if backend.ConnectCalls != nil {
		t.Fatal("service Connect must not be called when the commit-time check fails")
	}
}

func TestDisconnectClearsAccumulationBuffers(t *testing.T) {
	backend := wifimock.New()
	a := authorizedAdapter(t, backend)

	if err := a.HandleConnectSSIDWrite("sess-1", []byte("Home")); err != nil {
		t.Fatalf("ssid write failed: %v", err)
	}
	a.OnDisconnect("sess-1")

	s := a.sessionFor("sess-1")
	if len(s.pending.ssidBuf) != 0 {
		t.Fatal("expected ssid buffer cleared on disconnect")
	}
}
