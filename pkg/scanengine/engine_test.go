package scanengine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/wcd-project/wifi-commissiond/pkg/notify"
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

func TestScanHappyPath(t *testing.T) {
	backend := wifimock.New()
	backend.ScanResults = []wifi.WifiNetwork{
		{SSID: []byte("Home"), SignalDBm: -55, SecurityMode: wifi.SecurityWPA2PSK},
	}

	var lock sync.RWMutex
	hub := notify.New()
	_, ch := hub.Subscribe(4)
	e := New(backend, hub, &lock)

	if err := e.Scan(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	evt := <-ch
	payload := evt.Payload.(ScanStateChangedPayload)
	if payload.State != wifi.ScanScanning {
		t.Fatalf("expected first notification to be Scanning, got %v", payload.State)
	}

	waitFor(t, time.Second, func() bool { return e.State().Kind == wifi.ScanFinished })

	evt = <-ch
	payload = evt.Payload.(ScanStateChangedPayload)
	if payload.State != wifi.ScanFinished || len(payload.Networks) != 1 {
		t.Fatalf("expected Finished notification with 1 network, got %+v", payload)
	}

	results, err := e.Results()
	if err != nil {
		t.Fatalf("Results failed: %v", err)
	}
	if len(results) != 1 || string(results[0].SSID) != "Home" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestScanSingleInFlight(t *testing.T) {
	backend := wifimock.New()
	backend.ScanDelay = 50 * time.Millisecond

	var lock sync.RWMutex
	hub := notify.New()
	e := New(backend, hub, &lock)

	if err := e.Scan(context.Background()); err != nil {
		t.Fatalf("first Scan failed: %v", err)
	}
	if err := e.Scan(context.Background()); err != ErrInvalidState {
		t.Fatalf("expected ErrInvalidState for concurrent scan, got %v", err)
	}

	waitFor(t, time.Second, func() bool { return e.State().Kind == wifi.ScanFinished })

	// A third scan after completion is fine.
	if err := e.Scan(context.Background()); err != nil {
		t.Fatalf("scan after completion should succeed: %v", err)
	}
}

func TestResultsBeforeAnyScan(t *testing.T) {
	backend := wifimock.New()
	var lock sync.RWMutex
	e := New(backend, notify.New(), &lock)

	if _, err := e.Results(); err != ErrInvalidState {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestScanErrorTransition(t *testing.T) {
	backend := wifimock.New()
	backend.ScanErr = wifi.NewError(wifi.BackendUnavailable, "no radio")

	var lock sync.RWMutex
	hub := notify.New()
	_, ch := hub.Subscribe(4)
	e := New(backend, hub, &lock)

	if err := e.Scan(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	<-ch // scanning notification

	waitFor(t, time.Second, func() bool { return e.State().Kind == wifi.ScanError })

	evt := <-ch
	payload := evt.Payload.(ScanStateChangedPayload)
	if payload.State != wifi.ScanError {
		t.Fatalf("expected Error notification, got %+v", payload)
	}

	if _, err := e.Results(); err != ErrInvalidState {
		t.Fatalf("expected ErrInvalidState after error, got %v", err)
	}
}
