package jsonrpc

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

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
	if !cond() {
		t.Fatalf("condition not met within %s", timeout)
	}
}

func startTestServer(t *testing.T, backend *wifimock.Backend) (*Server, string) {
	t.Helper()
	svc := commissioning.New(backend, []byte("s3cret"))
	socketPath := filepath.Join(t.TempDir(), "wcd.sock")
	srv := NewServer(svc, "test-build", nil, socketPath, 0o600)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Stop(ctx)
	})
	return srv, socketPath
}

type testClient struct {
	t      *testing.T
	nc     net.Conn
	framer *Framer
	nextID int
}

func dialTestClient(t *testing.T, socketPath string) *testClient {
	t.Helper()
	nc, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { nc.Close() })
	return &testClient{t: t, nc: nc, framer: NewFramer(nc)}
}

func (c *testClient) call(method string, params any) Response {
	c.t.Helper()
	c.nextID++
	id, _ := json.Marshal(c.nextID)
	paramsRaw, _ := json.Marshal(params)
	req := Request{JSONRPC: "2.0", ID: id, Method: method, Params: paramsRaw}
	data, _ := json.Marshal(req)
	if err := c.framer.WriteFrame(data); err != nil {
		c.t.Fatalf("WriteFrame: %v", err)
	}

	for {
		frame, err := c.framer.ReadFrame()
		if err != nil {
			c.t.Fatalf("ReadFrame: %v", err)
		}
		var probe struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.Unmarshal(frame, &probe); err != nil {
			c.t.Fatalf("unmarshal probe: %v", err)
		}
		if probe.Method != "" {
			// A server-initiated notification arrived before our response; skip it.
			continue
		}
		var resp Response
		if err := json.Unmarshal(frame, &resp); err != nil {
			c.t.Fatalf("unmarshal response: %v", err)
		}
		return resp
	}
}

func TestPingAndVersion(t *testing.T) {
	_, socketPath := startTestServer(t, wifimock.New())
	client := dialTestClient(t, socketPath)

	resp := client.call("ping", nil)
	if resp.Error != nil || resp.Result != "pong" {
		t.Fatalf("unexpected ping response: %+v", resp)
	}

	resp = client.call("get_version", nil)
	if resp.Error != nil {
		t.Fatalf("unexpected get_version error: %+v", resp.Error)
	}
}

func TestScanAndGetResultsOverSocket(t *testing.T) {
	backend := wifimock.New()
	backend.ScanResults = []wifi.WifiNetwork{
		{SSID: []byte("Home"), SignalDBm: -40, SecurityMode: wifi.SecurityWPA2PSK},
	}
	_, socketPath := startTestServer(t, backend)
	client := dialTestClient(t, socketPath)

	resp := client.call("scan", nil)
	if resp.Error != nil {
		t.Fatalf("scan failed: %+v", resp.Error)
	}

	var results []networkResult
	waitFor(t, time.Second, func() bool {
		resp := client.call("get_scan_results", nil)
		if resp.Error != nil {
			return false
		}
		raw, _ := json.Marshal(resp.Result)
		_ = json.Unmarshal(raw, &results)
		return len(results) == 1
	})
	if results[0].SSID != "Home" {
		t.Fatalf("expected SSID Home, got %q", results[0].SSID)
	}
}

func TestScanInProgressRejectedWithCustomCode(t *testing.T) {
	backend := wifimock.New()
	backend.ScanDelay = 200 * time.Millisecond
	_, socketPath := startTestServer(t, backend)
	client := dialTestClient(t, socketPath)

	resp := client.call("scan", nil)
	if resp.Error != nil {
		t.Fatalf("first scan failed: %+v", resp.Error)
	}
	resp = client.call("scan", nil)
	if resp.Error == nil || resp.Error.Code != CodeScanInProgress {
		t.Fatalf("expected CodeScanInProgress, got %+v", resp.Error)
	}
}

func TestGetScanResultsBeforeAnyScanIsInvalidState(t *testing.T) {
	_, socketPath := startTestServer(t, wifimock.New())
	client := dialTestClient(t, socketPath)

	resp := client.call("get_scan_results", nil)
	if resp.Error == nil || resp.Error.Code != CodeInvalidState {
		t.Fatalf("expected CodeInvalidState, got %+v", resp.Error)
	}
}

func TestConnectAndGetConnectionState(t *testing.T) {
	backend := wifimock.New()
	backend.ConnectOutcomes = []wifimock.ConnectOutcome{{IP: "192.168.1.5"}}
	_, socketPath := startTestServer(t, backend)
	client := dialTestClient(t, socketPath)

	resp := client.call("connect", connectParams{SSID: "Home", PSK: "correct-horse-battery"})
	if resp.Error != nil {
		t.Fatalf("connect failed: %+v", resp.Error)
	}

	waitFor(t, time.Second, func() bool {
		resp := client.call("get_connection_state", nil)
		var state connectionStateResult
		raw, _ := json.Marshal(resp.Result)
		_ = json.Unmarshal(raw, &state)
		return state.State == "connected"
	})
}

func TestConnectRejectsInvalidParams(t *testing.T) {
	_, socketPath := startTestServer(t, wifimock.New())
	client := dialTestClient(t, socketPath)

	resp := client.call("connect", connectParams{SSID: "", PSK: "whatever"})
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("expected CodeInvalidParams, got %+v", resp.Error)
	}
}

func TestUnknownMethodNotFound(t *testing.T) {
	_, socketPath := startTestServer(t, wifimock.New())
	client := dialTestClient(t, socketPath)

	resp := client.call("frobnicate", nil)
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Fatalf("expected CodeMethodNotFound, got %+v", resp.Error)
	}
}

func TestNotificationForwardedOnScanFinish(t *testing.T) {
	backend := wifimock.New()
	backend.ScanResults = []wifi.WifiNetwork{{SSID: []byte("Office"), SignalDBm: -55}}
	_, socketPath := startTestServer(t, backend)
	client := dialTestClient(t, socketPath)

	if resp := client.call("scan", nil); resp.Error != nil {
		t.Fatalf("scan failed: %+v", resp.Error)
	}

	found := false
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && !found {
		frame, err := client.framer.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		var notif struct {
			Method string `json:"method"`
		}
		if json.Unmarshal(frame, &notif) == nil && notif.Method == "scan_state_changed" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a scan_state_changed notification")
	}
}

func TestConnectionErrorNotificationCarriesKind(t *testing.T) {
	backend := wifimock.New()
	backend.ConnectOutcomes = []wifimock.ConnectOutcome{{Err: wifi.NewError(wifi.AuthFailure, "bad psk")}}
	_, socketPath := startTestServer(t, backend)
	client := dialTestClient(t, socketPath)

	if resp := client.call("connect", connectParams{SSID: "Home", PSK: "wrongpassword"}); resp.Error != nil {
		t.Fatalf("connect failed: %+v", resp.Error)
	}

	var params struct {
		State string `json:"state"`
		Kind  string `json:"kind"`
	}
	found := false
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && !found {
		frame, err := client.framer.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		var notif struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if json.Unmarshal(frame, &notif) == nil && notif.Method == "connection_state_changed" {
			_ = json.Unmarshal(notif.Params, &params)
			if params.State == "error" {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected a connection_state_changed error notification")
	}
	if params.Kind != wifi.AuthFailure.String() {
		t.Fatalf("expected kind %q, got %q", wifi.AuthFailure.String(), params.Kind)
	}
}

func TestDisconnectInvalidStateMapsToCodeInvalidState(t *testing.T) {
	backend := wifimock.New()
	backend.ConnectOutcomes = []wifimock.ConnectOutcome{{Delay: 200 * time.Millisecond, IP: "10.0.0.5"}}
	_, socketPath := startTestServer(t, backend)
	client := dialTestClient(t, socketPath)

	if resp := client.call("connect", connectParams{SSID: "Home", PSK: "correct-horse-battery"}); resp.Error != nil {
		t.Fatalf("connect failed: %+v", resp.Error)
	}

	resp := client.call("disconnect", nil)
	if resp.Error == nil || resp.Error.Code != CodeInvalidState {
		t.Fatalf("expected CodeInvalidState for a disconnect racing an in-flight connect, got %+v", resp.Error)
	}
}
