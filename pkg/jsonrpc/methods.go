package jsonrpc

import (
	"context"
	"encoding/hex"
	"encoding/json"

	"github.com/wcd-project/wifi-commissiond/pkg/commissioning"
)

type authorizeParams struct {
	Key string `json:"key"`
}

type connectParams struct {
	SSID string `json:"ssid"`
	PSK  string `json:"psk"`
}

type networkResult struct {
	SSID      string `json:"ssid"`
	SignalDBm int    `json:"signal"`
	Security  string `json:"security"`
	BSSID     string `json:"bssid,omitempty"`
	Frequency int    `json:"frequency,omitempty"`
}

type connectionStateResult struct {
	State   string `json:"state"`
	SSID    string `json:"ssid,omitempty"`
	IP      string `json:"ip,omitempty"`
	Message string `json:"message,omitempty"`
}

// dispatch routes one decoded request to a handler and always returns a
// Response to write back, never nil: a JSON-RPC 2.0 server always answers
// a request carrying an id.
func (s *Server) dispatch(ctx context.Context, req Request) Response {
	switch req.Method {
	case "authorize":
		return s.handleAuthorize(req)
	case "scan":
		return s.handleScan(ctx, req)
	case "get_scan_results":
		return s.handleGetScanResults(req)
	case "connect":
		return s.handleConnect(ctx, req)
	case "get_connection_state":
		return s.handleGetConnectionState(req)
	case "disconnect":
		return s.handleDisconnect(ctx, req)
	case "ping":
		return newResponse(req.ID, "pong")
	case "get_version":
		return newResponse(req.ID, map[string]string{"version": s.buildVersion})
	default:
		return newErrorResponse(req.ID, CodeMethodNotFound, "method not found: "+req.Method)
	}
}

func (s *Server) handleAuthorize(req Request) Response {
	var params authorizeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return newErrorResponse(req.ID, CodeInvalidParams, "malformed authorize params")
	}
	raw, err := hex.DecodeString(params.Key)
	if err != nil || len(raw) != 32 {
		return newErrorResponse(req.ID, CodeInvalidParams, "key must be 32 bytes hex-encoded")
	}
	var hash [32]byte
	copy(hash[:], raw)

	if err := s.svc.Authorize(hash); err != nil {
		return newErrorResponse(req.ID, CodeInvalidParams, "authorization failed")
	}
	return newResponse(req.ID, "ok")
}

func (s *Server) handleScan(ctx context.Context, req Request) Response {
	if err := s.svc.Scan(ctx, commissioning.SkipAuth); err != nil {
		return scanConnectErrorResponse(req.ID, err)
	}
	return newResponse(req.ID, "ok")
}

func (s *Server) handleGetScanResults(req Request) Response {
	results, err := s.svc.ScanResults()
	if err != nil {
		return newErrorResponse(req.ID, CodeInvalidState, "no finished scan available")
	}
	out := make([]networkResult, len(results))
	for i, n := range results {
		out[i] = networkResult{
			SSID:      string(n.SSID),
			SignalDBm: n.SignalDBm,
			Security:  n.SecurityMode.String(),
		}
		if n.HasBSSID {
			out[i].BSSID = hex.EncodeToString(n.BSSID)
		}
		if n.HasFrequency {
			out[i].Frequency = n.FrequencyMHz
		}
	}
	return newResponse(req.ID, out)
}

func (s *Server) handleConnect(ctx context.Context, req Request) Response {
	var params connectParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return newErrorResponse(req.ID, CodeInvalidParams, "malformed connect params")
	}
	if err := s.svc.Connect(ctx, commissioning.SkipAuth, []byte(params.SSID), []byte(params.PSK)); err != nil {
		return scanConnectErrorResponse(req.ID, err)
	}
	return newResponse(req.ID, "ok")
}

func (s *Server) handleGetConnectionState(req Request) Response {
	state := s.svc.ConnectionState()
	return newResponse(req.ID, connectionStateResult{
		State:   state.Kind.String(),
		SSID:    string(state.SSID),
		IP:      state.IPAddress,
		Message: state.Message,
	})
}

func (s *Server) handleDisconnect(ctx context.Context, req Request) Response {
	if err := s.svc.Disconnect(ctx, commissioning.SkipAuth); err != nil {
		return backendErrorResponse(req.ID, err)
	}
	return newResponse(req.ID, "ok")
}

// scanConnectErrorResponse maps a Scan/Connect call failure: the only way
// either can fail synchronously is the single-flight "already busy"
// invariant or request validation, spec §5.
func scanConnectErrorResponse(id json.RawMessage, err error) Response {
	switch commissioning.CodeOf(err) {
	case commissioning.CodeInvalidParams:
		return newErrorResponse(id, CodeInvalidParams, err.Error())
	case commissioning.CodeInvalidState:
		return newErrorResponse(id, CodeScanInProgress, err.Error())
	default:
		return newErrorResponse(id, CodeBackendErr, err.Error())
	}
}

// backendErrorResponse maps a Disconnect call failure, which may
// synchronously reach the backend.
func backendErrorResponse(id json.RawMessage, err error) Response {
	switch commissioning.CodeOf(err) {
	case commissioning.CodeInvalidState:
		return newErrorResponse(id, CodeInvalidState, err.Error())
	case commissioning.CodeTimeout:
		return newErrorResponse(id, CodeTimeout, err.Error())
	default:
		return newErrorResponse(id, CodeBackendErr, err.Error())
	}
}
