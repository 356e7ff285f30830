package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wcd-project/wifi-commissiond/pkg/commissioning"
	"github.com/wcd-project/wifi-commissiond/pkg/connectengine"
	"github.com/wcd-project/wifi-commissiond/pkg/notify"
	"github.com/wcd-project/wifi-commissiond/pkg/protolog"
	"github.com/wcd-project/wifi-commissiond/pkg/scanengine"
	"github.com/wcd-project/wifi-commissiond/pkg/transport"
)

var _ transport.Transport = (*Server)(nil)

// Server is the Unix-socket JSON-RPC 2.0 front end (spec §6, transport.Transport).
type Server struct {
	svc          *commissioning.Service
	buildVersion string
	logger       *slog.Logger
	protolog     protolog.Logger

	socketPath string
	socketMode os.FileMode

	listener net.Listener
	wg       sync.WaitGroup
	closing  chan struct{}
	closeOne sync.Once
}

// NewServer builds a Server listening on socketPath with the given
// permission mode once started. It implements pkg/transport.Transport.
func NewServer(svc *commissioning.Service, buildVersion string, logger *slog.Logger, socketPath string, mode os.FileMode) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		svc:          svc,
		buildVersion: buildVersion,
		logger:       logger,
		protolog:     protolog.NoopLogger{},
		socketPath:   socketPath,
		socketMode:   mode,
		closing:      make(chan struct{}),
	}
}

// SetProtoLogger attaches a wire-level protocol event logger.
func (s *Server) SetProtoLogger(l protolog.Logger) {
	if l == nil {
		l = protolog.NoopLogger{}
	}
	s.protolog = l
}

// Start listens on the configured socket path and begins accepting
// connections. It returns once listening.
func (s *Server) Start(ctx context.Context) error {
	_ = os.Remove(s.socketPath)
	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}
	if err := os.Chmod(s.socketPath, s.socketMode); err != nil {
		ln.Close()
		return err
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop stops accepting new connections and closes the listener. It does not
// wait for in-flight engine operations; that draining is the commissioning
// facade's job (spec §5).
func (s *Server) Stop(ctx context.Context) error {
	s.closeOne.Do(func() { close(s.closing) })
	if s.listener != nil {
		s.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closing:
				return
			default:
				s.logger.Error("jsonrpc: accept failed", "error", err)
				return
			}
		}
		s.wg.Add(1)
		go s.handleConn(nc)
	}
}

func (s *Server) handleConn(nc net.Conn) {
	defer s.wg.Done()
	defer nc.Close()

	sessionID := uuid.New().String()
	framer := NewFramer(nc)
	framer.SetLogger(s.protolog, sessionID)

	subID, events := s.svc.Hub().Subscribe(notify.DefaultBufferSize)
	defer s.svc.Hub().Unsubscribe(subID)

	var writeMu sync.Mutex
	notifyDone := make(chan struct{})
	go func() {
		defer close(notifyDone)
		for evt := range events {
			notif, ok := translateEvent(evt)
			if !ok {
				continue
			}
			data, err := json.Marshal(notif)
			if err != nil {
				continue
			}
			writeMu.Lock()
			err = framer.WriteFrame(data)
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}()

	for {
		frame, err := framer.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("jsonrpc: connection closed", "session", sessionID, "error", err)
			}
			break
		}

		var req Request
		var resp Response
		if err := json.Unmarshal(frame, &req); err != nil {
			resp = newErrorResponse(nil, CodeParseError, "parse error")
		} else if req.JSONRPC != "2.0" || req.Method == "" {
			resp = newErrorResponse(req.ID, CodeInvalidRequest, "invalid request")
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			resp = s.dispatch(ctx, req)
			cancel()
		}

		data, err := json.Marshal(resp)
		if err != nil {
			continue
		}
		writeMu.Lock()
		err = framer.WriteFrame(data)
		writeMu.Unlock()
		if err != nil {
			break
		}
	}

	nc.Close()
	<-notifyDone
}

// requestTimeout bounds how long a single RPC's backend call may block
// (spec §5's synchronous-call deadlines).
const requestTimeout = 30 * time.Second

// translateEvent converts a hub event into the wire notification it maps
// to. SSIDs are rendered as plain strings, matching get_scan_results: the
// Unix-socket transport has no BLE-style ASCII-only characteristic
// constraint to work around.
func translateEvent(evt notify.Event) (Notification, bool) {
	switch p := evt.Payload.(type) {
	case scanengine.ScanStateChangedPayload:
		params := struct {
			State    string          `json:"state"`
			Networks []networkResult `json:"networks,omitempty"`
			Message  string          `json:"message,omitempty"`
		}{State: p.State.String(), Message: p.Message}
		if len(p.Networks) > 0 {
			params.Networks = make([]networkResult, len(p.Networks))
			for i, n := range p.Networks {
				params.Networks[i] = networkResult{
					SSID:      string(n.SSID),
					SignalDBm: n.SignalDBm,
					Security:  n.SecurityMode.String(),
				}
			}
		}
		return newNotification(notify.ScanStateChanged.String(), params), true

	case connectengine.ConnectionStateChangedPayload:
		params := struct {
			State   string `json:"state"`
			SSID    string `json:"ssid,omitempty"`
			IP      string `json:"ip,omitempty"`
			Kind    string `json:"kind,omitempty"`
			Message string `json:"message,omitempty"`
		}{State: p.State.String(), SSID: string(p.SSID), IP: p.IP, Kind: p.ErrorKind, Message: p.Message}
		return newNotification(notify.ConnectionStateChanged.String(), params), true

	default:
		return Notification{}, false
	}
}
