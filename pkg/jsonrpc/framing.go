package jsonrpc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/wcd-project/wifi-commissiond/pkg/protolog"
)

// Framing constants, mirroring the teacher's transport framer.
const (
	LengthPrefixSize      = 4
	DefaultMaxMessageSize = 65536
)

var (
	ErrMessageTooLarge = errors.New("jsonrpc: message too large")
	ErrMessageEmpty    = errors.New("jsonrpc: message is empty")
	ErrFrameTruncated  = errors.New("jsonrpc: frame truncated")
)

// FrameWriter writes length-prefixed frames to an underlying writer.
// Thread-safe.
type FrameWriter struct {
	w              io.Writer
	maxMessageSize uint32
	mu             sync.Mutex

	logger    protolog.Logger
	sessionID string
}

func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w, maxMessageSize: DefaultMaxMessageSize, logger: protolog.NoopLogger{}}
}

func (fw *FrameWriter) SetLogger(logger protolog.Logger, sessionID string) {
	if logger == nil {
		logger = protolog.NoopLogger{}
	}
	fw.logger = logger
	fw.sessionID = sessionID
}

func (fw *FrameWriter) WriteFrame(data []byte) error {
	if len(data) == 0 {
		return ErrMessageEmpty
	}
	if uint32(len(data)) > fw.maxMessageSize {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), fw.maxMessageSize)
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(data)))

	if _, err := fw.w.Write(lengthBuf[:]); err != nil {
		return fmt.Errorf("jsonrpc: write length prefix: %w", err)
	}
	if _, err := fw.w.Write(data); err != nil {
		return fmt.Errorf("jsonrpc: write payload: %w", err)
	}

	fw.logger.Log(protolog.NewEvent(fw.sessionID, protolog.TransportUnix, protolog.DirectionOut, protolog.CategoryRPCCall, data))
	return nil
}

// FrameReader reads length-prefixed frames from an underlying reader.
type FrameReader struct {
	r              io.Reader
	maxMessageSize uint32
	lengthBuf      [LengthPrefixSize]byte

	logger    protolog.Logger
	sessionID string
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r, maxMessageSize: DefaultMaxMessageSize, logger: protolog.NoopLogger{}}
}

func (fr *FrameReader) SetLogger(logger protolog.Logger, sessionID string) {
	if logger == nil {
		logger = protolog.NoopLogger{}
	}
	fr.logger = logger
	fr.sessionID = sessionID
}

func (fr *FrameReader) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(fr.r, fr.lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("jsonrpc: read length prefix: %w", err)
	}

	length := binary.BigEndian.Uint32(fr.lengthBuf[:])
	if length == 0 {
		return nil, ErrMessageEmpty
	}
	if length > fr.maxMessageSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, fr.maxMessageSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("jsonrpc: read payload: %w", err)
	}

	fr.logger.Log(protolog.NewEvent(fr.sessionID, protolog.TransportUnix, protolog.DirectionIn, protolog.CategoryRPCCall, payload))
	return payload, nil
}

// Framer combines a FrameReader and FrameWriter for one connection.
type Framer struct {
	*FrameReader
	*FrameWriter
}

func NewFramer(rw io.ReadWriter) *Framer {
	return &Framer{FrameReader: NewFrameReader(rw), FrameWriter: NewFrameWriter(rw)}
}

func (f *Framer) SetLogger(logger protolog.Logger, sessionID string) {
	f.FrameReader.SetLogger(logger, sessionID)
	f.FrameWriter.SetLogger(logger, sessionID)
}
