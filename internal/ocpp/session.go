package ocpp

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrTimeout is returned by SendCall when no CallResult/CallError arrives
// within the configured await window.
var ErrTimeout = errors.New("ocpp: call timed out")

// ErrSessionClosed is returned by SendCall when the underlying socket closes
// while a Call is outstanding.
var ErrSessionClosed = errors.New("ocpp: session closed")

type awaiter struct {
	resultCh chan json.RawMessage
	errCh    chan *CallError
}

// Session is the OCPP message layer (C3) for one WebSocket connection: a
// single-writer transport with an outstanding-Call table keyed by UniqueId.
type Session struct {
	ChargePointID string

	conn *websocket.Conn
	log  *zap.Logger

	callTimeout time.Duration

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]*awaiter

	closeOnce sync.Once
	closed    chan struct{}
}

// NewSession wraps an accepted WebSocket connection.
func NewSession(cpID string, conn *websocket.Conn, callTimeout time.Duration, log *zap.Logger) *Session {
	return &Session{
		ChargePointID: cpID,
		conn:          conn,
		log:           log,
		callTimeout:   callTimeout,
		pending:       make(map[string]*awaiter),
		closed:        make(chan struct{}),
	}
}

// writeFrame serializes writes so concurrent SendCall/response calls don't
// interleave bytes on the socket.
func (s *Session) writeFrame(b []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, b)
}

// RespondResult writes a CallResult frame answering an inbound Call.
func (s *Session) RespondResult(uniqueID string, payload interface{}) error {
	b, err := EncodeCallResult(uniqueID, payload)
	if err != nil {
		return err
	}
	return s.writeFrame(b)
}

// RespondError writes a CallError frame answering an inbound Call.
func (s *Session) RespondError(uniqueID string, callErr *CallError) error {
	b, err := EncodeCallErrorFrame(uniqueID, callErr)
	if err != nil {
		return err
	}
	return s.writeFrame(b)
}

// SendCall assigns a fresh UniqueId, registers an awaiter, writes the Call
// frame, and blocks until a matching CallResult/CallError arrives, the
// per-Call timeout elapses, or the session closes (spec.md §4.1).
func (s *Session) SendCall(ctx context.Context, action string, payload interface{}) (json.RawMessage, error) {
	uniqueID := uuid.NewString()
	aw := &awaiter{resultCh: make(chan json.RawMessage, 1), errCh: make(chan *CallError, 1)}

	s.pendingMu.Lock()
	s.pending[uniqueID] = aw
	s.pendingMu.Unlock()

	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, uniqueID)
		s.pendingMu.Unlock()
	}()

	frame, err := EncodeCall(uniqueID, action, payload)
	if err != nil {
		return nil, err
	}
	if err := s.writeFrame(frame); err != nil {
		return nil, ErrSessionClosed
	}

	timeout := s.callTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case payload := <-aw.resultCh:
		return payload, nil
	case callErr := <-aw.errCh:
		return nil, callErr
	case <-timer.C:
		return nil, ErrTimeout
	case <-s.closed:
		return nil, ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// deliverResult hands a received CallResult to its awaiter, if any.
// Unknown UniqueIds (a CallResult arriving after its Call already timed
// out) are silently dropped per spec.md §4.1.
func (s *Session) deliverResult(uniqueID string, payload json.RawMessage) {
	s.pendingMu.Lock()
	aw, ok := s.pending[uniqueID]
	s.pendingMu.Unlock()
	if !ok {
		s.log.Debug("dropped CallResult for unknown or expired call",
			zap.String("charge_point_id", s.ChargePointID), zap.String("unique_id", uniqueID))
		return
	}
	aw.resultCh <- payload
}

func (s *Session) deliverError(uniqueID, code, desc string) {
	s.pendingMu.Lock()
	aw, ok := s.pending[uniqueID]
	s.pendingMu.Unlock()
	if !ok {
		return
	}
	aw.errCh <- &CallError{Code: code, Description: desc}
}

// ReadLoop decodes inbound frames until the socket closes. Call frames are
// handed to onCall; CallResult/CallError frames complete an outstanding
// SendCall. It returns once the connection is no longer readable.
func (s *Session) ReadLoop(onCall func(frame *Frame)) {
	defer s.close()
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		frame, err := DecodeFrame(raw)
		if err != nil {
			continue
		}
		switch frame.Type {
		case MessageTypeCall:
			onCall(frame)
		case MessageTypeCallResult:
			s.deliverResult(frame.UniqueID, frame.Payload)
		case MessageTypeCallError:
			s.deliverError(frame.UniqueID, frame.ErrorCode, frame.ErrorDesc)
		}
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}

// Close closes the underlying WebSocket connection.
func (s *Session) Close() error {
	s.close()
	return s.conn.Close()
}
