package ocpp

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/seu-repo/sigec-ve/internal/observability/telemetry"
)

// subprotocol is the only OCPP subprotocol this acceptor negotiates.
const subprotocol = "ocpp1.6"

var upgrader = websocket.Upgrader{
	CheckOrigin:  func(r *http.Request) bool { return true },
	Subprotocols: []string{subprotocol},
}

// Acceptor is the WebSocket upgrade endpoint (C8): one instance serves every
// charge point connection on the configured port (spec.md §4.8).
type Acceptor struct {
	registry    *Registry
	dispatcher  *Dispatcher
	callTimeout time.Duration
	log         *zap.Logger
}

func NewAcceptor(registry *Registry, dispatcher *Dispatcher, callTimeout time.Duration, log *zap.Logger) *Acceptor {
	return &Acceptor{registry: registry, dispatcher: dispatcher, callTimeout: callTimeout, log: log}
}

// ServeHTTP upgrades the request, registers the resulting Session, runs its
// read loop to completion, and unregisters it in a scope-guarded finalizer
// regardless of how the read loop exits (spec.md §4.8).
func (a *Acceptor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cpID := strings.TrimPrefix(r.URL.Path, "/")
	if cpID == "" {
		http.Error(w, "missing charge point id", http.StatusBadRequest)
		return
	}

	if !hasSubprotocol(r, subprotocol) {
		a.log.Warn("rejecting connection: missing ocpp1.6 subprotocol", zap.String("charge_point_id", cpID))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		closeMsg := websocket.FormatCloseMessage(websocket.CloseProtocolError, "missing ocpp1.6 subprotocol")
		_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Error("websocket upgrade failed", zap.String("charge_point_id", cpID), zap.Error(err))
		return
	}

	session := NewSession(cpID, conn, a.callTimeout, a.log)
	ctx := r.Context()

	a.registry.Register(ctx, cpID, session)
	telemetry.OCPPConnectionsActive.Inc()
	a.log.Info("charge point connected", zap.String("charge_point_id", cpID))

	defer func() {
		a.registry.Unregister(ctx, cpID, session)
		telemetry.OCPPConnectionsActive.Dec()
		a.log.Info("charge point disconnected", zap.String("charge_point_id", cpID))
	}()

	session.ReadLoop(func(frame *Frame) {
		a.dispatcher.Dispatch(ctx, cpID, session, frame)
	})
}

// hasSubprotocol reports whether the client listed want in its
// Sec-WebSocket-Protocol request header; a client that omits ocpp1.6 is
// closed with a protocol error rather than silently accepted (spec.md §4.8).
func hasSubprotocol(r *http.Request, want string) bool {
	for _, offered := range websocket.Subprotocols(r) {
		if offered == want {
			return true
		}
	}
	return false
}
