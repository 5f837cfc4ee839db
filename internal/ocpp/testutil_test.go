package ocpp

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// newSessionPair spins up a real WebSocket connection (via httptest) and
// wraps both ends as Sessions, so SendCall/ReadLoop/RespondResult can be
// exercised against actual frames instead of a fake transport.
func newSessionPair(t *testing.T, callTimeout time.Duration) (client *Session, server *Session) {
	t.Helper()
	logger := zap.NewNop()

	upgrader := websocket.Upgrader{}
	serverCh := make(chan *websocket.Conn, 1)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		serverCh <- conn
	}))
	t.Cleanup(ts.Close)

	wsURL := "ws" + ts.URL[len("http"):]
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	serverConn := <-serverCh

	client = NewSession("client-side", clientConn, callTimeout, logger)
	server = NewSession("CP-1", serverConn, callTimeout, logger)
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}
