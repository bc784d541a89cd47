// Package rpctransport defines the narrow transport interface the RPC
// connection core dials against, plus the concrete gorilla/websocket
// implementation of it. Keeping the interface small lets rpcconn be
// tested against an in-memory fake without ever opening a socket.
package rpctransport

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// WireConn is a single duplex message-oriented connection. Only text
// frame semantics are used; the core assumes the transport preserves
// message boundaries.
type WireConn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens a new WireConn to url, failing if ctx is done first.
type Dialer interface {
	Dial(ctx context.Context, url string) (WireConn, error)
}

// GorillaDialer is the production Dialer, backed by
// github.com/gorilla/websocket.
type GorillaDialer struct{}

// Dial opens a WebSocket connection to url.
func (GorillaDialer) Dial(ctx context.Context, url string) (WireConn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &gorillaConn{conn: conn}, nil
}

// gorillaConn adapts *websocket.Conn to WireConn.
type gorillaConn struct {
	conn *websocket.Conn
}

const writeWait = 10 * time.Second

func (g *gorillaConn) ReadMessage() ([]byte, error) {
	_, data, err := g.conn.ReadMessage()
	return data, err
}

func (g *gorillaConn) WriteMessage(data []byte) error {
	g.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return g.conn.WriteMessage(websocket.TextMessage, data)
}

func (g *gorillaConn) Close() error {
	return g.conn.Close()
}
