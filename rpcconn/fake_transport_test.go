package rpcconn

import (
	"context"
	"errors"
	"sync"

	"github.com/example/ethrpc/rpctransport"
)

// fakeConn is an in-memory WireConn: outbound writes land in sent,
// inbound messages are pushed onto it with push and surface from
// ReadMessage in order. Closing it unblocks any pending ReadMessage with
// errFakeConnClosed.
type fakeConn struct {
	mu     sync.Mutex
	sent   [][]byte
	inbox  chan []byte
	closed chan struct{}
}

var errFakeConnClosed = errors.New("fakeConn: closed")

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbox:  make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case msg := <-f.inbox:
		return msg, nil
	case <-f.closed:
		return nil, errFakeConnClosed
	}
}

func (f *fakeConn) WriteMessage(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeConn) Close() error {
	select {
	case <-f.closed:
	default:
		close(f.closed)
	}
	return nil
}

func (f *fakeConn) push(msg []byte) {
	f.inbox <- msg
}

func (f *fakeConn) writes() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

// fakeDialer hands out a fixed sequence of pre-built fakeConns (or a
// dial error) to successive Dial calls, so tests can script exactly what
// the connection sees across a reconnect.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	errs  []error
	calls int
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (rpctransport.WireConn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.calls
	d.calls++
	if i < len(d.errs) && d.errs[i] != nil {
		return nil, d.errs[i]
	}
	if i < len(d.conns) {
		return d.conns[i], nil
	}
	if len(d.conns) == 0 {
		return nil, errors.New("fakeDialer: no connections configured")
	}
	return d.conns[len(d.conns)-1], nil
}
