// Package rpcconn implements the full-duplex JSON-RPC connection core: a
// single-threaded event loop that owns the transport, allocates request
// ids, routes responses and subscription pushes back to their callbacks,
// and resets the whole connection (failing every outstanding request)
// when the transport is lost or a request goes stale.
package rpcconn

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/example/ethrpc/abi"
	"github.com/example/ethrpc/hexutil"
	"github.com/example/ethrpc/rpctransport"
)

// Outcome is the result of one round trip: exactly one of Result or
// Error is populated, mirroring the wire response's own result/error
// split. Disambiguating between them is left to the caller, per the
// JSON-RPC contract this connection preserves.
type Outcome struct {
	Result json.RawMessage
	Error  json.RawMessage
}

// Connection is a single persistent JSON-RPC connection. All exported
// methods are safe to call from any goroutine; Run must be called
// exactly once and owns the actual transport I/O and callback dispatch.
type Connection struct {
	dialer         rpctransport.Dialer
	url            string
	connectTimeout time.Duration
	staleTimeout   time.Duration
	limiter        *rate.Limiter

	log     zerolog.Logger
	metrics *connMetrics

	// OnConnect, if set, fires on the loop goroutine after every
	// successful (re)connect.
	OnConnect func()

	mu    sync.Mutex
	queue []*query
	wake  chan struct{}

	connected atomic.Bool

	// loop-owned state; touched only inside Run's goroutine.
	ws         rpctransport.WireConn
	nextID     uint64
	inFlight   map[uint64]*query
	subs       map[string]*query
	connecting bool

	incoming      chan []byte
	readErr       chan readFailure
	connectResult chan connectOutcome
	done          chan struct{}
}

type connectOutcome struct {
	conn rpctransport.WireConn
	err  error
}

type readFailure struct {
	conn rpctransport.WireConn
	err  error
}

// New builds a Connection against cfg, ready to have Run started on it.
// dialer is the transport collaborator; pass rpctransport.GorillaDialer{}
// in production or a fake in tests.
func New(cfg *Config, dialer rpctransport.Dialer, reg prometheus.Registerer) *Connection {
	connID := uuid.NewString()
	return &Connection{
		dialer:         dialer,
		url:            cfg.URL,
		connectTimeout: cfg.ConnectTimeout,
		staleTimeout:   cfg.StaleTimeout,
		limiter:        rate.NewLimiter(rate.Limit(cfg.ReconnectPerSec), 1),
		log:            newLogger(cfg.Logging).With().Str("conn_id", connID).Logger(),
		metrics:        newConnMetrics(reg),
		wake:           make(chan struct{}, 1),
		inFlight:       make(map[uint64]*query),
		subs:           make(map[string]*query),
		nextID:         1,
		incoming:       make(chan []byte),
		readErr:        make(chan readFailure, 1),
		connectResult:  make(chan connectOutcome, 1),
		done:           make(chan struct{}),
	}
}

// IsConnected reports whether the transport is currently up.
func (c *Connection) IsConnected() bool {
	return c.connected.Load()
}

// Send enqueues method/params and wakes the loop; successCb and errorCb
// are invoked on the loop goroutine exactly as described by the wire
// routing rules (successCb may fire more than once for a subscription).
func (c *Connection) Send(method string, params any, successCb, errorCb func(json.RawMessage)) {
	c.enqueue(newQuery(method, params, successCb, errorCb))
}

func (c *Connection) enqueue(q *query) {
	c.mu.Lock()
	c.queue = append(c.queue, q)
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// SendSync blocks the calling goroutine until method/params completes or
// ctx is done. It must never be called from the Run goroutine: there
// would be nothing left to service the wake and the call would hang
// until ctx expires.
func (c *Connection) SendSync(ctx context.Context, method string, params any) (*Outcome, error) {
	resultCh := make(chan *Outcome, 1)
	q := newQuery(method, params,
		func(raw json.RawMessage) {
			select {
			case resultCh <- &Outcome{Result: raw}:
			default:
			}
		},
		func(raw json.RawMessage) {
			select {
			case resultCh <- &Outcome{Error: raw}:
			default:
			}
		},
	)
	c.enqueue(q)
	select {
	case out := <-resultCh:
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SendBatchSync submits batch as a raw JSON-RPC batch (empty method, an
// array of per-call request objects) and returns once every element of
// the batch has a result, in the order the server returned them.
func (c *Connection) SendBatchSync(ctx context.Context, batch []any) (*Outcome, error) {
	return c.SendSync(ctx, "", batch)
}

// EthCallSync encodes an eth_call against contract's ABI, sends it with
// the "latest" block tag, and decodes the result. A remote RPC error is
// returned verbatim in rpcErr without attempting to decode it.
func (c *Connection) EthCallSync(ctx context.Context, contract *abi.Contract, to, funcName string, args []any) (result map[string]any, rpcErr json.RawMessage, err error) {
	data, err := contract.EncodeFunctionData(funcName, args)
	if err != nil {
		return nil, nil, fmt.Errorf("rpcconn: encode %s: %w", funcName, err)
	}

	params := []any{
		map[string]any{"to": to, "data": hexutil.Encode(data)},
		"latest",
	}
	outcome, err := c.SendSync(ctx, "eth_call", params)
	if err != nil {
		return nil, nil, err
	}
	if outcome.Error != nil {
		return nil, outcome.Error, nil
	}

	var resultHex string
	if err := json.Unmarshal(outcome.Result, &resultHex); err != nil {
		return nil, nil, fmt.Errorf("rpcconn: eth_call result was not a hex string: %w", err)
	}
	raw, err := hexutil.Decode(resultHex)
	if err != nil {
		return nil, nil, fmt.Errorf("rpcconn: decode eth_call result: %w", err)
	}
	decoded, err := contract.DecodeFunctionResult(funcName, raw)
	if err != nil {
		return nil, nil, fmt.Errorf("rpcconn: decode %s result: %w", funcName, err)
	}
	return decoded, nil, nil
}

// Run drives the event loop until ctx is canceled. It must be started in
// its own goroutine; every mutation of ws/nextID/inFlight/subs happens
// here and nowhere else.
func (c *Connection) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	defer c.teardown()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
			c.serviceStep(ctx)
		case <-ticker.C:
			c.serviceStep(ctx)
		case outcome := <-c.connectResult:
			c.handleConnectResult(outcome)
		case data := <-c.incoming:
			c.metrics.responsesRecv.Inc()
			c.handleMessage(data)
		case failure := <-c.readErr:
			if failure.conn != c.ws {
				continue // already superseded by a later connect or reset
			}
			c.log.Warn().Err(failure.err).Str("url", c.url).Msg("transport read failed")
			c.resetTransport()
		}
	}
}

func (c *Connection) teardown() {
	close(c.done)
	if c.ws != nil {
		c.ws.Close()
	}
}

// serviceStep implements the three-part service step: reconnect if down,
// scan for stale in-flight requests, otherwise drain the send queue.
func (c *Connection) serviceStep(ctx context.Context) {
	if c.ws == nil {
		c.maybeConnect(ctx)
		return
	}

	now := time.Now()
	for _, q := range c.inFlight {
		if now.Sub(q.createdAt) > c.staleTimeout {
			c.log.Warn().Str("url", c.url).Msg("in-flight request exceeded stale timeout, resetting connection")
			c.resetTransport()
			return
		}
	}

	c.drainQueue()
}

func (c *Connection) maybeConnect(ctx context.Context) {
	if c.connecting || !c.limiter.Allow() {
		return
	}
	c.connecting = true

	dialCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	go func() {
		defer cancel()
		conn, err := c.dialer.Dial(dialCtx, c.url)
		select {
		case c.connectResult <- connectOutcome{conn: conn, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (c *Connection) handleConnectResult(outcome connectOutcome) {
	c.connecting = false
	if outcome.err != nil {
		c.log.Warn().Err(outcome.err).Str("url", c.url).Msg("connect attempt failed")
		return
	}

	if c.ws != nil {
		c.ws.Close()
	}
	c.ws = outcome.conn
	c.connected.Store(true)
	c.metrics.reconnects.Inc()
	c.log.Info().Str("url", c.url).Msg("connected")

	go c.readLoop(outcome.conn)

	if c.OnConnect != nil {
		c.OnConnect()
	}

	// Flush anything queued while the transport was down instead of
	// waiting for the next periodic tick.
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// readLoop forwards frames from conn onto c.incoming until it errors or
// is closed, at which point it reports onto c.readErr once. It is the
// Go-idiomatic stand-in for the C++ original's onMessage2/onDisconnection
// callbacks: a goroutine per live connection, owned for its lifetime.
func (c *Connection) readLoop(conn rpctransport.WireConn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			select {
			case c.readErr <- readFailure{conn: conn, err: err}:
			case <-c.done:
			}
			return
		}
		select {
		case c.incoming <- data:
		case <-c.done:
			return
		}
	}
}

func (c *Connection) drainQueue() {
	c.mu.Lock()
	pending := c.queue
	c.queue = nil
	c.mu.Unlock()

	for _, q := range pending {
		id := c.nextID
		c.nextID++

		msg, err := q.buildMessage(id)
		if err != nil {
			q.errorCb(json.RawMessage(fmt.Sprintf(`{"error":%q}`, err.Error())))
			continue
		}
		encoded, err := json.Marshal(msg)
		if err != nil {
			q.errorCb(json.RawMessage(fmt.Sprintf(`{"error":%q}`, err.Error())))
			continue
		}

		c.inFlight[id] = q
		c.metrics.inFlightGauge.Set(float64(len(c.inFlight)))
		c.metrics.requestsSent.Inc()

		if err := c.ws.WriteMessage(encoded); err != nil {
			c.log.Warn().Err(err).Msg("write failed, resetting connection")
			c.resetTransport()
			return
		}
	}
}

func (c *Connection) handleMessage(data []byte) {
	if isBatchID(data) {
		c.handleBatchResponse(data)
		return
	}

	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.log.Warn().Err(err).Msg("malformed inbound message, resetting connection")
		c.resetTransport()
		return
	}

	switch {
	case msg.ID != nil:
		c.handleSingleResponse(*msg.ID, msg)
	case msg.Method == "eth_subscription":
		c.handleSubscriptionPush(msg)
	default:
		c.log.Warn().Str("raw", string(data)).Msg("unroutable inbound message, resetting connection")
		c.resetTransport()
	}
}

func (c *Connection) handleSingleResponse(id uint64, msg inboundMessage) {
	q, ok := c.inFlight[id]
	if !ok {
		c.log.Warn().Uint64("id", id).Msg("response to unknown request id")
		return
	}

	if msg.Error != nil {
		delete(c.inFlight, id)
		c.metrics.inFlightGauge.Set(float64(len(c.inFlight)))
		q.errorCb(msg.Error)
		return
	}

	if q.method == "eth_subscribe" {
		var subHex string
		if err := json.Unmarshal(msg.Result, &subHex); err != nil {
			c.log.Warn().Err(err).Msg("eth_subscribe result was not a string")
			delete(c.inFlight, id)
			q.errorCb(json.RawMessage(`{"error":"malformed subscription id"}`))
			return
		}
		subBytes, err := hexutil.Decode(subHex)
		if err != nil {
			delete(c.inFlight, id)
			q.errorCb(json.RawMessage(`{"error":"malformed subscription id"}`))
			return
		}
		delete(c.inFlight, id)
		c.subs[string(subBytes)] = q
		c.metrics.inFlightGauge.Set(float64(len(c.inFlight)))
		q.successCb(msg.Result)
		return
	}

	delete(c.inFlight, id)
	c.metrics.inFlightGauge.Set(float64(len(c.inFlight)))
	q.successCb(msg.Result)
}

func (c *Connection) handleBatchResponse(data []byte) {
	var elements []inboundMessage
	if err := json.Unmarshal(data, &elements); err != nil || len(elements) == 0 {
		c.log.Warn().Err(err).Msg("malformed batch response, resetting connection")
		c.resetTransport()
		return
	}
	if elements[0].ID == nil {
		c.log.Warn().Msg("batch response missing id on first element, resetting connection")
		c.resetTransport()
		return
	}
	id := *elements[0].ID

	q, ok := c.inFlight[id]
	if !ok {
		c.log.Warn().Uint64("id", id).Msg("batch response to unknown request id")
		return
	}

	results := make([]json.RawMessage, len(elements))
	for i, e := range elements {
		results[i] = e.Result
	}
	encoded, err := json.Marshal(results)
	if err != nil {
		delete(c.inFlight, id)
		q.errorCb(json.RawMessage(`{"error":"failed to marshal batch results"}`))
		return
	}

	delete(c.inFlight, id)
	c.metrics.inFlightGauge.Set(float64(len(c.inFlight)))
	q.successCb(encoded)
}

func (c *Connection) handleSubscriptionPush(msg inboundMessage) {
	var push subscriptionPush
	if err := json.Unmarshal(msg.Params, &push); err != nil {
		c.log.Warn().Err(err).Msg("malformed subscription push")
		return
	}
	subBytes, err := hexutil.Decode(push.Subscription)
	if err != nil {
		c.log.Warn().Str("subscription", push.Subscription).Msg("malformed subscription id in push")
		return
	}

	q, ok := c.subs[string(subBytes)]
	if !ok {
		c.log.Warn().Str("subscription", push.Subscription).Msg("push for unknown subscription id")
		return
	}
	q.successCb(push.Result)
}

// resetTransport tears down the current transport and fails every
// outstanding request with the synthetic {"error":"reset"} payload, per
// the reset fan-out contract: in_flight, subscriptions, and the send
// queue are each notified exactly once and left empty.
func (c *Connection) resetTransport() {
	for _, q := range c.inFlight {
		q.errorCb(resetJSON)
	}
	for _, q := range c.subs {
		q.errorCb(resetJSON)
	}
	c.inFlight = make(map[uint64]*query)
	c.subs = make(map[string]*query)
	c.metrics.inFlightGauge.Set(0)

	c.mu.Lock()
	drained := c.queue
	c.queue = nil
	c.mu.Unlock()
	for _, q := range drained {
		q.errorCb(resetJSON)
	}

	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
	c.connected.Store(false)
	c.metrics.resets.Inc()
}
