package rpcconn

import "errors"

// Sentinel errors for the connection core. RPC-level failures (remote
// "error" objects, the synthetic reset) are not Go errors — they travel
// as raw JSON in an Outcome, per the wire contract's own error/result
// split.
var (
	ErrUnknownCorrelationID = errors.New("rpcconn: response for unknown request id")
	ErrUnknownSubscription  = errors.New("rpcconn: push for unknown subscription id")
	ErrMalformedMessage     = errors.New("rpcconn: malformed inbound message")
	ErrNotConnected         = errors.New("rpcconn: transport not connected")
)
