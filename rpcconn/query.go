package rpcconn

import (
	"encoding/json"
	"time"
)

// query is the internal form of one pending RPC call. It is owned by
// exactly one of {the producer-side queue, the in-flight map, the
// subscription map} at any time; ownership transitions are moves, never
// copies into a second container.
type query struct {
	method    string
	params    any
	successCb func(json.RawMessage)
	errorCb   func(json.RawMessage)
	createdAt time.Time
}

func newQuery(method string, params any, successCb, errorCb func(json.RawMessage)) *query {
	return &query{
		method:    method,
		params:    params,
		successCb: successCb,
		errorCb:   errorCb,
		createdAt: time.Now(),
	}
}

func (q *query) isBatch() bool {
	if q.method != "" {
		return false
	}
	_, ok := q.params.([]any)
	return ok
}

// buildMessage renders the wire form of q once it has been assigned id.
// Batches reuse one id across every element, matching the routing logic
// that keys off the first element's id; this is non-conformant strict
// JSON-RPC 2.0 but is the behavior this connection is specified to
// preserve.
func (q *query) buildMessage(id uint64) (any, error) {
	if q.isBatch() {
		items := q.params.([]any)
		decorated := make([]map[string]any, len(items))
		for i, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, ErrMalformedMessage
			}
			merged := make(map[string]any, len(obj)+2)
			for k, v := range obj {
				merged[k] = v
			}
			merged["id"] = id
			merged["jsonrpc"] = "2.0"
			decorated[i] = merged
		}
		return decorated, nil
	}
	return request{JSONRPC: "2.0", Method: q.method, Params: q.params, ID: id}, nil
}
