package rpcconn

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// connMetrics are the Prometheus series exposed by a Connection. They
// are registered against a caller-supplied registerer so multiple
// connections (or tests) don't collide on the default global registry.
type connMetrics struct {
	requestsSent   prometheus.Counter
	responsesRecv  prometheus.Counter
	inFlightGauge  prometheus.Gauge
	reconnects     prometheus.Counter
	resets         prometheus.Counter
}

func newConnMetrics(reg prometheus.Registerer) *connMetrics {
	factory := promauto.With(reg)
	return &connMetrics{
		requestsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "ethrpc_requests_sent_total",
			Help: "Total number of JSON-RPC requests sent over the connection.",
		}),
		responsesRecv: factory.NewCounter(prometheus.CounterOpts{
			Name: "ethrpc_responses_received_total",
			Help: "Total number of JSON-RPC responses and subscription pushes received.",
		}),
		inFlightGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ethrpc_requests_in_flight",
			Help: "Current number of requests awaiting a response.",
		}),
		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "ethrpc_reconnects_total",
			Help: "Total number of successful transport (re)connections.",
		}),
		resets: factory.NewCounter(prometheus.CounterOpts{
			Name: "ethrpc_resets_total",
			Help: "Total number of connection resets (transport loss or stale request timeout).",
		}),
	}
}
