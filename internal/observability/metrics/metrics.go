package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	TokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Total number of tokens issued or refreshed.",
		},
		[]string{"flow", "result"},
	)

	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Message pipeline operations.",
		},
		[]string{"op", "result"},
	)

	SocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_socket_connections",
			Help: "Open gateway sockets.",
		},
	)

	SocketEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_socket_events_total",
			Help: "Events processed by the gateway.",
		},
		[]string{"event", "direction"},
	)

	SocketDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_socket_dropped_total",
			Help: "Outbound payloads dropped because a client was slow.",
		},
	)
)

func MustRegister() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		TokensIssuedTotal,
		MessagesTotal,
		SocketConnections,
		SocketEventsTotal,
		SocketDroppedTotal,
	)
}
