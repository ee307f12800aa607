package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	apiRequestsTotal    *prometheus.CounterVec
	apiLatencySeconds   *prometheus.HistogramVec
	apiErrorsTotal      *prometheus.CounterVec
	likeTransactions    *prometheus.CounterVec
	chatMessagesTotal   *prometheus.CounterVec
	feedCacheRequests   *prometheus.CounterVec
	offlineLayerResults *prometheus.CounterVec
	chatStreamsActive   prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used across the board.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		likeTransactions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "like_transactions_total",
			Help: "Like counter transactions by direction and outcome.",
		}, []string{"direction", "outcome"})

		chatMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Chat messages accepted, by kind.",
		}, []string{"kind"})

		feedCacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feed_cache_requests_total",
			Help: "Feed cache lookups by result.",
		}, []string{"namespace", "result"})

		offlineLayerResults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "offline_layer_responses_total",
			Help: "Responses produced by the client offline layer, by strategy and outcome.",
		}, []string{"strategy", "outcome"})

		chatStreamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_streams_active",
			Help: "Open websocket chat streams.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			likeTransactions,
			chatMessagesTotal,
			feedCacheRequests,
			offlineLayerResults,
			chatStreamsActive,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// LikeTransactions counts like/unlike counter updates.
func LikeTransactions() *prometheus.CounterVec {
	RegisterMetrics()
	return likeTransactions
}

// ChatMessages counts accepted chat messages.
func ChatMessages() *prometheus.CounterVec {
	RegisterMetrics()
	return chatMessagesTotal
}

// ChatStreams tracks open websocket chat streams.
func ChatStreams() prometheus.Gauge {
	RegisterMetrics()
	return chatStreamsActive
}

// FeedCacheRequests counts Redis feed cache lookups.
func FeedCacheRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return feedCacheRequests
}

// OfflineLayerResponses counts offline layer outcomes on the client.
func OfflineLayerResponses() *prometheus.CounterVec {
	RegisterMetrics()
	return offlineLayerResults
}
