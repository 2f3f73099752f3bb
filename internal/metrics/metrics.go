package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "yat",
		Name:      "chat_requests_total",
		Help:      "Chat completion requests by provider and outcome.",
	}, []string{"provider", "outcome"})

	StreamChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "yat",
		Name:      "stream_chunks_total",
		Help:      "Text chunks streamed to clients by provider.",
	}, []string{"provider"})

	ProviderUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "yat",
		Name:      "provider_up",
		Help:      "1 if the provider initialized successfully, 0 otherwise.",
	}, []string{"provider"})

	NetworkOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "yat",
		Name:      "network_online",
		Help:      "1 while the connection monitor considers the network reachable.",
	})

	PluginLoadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "yat",
		Name:      "plugin_load_failures_total",
		Help:      "Plugin manifests that failed to load at startup or reload.",
	})
)
