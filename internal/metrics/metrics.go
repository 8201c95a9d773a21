// Package metrics exposes the mining counters as prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Hashrate = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dynminer",
		Name:      "hashrate",
		Help:      "Estimated hashrate in H/s since startup.",
	})

	NoncesTried = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dynminer",
		Name:      "nonces_tried_total",
		Help:      "Total nonces evaluated.",
	})

	SharesFound = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dynminer",
		Name:      "shares_found_total",
		Help:      "Total shares found locally.",
	})

	SharesAccepted = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dynminer",
		Name:      "shares_accepted_total",
		Help:      "Total shares accepted by the pool.",
	})

	SharesRejected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dynminer",
		Name:      "shares_rejected_total",
		Help:      "Total shares rejected by the pool.",
	})

	PoolDifficulty = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dynminer",
		Name:      "pool_difficulty",
		Help:      "Latest difficulty pushed by the pool.",
	})

	UptimeSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dynminer",
		Name:      "uptime_seconds",
		Help:      "Miner uptime in seconds.",
	})
)

func init() {
	prometheus.MustRegister(
		Hashrate,
		NoncesTried,
		SharesFound,
		SharesAccepted,
		SharesRejected,
		PoolDifficulty,
		UptimeSeconds,
	)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
