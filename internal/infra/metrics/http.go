package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(rateLimitBlocks) }

var rateLimitBlocks = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_rate_limit_blocks_total",
		Help: "Requests rejected by the per-client rate limiter.",
	},
	[]string{"action"},
)

func IncRateLimitBlock(action string) {
	rateLimitBlocks.WithLabelValues(norm(action)).Inc()
}
