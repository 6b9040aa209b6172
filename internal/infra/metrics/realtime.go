package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		realtimeSessions,
		realtimeEnded,
		realtimeTurns,
		chatTurns,
		chatTranscriptTokens,
	)
}

var (
	realtimeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_sessions_active",
			Help: "Open realtime voice sessions.",
		},
	)

	realtimeEnded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_sessions_ended_total",
			Help: "Realtime voice sessions ended, by reason.",
		},
		[]string{"reason"},
	)

	realtimeTurns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_turns_relayed_total",
			Help: "Complete audio turns relayed back to clients.",
		},
	)

	chatTurns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Turn-based chat turns processed, by input kind and result.",
		},
		[]string{"kind", "result"},
	)

	chatTranscriptTokens = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_transcript_tokens",
			Help:    "Estimated size of the rolling chat transcript sent upstream.",
			Buckets: prometheus.ExponentialBuckets(128, 2, 10),
		},
	)
)

func SetRealtimeSessions(n int) { realtimeSessions.Set(float64(n)) }

func IncRealtimeEnded(reason string) { realtimeEnded.WithLabelValues(norm(reason)).Inc() }

func IncRealtimeTurn() { realtimeTurns.Inc() }

func IncChatTurn(kind, result string) { chatTurns.WithLabelValues(norm(kind), norm(result)).Inc() }

func ObserveTranscriptTokens(n int) { chatTranscriptTokens.Observe(float64(n)) }
