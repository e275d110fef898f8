package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Calls persisted by the normalizer
	callsPersistedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_calls_persisted_total",
			Help: "Total number of call records persisted from the feed",
		},
	)

	// Events discarded by the normalizer, partitioned by filter stage
	eventsDiscardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_events_discarded_total",
			Help: "Total number of feed events discarded before persistence",
		},
		[]string{"reason"},
	)

	// Persist failures (database errors, event dropped)
	persistErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_persist_errors_total",
			Help: "Total number of call records lost to persistence errors",
		},
	)

	// Feed reconnect attempts after a failed dial or broken connection
	feedReconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_feed_reconnects_total",
			Help: "Total number of feed reconnection attempts",
		},
	)
)

// Discard reason label values
const (
	reasonBadEnvelope   = "bad_envelope"
	reasonBadPayload    = "bad_payload"
	reasonNotStop       = "not_session_stop"
	reasonCallType      = "call_type"
	reasonMissingFields = "missing_fields"
	reasonTooShort      = "too_short"
	reasonLocalTG       = "local_talkgroup"
)
