// Package metrics holds the domain counters exported next to the HTTP metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"societyAdminAPI/internal/apperr"
)

var (
	gatewayCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_calls_total",
			Help: "Remote function calls by function and outcome",
		},
		[]string{"function", "outcome"},
	)
	gatewayLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_call_duration_seconds",
			Help:    "Latency of remote function calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"function"},
	)
	subscriptionCorrections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscription_corrections_total",
			Help: "Lapsed societies written back as inactive",
		},
	)
	subscriptionChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_changes_total",
			Help: "Operator subscription actions",
		},
		[]string{"action"},
	)
	broadcasts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "announcement_broadcasts_total",
			Help: "Broadcasts sent, by origin (manual or scheduled)",
		},
		[]string{"origin"},
	)
	broadcastRecipients = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "announcement_recipients_total",
			Help: "Societies reached by broadcasts",
		},
	)
	unitDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unit_request_decisions_total",
			Help: "Unit request decisions by kind and action",
		},
		[]string{"kind", "action"},
	)
)

// Register adds the domain collectors to reg. Call once from main.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		gatewayCalls,
		gatewayLatency,
		subscriptionCorrections,
		subscriptionChanges,
		broadcasts,
		broadcastRecipients,
		unitDecisions,
	)
}

func ObserveGatewayCall(function string, err error, took time.Duration) {
	gatewayCalls.WithLabelValues(function, outcome(err)).Inc()
	gatewayLatency.WithLabelValues(function).Observe(took.Seconds())
}

func SubscriptionCorrected() { subscriptionCorrections.Inc() }

func SubscriptionChanged(action string) { subscriptionChanges.WithLabelValues(action).Inc() }

func Broadcast(origin string, recipients int) {
	broadcasts.WithLabelValues(origin).Inc()
	broadcastRecipients.Add(float64(recipients))
}

func UnitDecision(kind, action string) { unitDecisions.WithLabelValues(kind, action).Inc() }

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrTimeout):
		return "timeout"
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrInvalidState), errors.Is(err, apperr.ErrNotFound):
		return "rejected"
	}
	return "error"
}
