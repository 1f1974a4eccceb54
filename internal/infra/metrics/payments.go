package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		checkoutsTotal,
		fulfillmentsTotal,
		fulfillmentDuration,
		enrollmentsCreatedTotal,
		webhookRequests,
	)
}

var (
	checkoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkouts_total",
			Help: "Checkout initiations by result (ok/rejected/gateway_error/ledger_error).",
		},
		[]string{"result"},
	)

	fulfillmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillments_total",
			Help: "Fulfillment attempts by source (client/webhook/reconciler) and result.",
		},
		[]string{"source", "result"},
	)

	fulfillmentDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fulfillment_duration_seconds",
			Help:    "Duration of the fulfillment transaction by source.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"source"},
	)

	enrollmentsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "enrollments_created_total",
			Help: "Enrollment rows created by fulfillment (duplicates excluded).",
		},
	)

	// fail reasons: bad_signature|bad_json|unmatched_order|fulfill_error
	// ok reasons: fulfilled|duplicate|stale|ignored_event
	webhookRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_requests_total",
			Help: "Gateway webhook deliveries by result and bounded reason.",
		},
		[]string{"result", "reason"},
	)
)

func IncCheckout(result string) {
	checkoutsTotal.WithLabelValues(norm(result)).Inc()
}

func IncFulfillment(source, result string) {
	fulfillmentsTotal.WithLabelValues(norm(source), norm(result)).Inc()
}

func ObserveFulfillmentDuration(source string, d time.Duration) {
	fulfillmentDuration.WithLabelValues(norm(source)).Observe(d.Seconds())
}

func AddEnrollmentsCreated(n int) {
	if n > 0 {
		enrollmentsCreatedTotal.Add(float64(n))
	}
}

func IncWebhook(result, reason string) {
	webhookRequests.WithLabelValues(norm(result), norm(reason)).Inc()
}
