package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentIntentsTotal,
		webhookEventsTotal,
	)
}

var (
	paymentIntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_intents_total",
			Help: "Payment intent operations by outcome (created/verified/failed).",
		},
		[]string{"outcome"},
	)

	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Webhook events received, by event type and handling result.",
		},
		[]string{"type", "result"},
	)
)

func IncPaymentIntent(outcome string) {
	paymentIntentsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncWebhookEvent(eventType, result string) {
	webhookEventsTotal.WithLabelValues(norm(eventType), norm(result)).Inc()
}
