package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	UpstreamRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hive",
		Name:      "upstream_requests_total",
		Help:      "Requests issued to the upstream roadmap API.",
	}, []string{"endpoint", "outcome"})

	WebhookDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "webhook",
		Name:      "deliveries_total",
		Help:      "Webhook delivery attempts by event type and outcome.",
	}, []string{"event", "outcome"})

	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Time (in seconds) spent serving HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status_code"})
)

func init() {
	prometheus.MustRegister(UpstreamRequests, WebhookDeliveries, RequestDuration)
}

func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
