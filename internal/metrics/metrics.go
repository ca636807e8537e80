// Package metrics exposes Prometheus instruments for the server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spinabot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	EmailQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spinabot_email_queries_total",
			Help: "Dashboard email queries by sort key and search mode",
		},
		[]string{"sort", "search_mode"},
	)

	AssistantReplies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spinabot_assistant_replies_total",
			Help: "Assistant replies by outcome",
		},
		[]string{"outcome"}, // matched, fallback
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spinabot_sessions_active",
			Help: "Live sessions seen at the last sweep",
		},
	)

	OnboardingEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spinabot_onboarding_events_total",
			Help: "Onboarding operations by step and result",
		},
		[]string{"step", "result"}, // result: ok, invalid, error
	)

	JobRuns = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spinabot_job_duration_seconds",
			Help:    "Scheduled job duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
		[]string{"job", "status"},
	)
)

// RecordHTTPRequest records one handled request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// RecordEmailQuery counts a dashboard query.
func RecordEmailQuery(sortKey, searchMode string) {
	EmailQueries.WithLabelValues(sortKey, searchMode).Inc()
}

// RecordAssistantReply counts an assistant reply.
func RecordAssistantReply(matched bool) {
	outcome := "fallback"
	if matched {
		outcome = "matched"
	}
	AssistantReplies.WithLabelValues(outcome).Inc()
}

// SetActiveSessions sets the live session gauge.
func SetActiveSessions(n int) {
	ActiveSessions.Set(float64(n))
}

// RecordOnboarding counts an onboarding operation.
func RecordOnboarding(step, result string) {
	OnboardingEvents.WithLabelValues(step, result).Inc()
}

// RecordJob records a scheduled job run.
func RecordJob(name string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	JobRuns.WithLabelValues(name, status).Observe(d.Seconds())
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
