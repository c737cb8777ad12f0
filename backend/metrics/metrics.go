// Package metrics defines the Prometheus collectors exposed at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "learning",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "learning",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	ChaptersCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "learning",
		Name:      "chapters_completed_total",
		Help:      "Chapter completions newly recorded.",
	})

	CoursesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "learning",
		Name:      "courses_completed_total",
		Help:      "Enrollments that reached 100%.",
	})

	BadgesAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "learning",
		Name:      "badges_awarded_total",
		Help:      "Badges newly awarded to users.",
	})

	RemindersSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "learning",
		Name:      "reminders_sent_total",
		Help:      "Inactivity reminders created by the reminder job.",
	})

	EmailsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "learning",
		Name:      "emails_failed_total",
		Help:      "Outgoing e-mails that could not be delivered.",
	})
)
