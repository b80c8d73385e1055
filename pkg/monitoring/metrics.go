package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Schedule engine metrics
	doseEventsGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dose_events_generated_total",
			Help: "Total number of dose events produced by the schedule generator",
		},
	)

	dosesTakenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "doses_taken_total",
			Help: "Total number of doses marked taken",
		},
	)

	notificationsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notifications delivered to users",
		},
		[]string{"type"},
	)

	sweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "Total number of due/missed sweep passes",
		},
		[]string{"kind"},
	)

	sweepMatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_matched_total",
			Help: "Total number of dose events matched by sweep passes",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		doseEventsGeneratedTotal,
		dosesTakenTotal,
		notificationsSentTotal,
		sweepRunsTotal,
		sweepMatchedTotal,
	)
}

// RecordDoseEventsGenerated adds n generated dose events to the counter
func RecordDoseEventsGenerated(n int) {
	doseEventsGeneratedTotal.Add(float64(n))
}

// RecordDoseTaken increments the taken-dose counter
func RecordDoseTaken() {
	dosesTakenTotal.Inc()
}

// RecordNotificationSent increments the delivery counter for a notification type
func RecordNotificationSent(notificationType string) {
	notificationsSentTotal.WithLabelValues(notificationType).Inc()
}

// RecordSweep records one sweep pass and how many events it matched
func RecordSweep(kind string, matched int) {
	sweepRunsTotal.WithLabelValues(kind).Inc()
	sweepMatchedTotal.WithLabelValues(kind).Add(float64(matched))
}

// Handler returns the HTTP handler exposing the prometheus metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// statusRecorder captures the response status code for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for every handled request
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		duration := time.Since(start).Seconds()
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(recorder.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}
