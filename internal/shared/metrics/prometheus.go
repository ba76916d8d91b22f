package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Search metrics
	searchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Total number of typeahead search requests",
		},
		[]string{"source", "outcome"},
	)

	searchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "Typeahead search duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"source"},
	)

	searchCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_cache_total",
			Help: "Search cache lookups by result",
		},
		[]string{"source", "result"},
	)

	// Registry metrics
	residentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "residents_created_total",
			Help: "Total number of residents registered",
		},
		[]string{"barangay"},
	)

	sectoralRecomputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sectoral_recomputations_total",
			Help: "Sectoral classification recomputations by whether flags changed",
		},
		[]string{"changed"},
	)

	occupationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "custom_occupations_created_total",
			Help: "Total number of custom occupations created from the picker",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		path := routePattern(r)
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// routePattern uses the chi route template to keep label cardinality bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// --- Business metric helpers ---

// RecordSearch records one search against a source ("psgc", "psoc", "options").
func RecordSearch(source, outcome string, duration time.Duration) {
	searchRequests.WithLabelValues(source, outcome).Inc()
	searchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordCacheLookup records a search cache hit or miss.
func RecordCacheLookup(source string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	searchCache.WithLabelValues(source, result).Inc()
}

// RecordResidentCreated records a resident registration
func RecordResidentCreated(barangayCode string) {
	residentsCreated.WithLabelValues(barangayCode).Inc()
}

// RecordSectoralRecompute records a classification recomputation
func RecordSectoralRecompute(changed bool) {
	sectoralRecomputed.WithLabelValues(strconv.FormatBool(changed)).Inc()
}

// RecordOccupationCreated records a custom occupation creation
func RecordOccupationCreated() {
	occupationsCreated.Inc()
}
