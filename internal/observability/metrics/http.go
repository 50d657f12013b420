package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queriesTotal        *prometheus.CounterVec
	gateEscalationTotal *prometheus.CounterVec
	confidence          *prometheus.HistogramVec
	feedbackTotal       *prometheus.CounterVec
	adjustmentsTotal    *prometheus.CounterVec
	configVersion       *prometheus.GaugeVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "arag",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "arag",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arag",
			Subsystem: "rag",
			Name:      "queries_total",
			Help:      "Total answered queries by retrieval method and web usage.",
		},
		[]string{"service", "method", "web_search"},
	)
	gateEscalationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arag",
			Subsystem: "rag",
			Name:      "gate_escalations_total",
			Help:      "Total queries the adequacy gate escalated to web search.",
		},
		[]string{"service"},
	)
	confidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "arag",
			Subsystem: "rag",
			Name:      "answer_confidence",
			Help:      "Distribution of final answer confidence scores.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service"},
	)
	feedbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arag",
			Subsystem: "learning",
			Name:      "feedback_events_total",
			Help:      "Total accepted feedback events by type.",
		},
		[]string{"service", "type"},
	)
	adjustmentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arag",
			Subsystem: "learning",
			Name:      "adjustments_total",
			Help:      "Total applied parameter adjustments by parameter name.",
		},
		[]string{"service", "parameter"},
	)
	configVersion := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "arag",
			Subsystem: "learning",
			Name:      "config_version",
			Help:      "Currently published adaptive config version.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queriesTotal,
		gateEscalationTotal,
		confidence,
		feedbackTotal,
		adjustmentsTotal,
		configVersion,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		service:             service,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		queriesTotal:        queriesTotal,
		gateEscalationTotal: gateEscalationTotal,
		confidence:          confidence,
		feedbackTotal:       feedbackTotal,
		adjustmentsTotal:    adjustmentsTotal,
		configVersion:       configVersion,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/articles/"):
		return "/v1/articles/{article_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) QueryServed(method string, webSearch bool) {
	m.queriesTotal.WithLabelValues(m.service, method, strconv.FormatBool(webSearch)).Inc()
}

func (m *HTTPServerMetrics) GateEscalation() {
	m.gateEscalationTotal.WithLabelValues(m.service).Inc()
}

func (m *HTTPServerMetrics) ConfidenceObserved(confidence float64) {
	m.confidence.WithLabelValues(m.service).Observe(confidence)
}

func (m *HTTPServerMetrics) FeedbackRecorded(feedbackType string) {
	if feedbackType == "" {
		feedbackType = "unknown"
	}
	m.feedbackTotal.WithLabelValues(m.service, feedbackType).Inc()
}

func (m *HTTPServerMetrics) AdjustmentApplied(parameter string) {
	if parameter == "" {
		parameter = "unknown"
	}
	m.adjustmentsTotal.WithLabelValues(m.service, parameter).Inc()
}

func (m *HTTPServerMetrics) ConfigVersion(version int64) {
	m.configVersion.WithLabelValues(m.service).Set(float64(version))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}
