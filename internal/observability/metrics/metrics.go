// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "speech_translate"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Translation metrics
	TranslationsTotal   *prometheus.CounterVec
	TranslationsInvalid prometheus.Counter
	EndpointLatency     prometheus.Histogram
	EndpointFailures    *prometheus.CounterVec
	StructuralMismatch  prometheus.Counter
	FallbackTotal       *prometheus.CounterVec
	StoreOperations     *prometheus.CounterVec
	StoreSize           prometheus.Gauge

	// Speech capture metrics
	SessionsTotal      prometheus.Counter
	SessionsActive     prometheus.Gauge
	TranscriptsFinal   prometheus.Counter
	TranscriptsInterim prometheus.Counter
	RecognitionErrors  *prometheus.CounterVec
	PermissionDenied   prometheus.Counter
	AudioBytesReceived prometheus.Counter
	AudioLimitExceeded *prometheus.CounterVec

	// Notification metrics
	Notifications *prometheus.CounterVec

	// Event publish metrics
	PublishTotal   *prometheus.CounterVec
	PublishErrors  *prometheus.CounterVec
	PublishLatency *prometheus.HistogramVec

	// gRPC metrics
	GRPCStreamsActive prometheus.Gauge
	GRPCCalls         *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TranslationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_total",
			Help:      "Total number of translations produced, by path",
		}, []string{"path"}),
		TranslationsInvalid: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_invalid_total",
			Help:      "Total number of translation requests rejected as invalid input",
		}),
		EndpointLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "endpoint_latency_seconds",
			Help:      "Translation endpoint request latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		EndpointFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "endpoint_failures_total",
			Help:      "Total number of translation endpoint failures",
		}, []string{"reason"}),
		StructuralMismatch: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "endpoint_structural_mismatch_total",
			Help:      "Responses whose shape did not match the nested-array contract",
		}),
		FallbackTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_total",
			Help:      "Fallback translations, by source",
		}, []string{"source"}),
		StoreOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Translation collection operations",
		}, []string{"op", "result"}),
		StoreSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_records",
			Help:      "Number of records in the translation collection",
		}),

		SessionsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_sessions_total",
			Help:      "Total number of recognition sessions started",
		}),
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recognition_sessions_active",
			Help:      "Number of recognition sessions currently listening",
		}),
		TranscriptsFinal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_final_total",
			Help:      "Total number of final transcripts delivered",
		}),
		TranscriptsInterim: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_interim_total",
			Help:      "Total number of interim results seen (never delivered)",
		}),
		RecognitionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_errors_total",
			Help:      "Total number of recognition errors, by kind",
		}, []string{"kind"}),
		PermissionDenied: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "microphone_permission_denied_total",
			Help:      "Total number of microphone permission denials",
		}),
		AudioBytesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total audio bytes forwarded to recognition sessions",
		}),
		AudioLimitExceeded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_limit_exceeded_total",
			Help:      "Total number of sessions aborted by audio limits",
		}, []string{"limit_type"}),

		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "User-facing notifications emitted",
		}, []string{"level", "event"}),

		PublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_total",
			Help:      "Total number of events published",
		}, []string{"topic"}),
		PublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_errors_total",
			Help:      "Total number of event publish errors",
		}, []string{"topic"}),
		PublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_publish_latency_seconds",
			Help:      "Event publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		GRPCStreamsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "grpc_streams_active",
			Help:      "Number of currently open gRPC streams",
		}),
		GRPCCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_calls_total",
			Help:      "Total number of gRPC calls, by method and code",
		}, []string{"method", "code"}),
	}
}

// RecordTranslation records a produced translation and the path that produced it.
func (m *Metrics) RecordTranslation(path string) {
	m.TranslationsTotal.WithLabelValues(path).Inc()
}

// RecordInvalidInput records a rejected translation request.
func (m *Metrics) RecordInvalidInput() {
	m.TranslationsInvalid.Inc()
}

// RecordEndpointCall records a translation endpoint call.
func (m *Metrics) RecordEndpointCall(latencySeconds float64) {
	m.EndpointLatency.Observe(latencySeconds)
}

// RecordEndpointFailure records a primary-path failure.
func (m *Metrics) RecordEndpointFailure(reason string) {
	m.EndpointFailures.WithLabelValues(reason).Inc()
}

// RecordStructuralMismatch records a response with an unexpected shape.
func (m *Metrics) RecordStructuralMismatch() {
	m.StructuralMismatch.Inc()
}

// RecordFallback records a fallback translation by its source (dictionary or synthetic).
func (m *Metrics) RecordFallback(source string) {
	m.FallbackTotal.WithLabelValues(source).Inc()
}

// RecordStoreOp records a collection operation.
func (m *Metrics) RecordStoreOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StoreOperations.WithLabelValues(op, result).Inc()
}

// SetStoreSize records the current collection size.
func (m *Metrics) SetStoreSize(n int) {
	m.StoreSize.Set(float64(n))
}

// RecordSessionStart records a recognition session entering the listening state.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a listening session ending.
func (m *Metrics) RecordSessionEnd() {
	m.SessionsActive.Dec()
}

// RecordFinalTranscript records a delivered final transcript.
func (m *Metrics) RecordFinalTranscript() {
	m.TranscriptsFinal.Inc()
}

// RecordInterimResult records an interim result that was discarded.
func (m *Metrics) RecordInterimResult() {
	m.TranscriptsInterim.Inc()
}

// RecordRecognitionError records a recognition error by kind.
func (m *Metrics) RecordRecognitionError(kind string) {
	m.RecognitionErrors.WithLabelValues(kind).Inc()
}

// RecordPermissionDenied records a microphone permission denial.
func (m *Metrics) RecordPermissionDenied() {
	m.PermissionDenied.Inc()
}

// RecordAudioReceived records audio bytes forwarded to a session.
func (m *Metrics) RecordAudioReceived(bytes int) {
	m.AudioBytesReceived.Add(float64(bytes))
}

// RecordLimitExceeded records when an audio limit is exceeded.
func (m *Metrics) RecordLimitExceeded(limitType string) {
	m.AudioLimitExceeded.WithLabelValues(limitType).Inc()
}

// RecordNotification records a user-facing notification.
func (m *Metrics) RecordNotification(level, event string) {
	m.Notifications.WithLabelValues(level, event).Inc()
}

// RecordPublish records an event publish attempt.
func (m *Metrics) RecordPublish(topic string, err error, latencySeconds float64) {
	m.PublishTotal.WithLabelValues(topic).Inc()
	m.PublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.PublishErrors.WithLabelValues(topic).Inc()
	}
}

// RecordGRPCCall records a finished gRPC call.
func (m *Metrics) RecordGRPCCall(method, code string) {
	m.GRPCCalls.WithLabelValues(method, code).Inc()
}
