// Package metrics provides Prometheus metrics for the companion app.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lexilens"

// Metrics holds all Prometheus metrics for the companion app.
type Metrics struct {
	SessionsActive prometheus.Gauge
	SessionsTotal  prometheus.Counter

	RecognitionsStarted   prometheus.Counter
	RecognitionsCompleted prometheus.Counter
	RecognitionsFailed    *prometheus.CounterVec
	RecognitionDuration   prometheus.Histogram

	SecondaryLabelsDetected     prometheus.Counter
	SecondaryTranslations       prometheus.Counter
	SecondaryTranslationsFailed prometheus.Counter

	QuestionsAnswered prometheus.Counter
	LanguageToggles   prometheus.Counter

	WindowsArmed   prometheus.Counter
	WindowsExpired prometheus.Counter

	ForwarderSent    *prometheus.CounterVec
	ForwarderFailed  *prometheus.CounterVec
	ForwarderDropped *prometheus.CounterVec

	LocationCycles prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registerer.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently connected glasses sessions",
		}),
		SessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of glasses sessions started",
		}),

		RecognitionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognitions_started_total",
			Help:      "Total number of capture-and-recognize runs started",
		}),
		RecognitionsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognitions_completed_total",
			Help:      "Total number of recognition runs that produced speech",
		}),
		RecognitionsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognitions_failed_total",
			Help:      "Total number of recognition runs aborted before speech",
		}, []string{"stage"}),
		RecognitionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recognition_duration_seconds",
			Help:      "Duration of recognition runs from photo capture to speech",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),

		SecondaryLabelsDetected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "secondary_labels_detected_total",
			Help:      "Total number of secondary objects detected after dedup",
		}),
		SecondaryTranslations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "secondary_translations_total",
			Help:      "Total number of secondary labels translated and spoken",
		}),
		SecondaryTranslationsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "secondary_translations_failed_total",
			Help:      "Total number of secondary label translations dropped",
		}),

		QuestionsAnswered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "followup_answers_total",
			Help:      "Total number of spoken follow-up answers",
		}),
		LanguageToggles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "language_toggles_total",
			Help:      "Total number of long-press language switches",
		}),

		WindowsArmed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listening_windows_armed_total",
			Help:      "Total number of times the listening window was armed",
		}),
		WindowsExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listening_windows_expired_total",
			Help:      "Total number of listening windows that expired or were cancelled",
		}),

		ForwarderSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwarder_sent_total",
			Help:      "Total number of entries posted to the wordbase",
		}, []string{"kind"}),
		ForwarderFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwarder_failed_total",
			Help:      "Total number of wordbase posts that failed",
		}, []string{"kind"}),
		ForwarderDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwarder_dropped_total",
			Help:      "Total number of entries dropped because the outbound queue was full",
		}, []string{"kind"}),

		LocationCycles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_cycles_total",
			Help:      "Total number of completed location tracking cycles",
		}),
	}
}

// RecordSessionStart records a new glasses session.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionStop records a session ending.
func (m *Metrics) RecordSessionStop() {
	m.SessionsActive.Dec()
}

// RecordRecognitionStarted records a recognition run beginning.
func (m *Metrics) RecordRecognitionStarted() {
	m.RecognitionsStarted.Inc()
}

// RecordRecognitionCompleted records a recognition run that reached speech.
func (m *Metrics) RecordRecognitionCompleted(durationSeconds float64) {
	m.RecognitionsCompleted.Inc()
	m.RecognitionDuration.Observe(durationSeconds)
}

// RecordRecognitionFailed records a recognition run aborted at the given stage.
func (m *Metrics) RecordRecognitionFailed(stage string) {
	m.RecognitionsFailed.WithLabelValues(stage).Inc()
}

// RecordSecondaryLabels records how many secondary objects survived dedup.
func (m *Metrics) RecordSecondaryLabels(count int) {
	m.SecondaryLabelsDetected.Add(float64(count))
}

// RecordSecondaryTranslation records a secondary label that made it into speech.
func (m *Metrics) RecordSecondaryTranslation() {
	m.SecondaryTranslations.Inc()
}

// RecordSecondaryTranslationFailed records a dropped secondary translation.
func (m *Metrics) RecordSecondaryTranslationFailed() {
	m.SecondaryTranslationsFailed.Inc()
}

// RecordQuestionAnswered records a spoken follow-up answer.
func (m *Metrics) RecordQuestionAnswered() {
	m.QuestionsAnswered.Inc()
}

// RecordLanguageToggle records a long-press language switch.
func (m *Metrics) RecordLanguageToggle() {
	m.LanguageToggles.Inc()
}

// RecordWindowArmed records the listening window being armed.
func (m *Metrics) RecordWindowArmed() {
	m.WindowsArmed.Inc()
}

// RecordWindowExpired records a listening window ending.
func (m *Metrics) RecordWindowExpired() {
	m.WindowsExpired.Inc()
}

// RecordForwarderSent records an entry accepted by the wordbase.
func (m *Metrics) RecordForwarderSent(kind string) {
	m.ForwarderSent.WithLabelValues(kind).Inc()
}

// RecordForwarderFailed records a wordbase post failure.
func (m *Metrics) RecordForwarderFailed(kind string) {
	m.ForwarderFailed.WithLabelValues(kind).Inc()
}

// RecordForwarderDropped records an entry dropped due to queue overflow.
func (m *Metrics) RecordForwarderDropped(kind string) {
	m.ForwarderDropped.WithLabelValues(kind).Inc()
}

// RecordLocationCycle records a completed location tracking cycle.
func (m *Metrics) RecordLocationCycle() {
	m.LocationCycles.Inc()
}
