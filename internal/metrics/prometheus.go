package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice bridge service
type Metrics struct {
	// Call session metrics
	ActiveSessions  prometheus.Gauge
	SessionsStarted prometheus.Counter
	SessionsEnded   prometheus.Counter
	SessionDuration prometheus.Histogram

	// Relay metrics
	FramesReceived       prometheus.Counter
	AudioFramesForwarded prometheus.Counter
	AudioDeltasForwarded prometheus.Counter
	DeltasDroppedNoSid   prometheus.Counter
	RelayParseErrors     *prometheus.CounterVec

	// Upstream connection metrics
	UpstreamDials        prometheus.Counter
	UpstreamDialFailures prometheus.Counter

	// Batch transcription metrics
	TranscriptionsCompleted prometheus.Counter
	TranscriptionChunksSent prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on the default registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates and registers all metrics on the given registerer.
// Tests use this with a private registry to avoid duplicate registration.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Call session metrics
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_active_sessions",
			Help: "Current number of active call sessions",
		}),
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_sessions_started_total",
			Help: "Total number of call sessions started",
		}),
		SessionsEnded: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_sessions_ended_total",
			Help: "Total number of call sessions ended",
		}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bridge_session_duration_seconds",
			Help:    "Duration of call sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68 minutes
		}),

		// Relay metrics
		FramesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_frames_received_total",
			Help: "Total number of media-stream frames received from the telephony peer",
		}),
		AudioFramesForwarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_audio_frames_forwarded_total",
			Help: "Total number of audio frames forwarded to the speech service",
		}),
		AudioDeltasForwarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_audio_deltas_forwarded_total",
			Help: "Total number of audio deltas forwarded to the telephony peer",
		}),
		DeltasDroppedNoSid: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_audio_deltas_dropped_no_sid_total",
			Help: "Total number of audio deltas dropped before the stream SID was known",
		}),
		RelayParseErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_relay_parse_errors_total",
			Help: "Total number of malformed messages skipped by the relay pumps",
		}, []string{"direction"}),

		// Upstream connection metrics
		UpstreamDials: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_upstream_dials_total",
			Help: "Total number of speech-service connection attempts",
		}),
		UpstreamDialFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_upstream_dial_failures_total",
			Help: "Total number of failed speech-service connection attempts",
		}),

		// Batch transcription metrics
		TranscriptionsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_transcriptions_completed_total",
			Help: "Total number of batch transcriptions completed",
		}),
		TranscriptionChunksSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_transcription_chunks_sent_total",
			Help: "Total number of audio windows submitted for batch transcription",
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bridge_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordSessionStarted increments the session counters
func (m *Metrics) RecordSessionStarted() {
	m.SessionsStarted.Inc()
	m.ActiveSessions.Inc()
}

// RecordSessionEnded decrements the active gauge and records duration
func (m *Metrics) RecordSessionEnded(durationSeconds float64) {
	m.SessionsEnded.Inc()
	m.ActiveSessions.Dec()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordFrameReceived increments the inbound frame counter
func (m *Metrics) RecordFrameReceived() {
	m.FramesReceived.Inc()
}

// RecordAudioFrameForwarded increments the telephony-to-speech counter
func (m *Metrics) RecordAudioFrameForwarded() {
	m.AudioFramesForwarded.Inc()
}

// RecordAudioDeltaForwarded increments the speech-to-telephony counter
func (m *Metrics) RecordAudioDeltaForwarded() {
	m.AudioDeltasForwarded.Inc()
}

// RecordDeltaDroppedNoSid counts deltas discarded before start arrived
func (m *Metrics) RecordDeltaDroppedNoSid() {
	m.DeltasDroppedNoSid.Inc()
}

// RecordRelayParseError counts one skipped malformed message
func (m *Metrics) RecordRelayParseError(direction string) {
	m.RelayParseErrors.WithLabelValues(direction).Inc()
}

// RecordUpstreamDial records a connection attempt and its outcome
func (m *Metrics) RecordUpstreamDial(success bool) {
	m.UpstreamDials.Inc()
	if !success {
		m.UpstreamDialFailures.Inc()
	}
}

// RecordTranscriptionCompleted increments the batch transcription counter
func (m *Metrics) RecordTranscriptionCompleted() {
	m.TranscriptionsCompleted.Inc()
}

// RecordTranscriptionChunkSent counts one submitted audio window
func (m *Metrics) RecordTranscriptionChunkSent() {
	m.TranscriptionChunksSent.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
