package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BuddhimaZ/twilio-agent/internal/bridge"
	"github.com/BuddhimaZ/twilio-agent/internal/config"
	"github.com/BuddhimaZ/twilio-agent/internal/metrics"
	"github.com/BuddhimaZ/twilio-agent/internal/realtime"
)

// HTTPServer accepts incoming calls and media streams from the telephony
// provider and provides HTTP API endpoints for monitoring and management.
type HTTPServer struct {
	server   *http.Server
	logger   *slog.Logger
	config   *config.Config
	manager  *bridge.Manager
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader

	startTime time.Time
}

// NewHTTPServer creates the call-facing HTTP/websocket server
func NewHTTPServer(cfg *config.Config, logger *slog.Logger,
	manager *bridge.Manager, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:  logger,
		config:  cfg,
		manager: manager,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The telephony provider connects from its own infrastructure,
			// not a browser origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: media-stream websockets are long-lived.
		IdleTimeout: 60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Call handling endpoints
	mux.HandleFunc("/incoming-call", h.withMetrics("/incoming-call", h.handleIncomingCall))
	mux.HandleFunc("/media-stream", h.handleMediaStream)

	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Streams monitoring endpoints
	mux.HandleFunc("/streams", h.withMetrics("/streams", h.handleStreams))
	mux.HandleFunc("/streams/", h.withMetrics("/streams/{id}", h.handleStreamDetail))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Statistics endpoint
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		h.metrics.RecordHTTPRequest(r.Method, endpoint, fmt.Sprintf("%d", ww.statusCode), duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
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

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP server",
		slog.String("address", h.server.Addr),
		slog.String("public_host", h.config.Server.PublicHost),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP server...")

	return h.server.Shutdown(ctx)
}

// handleIncomingCall implements the /incoming-call endpoint. The telephony
// provider invokes it when a call arrives; the response is a connect
// directive routing the call's media stream to /media-stream.
func (h *HTTPServer) handleIncomingCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.logger.Info("Incoming call",
		slog.String("remote_addr", r.RemoteAddr),
	)

	streamURL := fmt.Sprintf("wss://%s/media-stream", h.config.Server.PublicHost)
	directive := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Response>
    <Say>Please wait while we connect your call to the A I voice assistant</Say>
    <Pause length="1"/>
    <Say>O K you can start talking</Say>
    <Connect>
        <Stream url="%s" />
    </Connect>
</Response>`, streamURL)

	w.Header().Set("Content-Type", "text/xml")
	fmt.Fprint(w, directive)
}

// handleMediaStream implements the /media-stream websocket endpoint. Each
// accepted connection becomes one independent call session: dial the speech
// service, send the session configuration, then relay both directions until
// either side ends the call.
func (h *HTTPServer) handleMediaStream(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade media-stream connection",
			slog.String("error", err.Error()),
			slog.String("remote_addr", r.RemoteAddr),
		)
		h.metrics.RecordHTTPError(r.Method, "/media-stream", "upgrade_failed")
		return
	}

	h.logger.Info("Media stream connected",
		slog.String("remote_addr", r.RemoteAddr),
	)

	upstream, err := realtime.Dial(r.Context(), realtime.DialConfig{
		URL:              h.config.Realtime.URL,
		APIKey:           h.config.Realtime.APIKey,
		Model:            h.config.Realtime.Model,
		HandshakeTimeout: h.config.Realtime.GetHandshakeTimeout(),
	})
	h.metrics.RecordUpstreamDial(err == nil)
	if err != nil {
		// Per-session fatal: no upstream means no call. The caller just
		// experiences a disconnect.
		h.logger.Error("Failed to connect to speech service",
			slog.String("error", err.Error()),
		)
		ws.Close()
		return
	}

	if err := upstream.ConfigureSession(h.sessionConfig(), h.config.Realtime.GetSettleDelay()); err != nil {
		h.logger.Error("Failed to configure speech-service session",
			slog.String("error", err.Error()),
		)
		upstream.Close()
		ws.Close()
		return
	}

	session := bridge.NewCallSession(bridge.NewTelephonyConn(ws), upstream)
	h.manager.Register(session)
	defer h.manager.Unregister(session)

	relay := bridge.NewRelay(session, h.logger, h.metrics)
	if err := relay.Run(r.Context()); err != nil {
		h.logger.Error("Call session failed",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
	}
}

// sessionConfig assembles the one-time session configuration from the
// pass-through configuration values.
func (h *HTTPServer) sessionConfig() realtime.SessionConfig {
	return realtime.SessionConfig{
		TurnDetection: &realtime.TurnDetection{
			Type:              h.config.TurnDetection.Type,
			Threshold:         h.config.TurnDetection.Threshold,
			PrefixPaddingMs:   h.config.TurnDetection.PrefixPaddingMs,
			SilenceDurationMs: h.config.TurnDetection.SilenceDurationMs,
		},
		InputAudioFormat:  h.config.Realtime.InputAudioFormat,
		OutputAudioFormat: h.config.Realtime.OutputAudioFormat,
		Voice:             h.config.Realtime.Voice,
		Instructions:      h.config.Realtime.Instructions,
		Modalities:        []string{"text", "audio"},
		Temperature:       h.config.Realtime.Temperature,
	}
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]interface{}{
			"name":    "voice-bridge-service",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"session_manager": map[string]interface{}{
				"status":          "running",
				"active_sessions": h.manager.GetActiveSessionCount(),
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleStreams implements the /streams endpoint
func (h *HTTPServer) handleStreams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions := h.manager.GetAllSessions()
	sessionInfos := make([]bridge.SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		sessionInfos = append(sessionInfos, session.Info())
	}

	response := map[string]interface{}{
		"total_streams": len(sessionInfos),
		"timestamp":     time.Now().UTC(),
		"streams":       sessionInfos,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleStreamDetail implements the /streams/{session_id} endpoint
func (h *HTTPServer) handleStreamDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Path[len("/streams/"):]
	if sessionID == "" {
		http.Error(w, "Session ID required", http.StatusBadRequest)
		return
	}

	session, exists := h.manager.GetSession(sessionID)
	if !exists {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session.Info())
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"server": map[string]interface{}{
			"port":        h.config.Server.Port,
			"address":     h.config.Server.Address,
			"public_host": h.config.Server.PublicHost,
		},
		"realtime": map[string]interface{}{
			"url":                 h.config.Realtime.URL,
			"model":               h.config.Realtime.Model,
			"voice":               h.config.Realtime.Voice,
			"temperature":         h.config.Realtime.Temperature,
			"input_audio_format":  h.config.Realtime.InputAudioFormat,
			"output_audio_format": h.config.Realtime.OutputAudioFormat,
			"settle_delay_ms":     h.config.Realtime.SettleDelayMs,
			// Note: API key is intentionally omitted for security
		},
		"turn_detection": map[string]interface{}{
			"type":                h.config.TurnDetection.Type,
			"threshold":           h.config.TurnDetection.Threshold,
			"prefix_padding_ms":   h.config.TurnDetection.PrefixPaddingMs,
			"silence_duration_ms": h.config.TurnDetection.SilenceDurationMs,
		},
		"audio": map[string]interface{}{
			"sample_rate":      h.config.Audio.SampleRate,
			"bytes_per_sample": h.config.Audio.BytesPerSample,
			"chunk_duration":   h.config.Audio.ChunkDuration,
			"overlap_duration": h.config.Audio.OverlapDuration,
			"chunk_pacing_ms":  h.config.Audio.ChunkPacingMs,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions := h.manager.GetAllSessions()
	var framesReceived, framesForwarded, deltasForwarded uint64
	for _, session := range sessions {
		info := session.Info()
		framesReceived += info.FramesReceived
		framesForwarded += info.FramesForwarded
		deltasForwarded += info.DeltasForwarded
	}

	stats := map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"sessions": map[string]interface{}{
			"active_count":     len(sessions),
			"frames_received":  framesReceived,
			"frames_forwarded": framesForwarded,
			"deltas_forwarded": deltasForwarded,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Voice Bridge Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET|POST /incoming-call":   "Call-answer endpoint (connect directive)",
			"WS /media-stream":          "Telephony media-stream websocket",
			"GET /":                     "API documentation",
			"GET /health":               "Service health check",
			"GET /streams":              "List all active call sessions",
			"GET /streams/{session_id}": "Get detailed session information",
			"GET /config":               "Get service configuration",
			"GET /stats":                "Get service statistics",
			"GET /metrics":              "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
