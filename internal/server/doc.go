// Package server is the call front door: the HTTP endpoints the telephony
// provider invokes on an inbound call, the media-stream websocket that
// carries the call audio, and the monitoring API (health, sessions, config,
// stats, Prometheus metrics).
package server
