// Package telephony implements the media-stream frame envelope spoken by
// the telephony provider over the inbound websocket. It models the event
// tags as a closed set with an explicit unknown fallback and keeps audio
// payloads base64-encoded end to end.
package telephony
