// Package realtime implements the websocket client for the hosted
// realtime speech service. It handles the authenticated handshake, the
// one-time session configuration, audio append/submit events, and typed
// decoding of the server event stream with an explicit malformed-event
// error so callers can isolate failures to single messages.
package realtime
