package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultHandshakeTimeout = 15 * time.Second

	// protocolVersionHeader advertises the realtime protocol revision.
	protocolVersionHeader = "OpenAI-Beta"
	protocolVersion       = "realtime=v1"
)

// DialConfig describes an upstream speech-service connection.
type DialConfig struct {
	// URL is the websocket endpoint, without query parameters.
	URL string
	// APIKey is the bearer credential. Required.
	APIKey string
	// Model selects the realtime model (conversational sessions).
	Model string
	// Intent selects a session intent such as "transcription".
	Intent string
	// HandshakeTimeout bounds the websocket handshake.
	HandshakeTimeout time.Duration
}

// Conn is an established speech-service websocket connection. Writes are
// serialized internally; reads must stay on a single goroutine.
type Conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex
}

// Dial opens a websocket connection to the speech service, authenticating
// with the bearer credential and the protocol-version header. A failed
// handshake (network or auth) is fatal for the whole session; the caller
// must not proceed to relay.
func Dial(ctx context.Context, cfg DialConfig) (*Conn, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("speech-service credential is required")
	}

	endpoint, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid speech-service URL %q: %w", cfg.URL, err)
	}

	query := endpoint.Query()
	if cfg.Model != "" {
		query.Set("model", cfg.Model)
	}
	if cfg.Intent != "" {
		query.Set("intent", cfg.Intent)
	}
	endpoint.RawQuery = query.Encode()

	timeout := cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.APIKey)
	header.Set(protocolVersionHeader, protocolVersion)

	ws, resp, err := dialer.DialContext(ctx, endpoint.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("speech-service handshake rejected (%s): %w", resp.Status, err)
		}
		return nil, fmt.Errorf("failed to connect to speech service: %w", err)
	}

	return &Conn{ws: ws}, nil
}

// NewConn wraps an existing websocket connection. Used by tests that stand
// up a local speech-service double.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Send marshals and writes one client event.
func (c *Conn) Send(event any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.WriteJSON(event); err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}
	return nil
}

// ConfigureSession sends the one-time session configuration. The settle
// delay gives the service a moment to finish session setup after the
// handshake; no acknowledgment is awaited.
func (c *Conn) ConfigureSession(cfg SessionConfig, settle time.Duration) error {
	if settle > 0 {
		time.Sleep(settle)
	}

	return c.Send(sessionUpdateEvent{
		Type:    EventTypeSessionUpdate,
		Session: cfg,
	})
}

// ConfigureTranscriptionSession sends the transcription session update.
func (c *Conn) ConfigureTranscriptionSession(cfg TranscriptionSessionConfig) error {
	return c.Send(transcriptionSessionUpdateEvent{
		Type:    EventTypeTranscriptionSessionUpdate,
		Session: cfg,
	})
}

// AppendAudio forwards one base64 audio fragment to the input buffer,
// payload unchanged.
func (c *Conn) AppendAudio(audio string) error {
	return c.Send(inputAudioAppendEvent{
		Type:  EventTypeInputAudioAppend,
		Audio: audio,
	})
}

// CreateAudioItem submits a complete base64 recording as one user message.
func (c *Conn) CreateAudioItem(audio string) error {
	return c.Send(conversationItemCreateEvent{
		Type: EventTypeConversationItemCreate,
		Item: conversationItem{
			Type: "message",
			Role: "user",
			Content: []conversationItemContent{
				{Type: "input_audio", Audio: audio},
			},
		},
	})
}

// ReadEvent blocks until the next server event arrives. Parse failures are
// reported as ErrMalformedEvent and leave the connection usable; any other
// error is terminal for the connection.
func (c *Conn) ReadEvent() (*ServerEvent, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}

	return ParseServerEvent(data)
}

// Close closes the underlying websocket connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}
