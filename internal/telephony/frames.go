package telephony

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType identifies the kind of media-stream frame.
type EventType int

const (
	// EventUnknown is the fallback for tags this service does not handle.
	EventUnknown EventType = iota
	// EventConnected is the provider's initial handshake frame.
	EventConnected
	// EventStart announces the stream and carries the stream SID.
	EventStart
	// EventMedia carries one base64 audio payload.
	EventMedia
	// EventStop ends the stream ("stop" on current providers, "closed"
	// on older ones; both map here).
	EventStop
	// EventMark acknowledges a previously sent playback mark.
	EventMark
)

// String returns the wire tag for the event type.
func (e EventType) String() string {
	switch e {
	case EventConnected:
		return "connected"
	case EventStart:
		return "start"
	case EventMedia:
		return "media"
	case EventStop:
		return "stop"
	case EventMark:
		return "mark"
	default:
		return "unknown"
	}
}

// ErrMalformedFrame marks frames that could not be parsed. Callers skip
// the offending message and keep the connection alive.
var ErrMalformedFrame = errors.New("malformed media-stream frame")

// Frame is the JSON envelope exchanged on the media-stream websocket.
type Frame struct {
	Event          string        `json:"event"`
	SequenceNumber string        `json:"sequenceNumber,omitempty"`
	StreamSid      string        `json:"streamSid,omitempty"`
	Start          *StartPayload `json:"start,omitempty"`
	Media          *MediaPayload `json:"media,omitempty"`
}

// StartPayload describes the stream announced by a start frame.
type StartPayload struct {
	StreamSid        string            `json:"streamSid"`
	AccountSid       string            `json:"accountSid,omitempty"`
	CallSid          string            `json:"callSid,omitempty"`
	Tracks           []string          `json:"tracks,omitempty"`
	MediaFormat      MediaFormat       `json:"mediaFormat,omitempty"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

// MediaFormat declares the audio encoding of a stream.
type MediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

// MediaPayload carries one base64-encoded audio fragment.
type MediaPayload struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

// Type maps the frame's wire tag onto the closed event set.
func (f *Frame) Type() EventType {
	switch f.Event {
	case "connected":
		return EventConnected
	case "start":
		return EventStart
	case "media":
		return EventMedia
	case "stop", "closed":
		return EventStop
	case "mark":
		return EventMark
	default:
		return EventUnknown
	}
}

// Payload returns the base64 audio of a media frame, or "" for other frames.
func (f *Frame) Payload() string {
	if f.Media == nil {
		return ""
	}
	return f.Media.Payload
}

// StartStreamSid returns the stream SID announced by a start frame. The SID
// appears both at the envelope level and inside the start payload; the
// payload wins when both are present.
func (f *Frame) StartStreamSid() string {
	if f.Start != nil && f.Start.StreamSid != "" {
		return f.Start.StreamSid
	}
	return f.StreamSid
}

// ParseFrame decodes a media-stream envelope. A frame without an event tag
// or with invalid JSON is reported as ErrMalformedFrame.
func ParseFrame(data []byte) (*Frame, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	if frame.Event == "" {
		return nil, fmt.Errorf("%w: missing event tag", ErrMalformedFrame)
	}

	if frame.Type() == EventMedia && frame.Media == nil {
		return nil, fmt.Errorf("%w: media frame without payload", ErrMalformedFrame)
	}

	return &frame, nil
}

// NewMediaFrame builds an outbound media frame addressed to streamSid,
// carrying the base64 payload unchanged.
func NewMediaFrame(streamSid, payload string) *Frame {
	return &Frame{
		Event:     "media",
		StreamSid: streamSid,
		Media:     &MediaPayload{Payload: payload},
	}
}
