package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Server event types received from the speech service.
const (
	EventTypeError = "error"

	EventTypeSessionCreated = "session.created"
	EventTypeSessionUpdated = "session.updated"

	EventTypeTranscriptionSessionCreated = "transcription_session.created"
	EventTypeTranscriptionSessionUpdated = "transcription_session.updated"

	EventTypeInputAudioCommitted     = "input_audio_buffer.committed"
	EventTypeInputAudioSpeechStarted = "input_audio_buffer.speech_started"
	EventTypeInputAudioSpeechStopped = "input_audio_buffer.speech_stopped"

	EventTypeResponseAudioDelta  = "response.audio.delta"
	EventTypeResponseAudioDone   = "response.audio.done"
	EventTypeResponseContentDone = "response.content.done"
	EventTypeResponseDone        = "response.done"

	EventTypeTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	EventTypeTranscriptionFailed    = "conversation.item.input_audio_transcription.failed"

	EventTypeRateLimitsUpdated = "rate_limits.updated"
)

// Client event types sent to the speech service.
const (
	EventTypeSessionUpdate              = "session.update"
	EventTypeTranscriptionSessionUpdate = "transcription_session.update"
	EventTypeInputAudioAppend           = "input_audio_buffer.append"
	EventTypeConversationItemCreate     = "conversation.item.create"
)

// diagnosticEvents are session-lifecycle and flow-control markers that are
// recorded for observability but never forwarded anywhere.
var diagnosticEvents = map[string]struct{}{
	EventTypeSessionCreated:          {},
	EventTypeSessionUpdated:          {},
	EventTypeResponseContentDone:     {},
	EventTypeResponseDone:            {},
	EventTypeInputAudioCommitted:     {},
	EventTypeInputAudioSpeechStarted: {},
	EventTypeInputAudioSpeechStopped: {},
	EventTypeRateLimitsUpdated:       {},
}

// ErrMalformedEvent marks upstream messages that could not be parsed.
// Callers skip the offending message and keep the connection alive.
var ErrMalformedEvent = errors.New("malformed speech-service event")

// ServerEvent is the envelope for every message the speech service sends.
// Only the fields this service reads are modelled; Raw preserves the rest.
type ServerEvent struct {
	Type    string `json:"type"`
	EventID string `json:"event_id,omitempty"`

	// Delta carries a base64 audio fragment for response.audio.delta.
	Delta string `json:"delta,omitempty"`

	// Transcript is the completed transcription text.
	Transcript string `json:"transcript,omitempty"`

	// ItemID identifies the conversation item for transcription events.
	ItemID string `json:"item_id,omitempty"`

	// Error is populated for error events.
	Error *EventError `json:"error,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// EventError describes a protocol-level error reported by the service.
type EventError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// IsAudioDelta reports whether the event carries a synthesized audio fragment.
func (e *ServerEvent) IsAudioDelta() bool {
	return e.Type == EventTypeResponseAudioDelta && e.Delta != ""
}

// IsDiagnostic reports whether the event is a lifecycle marker that is
// logged but not forwarded.
func (e *ServerEvent) IsDiagnostic() bool {
	_, ok := diagnosticEvents[e.Type]
	return ok
}

// ParseServerEvent decodes a speech-service envelope. Invalid JSON or a
// missing type tag is reported as ErrMalformedEvent.
func ParseServerEvent(data []byte) (*ServerEvent, error) {
	var event ServerEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if event.Type == "" {
		return nil, fmt.Errorf("%w: missing type tag", ErrMalformedEvent)
	}

	event.Raw = json.RawMessage(data)
	return &event, nil
}

// TurnDetection holds the server-side voice activity detection parameters.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
}

// SessionConfig is the one-time conversational session configuration sent
// before any audio flows.
type SessionConfig struct {
	TurnDetection     *TurnDetection `json:"turn_detection,omitempty"`
	InputAudioFormat  string         `json:"input_audio_format,omitempty"`
	OutputAudioFormat string         `json:"output_audio_format,omitempty"`
	Voice             string         `json:"voice,omitempty"`
	Instructions      string         `json:"instructions,omitempty"`
	Modalities        []string       `json:"modalities,omitempty"`
	Temperature       float64        `json:"temperature,omitempty"`
}

// InputAudioTranscription selects the transcription model for batch sessions.
type InputAudioTranscription struct {
	Model    string `json:"model"`
	Prompt   string `json:"prompt,omitempty"`
	Language string `json:"language,omitempty"`
}

// NoiseReduction configures input noise reduction for batch sessions.
type NoiseReduction struct {
	Type string `json:"type"`
}

// TranscriptionSessionConfig configures a transcription-intent session.
type TranscriptionSessionConfig struct {
	InputAudioFormat         string                   `json:"input_audio_format,omitempty"`
	InputAudioTranscription  *InputAudioTranscription `json:"input_audio_transcription,omitempty"`
	TurnDetection            *TurnDetection           `json:"turn_detection,omitempty"`
	InputAudioNoiseReduction *NoiseReduction          `json:"input_audio_noise_reduction,omitempty"`
	Include                  []string                 `json:"include"`
}

// sessionUpdateEvent configures a conversational session.
type sessionUpdateEvent struct {
	Type    string        `json:"type"`
	Session SessionConfig `json:"session"`
}

// transcriptionSessionUpdateEvent configures a transcription session.
type transcriptionSessionUpdateEvent struct {
	Type    string                     `json:"type"`
	Session TranscriptionSessionConfig `json:"session"`
}

// inputAudioAppendEvent appends one base64 audio fragment to the input buffer.
type inputAudioAppendEvent struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// conversationItem and friends submit a complete recording as one item.
type conversationItem struct {
	Type    string                    `json:"type"`
	Role    string                    `json:"role"`
	Content []conversationItemContent `json:"content"`
}

type conversationItemContent struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type conversationItemCreateEvent struct {
	Type string           `json:"type"`
	Item conversationItem `json:"item"`
}
