package transcription

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BuddhimaZ/twilio-agent/internal/audio"
	"github.com/BuddhimaZ/twilio-agent/internal/metrics"
	"github.com/BuddhimaZ/twilio-agent/internal/realtime"
)

// State is the machine's position in the transcription protocol walk.
type State int

const (
	StateAwaitingCreated State = iota
	StateAwaitingUpdated
	StateAwaitingCompletion
	StateDone
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case StateAwaitingCreated:
		return "awaiting_created"
	case StateAwaitingUpdated:
		return "awaiting_updated"
	case StateAwaitingCompletion:
		return "awaiting_completion"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Mode selects how the recording is submitted once the session is ready.
type Mode string

const (
	// ModeWhole submits the entire recording as one conversation item.
	ModeWhole Mode = "whole"
	// ModeWindowed submits the recording as overlapping windows, one
	// append message per window with a pacing delay between them.
	ModeWindowed Mode = "windowed"
)

// Conn is the upstream leg the machine drives. *realtime.Conn satisfies it.
type Conn interface {
	ReadEvent() (*realtime.ServerEvent, error)
	ConfigureTranscriptionSession(cfg realtime.TranscriptionSessionConfig) error
	AppendAudio(audio string) error
	CreateAudioItem(audio string) error
}

// Config describes one transcription run.
type Config struct {
	// Session is sent verbatim once the service announces the session.
	Session realtime.TranscriptionSessionConfig
	// Mode selects whole-item or windowed submission.
	Mode Mode
	// Window configures the splitter for ModeWindowed.
	Window audio.WindowConfig
	// Pacing is the delay between windowed append messages.
	Pacing time.Duration
}

// Machine walks the transcription protocol over one upstream connection:
// configure the session when it is created, submit the recording when the
// configuration is acknowledged, surface the transcript when it completes.
// Strictly sequential; events that do not belong to the current state are
// logged and ignored without a transition.
type Machine struct {
	conn    Conn
	pcm     []byte
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	state      State
	transcript string
}

// NewMachine creates a machine over an established transcription-intent
// connection. pcm is the raw recording to transcribe.
func NewMachine(conn Conn, pcm []byte, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Machine {
	return &Machine{
		conn:    conn,
		pcm:     pcm,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		state:   StateAwaitingCreated,
	}
}

// State returns the machine's current state.
func (m *Machine) State() State {
	return m.state
}

// Run drives the protocol walk until the transcript arrives and returns it.
// A connection-level read error or a failed send is terminal; malformed
// events are skipped.
func (m *Machine) Run(ctx context.Context) (string, error) {
	for m.state != StateDone {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		event, err := m.conn.ReadEvent()
		if err != nil {
			if errors.Is(err, realtime.ErrMalformedEvent) {
				m.logger.Warn("Skipping malformed speech-service event",
					slog.String("error", err.Error()),
				)
				continue
			}
			return "", fmt.Errorf("transcription session ended in state %s: %w", m.state, err)
		}

		if err := m.handle(event); err != nil {
			return "", err
		}
	}

	return m.transcript, nil
}

// handle applies one server event to the current state.
func (m *Machine) handle(event *realtime.ServerEvent) error {
	switch m.state {
	case StateAwaitingCreated:
		if event.Type != realtime.EventTypeTranscriptionSessionCreated {
			m.logUnexpected(event)
			return nil
		}

		if err := m.conn.ConfigureTranscriptionSession(m.cfg.Session); err != nil {
			return fmt.Errorf("failed to configure transcription session: %w", err)
		}
		m.state = StateAwaitingUpdated
		m.logger.Info("Transcription session configured")

	case StateAwaitingUpdated:
		if event.Type != realtime.EventTypeTranscriptionSessionUpdated {
			m.logUnexpected(event)
			return nil
		}

		if err := m.submit(); err != nil {
			return err
		}
		m.state = StateAwaitingCompletion

	case StateAwaitingCompletion:
		if event.Type != realtime.EventTypeTranscriptionCompleted {
			m.logUnexpected(event)
			return nil
		}

		m.transcript = event.Transcript
		m.state = StateDone
		m.metrics.RecordTranscriptionCompleted()
		m.logger.Info("Transcription completed",
			slog.String("item_id", event.ItemID),
			slog.Int("transcript_length", len(event.Transcript)),
		)
	}

	return nil
}

// submit sends the recording according to the configured mode.
func (m *Machine) submit() error {
	switch m.cfg.Mode {
	case ModeWindowed:
		windows, err := audio.Window(m.pcm, m.cfg.Window)
		if err != nil {
			return fmt.Errorf("failed to window recording: %w", err)
		}

		m.logger.Info("Submitting windowed recording",
			slog.Int("windows", len(windows)),
			slog.Duration("pacing", m.cfg.Pacing),
		)
		for i, window := range windows {
			if err := m.conn.AppendAudio(window); err != nil {
				return fmt.Errorf("failed to append window %d of %d: %w", i+1, len(windows), err)
			}
			m.metrics.RecordTranscriptionChunkSent()
			if m.cfg.Pacing > 0 && i < len(windows)-1 {
				time.Sleep(m.cfg.Pacing)
			}
		}

	default:
		m.logger.Info("Submitting whole recording",
			slog.Int("bytes", len(m.pcm)),
		)
		if err := m.conn.CreateAudioItem(base64.StdEncoding.EncodeToString(m.pcm)); err != nil {
			return fmt.Errorf("failed to submit recording: %w", err)
		}
		m.metrics.RecordTranscriptionChunkSent()
	}

	return nil
}

func (m *Machine) logUnexpected(event *realtime.ServerEvent) {
	m.logger.Warn("Unexpected event for current state",
		slog.String("state", m.state.String()),
		slog.String("type", event.Type),
	)
}
