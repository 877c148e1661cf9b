package transcription

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/BuddhimaZ/twilio-agent/internal/audio"
	"github.com/BuddhimaZ/twilio-agent/internal/metrics"
	"github.com/BuddhimaZ/twilio-agent/internal/realtime"
)

type scripted struct {
	event *realtime.ServerEvent
	err   error
}

// scriptedConn replays a fixed event sequence and records every send.
type scriptedConn struct {
	script []scripted
	next   int

	configured []realtime.TranscriptionSessionConfig
	appends    []string
	items      []string
}

func (c *scriptedConn) ReadEvent() (*realtime.ServerEvent, error) {
	if c.next >= len(c.script) {
		return nil, io.EOF
	}
	s := c.script[c.next]
	c.next++
	return s.event, s.err
}

func (c *scriptedConn) ConfigureTranscriptionSession(cfg realtime.TranscriptionSessionConfig) error {
	c.configured = append(c.configured, cfg)
	return nil
}

func (c *scriptedConn) AppendAudio(audio string) error {
	c.appends = append(c.appends, audio)
	return nil
}

func (c *scriptedConn) CreateAudioItem(audio string) error {
	c.items = append(c.items, audio)
	return nil
}

func event(eventType string) scripted {
	return scripted{event: &realtime.ServerEvent{Type: eventType}}
}

func completedEvent(transcript string) scripted {
	return scripted{event: &realtime.ServerEvent{
		Type:       realtime.EventTypeTranscriptionCompleted,
		Transcript: transcript,
	}}
}

func testWindowConfig() audio.WindowConfig {
	// 20-byte windows advancing 12 bytes at a time
	return audio.WindowConfig{
		ChunkDuration:   100 * time.Millisecond,
		OverlapDuration: 40 * time.Millisecond,
		SampleRate:      100,
		BytesPerSample:  2,
	}
}

func newTestMachine(conn Conn, pcm []byte, cfg Config) *Machine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMachine(conn, pcm, cfg, logger, metrics.NewMetricsWith(prometheus.NewRegistry()))
}

func TestMachineWholeSubmission(t *testing.T) {
	pcm := []byte("sixteen pcm bytes")
	conn := &scriptedConn{script: []scripted{
		event(realtime.EventTypeTranscriptionSessionCreated),
		event(realtime.EventTypeTranscriptionSessionUpdated),
		completedEvent("hello world"),
	}}

	m := newTestMachine(conn, pcm, Config{Mode: ModeWhole})
	transcript, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if transcript != "hello world" {
		t.Errorf("transcript = %q, want %q", transcript, "hello world")
	}
	if m.State() != StateDone {
		t.Errorf("state = %v, want %v", m.State(), StateDone)
	}
	if len(conn.configured) != 1 {
		t.Errorf("configure sent %d times, want exactly 1", len(conn.configured))
	}
	if len(conn.appends) != 0 {
		t.Errorf("whole mode sent %d append messages, want 0", len(conn.appends))
	}
	if len(conn.items) != 1 {
		t.Fatalf("whole mode sent %d items, want exactly 1", len(conn.items))
	}
	if want := base64.StdEncoding.EncodeToString(pcm); conn.items[0] != want {
		t.Errorf("item audio = %q, want %q", conn.items[0], want)
	}
}

func TestMachineWindowedSubmission(t *testing.T) {
	pcm := make([]byte, 32)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	cfg := Config{Mode: ModeWindowed, Window: testWindowConfig()}

	conn := &scriptedConn{script: []scripted{
		event(realtime.EventTypeTranscriptionSessionCreated),
		event(realtime.EventTypeTranscriptionSessionUpdated),
		completedEvent("windowed"),
	}}

	m := newTestMachine(conn, pcm, cfg)
	transcript, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if transcript != "windowed" {
		t.Errorf("transcript = %q, want %q", transcript, "windowed")
	}

	want, err := audio.Window(pcm, cfg.Window)
	if err != nil {
		t.Fatalf("Window() error = %v", err)
	}
	if len(conn.appends) != len(want) {
		t.Fatalf("sent %d windows, want %d", len(conn.appends), len(want))
	}
	for i := range want {
		if conn.appends[i] != want[i] {
			t.Errorf("window %d = %q, want %q", i, conn.appends[i], want[i])
		}
	}
	if len(conn.items) != 0 {
		t.Errorf("windowed mode sent %d items, want 0", len(conn.items))
	}
}

func TestMachineIgnoresOutOfOrderEvents(t *testing.T) {
	conn := &scriptedConn{script: []scripted{
		// updated before created must not trigger a submission
		event(realtime.EventTypeTranscriptionSessionUpdated),
		event(realtime.EventTypeRateLimitsUpdated),
		event(realtime.EventTypeTranscriptionSessionCreated),
		// duplicate created must not reconfigure
		event(realtime.EventTypeTranscriptionSessionCreated),
		event(realtime.EventTypeTranscriptionSessionUpdated),
		// duplicate updated arrives after submission; must not double-submit
		event(realtime.EventTypeTranscriptionSessionUpdated),
		completedEvent("once"),
	}}

	m := newTestMachine(conn, []byte("audio"), Config{Mode: ModeWhole})
	transcript, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if transcript != "once" {
		t.Errorf("transcript = %q, want %q", transcript, "once")
	}
	if len(conn.configured) != 1 {
		t.Errorf("configure sent %d times, want exactly 1", len(conn.configured))
	}
	if len(conn.items) != 1 {
		t.Errorf("submission sent %d times, want exactly 1", len(conn.items))
	}
}

func TestMachineSkipsMalformedEvents(t *testing.T) {
	conn := &scriptedConn{script: []scripted{
		event(realtime.EventTypeTranscriptionSessionCreated),
		{err: fmt.Errorf("%w: junk", realtime.ErrMalformedEvent)},
		event(realtime.EventTypeTranscriptionSessionUpdated),
		completedEvent("resilient"),
	}}

	m := newTestMachine(conn, []byte("audio"), Config{Mode: ModeWhole})
	transcript, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if transcript != "resilient" {
		t.Errorf("transcript = %q, want %q", transcript, "resilient")
	}
}

func TestMachineConnectionLossIsTerminal(t *testing.T) {
	conn := &scriptedConn{script: []scripted{
		event(realtime.EventTypeTranscriptionSessionCreated),
		// script exhausted: next read fails with io.EOF
	}}

	m := newTestMachine(conn, []byte("audio"), Config{Mode: ModeWhole})
	_, err := m.Run(context.Background())
	if !errors.Is(err, io.EOF) {
		t.Fatalf("Run() error = %v, want io.EOF", err)
	}
	if m.State() != StateAwaitingUpdated {
		t.Errorf("state = %v, want %v", m.State(), StateAwaitingUpdated)
	}
}

func TestMachineContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conn := &scriptedConn{script: []scripted{
		event(realtime.EventTypeTranscriptionSessionCreated),
	}}

	m := newTestMachine(conn, []byte("audio"), Config{Mode: ModeWhole})
	_, err := m.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateAwaitingCreated, "awaiting_created"},
		{StateAwaitingUpdated, "awaiting_updated"},
		{StateAwaitingCompletion, "awaiting_completion"},
		{StateDone, "done"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
