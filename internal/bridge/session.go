package bridge

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BuddhimaZ/twilio-agent/internal/realtime"
	"github.com/BuddhimaZ/twilio-agent/internal/telephony"
)

// TelephonyConn is the downstream (call-carrying) leg of a session.
type TelephonyConn interface {
	// ReadFrame blocks until the next media-stream frame arrives.
	// Malformed frames are reported as telephony.ErrMalformedFrame.
	ReadFrame() (*telephony.Frame, error)
	// WriteFrame sends one frame to the telephony peer.
	WriteFrame(frame *telephony.Frame) error
	Close() error
}

// SpeechConn is the upstream (speech-service) leg of a session.
// *realtime.Conn satisfies it.
type SpeechConn interface {
	// ReadEvent blocks until the next speech-service event arrives.
	// Malformed events are reported as realtime.ErrMalformedEvent.
	ReadEvent() (*realtime.ServerEvent, error)
	// AppendAudio forwards one base64 audio fragment unchanged.
	AppendAudio(audio string) error
	Close() error
}

// CallSession holds one phone call's worth of paired connections and state.
// The stream SID has a single writer (the telephony pump) and a single
// reader (the speech pump); reads tolerate the transient unset value that
// exists until the start frame arrives.
type CallSession struct {
	ID        string
	StartTime time.Time

	telephony TelephonyConn
	speech    SpeechConn

	mu              sync.RWMutex
	streamSid       string
	framesReceived  uint64
	framesForwarded uint64
	deltasForwarded uint64

	closeOnce sync.Once
}

// NewCallSession pairs the two connections into a session. The session owns
// both connections for its lifetime and closes them on teardown.
func NewCallSession(telephonyConn TelephonyConn, speechConn SpeechConn) *CallSession {
	return &CallSession{
		ID:        uuid.NewString(),
		StartTime: time.Now(),
		telephony: telephonyConn,
		speech:    speechConn,
	}
}

// SetStreamSid records the stream handle announced by the start frame.
func (s *CallSession) SetStreamSid(sid string) {
	s.mu.Lock()
	s.streamSid = sid
	s.mu.Unlock()
}

// StreamSid returns the stream handle, or "" before start has arrived.
func (s *CallSession) StreamSid() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streamSid
}

func (s *CallSession) recordFrameReceived() {
	s.mu.Lock()
	s.framesReceived++
	s.mu.Unlock()
}

func (s *CallSession) recordFrameForwarded() {
	s.mu.Lock()
	s.framesForwarded++
	s.mu.Unlock()
}

func (s *CallSession) recordDeltaForwarded() {
	s.mu.Lock()
	s.deltasForwarded++
	s.mu.Unlock()
}

// Close releases both connections. Safe to call from any exit path; only
// the first call closes.
func (s *CallSession) Close() {
	s.closeOnce.Do(func() {
		s.telephony.Close()
		s.speech.Close()
	})
}

// Info returns a point-in-time snapshot for the monitoring API.
func (s *CallSession) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SessionInfo{
		SessionID:       s.ID,
		StreamSid:       s.streamSid,
		StartTime:       s.StartTime,
		Duration:        time.Since(s.StartTime),
		FramesReceived:  s.framesReceived,
		FramesForwarded: s.framesForwarded,
		DeltasForwarded: s.deltasForwarded,
	}
}

// SessionInfo represents session information for monitoring and APIs
type SessionInfo struct {
	SessionID       string        `json:"session_id"`
	StreamSid       string        `json:"stream_sid"`
	StartTime       time.Time     `json:"start_time"`
	Duration        time.Duration `json:"duration"`
	FramesReceived  uint64        `json:"frames_received"`
	FramesForwarded uint64        `json:"frames_forwarded"`
	DeltasForwarded uint64        `json:"deltas_forwarded"`
}
