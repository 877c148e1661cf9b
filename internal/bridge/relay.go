package bridge

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BuddhimaZ/twilio-agent/internal/metrics"
	"github.com/BuddhimaZ/twilio-agent/internal/realtime"
	"github.com/BuddhimaZ/twilio-agent/internal/telephony"
)

// Relay runs the two forwarding pumps of one call session under a joint
// lifetime: the first pump to terminate, for any reason, tears down both
// connections, which unblocks and ends the other pump.
type Relay struct {
	session *CallSession
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRelay creates a relay over an established session. Both connections
// must be open and the upstream session configuration already sent.
func NewRelay(session *CallSession, logger *slog.Logger, m *metrics.Metrics) *Relay {
	return &Relay{
		session: session,
		logger:  logger.With(slog.String("session_id", session.ID)),
		metrics: m,
	}
}

// Run pumps messages in both directions until either side ends the call or
// ctx is cancelled. Both connections are closed on every exit path. Normal
// call termination (stop frame, peer disconnect, upstream close) returns
// nil; only a mid-call write failure or cancellation returns an error.
func (r *Relay) Run(ctx context.Context) error {
	errc := make(chan error, 2)
	go func() { errc <- r.pumpTelephony() }()
	go func() { errc <- r.pumpSpeech() }()

	pending := 2
	var first error
	select {
	case first = <-errc:
		pending--
	case <-ctx.Done():
		first = ctx.Err()
	}

	// Closing both connections unblocks whichever pump is still waiting
	// on a read.
	r.session.Close()
	for ; pending > 0; pending-- {
		<-errc
	}

	r.logger.Info("Call session ended",
		slog.String("stream_sid", r.session.StreamSid()),
		slog.Uint64("frames_received", r.session.Info().FramesReceived),
	)

	return first
}

// pumpTelephony forwards caller audio to the speech service.
func (r *Relay) pumpTelephony() error {
	for {
		frame, err := r.session.telephony.ReadFrame()
		if err != nil {
			if errors.Is(err, telephony.ErrMalformedFrame) {
				r.metrics.RecordRelayParseError("telephony")
				r.logger.Warn("Skipping malformed telephony frame",
					slog.String("error", err.Error()),
				)
				continue
			}

			// Peer disconnect is the normal end-of-call signal.
			r.logger.Debug("Telephony connection closed",
				slog.String("reason", err.Error()),
			)
			return nil
		}

		r.session.recordFrameReceived()
		r.metrics.RecordFrameReceived()

		switch frame.Type() {
		case telephony.EventConnected:
			r.logger.Info("Telephony peer connected")

		case telephony.EventStart:
			sid := frame.StartStreamSid()
			r.session.SetStreamSid(sid)
			r.logger.Info("Incoming stream started",
				slog.String("stream_sid", sid),
			)

		case telephony.EventMedia:
			if err := r.session.speech.AppendAudio(frame.Payload()); err != nil {
				r.logger.Error("Failed to forward audio to speech service",
					slog.String("error", err.Error()),
				)
				return err
			}
			r.session.recordFrameForwarded()
			r.metrics.RecordAudioFrameForwarded()
			r.logger.Debug("Audio frame forwarded",
				slog.Int("payload_bytes", len(frame.Payload())),
			)

		case telephony.EventStop:
			r.logger.Info("Stream stop received",
				slog.String("stream_sid", r.session.StreamSid()),
			)
			return nil

		default:
			r.logger.Debug("Ignoring telephony frame",
				slog.String("event", frame.Event),
			)
		}
	}
}

// pumpSpeech forwards synthesized audio back to the telephony peer.
func (r *Relay) pumpSpeech() error {
	for {
		event, err := r.session.speech.ReadEvent()
		if err != nil {
			if errors.Is(err, realtime.ErrMalformedEvent) {
				r.metrics.RecordRelayParseError("speech")
				r.logger.Warn("Skipping malformed speech-service event",
					slog.String("error", err.Error()),
				)
				continue
			}

			r.logger.Debug("Speech-service connection closed",
				slog.String("reason", err.Error()),
			)
			return nil
		}

		switch {
		case event.IsAudioDelta():
			sid := r.session.StreamSid()
			if sid == "" {
				// No stream handle yet; the peer cannot route playback.
				r.metrics.RecordDeltaDroppedNoSid()
				r.logger.Debug("Dropping audio delta before stream start")
				continue
			}

			if err := r.session.telephony.WriteFrame(telephony.NewMediaFrame(sid, event.Delta)); err != nil {
				r.logger.Error("Failed to forward audio delta to telephony peer",
					slog.String("error", err.Error()),
				)
				return err
			}
			r.session.recordDeltaForwarded()
			r.metrics.RecordAudioDeltaForwarded()

		case event.Type == realtime.EventTypeError:
			msg := ""
			if event.Error != nil {
				msg = event.Error.Message
			}
			r.logger.Warn("Speech service reported an error",
				slog.String("message", msg),
			)

		case event.IsDiagnostic():
			r.logger.Info("Received speech-service event",
				slog.String("type", event.Type),
				slog.String("event", string(event.Raw)),
			)

		default:
			r.logger.Debug("Ignoring speech-service event",
				slog.String("type", event.Type),
			)
		}
	}
}
