package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BuddhimaZ/twilio-agent/internal/audio"
	"github.com/BuddhimaZ/twilio-agent/internal/config"
	"github.com/BuddhimaZ/twilio-agent/internal/metrics"
	"github.com/BuddhimaZ/twilio-agent/internal/realtime"
	"github.com/BuddhimaZ/twilio-agent/internal/transcription"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	filePath := flag.String("file", "sample.wav", "Path to the WAV recording to transcribe")
	mode := flag.String("mode", "whole", "Submission mode: whole or windowed")
	flag.Parse()

	if err := run(*configPath, *filePath, *mode); err != nil {
		fmt.Fprintf(os.Stderr, "Transcription failed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, filePath, mode string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var submissionMode transcription.Mode
	switch mode {
	case "whole":
		submissionMode = transcription.ModeWhole
	case "windowed":
		submissionMode = transcription.ModeWindowed
	default:
		return fmt.Errorf("invalid mode %q: must be whole or windowed", mode)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Logging.Level),
	}))

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read recording %s: %w", filePath, err)
	}

	pcm, info, err := audio.DecodeWAV(data)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", filePath, err)
	}
	logger.Info("Recording loaded",
		slog.String("file", filePath),
		slog.Int("pcm_bytes", len(pcm)),
		slog.Int("sample_rate", info.SampleRate),
		slog.Int("bytes_per_sample", info.BytesPerSample),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := realtime.Dial(ctx, realtime.DialConfig{
		URL:              cfg.Realtime.URL,
		APIKey:           cfg.Realtime.APIKey,
		Intent:           "transcription",
		HandshakeTimeout: cfg.Realtime.GetHandshakeTimeout(),
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	machine := transcription.NewMachine(conn, pcm, transcription.Config{
		Session: transcriptionSession(cfg),
		Mode:    submissionMode,
		Window: audio.WindowConfig{
			ChunkDuration:   cfg.Audio.GetChunkDuration(),
			OverlapDuration: cfg.Audio.GetOverlapDuration(),
			SampleRate:      info.SampleRate,
			BytesPerSample:  info.BytesPerSample,
		},
		Pacing: cfg.Audio.GetChunkPacing(),
	}, logger, metrics.NewMetrics())

	transcript, err := machine.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println(transcript)
	return nil
}

// transcriptionSession assembles the transcription session configuration
// from the pass-through configuration values.
func transcriptionSession(cfg *config.Config) realtime.TranscriptionSessionConfig {
	session := realtime.TranscriptionSessionConfig{
		InputAudioFormat: cfg.Realtime.InputAudioFormat,
		InputAudioTranscription: &realtime.InputAudioTranscription{
			Model:    cfg.Transcription.Model,
			Language: cfg.Transcription.Language,
			Prompt:   cfg.Transcription.Prompt,
		},
		TurnDetection: &realtime.TurnDetection{
			Type:              cfg.TurnDetection.Type,
			Threshold:         cfg.TurnDetection.Threshold,
			PrefixPaddingMs:   cfg.TurnDetection.PrefixPaddingMs,
			SilenceDurationMs: cfg.TurnDetection.SilenceDurationMs,
		},
		Include: []string{"item.input_audio_transcription.logprobs"},
	}

	if cfg.Transcription.NoiseReduction != "" {
		session.InputAudioNoiseReduction = &realtime.NoiseReduction{
			Type: cfg.Transcription.NoiseReduction,
		}
	}

	return session
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
