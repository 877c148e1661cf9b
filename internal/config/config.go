package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Realtime      RealtimeConfig      `yaml:"realtime"`
	TurnDetection TurnDetectionConfig `yaml:"turn_detection"`
	Audio         AudioConfig         `yaml:"audio"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig contains HTTP/websocket server configuration
type ServerConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	// PublicHost is the externally reachable hostname advertised in the
	// connect directive returned to the telephony provider.
	PublicHost string `yaml:"public_host"`
}

// RealtimeConfig contains the upstream speech-service connection settings
type RealtimeConfig struct {
	URL               string  `yaml:"url"`
	Model             string  `yaml:"model"`
	APIKey            string  `yaml:"api_key"`
	Voice             string  `yaml:"voice"`
	Instructions      string  `yaml:"instructions"`
	Temperature       float64 `yaml:"temperature"`
	InputAudioFormat  string  `yaml:"input_audio_format"`
	OutputAudioFormat string  `yaml:"output_audio_format"`
	SettleDelayMs     int     `yaml:"settle_delay_ms"`
	HandshakeTimeout  int     `yaml:"handshake_timeout"` // seconds
}

// TurnDetectionConfig contains server-side voice activity detection
// parameters, forwarded verbatim to the speech service
type TurnDetectionConfig struct {
	Type              string  `yaml:"type"`
	Threshold         float64 `yaml:"threshold"`
	PrefixPaddingMs   int     `yaml:"prefix_padding_ms"`
	SilenceDurationMs int     `yaml:"silence_duration_ms"`
}

// AudioConfig contains windowing parameters for the batch transcription path
type AudioConfig struct {
	SampleRate      int     `yaml:"sample_rate"`
	BytesPerSample  int     `yaml:"bytes_per_sample"`
	ChunkDuration   float64 `yaml:"chunk_duration"`   // seconds
	OverlapDuration float64 `yaml:"overlap_duration"` // seconds
	ChunkPacingMs   int     `yaml:"chunk_pacing_ms"`
}

// TranscriptionConfig contains batch transcription session settings
type TranscriptionConfig struct {
	Model          string `yaml:"model"`
	Language       string `yaml:"language"`
	Prompt         string `yaml:"prompt"`
	NoiseReduction string `yaml:"noise_reduction"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file. The OPENAI_API_KEY
// environment variable overrides realtime.api_key when set.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.Realtime.APIKey = key
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Realtime.Validate(); err != nil {
		return fmt.Errorf("realtime config: %w", err)
	}

	if err := c.TurnDetection.Validate(); err != nil {
		return fmt.Errorf("turn_detection config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if s.PublicHost == "" {
		return fmt.Errorf("public_host cannot be empty")
	}

	return nil
}

// Validate validates the upstream connection configuration
func (r *RealtimeConfig) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("url cannot be empty")
	}

	if r.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty (set realtime.api_key or OPENAI_API_KEY)")
	}

	if r.Voice == "" {
		return fmt.Errorf("voice cannot be empty")
	}

	if r.Temperature < 0 || r.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", r.Temperature)
	}

	if r.InputAudioFormat == "" {
		return fmt.Errorf("input_audio_format cannot be empty")
	}

	if r.OutputAudioFormat == "" {
		return fmt.Errorf("output_audio_format cannot be empty")
	}

	if r.SettleDelayMs < 0 {
		return fmt.Errorf("settle_delay_ms cannot be negative, got %d", r.SettleDelayMs)
	}

	if r.HandshakeTimeout < 1 {
		return fmt.Errorf("handshake_timeout must be at least 1 second, got %d", r.HandshakeTimeout)
	}

	return nil
}

// Validate validates turn detection configuration
func (t *TurnDetectionConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("type cannot be empty")
	}

	if t.Threshold < 0 || t.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %f", t.Threshold)
	}

	if t.PrefixPaddingMs < 0 {
		return fmt.Errorf("prefix_padding_ms cannot be negative, got %d", t.PrefixPaddingMs)
	}

	if t.SilenceDurationMs < 0 {
		return fmt.Errorf("silence_duration_ms cannot be negative, got %d", t.SilenceDurationMs)
	}

	return nil
}

// Validate validates audio windowing configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", a.SampleRate)
	}

	if a.BytesPerSample != 1 && a.BytesPerSample != 2 {
		return fmt.Errorf("bytes_per_sample must be 1 or 2, got %d", a.BytesPerSample)
	}

	if a.ChunkDuration <= 0 {
		return fmt.Errorf("chunk_duration must be positive, got %f", a.ChunkDuration)
	}

	if a.OverlapDuration < 0 {
		return fmt.Errorf("overlap_duration cannot be negative, got %f", a.OverlapDuration)
	}

	if a.OverlapDuration >= a.ChunkDuration {
		return fmt.Errorf("overlap_duration (%f) must be less than chunk_duration (%f)",
			a.OverlapDuration, a.ChunkDuration)
	}

	if a.ChunkPacingMs < 0 {
		return fmt.Errorf("chunk_pacing_ms cannot be negative, got %d", a.ChunkPacingMs)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetSettleDelay returns the session-configure settle delay as a time.Duration
func (r *RealtimeConfig) GetSettleDelay() time.Duration {
	return time.Duration(r.SettleDelayMs) * time.Millisecond
}

// GetHandshakeTimeout returns the websocket handshake timeout as a time.Duration
func (r *RealtimeConfig) GetHandshakeTimeout() time.Duration {
	return time.Duration(r.HandshakeTimeout) * time.Second
}

// GetChunkDuration returns the window duration as a time.Duration
func (a *AudioConfig) GetChunkDuration() time.Duration {
	return time.Duration(a.ChunkDuration * float64(time.Second))
}

// GetOverlapDuration returns the window overlap as a time.Duration
func (a *AudioConfig) GetOverlapDuration() time.Duration {
	return time.Duration(a.OverlapDuration * float64(time.Second))
}

// GetChunkPacing returns the inter-chunk pacing delay as a time.Duration
func (a *AudioConfig) GetChunkPacing() time.Duration {
	return time.Duration(a.ChunkPacingMs) * time.Millisecond
}
