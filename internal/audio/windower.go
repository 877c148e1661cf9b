package audio

import (
	"encoding/base64"
	"fmt"
	"time"
)

// WindowConfig describes how a PCM byte buffer is split into
// fixed-size overlapping windows.
type WindowConfig struct {
	ChunkDuration   time.Duration
	OverlapDuration time.Duration
	SampleRate      int
	BytesPerSample  int
}

// ChunkSize returns the window size in bytes.
func (c WindowConfig) ChunkSize() int {
	return int(float64(c.SampleRate) * c.ChunkDuration.Seconds() * float64(c.BytesPerSample))
}

// OverlapSize returns the overlap between consecutive windows in bytes.
func (c WindowConfig) OverlapSize() int {
	return int(float64(c.SampleRate) * c.OverlapDuration.Seconds() * float64(c.BytesPerSample))
}

// Validate checks that the configuration yields a usable window geometry.
func (c WindowConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}

	if c.BytesPerSample <= 0 {
		return fmt.Errorf("bytes per sample must be positive, got %d", c.BytesPerSample)
	}

	chunkSize := c.ChunkSize()
	if chunkSize <= 0 {
		return fmt.Errorf("chunk duration %v yields non-positive window size", c.ChunkDuration)
	}

	if overlap := c.OverlapSize(); overlap < 0 || overlap >= chunkSize {
		return fmt.Errorf("overlap size %d must be in [0, %d)", overlap, chunkSize)
	}

	return nil
}

// Window splits buf into fixed-size windows of ChunkSize bytes, each
// overlapping the previous one by OverlapSize bytes, and returns them
// base64-encoded in buffer order. A trailing remainder shorter than one
// full window is dropped. An empty or too-short buffer yields no windows.
//
// The function is pure: the same input always produces the same sequence.
func Window(buf []byte, cfg WindowConfig) ([]string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid window config: %w", err)
	}

	chunkSize := cfg.ChunkSize()
	step := chunkSize - cfg.OverlapSize()

	var windows []string
	for offset := 0; offset+chunkSize <= len(buf); offset += step {
		windows = append(windows, base64.StdEncoding.EncodeToString(buf[offset:offset+chunkSize]))
	}

	return windows, nil
}

// WindowCount returns the number of windows Window produces for a buffer
// of the given length, or 0 for a configuration Window would reject.
func WindowCount(bufLen int, cfg WindowConfig) int {
	if cfg.Validate() != nil {
		return 0
	}

	chunkSize := cfg.ChunkSize()
	if bufLen < chunkSize {
		return 0
	}
	return (bufLen-chunkSize)/(chunkSize-cfg.OverlapSize()) + 1
}
