package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// wavHeader represents the canonical 44-byte PCM WAV header
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// fmtChunk is the fixed 16-byte body of the "fmt " chunk. Extended fmt
// chunks carry extra bytes after these fields.
type fmtChunk struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// WAVInfo describes the PCM payload extracted from a WAV file.
type WAVInfo struct {
	SampleRate     int
	Channels       int
	BytesPerSample int
}

// DecodeWAV extracts the raw little-endian PCM payload from WAV data.
// Only uncompressed PCM files are supported. The chunk list is walked, so
// extended fmt chunks and metadata chunks (LIST, fact) between fmt and
// data are handled; a file without both a fmt and a data chunk is an error.
func DecodeWAV(data []byte) ([]byte, WAVInfo, error) {
	if len(data) < 44 {
		return nil, WAVInfo{}, fmt.Errorf("WAV data too short: need at least 44 bytes, got %d", len(data))
	}

	if string(data[0:4]) != "RIFF" {
		return nil, WAVInfo{}, fmt.Errorf("invalid WAV file: missing RIFF header")
	}

	if string(data[8:12]) != "WAVE" {
		return nil, WAVInfo{}, fmt.Errorf("invalid WAV file: missing WAVE format")
	}

	var info WAVInfo
	haveFmt := false

	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return nil, WAVInfo{}, fmt.Errorf("invalid WAV file: fmt chunk too short (%d bytes)", size)
			}

			var format fmtChunk
			if err := binary.Read(bytes.NewReader(data[body:body+16]), binary.LittleEndian, &format); err != nil {
				return nil, WAVInfo{}, fmt.Errorf("failed to read fmt chunk: %w", err)
			}

			if format.AudioFormat != 1 {
				return nil, WAVInfo{}, fmt.Errorf("unsupported audio format %d: only PCM is supported", format.AudioFormat)
			}

			if format.BitsPerSample != 8 && format.BitsPerSample != 16 {
				return nil, WAVInfo{}, fmt.Errorf("unsupported bit depth %d: expected 8 or 16", format.BitsPerSample)
			}

			info = WAVInfo{
				SampleRate:     int(format.SampleRate),
				Channels:       int(format.NumChannels),
				BytesPerSample: int(format.BitsPerSample) / 8,
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, WAVInfo{}, fmt.Errorf("invalid WAV file: data chunk before fmt chunk")
			}

			end := body + size
			if end > len(data) {
				// Header claims more than the file carries.
				end = len(data)
			}
			return data[body:end], info, nil
		}

		// Chunks are word aligned; odd sizes carry one pad byte.
		offset = body + size + size%2
	}

	if !haveFmt {
		return nil, WAVInfo{}, fmt.Errorf("invalid WAV file: missing fmt chunk")
	}
	return nil, WAVInfo{}, fmt.Errorf("invalid WAV file: missing data chunk")
}
