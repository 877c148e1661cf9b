package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func encodeTestWAV(t *testing.T, pcm []byte, sampleRate int, channels, bitsPerSample uint16) []byte {
	t.Helper()

	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + uint32(len(pcm)),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   channels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(channels) * uint32(bitsPerSample) / 8,
		BlockAlign:    channels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(len(pcm)),
	}

	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		t.Fatalf("failed to encode test WAV header: %v", err)
	}
	buf.Write(pcm)
	return buf.Bytes()
}

func TestDecodeWAV(t *testing.T) {
	pcm := make([]byte, 320)
	for i := range pcm {
		pcm[i] = byte(i)
	}

	data := encodeTestWAV(t, pcm, 16000, 1, 16)

	decoded, info, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if info.SampleRate != 16000 {
		t.Errorf("expected sample rate 16000, got %d", info.SampleRate)
	}
	if info.Channels != 1 {
		t.Errorf("expected 1 channel, got %d", info.Channels)
	}
	if info.BytesPerSample != 2 {
		t.Errorf("expected 2 bytes per sample, got %d", info.BytesPerSample)
	}
	if !bytes.Equal(decoded, pcm) {
		t.Error("decoded PCM does not match original payload")
	}
}

func TestDecodeWAVErrors(t *testing.T) {
	valid := encodeTestWAV(t, make([]byte, 64), 8000, 1, 16)

	tests := []struct {
		name string
		data []byte
	}{
		{"too short", valid[:20]},
		{"bad riff", append([]byte("JUNK"), valid[4:]...)},
		{"bad wave", func() []byte {
			d := append([]byte{}, valid...)
			copy(d[8:12], "JUNK")
			return d
		}()},
		{"non-pcm format", func() []byte {
			d := append([]byte{}, valid...)
			binary.LittleEndian.PutUint16(d[20:22], 7) // mu-law compressed
			return d
		}()},
		{"unsupported bit depth", func() []byte {
			d := append([]byte{}, valid...)
			binary.LittleEndian.PutUint16(d[34:36], 24)
			return d
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeWAV(tt.data); err == nil {
				t.Error("expected decode error, got nil")
			}
		})
	}
}

// appendChunk appends one RIFF chunk (id, size, body, pad byte when odd).
func appendChunk(data []byte, id string, body []byte) []byte {
	data = append(data, id...)
	data = binary.LittleEndian.AppendUint32(data, uint32(len(body)))
	data = append(data, body...)
	if len(body)%2 == 1 {
		data = append(data, 0)
	}
	return data
}

// encodeChunkedWAV builds a RIFF/WAVE container from explicit chunks.
func encodeChunkedWAV(chunks ...[]byte) []byte {
	var body []byte
	body = append(body, "WAVE"...)
	for _, chunk := range chunks {
		body = append(body, chunk...)
	}

	data := []byte("RIFF")
	data = binary.LittleEndian.AppendUint32(data, uint32(len(body)))
	return append(data, body...)
}

func fmtChunkBody(sampleRate int, channels, bitsPerSample uint16, extra []byte) []byte {
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.LittleEndian, fmtChunk{
		AudioFormat:   1,
		NumChannels:   channels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(channels) * uint32(bitsPerSample) / 8,
		BlockAlign:    channels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
	})
	buf.Write(extra)
	return buf.Bytes()
}

func TestDecodeWAVExtendedFmtChunk(t *testing.T) {
	pcm := []byte{0, 1, 2, 3, 4, 5, 6, 7}

	// 18-byte fmt chunk: the PCM fields plus a zero-length extension,
	// as written by many encoders
	data := encodeChunkedWAV(
		appendChunk(nil, "fmt ", fmtChunkBody(8000, 1, 16, []byte{0, 0})),
		appendChunk(nil, "data", pcm),
	)

	decoded, info, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed on extended fmt chunk: %v", err)
	}
	if !bytes.Equal(decoded, pcm) {
		t.Errorf("decoded PCM = %v, want %v (payload must not shift)", decoded, pcm)
	}
	if info.SampleRate != 8000 {
		t.Errorf("expected sample rate 8000, got %d", info.SampleRate)
	}
}

func TestDecodeWAVSkipsMetadataChunks(t *testing.T) {
	pcm := []byte{10, 20, 30, 40}

	data := encodeChunkedWAV(
		appendChunk(nil, "fmt ", fmtChunkBody(16000, 1, 16, nil)),
		appendChunk(nil, "LIST", []byte("INFOIART.....")), // odd size, padded
		appendChunk(nil, "fact", []byte{4, 0, 0, 0}),
		appendChunk(nil, "data", pcm),
	)

	decoded, info, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed with metadata chunks present: %v", err)
	}
	if !bytes.Equal(decoded, pcm) {
		t.Errorf("decoded PCM = %v, want %v", decoded, pcm)
	}
	if info.SampleRate != 16000 {
		t.Errorf("expected sample rate 16000, got %d", info.SampleRate)
	}
}

func TestDecodeWAVMissingChunks(t *testing.T) {
	padding := make([]byte, 40)

	tests := []struct {
		name string
		data []byte
	}{
		{"no data chunk", encodeChunkedWAV(
			appendChunk(nil, "fmt ", fmtChunkBody(8000, 1, 16, nil)),
			appendChunk(nil, "LIST", padding),
		)},
		{"no fmt chunk", encodeChunkedWAV(
			appendChunk(nil, "LIST", padding),
			appendChunk(nil, "data", []byte{1, 2, 3, 4}),
		)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeWAV(tt.data); err == nil {
				t.Error("expected decode error, got nil")
			}
		})
	}
}

func TestDecodeWAVTruncatedData(t *testing.T) {
	data := encodeTestWAV(t, make([]byte, 100), 8000, 1, 16)

	// Header claims 100 bytes but the file carries only 50
	truncated := data[:44+50]

	decoded, _, err := DecodeWAV(truncated)
	if err != nil {
		t.Fatalf("DecodeWAV failed on truncated data: %v", err)
	}
	if len(decoded) != 50 {
		t.Errorf("expected 50 bytes of PCM, got %d", len(decoded))
	}
}
