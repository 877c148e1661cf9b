// Package audio handles audio buffer windowing and WAV decoding.
// It implements the fixed-size overlapping-window splitter used by the
// batch transcription path and a minimal PCM WAV reader for loading
// prerecorded input.
package audio
