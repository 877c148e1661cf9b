// Package transcription implements the batch transcription protocol walk:
// a strictly sequential state machine over one speech-service connection
// that configures the session, submits a prerecorded buffer whole or as
// overlapping windows, and surfaces the resulting transcript.
package transcription
