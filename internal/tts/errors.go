package tts

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPermission is returned when the extracted binary cannot be made
// executable.
var ErrPermission = errors.New("failed to set executable permission")

// InstallationError wraps any failure of a fresh binary download.
type InstallationError struct {
	Err error
}

func (e *InstallationError) Error() string {
	return fmt.Sprintf("piper installation failed: %v", e.Err)
}

func (e *InstallationError) Unwrap() error {
	return e.Err
}

// SynthesisError reports a failed piper run.
type SynthesisError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *SynthesisError) Error() string {
	msg := fmt.Sprintf("piper synthesis failed (exit code %d)", e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// PlaybackError reports a failed audio player run.
type PlaybackError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *PlaybackError) Error() string {
	msg := fmt.Sprintf("audio playback failed (exit code %d)", e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}
