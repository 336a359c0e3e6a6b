// Package recording captures a single utterance for the extraction
// pipeline. Microphone access lives outside this module; FileRecorder
// stands in for it by reading a pre-recorded file.
package recording

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Veraticus/the-budget-must-balance/internal/model"
)

var (
	// ErrAlreadyRecording is returned by Start while a capture is active.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrNotRecording is returned by Stop when no capture is active.
	ErrNotRecording = errors.New("not recording")
)

// Recorder is the capture boundary. Start begins a capture, Stop ends it
// and returns the audio, Cancel abandons it.
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (model.Audio, error)
	Cancel()
	IsRecording() bool
}

// FileRecorder "records" by reading the file at path when stopped.
type FileRecorder struct {
	path      string
	recording bool
	mu        sync.Mutex
}

var _ Recorder = (*FileRecorder)(nil)

// NewFileRecorder creates a recorder backed by the audio file at path.
func NewFileRecorder(path string) *FileRecorder {
	return &FileRecorder{path: path}
}

// Start begins a capture.
func (r *FileRecorder) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return ErrAlreadyRecording
	}
	if _, err := os.Stat(r.path); err != nil {
		return fmt.Errorf("audio source unavailable: %w", err)
	}
	r.recording = true
	return nil
}

// Stop ends the capture and returns the file contents as audio. The
// duration is unknown for file captures and left zero.
func (r *FileRecorder) Stop(ctx context.Context) (model.Audio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return model.Audio{}, ErrNotRecording
	}
	r.recording = false

	if err := ctx.Err(); err != nil {
		return model.Audio{}, err
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return model.Audio{}, fmt.Errorf("failed to read audio: %w", err)
	}

	return model.Audio{
		Data:   data,
		Format: FormatFromPath(r.path),
		Name:   filepath.Base(r.path),
	}, nil
}

// Cancel abandons the capture without producing audio.
func (r *FileRecorder) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = false
}

// IsRecording reports whether a capture is active.
func (r *FileRecorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// FormatFromPath returns the lower-cased extension without the dot,
// defaulting to "m4a".
func FormatFromPath(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return "m4a"
	}
	return ext
}

// Capture runs a full Start/Stop cycle.
func Capture(ctx context.Context, r Recorder) (model.Audio, error) {
	if err := r.Start(ctx); err != nil {
		return model.Audio{}, err
	}
	audio, err := r.Stop(ctx)
	if err != nil {
		return model.Audio{}, err
	}
	return audio, nil
}
