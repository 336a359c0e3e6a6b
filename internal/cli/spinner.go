package cli

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/the-budget-must-balance/internal/extraction"
)

// Spinner is an indeterminate progress indicator.
type Spinner struct {
	bar  *progressbar.ProgressBar
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewSpinner creates a spinner writing to w.
func NewSpinner(w io.Writer, description string) *Spinner {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetDescription(description),
		progressbar.OptionClearOnFinish(),
	)
	return &Spinner{
		bar:  bar,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start animates the spinner until Stop is called.
func (s *Spinner) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				if err := s.bar.Add(1); err != nil {
					slog.Debug("Failed to update spinner", "error", err)
				}
			}
		}
	}()
}

// Describe changes the text next to the spinner.
func (s *Spinner) Describe(description string) {
	s.bar.Describe(description)
}

// Stop halts and clears the spinner. Safe to call more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
		_ = s.bar.Finish()
	})
}

// StateSource is the part of an extraction session the spinner watches.
type StateSource interface {
	State() extraction.State
	Cancel() bool
}

// StageDescription is the spinner text for a state.
func StageDescription(state extraction.State) string {
	switch state {
	case extraction.StateTranscribing:
		return "[cyan]Transcribing audio...[reset]"
	case extraction.StateExtracting:
		return "[cyan]Extracting amounts...[reset]"
	case extraction.StateValidating:
		return "[cyan]Validating response...[reset]"
	default:
		return "[cyan]Working...[reset]"
	}
}

// AwaitOutcome waits for an extraction while showing a spinner that
// follows the session state. If ctx ends first the session is canceled,
// so the late result is discarded, and ctx's error is returned.
func AwaitOutcome(ctx context.Context, w io.Writer, session StateSource, ch <-chan extraction.Outcome) (extraction.Outcome, error) {
	spinner := NewSpinner(w, StageDescription(session.State()))
	spinner.Start()
	defer spinner.Stop()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	last := session.State()
	for {
		select {
		case out := <-ch:
			return out, nil
		case <-ctx.Done():
			session.Cancel()
			return extraction.Outcome{Discarded: true}, ctx.Err()
		case <-ticker.C:
			if st := session.State(); st != last {
				last = st
				spinner.Describe(StageDescription(st))
			}
		}
	}
}
