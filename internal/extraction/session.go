package extraction

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Veraticus/the-budget-must-balance/internal/model"
)

// ErrBusy is returned when an extraction is already in flight.
var ErrBusy = errors.New("an extraction is already in progress")

// Session allows one extraction in flight at a time. Cancel is
// cooperative: the network call keeps running, but its result is
// discarded when it arrives and never committed.
type Session struct {
	pipeline   *Pipeline
	logger     *slog.Logger
	generation uint64
	state      State
	active     bool
	mu         sync.Mutex
}

// NewSession creates a session around pipeline.
func NewSession(pipeline *Pipeline, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		pipeline: pipeline,
		logger:   logger,
		state:    StateIdle,
	}
}

// Start processes audio in the background. The returned channel yields
// exactly one Outcome and is then closed.
func (s *Session) Start(ctx context.Context, audio model.Audio) (<-chan Outcome, error) {
	return s.start(func(observe func(State)) Outcome {
		return s.pipeline.processAudio(ctx, audio, observe)
	})
}

// StartText processes typed or pre-transcribed text in the background.
func (s *Session) StartText(ctx context.Context, transcript string) (<-chan Outcome, error) {
	return s.start(func(observe func(State)) Outcome {
		return s.pipeline.processText(ctx, transcript, observe)
	})
}

func (s *Session) start(process func(observe func(State)) Outcome) (<-chan Outcome, error) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.generation++
	gen := s.generation
	s.active = true
	s.state = StateIdle
	s.mu.Unlock()

	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)

		out := process(func(st State) {
			s.mu.Lock()
			if s.generation == gen {
				s.state = st
			}
			s.mu.Unlock()
			if s.pipeline.observe != nil {
				s.pipeline.observe(st)
			}
		})

		ch <- s.finish(gen, out)
	}()

	return ch, nil
}

// finish commits out unless the session was canceled after it started.
// The lock is held across the commit so a concurrent Cancel either wins
// entirely or not at all.
func (s *Session) finish(gen uint64, out Outcome) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		out.Discarded = true
		s.logger.Info("discarding canceled extraction",
			"path", out.Final.String(),
			"incomes", len(out.Result.Incomes),
			"expenses", len(out.Result.Expenses))
		return out
	}

	out = s.pipeline.Commit(out)
	s.active = false
	s.state = StateIdle
	return out
}

// Cancel abandons the in-flight extraction, if any, and reports whether
// there was one. A new extraction may start immediately afterwards.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return false
	}
	s.generation++
	s.active = false
	s.state = StateIdle
	return true
}

// State returns the current state of the in-flight extraction.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Busy reports whether an extraction is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
