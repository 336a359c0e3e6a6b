package testutil

import (
	"context"
	"sync/atomic"

	"github.com/Veraticus/the-budget-must-balance/internal/model"
)

// StubTranscriber returns a fixed transcript or error.
type StubTranscriber struct {
	Err   error
	Text  string
	calls atomic.Int32
}

// Transcribe implements llm.Transcriber.
func (s *StubTranscriber) Transcribe(_ context.Context, _ model.Audio) (string, error) {
	s.calls.Add(1)
	if s.Err != nil {
		return "", s.Err
	}
	return s.Text, nil
}

// Calls returns how many times Transcribe ran.
func (s *StubTranscriber) Calls() int { return int(s.calls.Load()) }

// StubCompleter returns a fixed completion or error.
type StubCompleter struct {
	Err     error
	Content string
	calls   atomic.Int32
}

// Complete implements llm.Completer.
func (s *StubCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	s.calls.Add(1)
	if s.Err != nil {
		return "", s.Err
	}
	return s.Content, nil
}

// Calls returns how many times Complete ran.
func (s *StubCompleter) Calls() int { return int(s.calls.Load()) }
