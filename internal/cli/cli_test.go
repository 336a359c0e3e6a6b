package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-budget-must-balance/internal/common"
	"github.com/Veraticus/the-budget-must-balance/internal/extraction"
	"github.com/Veraticus/the-budget-must-balance/internal/model"
	"github.com/Veraticus/the-budget-must-balance/internal/service"
)

// syncBuffer provides thread-safe access to a bytes.Buffer.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary(model.Summary{
		TotalMonthlyIncome:   decimal.RequireFromString("83.3333333333333333"),
		TotalMonthlyExpenses: decimal.NewFromInt(100),
		MonthlyAvailable:     decimal.RequireFromString("-16.6666666666666667"),
		IncomeCount:          1,
		ExpenseCount:         2,
	})

	assert.Contains(t, out, "$83.33")
	assert.Contains(t, out, "$100.00")
	assert.Contains(t, out, "-$16.67")
	assert.Contains(t, out, "Monthly Budget")
}

func TestRenderTables(t *testing.T) {
	assert.Contains(t, RenderIncomes(nil), "No incomes recorded.")
	assert.Contains(t, RenderExpenses(nil), "No expenses recorded.")

	incomes := RenderIncomes([]model.Income{
		{ID: "abc", Name: "Bonus", Amount: decimal.NewFromInt(1200), Period: model.PeriodYearly, Source: model.ProvenanceVoice},
	})
	assert.Contains(t, incomes, "Bonus")
	assert.Contains(t, incomes, "$1200.00")
	assert.Contains(t, incomes, "$100.00")
	assert.Contains(t, incomes, "voice")

	expenses := RenderExpenses([]model.Expense{
		{ID: "def", Name: "Rent", Amount: decimal.NewFromInt(900), Period: model.PeriodStatic, Category: "housing", Source: model.ProvenanceManual},
	})
	assert.Contains(t, expenses, "Rent")
	assert.Contains(t, expenses, "housing")
	assert.Contains(t, expenses, "static")
}

func TestRenderOutcome(t *testing.T) {
	tests := []struct {
		name string
		out  extraction.Outcome
		want []string
	}{
		{
			name: "committed",
			out: extraction.Outcome{
				Final:      extraction.StateCommitted,
				Transcript: "rent is 900",
				Result:     model.ExtractionResult{Message: "Added rent"},
				Report: service.CommitReport{
					Expenses: []model.Expense{{Name: "Rent", Amount: decimal.NewFromInt(900), Period: model.PeriodStatic, Category: "housing"}},
				},
			},
			want: []string{"Structured extraction succeeded", `Heard: "rent is 900"`, "Added rent", "Rent", "$900.00"},
		},
		{
			name: "fallen back with drops",
			out: extraction.Outcome{
				Final:  extraction.StateFallenBack,
				Reason: common.ErrNoCredential,
				Result: model.ExtractionResult{Message: extraction.OfflineMessage},
				Report: service.CommitReport{Dropped: 2},
			},
			want: []string{"Used offline extraction", "no credential", "unavailable offline", "Skipped 2"},
		},
		{
			name: "fallen back on malformed response",
			out: extraction.Outcome{
				Final:  extraction.StateFallenBack,
				Reason: common.ErrMalformedResponse,
			},
			want: []string{"Could not read the AI response", "malformed remote response"},
		},
		{
			name: "discarded",
			out:  extraction.Outcome{Discarded: true, Final: extraction.StateCommitted},
			want: []string{"nothing was recorded"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rendered := RenderOutcome(tt.out)
			for _, want := range tt.want {
				assert.Contains(t, rendered, want)
			}
		})
	}
}

type fakeSession struct {
	state    atomic.Int32
	canceled atomic.Bool
}

func (f *fakeSession) State() extraction.State { return extraction.State(f.state.Load()) }
func (f *fakeSession) Cancel() bool {
	f.canceled.Store(true)
	return true
}

func TestAwaitOutcome(t *testing.T) {
	t.Run("returns outcome", func(t *testing.T) {
		session := &fakeSession{}
		session.state.Store(int32(extraction.StateTranscribing))
		ch := make(chan extraction.Outcome, 1)

		go func() {
			time.Sleep(120 * time.Millisecond)
			session.state.Store(int32(extraction.StateExtracting))
			time.Sleep(120 * time.Millisecond)
			ch <- extraction.Outcome{Final: extraction.StateCommitted}
		}()

		out, err := AwaitOutcome(context.Background(), io.Discard, session, ch)
		require.NoError(t, err)
		assert.Equal(t, extraction.StateCommitted, out.Final)
		assert.False(t, session.canceled.Load())
	})

	t.Run("context cancel cancels session", func(t *testing.T) {
		session := &fakeSession{}
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		out, err := AwaitOutcome(ctx, io.Discard, session, make(chan extraction.Outcome))
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.True(t, out.Discarded)
		assert.True(t, session.canceled.Load())
	})
}

func TestStageDescription(t *testing.T) {
	assert.Contains(t, StageDescription(extraction.StateTranscribing), "Transcribing")
	assert.Contains(t, StageDescription(extraction.StateExtracting), "Extracting")
	assert.Contains(t, StageDescription(extraction.StateValidating), "Validating")
	assert.Contains(t, StageDescription(extraction.StateIdle), "Working")
}

func TestInterruptHandler(t *testing.T) {
	output := &syncBuffer{}
	handler := NewInterruptHandler(output, "Voice extraction canceled")

	var calls atomic.Int32
	ctx := handler.HandleInterrupts(context.Background(), func() { calls.Add(1) })

	handler.signals <- syscall.SIGINT

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not canceled")
	}

	assert.True(t, handler.WasInterrupted())
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, strings.Count(output.String(), "Voice extraction canceled"))
}

func TestInterruptHandler_ParentCancel(t *testing.T) {
	handler := NewInterruptHandler(io.Discard, "bye")
	parent, cancel := context.WithCancel(context.Background())
	ctx := handler.HandleInterrupts(parent, nil)

	cancel()
	<-ctx.Done()
	assert.False(t, handler.WasInterrupted())
}

func TestNonBlockingReader_ReadLine(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr error
	}{
		{name: "single line", input: "I spent $20\n", want: []string{"I spent $20"}, wantErr: io.EOF},
		{name: "trims whitespace", input: "  salary 5000  \n", want: []string{"salary 5000"}, wantErr: io.EOF},
		{name: "final line without newline", input: "first\nsecond", want: []string{"first", "second"}, wantErr: io.EOF},
		{name: "empty input", input: "", wantErr: io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewNonBlockingReader(strings.NewReader(tt.input))
			var got []string
			for {
				line, err := reader.ReadLine(context.Background())
				if err != nil {
					require.ErrorIs(t, err, tt.wantErr)
					break
				}
				got = append(got, line)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNonBlockingReader_Cancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()

	reader := NewNonBlockingReader(pr)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := reader.ReadLine(ctx)
	assert.True(t, errors.Is(err, ErrInputCancelled))
}
