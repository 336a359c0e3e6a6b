package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-budget-must-balance/internal/common"
	"github.com/Veraticus/the-budget-must-balance/internal/ledger"
	"github.com/Veraticus/the-budget-must-balance/internal/model"
	"github.com/Veraticus/the-budget-must-balance/internal/testutil"
)

type mockTranscriber struct {
	err   error
	text  string
	calls int
}

func (m *mockTranscriber) Transcribe(_ context.Context, _ model.Audio) (string, error) {
	m.calls++
	return m.text, m.err
}

type mockCompleter struct {
	err     error
	content string
	prompts []string
	panics  bool
}

func (m *mockCompleter) Complete(_ context.Context, _, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.panics {
		panic("boom")
	}
	return m.content, m.err
}

var testAudio = model.Audio{Data: []byte("fake-audio"), Format: "m4a"}

func newTestLedger(t *testing.T) *ledger.Store {
	t.Helper()
	return testutil.SetupLedger(t, "").Store
}

func TestPipeline_Run(t *testing.T) {
	validPayload := `{"incomes":[{"name":"Salary","amount":5000,"period":"monthly"}],` +
		`"expenses":[{"name":"Rent","amount":1200,"period":"static","category":"housing"},` +
		`{"name":"Freebie","amount":0,"period":"monthly","category":"food"}],"message":"Added 1 income and 2 expenses"}`

	tests := []struct {
		name         string
		transcriber  *mockTranscriber
		completer    *mockCompleter
		wantTrail    []State
		wantReason   error
		wantIncomes  []string
		wantExpenses []string
		wantDropped  int
		wantMessage  string
	}{
		{
			name:         "happy path commits the remote batch",
			transcriber:  &mockTranscriber{text: "I earn 5000 and pay 1200 rent"},
			completer:    &mockCompleter{content: validPayload},
			wantTrail:    []State{StateIdle, StateTranscribing, StateExtracting, StateValidating, StateCommitted, StateIdle},
			wantIncomes:  []string{"Salary"},
			wantExpenses: []string{"Rent"},
			wantDropped:  1,
			wantMessage:  "Added 1 income and 2 expenses",
		},
		{
			name:         "non-numeric amount falls back to heuristic on transcript",
			transcriber:  &mockTranscriber{text: "My salary is $2,000.00 every month"},
			completer:    &mockCompleter{content: `{"incomes":[{"name":"Salary","amount":"two thousand","period":"monthly"}]}`},
			wantTrail:    []State{StateIdle, StateTranscribing, StateExtracting, StateValidating, StateFallenBack, StateIdle},
			wantReason:   common.ErrMalformedResponse,
			wantIncomes:  []string{"Voice Income 1"},
			wantExpenses: []string{},
			wantMessage:  "Processed 1 income(s) and 0 expense(s) from voice input",
		},
		{
			name:         "completion failure falls back",
			transcriber:  &mockTranscriber{text: "I spent $50 on groceries"},
			completer:    &mockCompleter{err: common.ErrRemoteUnavailable},
			wantTrail:    []State{StateIdle, StateTranscribing, StateExtracting, StateFallenBack, StateIdle},
			wantReason:   common.ErrRemoteUnavailable,
			wantIncomes:  []string{},
			wantExpenses: []string{"Voice Expense 1"},
			wantMessage:  "Processed 0 income(s) and 1 expense(s) from voice input",
		},
		{
			name:         "panicking completer falls back",
			transcriber:  &mockTranscriber{text: "I spent $50 on groceries"},
			completer:    &mockCompleter{panics: true},
			wantTrail:    []State{StateIdle, StateTranscribing, StateExtracting, StateFallenBack, StateIdle},
			wantReason:   common.ErrRemoteUnavailable,
			wantIncomes:  []string{},
			wantExpenses: []string{"Voice Expense 1"},
			wantMessage:  "Processed 0 income(s) and 1 expense(s) from voice input",
		},
		{
			name:         "transcription failure with no text is offline",
			transcriber:  &mockTranscriber{err: errors.New("network down")},
			completer:    &mockCompleter{content: validPayload},
			wantTrail:    []State{StateIdle, StateTranscribing, StateFallenBack, StateIdle},
			wantIncomes:  []string{},
			wantExpenses: []string{},
			wantMessage:  OfflineMessage,
		},
		{
			name:         "empty transcript is offline",
			transcriber:  &mockTranscriber{text: "   "},
			completer:    &mockCompleter{content: validPayload},
			wantTrail:    []State{StateIdle, StateTranscribing, StateFallenBack, StateIdle},
			wantReason:   common.ErrEmptyTranscription,
			wantIncomes:  []string{},
			wantExpenses: []string{},
			wantMessage:  OfflineMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestLedger(t)
			var observed []State
			p := NewPipeline(tt.transcriber, tt.completer, store, common.DiscardLogger(),
				WithObserver(func(s State) { observed = append(observed, s) }))

			out := p.Run(context.Background(), testAudio)

			assert.Equal(t, tt.wantTrail, out.Trail)
			assert.Equal(t, tt.wantTrail[1:len(tt.wantTrail)-1], observed)
			if tt.wantReason != nil {
				require.ErrorIs(t, out.Reason, tt.wantReason)
			}
			assert.Equal(t, tt.wantMessage, out.Result.Message)
			assert.Equal(t, tt.wantDropped, out.Report.Dropped)

			incomes := store.Incomes()
			gotIncomes := make([]string, 0, len(incomes))
			for _, inc := range incomes {
				gotIncomes = append(gotIncomes, inc.Name)
				assert.Equal(t, model.ProvenanceVoice, inc.Source)
			}
			expenses := store.Expenses()
			gotExpenses := make([]string, 0, len(expenses))
			for _, exp := range expenses {
				gotExpenses = append(gotExpenses, exp.Name)
				assert.Equal(t, model.ProvenanceVoice, exp.Source)
			}
			assert.Equal(t, tt.wantIncomes, gotIncomes)
			assert.Equal(t, tt.wantExpenses, gotExpenses)
		})
	}
}

func TestPipeline_HeuristicScenario(t *testing.T) {
	store := newTestLedger(t)
	p := NewPipeline(&mockTranscriber{text: "My salary is $2,000.00 every month"}, nil, store, common.DiscardLogger())

	out := p.Run(context.Background(), testAudio)

	assert.True(t, out.FellBack())
	require.ErrorIs(t, out.Reason, common.ErrNoCredential)
	require.Len(t, store.Incomes(), 1)
	assert.True(t, store.Incomes()[0].Amount.Equal(decimal.NewFromInt(2000)))
	assert.True(t, store.TotalMonthlyIncome().Equal(decimal.NewFromInt(2000)))
}

func TestPipeline_NoCredentials(t *testing.T) {
	store := newTestLedger(t)
	p := NewPipeline(nil, nil, store, common.DiscardLogger())

	out := p.Run(context.Background(), testAudio)

	assert.Equal(t, StateFallenBack, out.Final)
	require.ErrorIs(t, out.Reason, common.ErrNoCredential)
	assert.True(t, IsOffline(out.Reason))
	assert.Equal(t, OfflineMessage, out.Result.Message)
	assert.Empty(t, store.Incomes())
	assert.Empty(t, store.Expenses())
}

func TestPipeline_RunText(t *testing.T) {
	t.Run("starts at extracting", func(t *testing.T) {
		store := newTestLedger(t)
		completer := &mockCompleter{content: `{"expenses":[{"name":"Coffee","amount":4.5,"period":"monthly","category":"food"}]}`}
		p := NewPipeline(nil, completer, store, common.DiscardLogger())

		out := p.RunText(context.Background(), "  coffee is 4.50 a month ")

		assert.Equal(t, []State{StateIdle, StateExtracting, StateValidating, StateCommitted, StateIdle}, out.Trail)
		assert.Equal(t, "coffee is 4.50 a month", out.Transcript)
		require.Len(t, completer.prompts, 1)
		assert.Contains(t, completer.prompts[0], "coffee is 4.50 a month")
		require.Len(t, store.Expenses(), 1)
		assert.Equal(t, model.CategoryFood, store.Expenses()[0].Category)
	})

	t.Run("typed text without credentials uses heuristics", func(t *testing.T) {
		store := newTestLedger(t)
		p := NewPipeline(nil, nil, store, common.DiscardLogger())

		out := p.RunText(context.Background(), "I spent $50 on dinner")

		assert.Equal(t, []State{StateIdle, StateExtracting, StateFallenBack, StateIdle}, out.Trail)
		require.Len(t, store.Expenses(), 1)
		assert.Equal(t, model.CategoryOther, store.Expenses()[0].Category)
		assert.True(t, store.Expenses()[0].Amount.Equal(decimal.NewFromInt(50)))
	})

	t.Run("blank text", func(t *testing.T) {
		store := newTestLedger(t)
		p := NewPipeline(nil, &mockCompleter{}, store, common.DiscardLogger())

		out := p.RunText(context.Background(), "")

		assert.Equal(t, []State{StateIdle, StateFallenBack, StateIdle}, out.Trail)
		assert.Equal(t, OfflineMessage, out.Result.Message)
	})
}

func TestPipeline_ProcessDoesNotCommit(t *testing.T) {
	store := newTestLedger(t)
	p := NewPipeline(&mockTranscriber{text: "I spent $50"}, nil, store, common.DiscardLogger())

	out := p.Process(context.Background(), testAudio)
	assert.Equal(t, StateFallenBack, out.Final)
	assert.Empty(t, store.Expenses())

	out.Discarded = true
	out = p.Commit(out)
	assert.Empty(t, store.Expenses())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "fallen_back", StateFallenBack.String())
	assert.Equal(t, "state(42)", State(42).String())
	assert.True(t, StateExtracting.InFlight())
	assert.False(t, StateCommitted.InFlight())
}
