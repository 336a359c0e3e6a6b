// Package service defines the interfaces shared between the ledger, its
// persistence backends and the extraction pipeline.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/the-budget-must-balance/internal/model"
)

// SnapshotStore persists the whole ledger as a single blob.
// Load on an empty store returns an empty snapshot and no error.
type SnapshotStore interface {
	Load(ctx context.Context) (model.Snapshot, error)
	Save(ctx context.Context, snapshot model.Snapshot) error
	Close() error
}

// Committer accepts extraction results into the ledger.
type Committer interface {
	CommitExtraction(result model.ExtractionResult) CommitReport
}

// CommitReport describes what a batch commit actually stored.
type CommitReport struct {
	Incomes  []model.Income
	Expenses []model.Expense
	Dropped  int
}

// Ledger is the commit interface exposed to the UI layer.
type Ledger interface {
	Committer

	AddIncome(draft model.DraftIncome) (model.Income, error)
	AddExpense(draft model.DraftExpense) (model.Expense, error)
	AddVoiceIncomes(drafts []model.DraftIncome) []model.Income
	AddVoiceExpenses(drafts []model.DraftExpense) []model.Expense
	UpdateIncome(id string, patch model.IncomePatch) (bool, error)
	UpdateExpense(id string, patch model.ExpensePatch) (bool, error)
	DeleteIncome(id string) bool
	DeleteExpense(id string) bool

	Incomes() []model.Income
	Expenses() []model.Expense
	Summary() model.Summary
}

// RetryOptions configures retry behavior for remote calls.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// OnRetry, when set, is called before each sleep with the failed
	// attempt number and the delay about to be waited.
	OnRetry func(attempt int, delay time.Duration, err error)
}
