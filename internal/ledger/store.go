// Package ledger owns the in-memory income and expense records and the
// monthly aggregates derived from them.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-budget-must-balance/internal/common"
	"github.com/Veraticus/the-budget-must-balance/internal/model"
	"github.com/Veraticus/the-budget-must-balance/internal/service"
)

// Store is the single owner of ledger state. Mutations are serialized and
// visible to the next query immediately; persistence runs behind them and
// never fails or rolls back a mutation.
type Store struct {
	snapshots service.SnapshotStore
	logger    *slog.Logger
	persister *persister
	now       func() time.Time
	newID     func() string
	incomes   []model.Income
	expenses  []model.Expense
	mu        sync.RWMutex
}

var _ service.Ledger = (*Store)(nil)

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides identifier generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New creates an empty store. A nil snapshot store keeps the ledger in memory only.
func New(snapshots service.SnapshotStore, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		snapshots: snapshots,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
		incomes:   []model.Income{},
		expenses:  []model.Expense{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if snapshots != nil {
		s.persister = newPersister(snapshots, logger)
	}
	return s
}

// Load rehydrates the ledger from its snapshot store. It replaces current
// state and does not trigger a save.
func (s *Store) Load(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}

	snapshot, err := s.snapshots.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: loading snapshot: %w", common.ErrPersistence, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.incomes = append([]model.Income{}, snapshot.Incomes...)
	s.expenses = append([]model.Expense{}, snapshot.Expenses...)

	s.logger.Info("ledger loaded",
		"incomes", len(s.incomes),
		"expenses", len(s.expenses))
	return nil
}

// Flush waits for queued snapshot writes to be attempted.
func (s *Store) Flush(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	return s.persister.flush(ctx)
}

// Close writes any pending snapshot and stops the background writer.
func (s *Store) Close() {
	if s.persister != nil {
		s.persister.close()
	}
}

// AddIncome commits a manually entered income.
func (s *Store) AddIncome(draft model.DraftIncome) (model.Income, error) {
	if err := draft.Validate(); err != nil {
		return model.Income{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	income := s.newIncome(draft, model.ProvenanceManual)
	s.incomes = append(s.incomes, income)
	s.persistLocked()

	s.logger.Info("added income", "id", income.ID, "name", income.Name, "amount", income.Amount.String())
	return income, nil
}

// AddExpense commits a manually entered expense.
func (s *Store) AddExpense(draft model.DraftExpense) (model.Expense, error) {
	if err := draft.Validate(); err != nil {
		return model.Expense{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expense := s.newExpense(draft, model.ProvenanceManual)
	s.expenses = append(s.expenses, expense)
	s.persistLocked()

	s.logger.Info("added expense", "id", expense.ID, "name", expense.Name, "amount", expense.Amount.String())
	return expense, nil
}

// AddVoiceIncomes commits extracted incomes. Invalid drafts are dropped
// rather than failing the batch.
func (s *Store) AddVoiceIncomes(drafts []model.DraftIncome) []model.Income {
	return s.CommitExtraction(model.ExtractionResult{Incomes: drafts}).Incomes
}

// AddVoiceExpenses commits extracted expenses. Invalid drafts are dropped
// rather than failing the batch.
func (s *Store) AddVoiceExpenses(drafts []model.DraftExpense) []model.Expense {
	return s.CommitExtraction(model.ExtractionResult{Expenses: drafts}).Expenses
}

// CommitExtraction commits both kinds of an extraction result as one batch.
func (s *Store) CommitExtraction(result model.ExtractionResult) service.CommitReport {
	report := service.CommitReport{
		Incomes:  []model.Income{},
		Expenses: []model.Expense{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, draft := range result.Incomes {
		if err := draft.Validate(); err != nil {
			s.logger.Warn("dropping extracted income", "name", draft.Name, "error", err)
			report.Dropped++
			continue
		}
		report.Incomes = append(report.Incomes, s.newIncome(draft, model.ProvenanceVoice))
	}
	for _, draft := range result.Expenses {
		if err := draft.Validate(); err != nil {
			s.logger.Warn("dropping extracted expense", "name", draft.Name, "error", err)
			report.Dropped++
			continue
		}
		report.Expenses = append(report.Expenses, s.newExpense(draft, model.ProvenanceVoice))
	}

	if len(report.Incomes) == 0 && len(report.Expenses) == 0 {
		return report
	}

	s.incomes = append(s.incomes, report.Incomes...)
	s.expenses = append(s.expenses, report.Expenses...)
	s.persistLocked()

	s.logger.Info("committed voice extraction",
		"incomes", len(report.Incomes),
		"expenses", len(report.Expenses),
		"dropped", report.Dropped)
	return report
}

// UpdateIncome applies a partial update. An unknown id is a no-op and
// reports false.
func (s *Store) UpdateIncome(id string, patch model.IncomePatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, income := range s.incomes {
		if income.ID != id {
			continue
		}
		updated, err := patch.Apply(income)
		if err != nil {
			return false, err
		}
		s.incomes[i] = updated
		s.persistLocked()
		s.logger.Info("updated income", "id", id)
		return true, nil
	}

	s.logger.Debug("update of unknown income ignored", "id", id)
	return false, nil
}

// UpdateExpense applies a partial update. An unknown id is a no-op and
// reports false.
func (s *Store) UpdateExpense(id string, patch model.ExpensePatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, expense := range s.expenses {
		if expense.ID != id {
			continue
		}
		updated, err := patch.Apply(expense)
		if err != nil {
			return false, err
		}
		s.expenses[i] = updated
		s.persistLocked()
		s.logger.Info("updated expense", "id", id)
		return true, nil
	}

	s.logger.Debug("update of unknown expense ignored", "id", id)
	return false, nil
}

// DeleteIncome removes an income. An unknown id is a no-op.
func (s *Store) DeleteIncome(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, income := range s.incomes {
		if income.ID == id {
			s.incomes = append(s.incomes[:i:i], s.incomes[i+1:]...)
			s.persistLocked()
			s.logger.Info("deleted income", "id", id)
			return true
		}
	}
	return false
}

// DeleteExpense removes an expense. An unknown id is a no-op.
func (s *Store) DeleteExpense(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, expense := range s.expenses {
		if expense.ID == id {
			s.expenses = append(s.expenses[:i:i], s.expenses[i+1:]...)
			s.persistLocked()
			s.logger.Info("deleted expense", "id", id)
			return true
		}
	}
	return false
}

// Incomes returns a copy of the incomes in insertion order.
func (s *Store) Incomes() []model.Income {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Income{}, s.incomes...)
}

// Expenses returns a copy of the expenses in insertion order.
func (s *Store) Expenses() []model.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Expense{}, s.expenses...)
}

// Snapshot returns the persisted form of the current state.
func (s *Store) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// TotalMonthlyIncome sums the monthly equivalents of all incomes.
func (s *Store) TotalMonthlyIncome() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalIncomeLocked()
}

// TotalMonthlyExpenses sums the monthly equivalents of all expenses.
func (s *Store) TotalMonthlyExpenses() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalExpensesLocked()
}

// MonthlyAvailable is income minus expenses and may be negative.
func (s *Store) MonthlyAvailable() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalIncomeLocked().Sub(s.totalExpensesLocked())
}

// Summary computes all aggregates from one consistent view.
func (s *Store) Summary() model.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	income := s.totalIncomeLocked()
	expenses := s.totalExpensesLocked()
	return model.Summary{
		TotalMonthlyIncome:   income,
		TotalMonthlyExpenses: expenses,
		MonthlyAvailable:     income.Sub(expenses),
		IncomeCount:          len(s.incomes),
		ExpenseCount:         len(s.expenses),
	}
}

func (s *Store) totalIncomeLocked() decimal.Decimal {
	var total model.MonthlyTotal
	for _, income := range s.incomes {
		total.Add(income.Amount, income.Period)
	}
	return total.Value()
}

func (s *Store) totalExpensesLocked() decimal.Decimal {
	var total model.MonthlyTotal
	for _, expense := range s.expenses {
		total.Add(expense.Amount, expense.Period)
	}
	return total.Value()
}

func (s *Store) newIncome(draft model.DraftIncome, source model.Provenance) model.Income {
	return model.Income{
		ID:        s.newID(),
		Name:      draft.Name,
		Amount:    draft.Amount,
		Period:    draft.Period,
		Source:    source,
		CreatedAt: s.now().UTC(),
	}
}

func (s *Store) newExpense(draft model.DraftExpense, source model.Provenance) model.Expense {
	return model.Expense{
		ID:        s.newID(),
		Name:      draft.Name,
		Amount:    draft.Amount,
		Period:    draft.Period,
		Category:  draft.Category,
		Source:    source,
		CreatedAt: s.now().UTC(),
	}
}

func (s *Store) snapshotLocked() model.Snapshot {
	return model.Snapshot{
		Incomes:  append([]model.Income{}, s.incomes...),
		Expenses: append([]model.Expense{}, s.expenses...),
	}
}

// persistLocked must be called with the write lock held so snapshots are
// queued in mutation order.
func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	s.persister.enqueue(s.snapshotLocked())
}
