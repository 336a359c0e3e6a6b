package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-budget-must-balance/internal/common"
	"github.com/Veraticus/the-budget-must-balance/internal/model"
)

// memorySnapshots is an in-memory SnapshotStore for tests.
type memorySnapshots struct {
	err      error
	snapshot model.Snapshot
	saves    int
	mu       sync.Mutex
}

func (m *memorySnapshots) Load(_ context.Context) (model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot, nil
}

func (m *memorySnapshots) Save(_ context.Context, snapshot model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.err != nil {
		return m.err
	}
	m.snapshot = snapshot
	return nil
}

func (m *memorySnapshots) Close() error { return nil }

func (m *memorySnapshots) current() model.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

func newTestStore(t *testing.T, snapshots *memorySnapshots) *Store {
	t.Helper()
	counter := 0
	store := New(snapshots, common.DiscardLogger(),
		WithClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }),
		WithIDGenerator(func() string {
			counter++
			return fmt.Sprintf("id-%d", counter)
		}),
	)
	t.Cleanup(store.Close)
	return store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAddIncome(t *testing.T) {
	store := newTestStore(t, &memorySnapshots{})

	income, err := store.AddIncome(model.DraftIncome{Name: "Salary", Amount: dec("2000"), Period: model.PeriodMonthly})
	require.NoError(t, err)

	assert.Equal(t, "id-1", income.ID)
	assert.Equal(t, model.ProvenanceManual, income.Source)
	assert.False(t, income.CreatedAt.IsZero())
	assert.True(t, store.TotalMonthlyIncome().Equal(dec("2000")))
}

func TestAddRejectsInvalidInput(t *testing.T) {
	snapshots := &memorySnapshots{}
	store := newTestStore(t, snapshots)

	_, err := store.AddIncome(model.DraftIncome{Name: "", Amount: dec("10"), Period: model.PeriodMonthly})
	require.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = store.AddExpense(model.DraftExpense{Name: "Rent", Amount: dec("0"), Period: model.PeriodStatic})
	require.ErrorIs(t, err, model.ErrInvalidInput)

	assert.Empty(t, store.Incomes())
	assert.Empty(t, store.Expenses())
	require.NoError(t, store.Flush(context.Background()))
	assert.Zero(t, snapshots.saves)
}

func TestYearlyIncomeContributesTwelfth(t *testing.T) {
	store := newTestStore(t, &memorySnapshots{})

	_, err := store.AddIncome(model.DraftIncome{Name: "Dividends", Amount: dec("1200"), Period: model.PeriodYearly})
	require.NoError(t, err)

	assert.True(t, store.TotalMonthlyIncome().Equal(dec("100")))
}

func TestYearlyTotalsAreExact(t *testing.T) {
	store := newTestStore(t, &memorySnapshots{})

	for i := 0; i < 12; i++ {
		_, err := store.AddIncome(model.DraftIncome{Name: fmt.Sprintf("Grant %d", i+1), Amount: dec("1000"), Period: model.PeriodYearly})
		require.NoError(t, err)
		_, err = store.AddExpense(model.DraftExpense{Name: fmt.Sprintf("Premium %d", i+1), Amount: dec("100"), Period: model.PeriodYearly, Category: model.CategoryOther})
		require.NoError(t, err)
	}

	summary := store.Summary()
	assert.Equal(t, "1000", summary.TotalMonthlyIncome.String())
	assert.Equal(t, "100", summary.TotalMonthlyExpenses.String())
	assert.Equal(t, "900", summary.MonthlyAvailable.String())
}

func TestStaticAndMonthlyExpensesContributeIdentically(t *testing.T) {
	store := newTestStore(t, &memorySnapshots{})

	_, err := store.AddExpense(model.DraftExpense{Name: "Rent", Amount: dec("300"), Period: model.PeriodStatic})
	require.NoError(t, err)
	afterStatic := store.TotalMonthlyExpenses()

	_, err = store.AddExpense(model.DraftExpense{Name: "Groceries", Amount: dec("300"), Period: model.PeriodMonthly})
	require.NoError(t, err)

	assert.True(t, afterStatic.Equal(dec("300")))
	assert.True(t, store.TotalMonthlyExpenses().Equal(dec("600")))
}

func TestAddThenDeleteRestoresTotals(t *testing.T) {
	store := newTestStore(t, &memorySnapshots{})

	_, err := store.AddIncome(model.DraftIncome{Name: "Salary", Amount: dec("3100.10"), Period: model.PeriodMonthly})
	require.NoError(t, err)
	_, err = store.AddExpense(model.DraftExpense{Name: "Insurance", Amount: dec("1000"), Period: model.PeriodYearly})
	require.NoError(t, err)

	before := store.Summary()

	income, err := store.AddIncome(model.DraftIncome{Name: "Bonus", Amount: dec("1000"), Period: model.PeriodYearly})
	require.NoError(t, err)
	expense, err := store.AddExpense(model.DraftExpense{Name: "Car", Amount: dec("333.33"), Period: model.PeriodYearly})
	require.NoError(t, err)

	assert.True(t, store.DeleteIncome(income.ID))
	assert.True(t, store.DeleteExpense(expense.ID))

	after := store.Summary()
	assert.True(t, before.TotalMonthlyIncome.Equal(after.TotalMonthlyIncome))
	assert.True(t, before.TotalMonthlyExpenses.Equal(after.TotalMonthlyExpenses))
	assert.True(t, before.MonthlyAvailable.Equal(after.MonthlyAvailable))
}

func TestAvailableEqualsIncomeMinusExpenses(t *testing.T) {
	store := newTestStore(t, &memorySnapshots{})
	rng := rand.New(rand.NewSource(42))

	periods := []model.Period{model.PeriodMonthly, model.PeriodStatic, model.PeriodYearly}

	for i := 0; i < 300; i++ {
		amount := decimal.New(rng.Int63n(1_000_000)+1, -2)
		switch rng.Intn(6) {
		case 0:
			period := model.PeriodMonthly
			if rng.Intn(2) == 0 {
				period = model.PeriodYearly
			}
			_, err := store.AddIncome(model.DraftIncome{Name: "in", Amount: amount, Period: period})
			require.NoError(t, err)
		case 1:
			_, err := store.AddExpense(model.DraftExpense{Name: "out", Amount: amount, Period: periods[rng.Intn(3)]})
			require.NoError(t, err)
		case 2:
			if incomes := store.Incomes(); len(incomes) > 0 {
				store.DeleteIncome(incomes[rng.Intn(len(incomes))].ID)
			}
		case 3:
			if expenses := store.Expenses(); len(expenses) > 0 {
				store.DeleteExpense(expenses[rng.Intn(len(expenses))].ID)
			}
		case 4:
			if incomes := store.Incomes(); len(incomes) > 0 {
				_, err := store.UpdateIncome(incomes[rng.Intn(len(incomes))].ID, model.IncomePatch{Amount: &amount})
				require.NoError(t, err)
			}
		case 5:
			store.CommitExtraction(model.ExtractionResult{
				Expenses: []model.DraftExpense{{Name: "voice", Amount: amount, Period: model.PeriodMonthly}},
			})
		}

		income := store.TotalMonthlyIncome()
		expenses := store.TotalMonthlyExpenses()
		assert.True(t, store.MonthlyAvailable().Equal(income.Sub(expenses)), "iteration %d", i)
	}
}

func TestAvailableMayBeNegative(t *testing.T) {
	store := newTestStore(t, &memorySnapshots{})

	_, err := store.AddIncome(model.DraftIncome{Name: "Job", Amount: dec("100"), Period: model.PeriodMonthly})
	require.NoError(t, err)
	_, err = store.AddExpense(model.DraftExpense{Name: "Rent", Amount: dec("250"), Period: model.PeriodStatic})
	require.NoError(t, err)

	assert.True(t, store.MonthlyAvailable().Equal(dec("-150")))
}

func TestUpdateAndDeleteUnknownAreNoOps(t *testing.T) {
	snapshots := &memorySnapshots{}
	store := newTestStore(t, snapshots)

	name := "ghost"
	ok, err := store.UpdateIncome("missing", model.IncomePatch{Name: &name})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.UpdateExpense("missing", model.ExpensePatch{Name: &name})
	require.NoError(t, err)
	assert.False(t, ok)

	assert.False(t, store.DeleteIncome("missing"))
	assert.False(t, store.DeleteExpense("missing"))

	require.NoError(t, store.Flush(context.Background()))
	assert.Zero(t, snapshots.saves)
}

func TestUpdatePreservesIdentifier(t *testing.T) {
	store := newTestStore(t, &memorySnapshots{})

	expense, err := store.AddExpense(model.DraftExpense{Name: "Phone", Amount: dec("45"), Period: model.PeriodMonthly, Category: "utilities"})
	require.NoError(t, err)

	amount := dec("540")
	period := model.PeriodYearly
	ok, err := store.UpdateExpense(expense.ID, model.ExpensePatch{Amount: &amount, Period: &period})
	require.NoError(t, err)
	require.True(t, ok)

	expenses := store.Expenses()
	require.Len(t, expenses, 1)
	assert.Equal(t, expense.ID, expenses[0].ID)
	assert.Equal(t, "Phone", expenses[0].Name)
	assert.Equal(t, expense.CreatedAt, expenses[0].CreatedAt)
	assert.True(t, store.TotalMonthlyExpenses().Equal(dec("45")))

	bad := dec("-1")
	ok, err = store.UpdateExpense(expense.ID, model.ExpensePatch{Amount: &bad})
	require.ErrorIs(t, err, model.ErrInvalidInput)
	assert.False(t, ok)
	assert.True(t, store.Expenses()[0].Amount.Equal(dec("540")))
}

func TestCommitExtractionDropsNonPositive(t *testing.T) {
	store := newTestStore(t, &memorySnapshots{})

	report := store.CommitExtraction(model.ExtractionResult{
		Incomes: []model.DraftIncome{
			{Name: "Salary", Amount: dec("2000"), Period: model.PeriodMonthly},
			{Name: "Nothing", Amount: dec("0"), Period: model.PeriodMonthly},
		},
		Expenses: []model.DraftExpense{
			{Name: "Groceries", Amount: dec("50"), Period: model.PeriodMonthly, Category: "food"},
			{Name: "Refund", Amount: dec("-20"), Period: model.PeriodMonthly, Category: "other"},
		},
	})

	assert.Len(t, report.Incomes, 1)
	assert.Len(t, report.Expenses, 1)
	assert.Equal(t, 2, report.Dropped)

	for _, income := range store.Incomes() {
		assert.Equal(t, model.ProvenanceVoice, income.Source)
	}
	for _, expense := range store.Expenses() {
		assert.Equal(t, model.ProvenanceVoice, expense.Source)
	}
	assert.True(t, store.MonthlyAvailable().Equal(dec("1950")))
}

func TestAddVoiceBatches(t *testing.T) {
	store := newTestStore(t, &memorySnapshots{})

	incomes := store.AddVoiceIncomes([]model.DraftIncome{{Name: "Voice Income 1", Amount: dec("10"), Period: model.PeriodMonthly}})
	expenses := store.AddVoiceExpenses([]model.DraftExpense{{Name: "Voice Expense 1", Amount: dec("5"), Period: model.PeriodMonthly, Category: "other"}})

	require.Len(t, incomes, 1)
	require.Len(t, expenses, 1)
	assert.Equal(t, model.ProvenanceVoice, incomes[0].Source)
	assert.Equal(t, model.ProvenanceVoice, expenses[0].Source)
}

func TestInsertionOrderPreserved(t *testing.T) {
	store := newTestStore(t, &memorySnapshots{})

	for _, name := range []string{"a", "b", "c", "d"} {
		_, err := store.AddExpense(model.DraftExpense{Name: name, Amount: dec("1"), Period: model.PeriodMonthly})
		require.NoError(t, err)
	}
	expenses := store.Expenses()
	require.True(t, store.DeleteExpense(expenses[1].ID))

	var names []string
	for _, e := range store.Expenses() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"a", "c", "d"}, names)
}

func TestPersistenceSnapshotRoundTrip(t *testing.T) {
	snapshots := &memorySnapshots{}
	store := newTestStore(t, snapshots)

	_, err := store.AddIncome(model.DraftIncome{Name: "Salary", Amount: dec("2000"), Period: model.PeriodMonthly})
	require.NoError(t, err)
	_, err = store.AddExpense(model.DraftExpense{Name: "Rent", Amount: dec("900"), Period: model.PeriodStatic, Category: "housing"})
	require.NoError(t, err)
	require.NoError(t, store.Flush(context.Background()))

	assert.Equal(t, store.Snapshot(), snapshots.current())

	reloaded := New(snapshots, common.DiscardLogger())
	t.Cleanup(reloaded.Close)
	require.NoError(t, reloaded.Load(context.Background()))

	assert.Equal(t, store.Incomes(), reloaded.Incomes())
	assert.Equal(t, store.Expenses(), reloaded.Expenses())
}

func TestPersistenceFailureDoesNotRollBack(t *testing.T) {
	snapshots := &memorySnapshots{err: errors.New("disk full")}
	store := newTestStore(t, snapshots)

	_, err := store.AddIncome(model.DraftIncome{Name: "Salary", Amount: dec("2000"), Period: model.PeriodMonthly})
	require.NoError(t, err)
	require.NoError(t, store.Flush(context.Background()))

	assert.Len(t, store.Incomes(), 1)
	assert.True(t, store.TotalMonthlyIncome().Equal(dec("2000")))
	assert.GreaterOrEqual(t, snapshots.saves, 1)
}

func TestInMemoryStoreWithoutPersistence(t *testing.T) {
	store := New(nil, common.DiscardLogger())
	defer store.Close()

	require.NoError(t, store.Load(context.Background()))
	_, err := store.AddIncome(model.DraftIncome{Name: "Salary", Amount: dec("1"), Period: model.PeriodMonthly})
	require.NoError(t, err)
	require.NoError(t, store.Flush(context.Background()))
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	store := newTestStore(t, &memorySnapshots{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = store.AddIncome(model.DraftIncome{Name: "in", Amount: dec("2"), Period: model.PeriodMonthly})
		}()
		go func() {
			defer wg.Done()
			_, _ = store.AddExpense(model.DraftExpense{Name: "out", Amount: dec("1"), Period: model.PeriodMonthly})
		}()
	}
	wg.Wait()

	summary := store.Summary()
	assert.Equal(t, 50, summary.IncomeCount)
	assert.Equal(t, 50, summary.ExpenseCount)
	assert.True(t, summary.MonthlyAvailable.Equal(dec("50")))
}
