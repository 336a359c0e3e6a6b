// Package testutil provides fixtures for tests that need a real ledger
// backed by a real snapshot store.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-budget-must-balance/internal/common"
	"github.com/Veraticus/the-budget-must-balance/internal/ledger"
	"github.com/Veraticus/the-budget-must-balance/internal/model"
	"github.com/Veraticus/the-budget-must-balance/internal/service"
	"github.com/Veraticus/the-budget-must-balance/internal/storage"
)

// FixedTime is the creation time stamped on every record of a TestLedger.
var FixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// TestLedger is a ledger with deterministic ids and timestamps.
type TestLedger struct {
	Store     *ledger.Store
	Snapshots service.SnapshotStore
	t         *testing.T
}

// SetupLedger creates a ledger persisted to the given backend in a temp
// dir. An empty backend gives an in-memory ledger without persistence.
// Ids are "id-1", "id-2" and so on. Cleanup is registered on t.
//
// Example:
//
//	tl := testutil.SetupLedger(t, storage.BackendSQLite)
//	rent := tl.SeedExpense("Rent", "1500", model.PeriodStatic, "housing")
func SetupLedger(t *testing.T, backend string) *TestLedger {
	t.Helper()

	var snapshots service.SnapshotStore
	if backend != "" {
		path := filepath.Join(t.TempDir(), storage.DefaultFileName(backend))
		var err error
		snapshots, err = storage.Open(context.Background(), storage.Config{Backend: backend, Path: path})
		if err != nil {
			t.Fatalf("failed to open %s snapshot store: %v", backend, err)
		}
	}

	counter := 0
	store := ledger.New(snapshots, common.DiscardLogger(),
		ledger.WithClock(func() time.Time { return FixedTime }),
		ledger.WithIDGenerator(func() string {
			counter++
			return fmt.Sprintf("id-%d", counter)
		}),
	)

	t.Cleanup(func() {
		store.Close()
		if snapshots != nil {
			if err := snapshots.Close(); err != nil {
				t.Logf("failed to close snapshot store: %v", err)
			}
		}
	})

	return &TestLedger{Store: store, Snapshots: snapshots, t: t}
}

// SeedIncome adds a manual income or fails the test.
func (l *TestLedger) SeedIncome(name, amount string, period model.Period) model.Income {
	l.t.Helper()
	income, err := l.Store.AddIncome(model.DraftIncome{Name: name, Amount: l.amount(amount), Period: period})
	if err != nil {
		l.t.Fatalf("failed to seed income %q: %v", name, err)
	}
	return income
}

// SeedExpense adds a manual expense or fails the test.
func (l *TestLedger) SeedExpense(name, amount string, period model.Period, category string) model.Expense {
	l.t.Helper()
	expense, err := l.Store.AddExpense(model.DraftExpense{Name: name, Amount: l.amount(amount), Period: period, Category: category})
	if err != nil {
		l.t.Fatalf("failed to seed expense %q: %v", name, err)
	}
	return expense
}

// Persisted waits for pending writes and returns what the backend holds.
func (l *TestLedger) Persisted() model.Snapshot {
	l.t.Helper()
	if l.Snapshots == nil {
		l.t.Fatal("ledger has no snapshot store")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.Store.Flush(ctx); err != nil {
		l.t.Fatalf("failed to flush ledger: %v", err)
	}
	snapshot, err := l.Snapshots.Load(ctx)
	if err != nil {
		l.t.Fatalf("failed to load snapshot: %v", err)
	}
	return snapshot
}

func (l *TestLedger) amount(s string) decimal.Decimal {
	l.t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		l.t.Fatalf("bad amount %q: %v", s, err)
	}
	return d
}
