package sheets

import (
	"time"

	"github.com/Veraticus/the-budget-must-balance/internal/model"
)

// Report is everything written to the spreadsheet in one export.
type Report struct {
	GeneratedAt time.Time
	Incomes     []model.Income
	Expenses    []model.Expense
	Summary     model.Summary
}

// LedgerSource is the read side of the ledger needed for an export.
type LedgerSource interface {
	Incomes() []model.Income
	Expenses() []model.Expense
	Summary() model.Summary
}

// NewReport captures the current ledger state.
func NewReport(source LedgerSource, now time.Time) Report {
	return Report{
		GeneratedAt: now,
		Incomes:     source.Incomes(),
		Expenses:    source.Expenses(),
		Summary:     source.Summary(),
	}
}
