package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Provenance records where a ledger entry came from.
type Provenance string

// Known provenances.
const (
	ProvenanceManual Provenance = "manual"
	ProvenanceVoice  Provenance = "voice"
)

// Income is a committed income source.
type Income struct {
	CreatedAt time.Time       `json:"createdAt"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Period    Period          `json:"period"`
	Source    Provenance      `json:"source"`
	Amount    decimal.Decimal `json:"amount"`
}

// Monthly returns the income's monthly-equivalent amount.
func (i Income) Monthly() decimal.Decimal {
	return MonthlyEquivalent(i.Amount, i.Period)
}

// Expense is a committed expense.
type Expense struct {
	CreatedAt time.Time       `json:"createdAt"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Period    Period          `json:"period"`
	Category  string          `json:"category,omitempty"`
	Source    Provenance      `json:"source"`
	Amount    decimal.Decimal `json:"amount"`
}

// Monthly returns the expense's monthly-equivalent amount.
func (e Expense) Monthly() decimal.Decimal {
	return MonthlyEquivalent(e.Amount, e.Period)
}

// Snapshot is the persisted form of the whole ledger.
type Snapshot struct {
	Incomes  []Income  `json:"incomes"`
	Expenses []Expense `json:"expenses"`
}

// Summary holds the derived monthly aggregates.
type Summary struct {
	TotalMonthlyIncome   decimal.Decimal `json:"totalMonthlyIncome"`
	TotalMonthlyExpenses decimal.Decimal `json:"totalMonthlyExpenses"`
	MonthlyAvailable     decimal.Decimal `json:"monthlyAvailable"`
	IncomeCount          int             `json:"incomeCount"`
	ExpenseCount         int             `json:"expenseCount"`
}
