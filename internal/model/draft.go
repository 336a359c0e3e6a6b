package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput reports a rejected manual entry: empty name,
// non-positive amount or a period the record kind does not allow.
var ErrInvalidInput = errors.New("invalid input")

// DraftIncome is an income candidate that has not been committed yet.
type DraftIncome struct {
	Name   string          `json:"name"`
	Period Period          `json:"period"`
	Amount decimal.Decimal `json:"amount"`
}

// Validate checks the draft against the income invariants.
func (d DraftIncome) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !d.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidInput, d.Amount)
	}
	if !d.Period.ValidForIncome() {
		return fmt.Errorf("%w: period %q is not valid for income", ErrInvalidInput, d.Period)
	}
	return nil
}

// DraftExpense is an expense candidate that has not been committed yet.
type DraftExpense struct {
	Name     string          `json:"name"`
	Period   Period          `json:"period"`
	Category string          `json:"category,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
}

// Validate checks the draft against the expense invariants.
func (d DraftExpense) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !d.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidInput, d.Amount)
	}
	if !d.Period.ValidForExpense() {
		return fmt.Errorf("%w: period %q is not valid for expense", ErrInvalidInput, d.Period)
	}
	return nil
}

// ExtractionResult is the outcome of turning one utterance into drafts.
type ExtractionResult struct {
	Message  string         `json:"message"`
	Incomes  []DraftIncome  `json:"incomes"`
	Expenses []DraftExpense `json:"expenses"`
}

// IsEmpty reports whether no drafts were extracted.
func (r ExtractionResult) IsEmpty() bool {
	return len(r.Incomes) == 0 && len(r.Expenses) == 0
}

// ParseAmount parses a user-typed amount such as "$1,200.50".
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	amount, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q is not a number", ErrInvalidInput, s)
	}
	return amount, nil
}
