package model

import "github.com/shopspring/decimal"

// IncomePatch holds a partial income update. Nil fields are left unchanged.
type IncomePatch struct {
	Name   *string          `json:"name,omitempty"`
	Period *Period          `json:"period,omitempty"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

// Apply returns the patched income, keeping its identity fields.
func (p IncomePatch) Apply(in Income) (Income, error) {
	draft := DraftIncome{Name: in.Name, Amount: in.Amount, Period: in.Period}
	if p.Name != nil {
		draft.Name = *p.Name
	}
	if p.Amount != nil {
		draft.Amount = *p.Amount
	}
	if p.Period != nil {
		draft.Period = *p.Period
	}
	if err := draft.Validate(); err != nil {
		return in, err
	}

	in.Name = draft.Name
	in.Amount = draft.Amount
	in.Period = draft.Period
	return in, nil
}

// ExpensePatch holds a partial expense update. Nil fields are left unchanged.
type ExpensePatch struct {
	Name     *string          `json:"name,omitempty"`
	Period   *Period          `json:"period,omitempty"`
	Category *string          `json:"category,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
}

// Apply returns the patched expense, keeping its identity fields.
func (p ExpensePatch) Apply(ex Expense) (Expense, error) {
	draft := DraftExpense{Name: ex.Name, Amount: ex.Amount, Period: ex.Period, Category: ex.Category}
	if p.Name != nil {
		draft.Name = *p.Name
	}
	if p.Amount != nil {
		draft.Amount = *p.Amount
	}
	if p.Period != nil {
		draft.Period = *p.Period
	}
	if p.Category != nil {
		draft.Category = *p.Category
	}
	if err := draft.Validate(); err != nil {
		return ex, err
	}

	ex.Name = draft.Name
	ex.Amount = draft.Amount
	ex.Period = draft.Period
	ex.Category = draft.Category
	return ex, nil
}
