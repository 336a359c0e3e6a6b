package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Period describes how often an amount recurs.
type Period string

// Recurrence periods. Static and monthly are both already monthly-equivalent;
// static marks a fixed obligation, monthly a variable recurring cost.
const (
	PeriodMonthly Period = "monthly"
	PeriodStatic  Period = "static"
	PeriodYearly  Period = "yearly"
)

var monthsPerYear = decimal.NewFromInt(12)

// ParsePeriod parses a period name case-insensitively.
func ParsePeriod(s string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case PeriodMonthly:
		return PeriodMonthly, nil
	case PeriodStatic:
		return PeriodStatic, nil
	case PeriodYearly:
		return PeriodYearly, nil
	default:
		return "", fmt.Errorf("%w: unknown period %q", ErrInvalidInput, s)
	}
}

// ValidForIncome reports whether incomes may recur with this period.
func (p Period) ValidForIncome() bool {
	return p == PeriodMonthly || p == PeriodYearly
}

// ValidForExpense reports whether expenses may recur with this period.
func (p Period) ValidForExpense() bool {
	return p == PeriodMonthly || p == PeriodStatic || p == PeriodYearly
}

// MonthlyEquivalent normalizes amount to a per-month basis.
// No rounding is applied; round only for display. Yearly amounts are
// divided at decimal.DivisionPrecision (16 digits), so summing many
// per-record equivalents can drift in the last places. Use MonthlyTotal
// when aggregating.
func MonthlyEquivalent(amount decimal.Decimal, p Period) decimal.Decimal {
	if p == PeriodYearly {
		return amount.Div(monthsPerYear)
	}
	return amount
}

// MonthlyTotal accumulates recurring amounts and converts yearly ones to
// a monthly basis once, after summing. The zero value is an empty total.
type MonthlyTotal struct {
	monthly decimal.Decimal
	yearly  decimal.Decimal
}

// Add includes amount recurring with period p.
func (t *MonthlyTotal) Add(amount decimal.Decimal, p Period) {
	if p == PeriodYearly {
		t.yearly = t.yearly.Add(amount)
		return
	}
	t.monthly = t.monthly.Add(amount)
}

// Value returns the per-month total.
func (t MonthlyTotal) Value() decimal.Decimal {
	return t.monthly.Add(MonthlyEquivalent(t.yearly, PeriodYearly))
}

// RoundForDisplay rounds a monetary amount to cents.
func RoundForDisplay(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// FormatAmount renders an amount as a dollar string with two decimals.
func FormatAmount(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "-$" + amount.Neg().StringFixed(2)
	}
	return "$" + amount.StringFixed(2)
}
