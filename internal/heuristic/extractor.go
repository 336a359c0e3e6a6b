// Package heuristic implements the offline, dependency-free fallback that
// scans free text for currency amounts and guesses whether each one is
// income or an expense from the words around it.
package heuristic

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-budget-must-balance/internal/model"
)

// DefaultWindow is the number of characters of context taken on each side of an amount.
const DefaultWindow = 50

var (
	// Optional leading $, optional thousands separators, optional cents.
	amountPattern = regexp.MustCompile(`\$?\d+(?:,\d{3})*(?:\.\d{2})?`)

	defaultIncomeKeywords  = []string{"salary", "wage", "income", "earned", "paid", "bonus", "received"}
	defaultExpenseKeywords = []string{"spent", "cost", "paid for", "bought", "expense", "bill"}
)

// Extractor classifies amounts found in text. The zero value is not usable; call New.
type Extractor struct {
	incomeKeywords  []string
	expenseKeywords []string
	window          int
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithWindow overrides the context window size.
func WithWindow(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.window = n
		}
	}
}

// WithKeywords replaces the keyword sets. Keywords are matched lower-cased.
func WithKeywords(income, expense []string) Option {
	return func(e *Extractor) {
		e.incomeKeywords = lowerAll(income)
		e.expenseKeywords = lowerAll(expense)
	}
}

// New creates an extractor with the default keyword sets and window.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		incomeKeywords:  defaultIncomeKeywords,
		expenseKeywords: defaultExpenseKeywords,
		window:          DefaultWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract never fails. Text without amounts yields empty draft lists.
func (e *Extractor) Extract(text string) model.ExtractionResult {
	result := model.ExtractionResult{
		Incomes:  []model.DraftIncome{},
		Expenses: []model.DraftExpense{},
	}

	for _, loc := range amountPattern.FindAllStringIndex(text, -1) {
		amount, err := parseMatch(text[loc[0]:loc[1]])
		if err != nil || !amount.IsPositive() {
			continue
		}

		context := e.contextAround(text, loc[0], loc[1])
		if e.isIncome(context) {
			result.Incomes = append(result.Incomes, model.DraftIncome{
				Name:   fmt.Sprintf("Voice Income %d", len(result.Incomes)+1),
				Amount: amount,
				Period: model.PeriodMonthly,
			})
			continue
		}

		result.Expenses = append(result.Expenses, model.DraftExpense{
			Name:     fmt.Sprintf("Voice Expense %d", len(result.Expenses)+1),
			Amount:   amount,
			Period:   model.PeriodMonthly,
			Category: model.CategoryOther,
		})
	}

	result.Message = fmt.Sprintf("Processed %d income(s) and %d expense(s) from voice input",
		len(result.Incomes), len(result.Expenses))
	return result
}

// isIncome applies the tie-break: income only when an income keyword is
// present and no expense keyword is. Everything else defaults to expense.
func (e *Extractor) isIncome(context string) bool {
	return containsAny(context, e.incomeKeywords) && !containsAny(context, e.expenseKeywords)
}

func (e *Extractor) contextAround(text string, start, end int) string {
	from := start
	for i := 0; i < e.window && from > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:from])
		from -= size
	}
	to := end
	for i := 0; i < e.window && to < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[to:])
		to += size
	}

	return strings.ToLower(text[from:start] + " " + text[end:to])
}

func parseMatch(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.NewReplacer("$", "", ",", "").Replace(raw))
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
