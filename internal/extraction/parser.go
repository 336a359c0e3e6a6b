package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-budget-must-balance/internal/common"
	"github.com/Veraticus/the-budget-must-balance/internal/llm"
	"github.com/Veraticus/the-budget-must-balance/internal/model"
)

type rawPayload struct {
	Message  *string    `json:"message"`
	Incomes  []rawDraft `json:"incomes"`
	Expenses []rawDraft `json:"expenses"`
}

type rawDraft struct {
	Name     *string         `json:"name"`
	Period   *string         `json:"period"`
	Category *string         `json:"category"`
	Amount   json.RawMessage `json:"amount"`
}

// ParsePayload converts a model reply into a typed ExtractionResult.
// Markdown fences are stripped, absent arrays become empty and unknown
// expense categories become "other". Any other deviation from the expected
// shape fails the whole payload with common.ErrMalformedResponse.
//
// Amount positivity is not checked here; the ledger drops non-positive
// drafts at commit time.
func ParsePayload(content string) (model.ExtractionResult, error) {
	cleaned := llm.CleanMarkdownWrapper(content)
	if cleaned == "" || cleaned == "null" {
		return model.ExtractionResult{}, fmt.Errorf("%w: empty payload", common.ErrMalformedResponse)
	}

	dec := json.NewDecoder(strings.NewReader(cleaned))
	var raw rawPayload
	if err := dec.Decode(&raw); err != nil {
		return model.ExtractionResult{}, fmt.Errorf("%w: %w", common.ErrMalformedResponse, err)
	}
	if dec.More() {
		return model.ExtractionResult{}, fmt.Errorf("%w: trailing data after JSON object", common.ErrMalformedResponse)
	}

	result := model.ExtractionResult{
		Incomes:  make([]model.DraftIncome, 0, len(raw.Incomes)),
		Expenses: make([]model.DraftExpense, 0, len(raw.Expenses)),
	}

	for i, d := range raw.Incomes {
		name, amount, period, err := d.common()
		if err != nil {
			return model.ExtractionResult{}, fmt.Errorf("%w: incomes[%d]: %w", common.ErrMalformedResponse, i, err)
		}
		if !period.ValidForIncome() {
			return model.ExtractionResult{}, fmt.Errorf("%w: incomes[%d]: period %q is not valid for income",
				common.ErrMalformedResponse, i, period)
		}
		result.Incomes = append(result.Incomes, model.DraftIncome{
			Name:   name,
			Amount: amount,
			Period: period,
		})
	}

	for i, d := range raw.Expenses {
		name, amount, period, err := d.common()
		if err != nil {
			return model.ExtractionResult{}, fmt.Errorf("%w: expenses[%d]: %w", common.ErrMalformedResponse, i, err)
		}
		if !period.ValidForExpense() {
			return model.ExtractionResult{}, fmt.Errorf("%w: expenses[%d]: period %q is not valid for expense",
				common.ErrMalformedResponse, i, period)
		}
		category := model.CategoryOther
		if d.Category != nil {
			category = model.NormalizeCategory(*d.Category)
		}
		result.Expenses = append(result.Expenses, model.DraftExpense{
			Name:     name,
			Amount:   amount,
			Period:   period,
			Category: category,
		})
	}

	if raw.Message != nil && strings.TrimSpace(*raw.Message) != "" {
		result.Message = strings.TrimSpace(*raw.Message)
	} else {
		result.Message = summaryMessage(result)
	}

	return result, nil
}

func (d rawDraft) common() (string, decimal.Decimal, model.Period, error) {
	if d.Name == nil {
		return "", decimal.Zero, "", fmt.Errorf("missing name")
	}
	if d.Period == nil {
		return "", decimal.Zero, "", fmt.Errorf("missing period")
	}
	period, err := model.ParsePeriod(*d.Period)
	if err != nil {
		return "", decimal.Zero, "", err
	}
	amount, err := parseRawAmount(d.Amount)
	if err != nil {
		return "", decimal.Zero, "", err
	}
	return strings.TrimSpace(*d.Name), amount, period, nil
}

// parseRawAmount accepts a JSON number or a string holding a plain number.
func parseRawAmount(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero, fmt.Errorf("missing amount")
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return decimal.Zero, fmt.Errorf("invalid amount %s: %w", raw, err)
		}
		text = strings.TrimSpace(text)
	}

	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %s is not numeric", raw)
	}
	return amount, nil
}

func summaryMessage(result model.ExtractionResult) string {
	return fmt.Sprintf("Processed %d income(s) and %d expense(s) from voice input",
		len(result.Incomes), len(result.Expenses))
}
