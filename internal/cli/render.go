package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-budget-must-balance/internal/extraction"
	"github.com/Veraticus/the-budget-must-balance/internal/model"
)

// RenderSummary renders the monthly aggregates in a box. A negative
// available amount is shown in the error color.
func RenderSummary(s model.Summary) string {
	available := model.FormatAmount(model.RoundForDisplay(s.MonthlyAvailable))
	if s.MonthlyAvailable.IsNegative() {
		available = ErrorStyle.Render(available)
	} else {
		available = SuccessStyle.Render(available)
	}

	content := fmt.Sprintf("Monthly income:    %s  (%d)\n", money(s.TotalMonthlyIncome), s.IncomeCount) +
		fmt.Sprintf("Monthly expenses:  %s  (%d)\n", money(s.TotalMonthlyExpenses), s.ExpenseCount) +
		fmt.Sprintf("Available:         %s", available)

	return RenderBox(MoneyIcon+" Monthly Budget", content)
}

// RenderIncomes renders incomes as a table.
func RenderIncomes(incomes []model.Income) string {
	if len(incomes) == 0 {
		return SubtleStyle.Render("No incomes recorded.")
	}

	rows := make([][]string, 0, len(incomes))
	for _, inc := range incomes {
		rows = append(rows, []string{
			inc.ID,
			inc.Name,
			money(inc.Amount),
			string(inc.Period),
			money(inc.Monthly()),
			string(inc.Source),
		})
	}
	return renderTable([]string{"ID", "Name", "Amount", "Period", "Monthly", "Source"}, rows)
}

// RenderExpenses renders expenses as a table.
func RenderExpenses(expenses []model.Expense) string {
	if len(expenses) == 0 {
		return SubtleStyle.Render("No expenses recorded.")
	}

	rows := make([][]string, 0, len(expenses))
	for _, exp := range expenses {
		rows = append(rows, []string{
			exp.ID,
			exp.Name,
			money(exp.Amount),
			string(exp.Period),
			money(exp.Monthly()),
			exp.Category,
			string(exp.Source),
		})
	}
	return renderTable([]string{"ID", "Name", "Amount", "Period", "Monthly", "Category", "Source"}, rows)
}

// RenderOutcome describes a finished voice extraction.
func RenderOutcome(out extraction.Outcome) string {
	var sb strings.Builder

	switch {
	case out.Discarded:
		sb.WriteString(FormatWarning("Extraction canceled; nothing was recorded."))
		return sb.String()
	case out.FellBack() && !extraction.IsOffline(out.Reason):
		sb.WriteString(FormatWarning("Could not read the AI response; used offline extraction"))
		if out.Reason != nil {
			sb.WriteString(SubtleStyle.Render(fmt.Sprintf(" (%v)", out.Reason)))
		}
	case out.FellBack():
		sb.WriteString(FormatWarning("Used offline extraction"))
		if out.Reason != nil {
			sb.WriteString(SubtleStyle.Render(fmt.Sprintf(" (%v)", out.Reason)))
		}
	default:
		sb.WriteString(FormatSuccess(RobotIcon + " Structured extraction succeeded"))
	}
	sb.WriteString("\n")

	if out.Transcript != "" {
		sb.WriteString(SubtleStyle.Render(fmt.Sprintf("Heard: %q", out.Transcript)))
		sb.WriteString("\n")
	}
	if out.Result.Message != "" {
		sb.WriteString(FormatInfo(out.Result.Message))
		sb.WriteString("\n")
	}

	for _, inc := range out.Report.Incomes {
		sb.WriteString(fmt.Sprintf("  + income   %-24s %10s %s\n", inc.Name, money(inc.Amount), inc.Period))
	}
	for _, exp := range out.Report.Expenses {
		sb.WriteString(fmt.Sprintf("  - expense  %-24s %10s %s (%s)\n", exp.Name, money(exp.Amount), exp.Period, exp.Category))
	}
	if out.Report.Dropped > 0 {
		sb.WriteString(FormatWarning(fmt.Sprintf("Skipped %d entr(ies) with invalid amounts", out.Report.Dropped)))
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

func money(d decimal.Decimal) string {
	return model.FormatAmount(model.RoundForDisplay(d))
}

func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	renderRow := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = TableCellStyle.Width(widths[i] + 2).Render(cell)
		}
		return style.Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, renderRow(headers, TableHeaderStyle))
	for _, row := range rows {
		lines = append(lines, renderRow(row, lipgloss.NewStyle()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
