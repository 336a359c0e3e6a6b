package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Veraticus/the-budget-must-balance/internal/cli"
	"github.com/Veraticus/the-budget-must-balance/internal/model"
)

func incomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "income",
		Short: "Manage income sources",
		Long: `Add, list, update and delete income sources.

Incomes recur monthly or yearly. Yearly amounts count as one twelfth per month.`,
	}

	cmd.AddCommand(incomeAddCmd())
	cmd.AddCommand(incomeListCmd())
	cmd.AddCommand(incomeUpdateCmd())
	cmd.AddCommand(incomeDeleteCmd())

	return cmd
}

func expenseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expense",
		Short: "Manage expenses",
		Long: `Add, list, update and delete expenses.

Expenses recur monthly, yearly, or are static fixed obligations. Yearly
amounts count as one twelfth per month.`,
	}

	cmd.AddCommand(expenseAddCmd())
	cmd.AddCommand(expenseListCmd())
	cmd.AddCommand(expenseUpdateCmd())
	cmd.AddCommand(expenseDeleteCmd())

	return cmd
}

func addRecordFlags(cmd *cobra.Command, defaultPeriod model.Period) {
	cmd.Flags().StringP("name", "n", "", "name of the entry (required)")
	cmd.Flags().StringP("amount", "a", "", "amount, e.g. 1200 or $1,200.50 (required)")
	cmd.Flags().StringP("period", "p", string(defaultPeriod), "recurrence period")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("amount")
}

func updateRecordFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("name", "n", "", "new name")
	cmd.Flags().StringP("amount", "a", "", "new amount")
	cmd.Flags().StringP("period", "p", "", "new recurrence period")
}

// recordFields holds the flag values shared by incomes and expenses.
// Nil pointers mean the flag was not given.
type recordFields struct {
	name     *string
	amount   *decimal.Decimal
	period   *model.Period
	category *string
}

func parseRecordFlags(flags *pflag.FlagSet) (recordFields, error) {
	var fields recordFields

	if flags.Changed("name") {
		name, _ := flags.GetString("name")
		fields.name = &name
	}
	if flags.Changed("amount") {
		raw, _ := flags.GetString("amount")
		amount, err := model.ParseAmount(raw)
		if err != nil {
			return recordFields{}, err
		}
		fields.amount = &amount
	}
	if flags.Changed("period") || flags.Lookup("period").DefValue != "" {
		raw, _ := flags.GetString("period")
		period, err := model.ParsePeriod(raw)
		if err != nil {
			return recordFields{}, err
		}
		fields.period = &period
	}
	if f := flags.Lookup("category"); f != nil && (f.Changed || f.DefValue != "") {
		category, _ := flags.GetString("category")
		fields.category = &category
	}

	return fields, nil
}

func incomeAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an income source",
		Example: `  budget income add --name Salary --amount 5000
  budget income add -n Bonus -a 6000 -p yearly`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fields, err := parseRecordFlags(cmd.Flags())
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			income, err := a.ledger.AddIncome(model.DraftIncome{
				Name:   *fields.name,
				Amount: *fields.amount,
				Period: *fields.period,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added income %q (%s) with id %s",
				income.Name, model.FormatAmount(income.Amount), income.ID)))
			return nil
		},
	}
	addRecordFlags(cmd, model.PeriodMonthly)
	return cmd
}

func expenseAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an expense",
		Example: `  budget expense add --name Rent --amount 1500 --period static --category housing
  budget expense add -n Insurance -a 1200 -p yearly`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fields, err := parseRecordFlags(cmd.Flags())
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			draft := model.DraftExpense{
				Name:   *fields.name,
				Amount: *fields.amount,
				Period: *fields.period,
			}
			if fields.category != nil {
				draft.Category = model.NormalizeCategory(*fields.category)
			}

			expense, err := a.ledger.AddExpense(draft)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added expense %q (%s) with id %s",
				expense.Name, model.FormatAmount(expense.Amount), expense.ID)))
			return nil
		},
	}
	addRecordFlags(cmd, model.PeriodMonthly)
	cmd.Flags().StringP("category", "c", "", "expense category")
	return cmd
}

func incomeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List income sources",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderIncomes(a.ledger.Incomes()))
			return nil
		},
	}
}

func expenseListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List expenses",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderExpenses(a.ledger.Expenses()))
			return nil
		},
	}
}

func incomeUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an income source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseRecordFlags(cmd.Flags())
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			found, err := a.ledger.UpdateIncome(args[0], model.IncomePatch{
				Name:   fields.name,
				Amount: fields.amount,
				Period: fields.period,
			})
			if err != nil {
				return err
			}
			reportChange(cmd, found, "Updated", "income", args[0])
			return nil
		},
	}
	updateRecordFlags(cmd)
	return cmd
}

func expenseUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseRecordFlags(cmd.Flags())
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			patch := model.ExpensePatch{
				Name:   fields.name,
				Amount: fields.amount,
				Period: fields.period,
			}
			if fields.category != nil {
				category := model.NormalizeCategory(*fields.category)
				patch.Category = &category
			}

			found, err := a.ledger.UpdateExpense(args[0], patch)
			if err != nil {
				return err
			}
			reportChange(cmd, found, "Updated", "expense", args[0])
			return nil
		},
	}
	updateRecordFlags(cmd)
	cmd.Flags().StringP("category", "c", "", "new category")
	return cmd
}

func incomeDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an income source",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			reportChange(cmd, a.ledger.DeleteIncome(args[0]), "Deleted", "income", args[0])
			return nil
		},
	}
}

func expenseDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an expense",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			reportChange(cmd, a.ledger.DeleteExpense(args[0]), "Deleted", "expense", args[0])
			return nil
		},
	}
}

// reportChange prints the result of an update or delete. An unknown id is
// not an error.
func reportChange(cmd *cobra.Command, found bool, verb, kind, id string) {
	if !found {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(fmt.Sprintf("No %s with id %s; nothing changed", kind, id)))
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s %s %s", verb, kind, id)))
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show monthly income, expenses and what is available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderSummary(a.ledger.Summary()))
			return nil
		},
	}
}
