package main

import (
	"fmt"

	"github.com/Veraticus/spice-ops/internal/cli"
	"github.com/Veraticus/spice-ops/internal/common"
	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/spf13/cobra"
)

func expensesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expenses",
		Aliases: []string{"expense"},
		Short:   "Manage recurring and one-time expenses",
		Long: `Add, list, update and delete the expenses that make up your burn rate.

Changes are recorded as business events; a change big enough to matter is
flagged at a higher significance tier.`,
	}

	cmd.AddCommand(expensesAddCmd())
	cmd.AddCommand(expensesListCmd())
	cmd.AddCommand(expensesUpdateCmd())
	cmd.AddCommand(expensesDeleteCmd())

	return cmd
}

func expensesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add an expense",
		Example: `  spiceops expenses add --name "Office rent" --amount 3500 --frequency monthly`,
		RunE:    runExpensesAdd,
	}

	cmd.Flags().String("name", "", "Expense name (required)")
	cmd.Flags().String("amount", "", "Amount per period (required)")
	cmd.Flags().String("frequency", string(model.FrequencyMonthly), "one_time, monthly, quarterly or annual")
	cmd.Flags().String("start", "", "Start date YYYY-MM-DD (default: today)")
	cmd.Flags().String("end", "", "End date YYYY-MM-DD (default: open-ended)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runExpensesAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	name, _ := cmd.Flags().GetString("name")
	amountStr, _ := cmd.Flags().GetString("amount")
	freqStr, _ := cmd.Flags().GetString("frequency")
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")

	amount, err := parseAmount(amountStr)
	if err != nil {
		return err
	}
	freq, err := model.ParseFrequency(freqStr)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("invalid frequency %q", freqStr), err)
	}
	start := today()
	if startStr != "" {
		if start, err = parseDate(startStr); err != nil {
			return err
		}
	}
	end, err := parseOptionalDate(endStr)
	if err != nil {
		return err
	}

	expense, err := model.NewExpense(currentUser(), name, amount, freq, start, end)
	if err != nil {
		return common.NewUserError("invalid expense", err)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.CreateObligation(ctx, expense); err != nil {
		return fmt.Errorf("failed to save expense: %w", err)
	}
	if _, err := a.monitor.RecordExpenseChange(ctx, nil, expense); err != nil {
		return fmt.Errorf("failed to record expense event: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added expense #%d %s (%s %s)",
		expense.ID, expense.Name, model.FormatMoney(expense.Amount, a.currency(ctx)), expense.Frequency)))
	return err
}

func expensesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, _ := cmd.Flags().GetBool("all")
			return listObligations(cmd, model.KindExpense, all)
		},
	}

	cmd.Flags().Bool("all", false, "Include inactive expenses")

	return cmd
}

func expensesUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an expense",
		Long: `Update an expense's amount, frequency, end date or active flag. Only the
flags you pass are changed.`,
		Example: `  spiceops expenses update 3 --amount 4200
  spiceops expenses update 5 --active=false`,
		Args: cobra.ExactArgs(1),
		RunE: runExpensesUpdate,
	}

	cmd.Flags().String("name", "", "New name")
	cmd.Flags().String("amount", "", "New amount per period")
	cmd.Flags().String("frequency", "", "New frequency")
	cmd.Flags().String("end", "", "New end date YYYY-MM-DD")
	cmd.Flags().Bool("open", false, "Clear the end date")
	cmd.Flags().Bool("active", true, "Whether the expense counts toward burn")
	cmd.MarkFlagsMutuallyExclusive("end", "open")

	return cmd
}

func runExpensesUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	before, err := loadObligation(ctx, a.store, id, model.KindExpense)
	if err != nil {
		return err
	}

	after := *before
	if flags.Changed("name") {
		after.Name, _ = flags.GetString("name")
	}
	if flags.Changed("amount") {
		s, _ := flags.GetString("amount")
		if after.Amount, err = parseAmount(s); err != nil {
			return err
		}
	}
	if flags.Changed("frequency") {
		s, _ := flags.GetString("frequency")
		if after.Frequency, err = model.ParseFrequency(s); err != nil {
			return common.NewUserError(fmt.Sprintf("invalid frequency %q", s), err)
		}
	}
	if flags.Changed("end") {
		s, _ := flags.GetString("end")
		if after.EndDate, err = parseOptionalDate(s); err != nil {
			return err
		}
	}
	if open, _ := flags.GetBool("open"); open {
		after.EndDate = nil
	}
	if flags.Changed("active") {
		after.Active, _ = flags.GetBool("active")
	}

	if err := after.Validate(); err != nil {
		return common.NewUserError("invalid expense", err)
	}

	if err := a.store.UpdateObligation(ctx, &after); err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if _, err := a.monitor.RecordExpenseChange(ctx, before, &after); err != nil {
		return fmt.Errorf("failed to record expense event: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated expense #%d %s", id, after.Name)))
	return err
}

func expensesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE:  runExpensesDelete,
	}
}

func runExpensesDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	before, err := loadObligation(ctx, a.store, id, model.KindExpense)
	if err != nil {
		return err
	}

	if err := a.store.DeleteObligation(ctx, id); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if _, err := a.monitor.RecordExpenseChange(ctx, before, nil); err != nil {
		return fmt.Errorf("failed to record expense event: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted expense #%d %s", id, before.Name)))
	return err
}
