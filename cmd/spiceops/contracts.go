package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Veraticus/spice-ops/internal/cli"
	"github.com/Veraticus/spice-ops/internal/common"
	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/Veraticus/spice-ops/internal/service"
	"github.com/spf13/cobra"
)

func contractsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contracts",
		Aliases: []string{"contract"},
		Short:   "Manage income contracts",
		Long: `Add, list and update the contracts that bring money in.

Confirmed contracts count toward income and runway. Pipeline contracts are
tracked separately and never extend runway.`,
	}

	cmd.AddCommand(contractsAddCmd())
	cmd.AddCommand(contractsListCmd())
	cmd.AddCommand(contractsStatusCmd())
	cmd.AddCommand(contractsRenewCmd())

	return cmd
}

func contractsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a contract",
		Example: `  spiceops contracts add --name "Acme retainer" --amount 8000 --frequency monthly
  spiceops contracts add --name "Globex audit" --amount 24000 --frequency one_time --status pipeline --probability 40`,
		RunE: runContractsAdd,
	}

	cmd.Flags().String("name", "", "Contract name (required)")
	cmd.Flags().String("amount", "", "Amount per period (required)")
	cmd.Flags().String("frequency", string(model.FrequencyMonthly), "one_time, monthly, quarterly or annual")
	cmd.Flags().String("status", string(model.StatusConfirmed), "confirmed, pipeline, completed or cancelled")
	cmd.Flags().String("start", "", "Start date YYYY-MM-DD (default: today)")
	cmd.Flags().String("end", "", "End date YYYY-MM-DD (default: open-ended)")
	cmd.Flags().Int("probability", model.DefaultProbability, "Win probability for pipeline contracts (0-100)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runContractsAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	name, _ := cmd.Flags().GetString("name")
	amountStr, _ := cmd.Flags().GetString("amount")
	freqStr, _ := cmd.Flags().GetString("frequency")
	statusStr, _ := cmd.Flags().GetString("status")
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	probability, _ := cmd.Flags().GetInt("probability")

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

	contract, err := model.NewContract(currentUser(), name, amount, freq, model.ContractStatus(statusStr), start, end)
	if err != nil {
		return common.NewUserError("invalid contract", err)
	}
	contract.Probability = probability
	if err := contract.Validate(); err != nil {
		return common.NewUserError("invalid contract", err)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.CreateObligation(ctx, contract); err != nil {
		return fmt.Errorf("failed to save contract: %w", err)
	}
	if _, err := a.monitor.RecordContractChange(ctx, nil, contract); err != nil {
		return fmt.Errorf("failed to record contract event: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added contract #%d %s (%s %s)",
		contract.ID, contract.Name, model.FormatMoney(contract.Amount, a.currency(ctx)), contract.Frequency)))
	return err
}

func contractsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contracts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, _ := cmd.Flags().GetBool("all")
			return listObligations(cmd, model.KindContract, all)
		},
	}

	cmd.Flags().Bool("all", false, "Include inactive contracts")

	return cmd
}

func contractsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change a contract's status",
		Long: `Move a contract through its lifecycle. Confirming a pipeline contract
records a contract_signed event.`,
		Args: cobra.ExactArgs(2),
		RunE: runContractsStatus,
	}
}

func runContractsStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	status := model.ContractStatus(args[1])

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	before, err := loadObligation(ctx, a.store, id, model.KindContract)
	if err != nil {
		return err
	}

	after := *before
	after.Status = status
	if err := after.Validate(); err != nil {
		return common.NewUserError(fmt.Sprintf("invalid status %q", args[1]), err)
	}

	if err := a.store.UpdateObligationStatus(ctx, id, status); err != nil {
		return fmt.Errorf("failed to update contract status: %w", err)
	}
	if _, err := a.monitor.RecordContractChange(ctx, before, &after); err != nil {
		return fmt.Errorf("failed to record contract event: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Contract #%d %s: %s → %s",
		id, before.Name, before.Status, status)))
	return err
}

func contractsRenewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "renew <id>",
		Short: "Extend a contract's end date",
		Long: `Move a contract's end date later, or clear it with --open. Renewing a
confirmed contract records a contract_renewed event.`,
		Args: cobra.ExactArgs(1),
		RunE: runContractsRenew,
	}

	cmd.Flags().String("end", "", "New end date YYYY-MM-DD")
	cmd.Flags().Bool("open", false, "Make the contract open-ended")
	cmd.MarkFlagsMutuallyExclusive("end", "open")
	cmd.MarkFlagsOneRequired("end", "open")

	return cmd
}

func runContractsRenew(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	endStr, _ := cmd.Flags().GetString("end")
	end, err := parseOptionalDate(endStr)
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	before, err := loadObligation(ctx, a.store, id, model.KindContract)
	if err != nil {
		return err
	}

	after := *before
	after.EndDate = end
	after.Active = true
	if err := after.Validate(); err != nil {
		return common.NewUserError("invalid end date", err)
	}

	if err := a.store.UpdateObligation(ctx, &after); err != nil {
		return fmt.Errorf("failed to update contract: %w", err)
	}
	if _, err := a.monitor.RecordContractChange(ctx, before, &after); err != nil {
		return fmt.Errorf("failed to record contract event: %w", err)
	}

	until := "open-ended"
	if end != nil {
		until = "until " + end.Format("Jan 2, 2006")
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Contract #%d %s renewed %s", id, before.Name, until)))
	return err
}

// listObligations prints the current user's obligations of one kind.
func listObligations(cmd *cobra.Command, kind model.ObligationKind, all bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	obligations, err := a.store.ListObligations(ctx, service.ObligationFilter{
		UserID:     currentUser(),
		Kind:       kind,
		ActiveOnly: !all,
	})
	if err != nil {
		return fmt.Errorf("failed to list %ss: %w", kind, err)
	}

	if len(obligations) == 0 {
		_, err := fmt.Fprintln(out, cli.InfoStyle.Render(fmt.Sprintf("No %ss found. Use 'spiceops %ss add' to create one.", kind, kind)))
		return err
	}

	return cli.WriteObligationTable(out, obligations, a.currency(ctx))
}

// loadObligation fetches id and checks it belongs to the current user and
// has the expected kind.
func loadObligation(ctx context.Context, store service.Storage, id int64, kind model.ObligationKind) (*model.Obligation, error) {
	o, err := store.GetObligation(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewUserError(fmt.Sprintf("%s #%d not found", kind, id), err)
		}
		return nil, fmt.Errorf("failed to get %s %d: %w", kind, id, err)
	}
	if o.Kind != kind || o.UserID != currentUser() {
		return nil, common.NewUserError(fmt.Sprintf("%s #%d not found", kind, id), common.ErrNotFound)
	}
	return o, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewUserError(fmt.Sprintf("invalid id %q", s), err)
	}
	return id, nil
}
