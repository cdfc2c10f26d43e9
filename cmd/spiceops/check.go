package main

import (
	"errors"
	"fmt"

	"github.com/Veraticus/spice-ops/internal/cli"
	"github.com/Veraticus/spice-ops/internal/common"
	"github.com/Veraticus/spice-ops/internal/monitor"
	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the contract and runway checks once",
		Long: `Run the same checks the daemon runs on a schedule: remind about contracts
nearing their end date, complete expired contracts, and raise runway alerts
when runway crosses the threshold. Alerts already raised are not repeated.`,
		RunE: runCheck,
	}

	cmd.Flags().Bool("all", false, "Check every user with obligations, not just --user")

	return cmd
}

func runCheck(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	all, _ := cmd.Flags().GetBool("all")

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	users := []int64{currentUser()}
	if all {
		if users, err = a.store.GetUserIDs(ctx); err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
	}

	if len(users) == 0 {
		_, err := fmt.Fprintln(out, cli.InfoStyle.Render("No users with obligations to check."))
		return err
	}

	bar := cli.NewProgressBar(cmd.ErrOrStderr(), len(users), "Checking")

	var (
		total monitor.Result
		errs  []error
	)
	for _, userID := range users {
		result, err := a.monitor.CheckAll(ctx, userID)
		total.Raised += result.Raised
		total.Suppressed += result.Suppressed
		total.Transitions = append(total.Transitions, result.Transitions...)
		if err != nil {
			common.LogError(err, "Check failed", common.Fields{"user_id": userID})
			errs = append(errs, fmt.Errorf("%w for user %d: %w", common.ErrCheckFailed, userID, err))
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	for _, t := range total.Transitions {
		if _, err := fmt.Fprintf(out, "%s Contract #%d: %s → %s (%s)\n",
			cli.CalendarIcon, t.ObligationID, t.From, t.To, t.Reason); err != nil {
			return err
		}
	}

	summary := fmt.Sprintf("Checked %d user(s): %d alert(s) raised, %d suppressed", len(users), total.Raised, total.Suppressed)
	if total.Raised > 0 {
		summary = fmt.Sprintf("%s %s", cli.BellIcon, summary)
	}
	if _, err := fmt.Fprintln(out, cli.FormatSuccess(summary)); err != nil {
		return err
	}

	return errors.Join(errs...)
}
