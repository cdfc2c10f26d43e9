package main

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/spice-ops/internal/cli"
	"github.com/Veraticus/spice-ops/internal/common"
	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/Veraticus/spice-ops/internal/settings"
	"github.com/spf13/cobra"
)

// integerSettings must parse as positive integers.
var integerSettings = map[string]bool{
	settings.KeyProjectionMonths:     true,
	settings.KeyRunwayThreshold:      true,
	settings.KeyContractReminderDays: true,
}

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change runtime settings",
		Long: `Settings are stored in the database and take effect without a restart.
Values in the config file act as defaults until a setting is stored.

Known settings:
  cashflow.currency                 ISO currency code for display
  cashflow.projection_months        months shown by 'cashflow project'
  alerts.runway_threshold_months    runway alert threshold
  alerts.contract_reminder_days     widest contract end reminder window`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [key]",
		Short: "Show one setting, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSettingsGet,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a setting",
		Args:  cobra.ExactArgs(2),
		RunE:  runSettingsSet,
	})

	return cmd
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		value, err := a.settings.Get(ctx, args[0])
		if err != nil {
			return common.NewUserError(fmt.Sprintf("unknown setting %q", args[0]), err)
		}
		_, err = fmt.Fprintln(out, value)
		return err
	}

	keys := a.settings.Keys()
	sort.Strings(keys)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, key := range keys {
		value, err := a.settings.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to read setting %s: %w", key, err)
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", key, value); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	key, value := args[0], strings.TrimSpace(args[1])

	if err := validateSetting(key, value); err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.settings.Set(ctx, key, value); err != nil {
		return common.NewUserError(fmt.Sprintf("could not store %s", key), err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s = %s", key, value)))
	return err
}

// validateSetting rejects values the monitor or formatter would choke on.
func validateSetting(key, value string) error {
	if integerSettings[key] {
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return common.NewUserError(fmt.Sprintf("%s must be a positive integer, got %q", key, value), err)
		}
	}
	if key == settings.KeyCurrency {
		if len(value) != 3 {
			return common.NewUserError(fmt.Sprintf("%s must be a three-letter currency code, got %q", key, value), nil)
		}
		if _, known := model.CurrencySymbol(strings.ToUpper(value)); !known {
			slog.Warn("Currency has no known symbol and will be shown as a suffix", "currency", strings.ToUpper(value))
		}
	}
	return nil
}
