package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-ops/internal/cli"
	"github.com/Veraticus/spice-ops/internal/common"
	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/Veraticus/spice-ops/internal/service"
	"github.com/spf13/cobra"
)

// loggableTypes are the occurrences a person can report by hand. The rest
// are raised by the monitor.
var loggableTypes = map[string]model.OccurrenceType{
	string(model.OccurrenceNews):      model.OccurrenceNews,
	string(model.OccurrenceMilestone): model.OccurrenceMilestone,
	string(model.OccurrenceAIInsight): model.OccurrenceAIInsight,
}

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "events",
		Aliases: []string{"event"},
		Short:   "List and log business events",
	}

	cmd.AddCommand(eventsListCmd())
	cmd.AddCommand(eventsLogCmd())

	return cmd
}

func eventsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent business events, newest first",
		Example: `  spiceops events list --tier high
  spiceops events list --since 2024-01-01 --limit 100`,
		RunE: runEventsList,
	}

	cmd.Flags().String("since", "", "Only events on or after YYYY-MM-DD")
	cmd.Flags().String("tier", "", "Minimum tier: low, medium, high or critical")
	cmd.Flags().Int("limit", 50, "Maximum events to show (0 for all)")

	return cmd
}

func runEventsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	sinceStr, _ := cmd.Flags().GetString("since")
	tierStr, _ := cmd.Flags().GetString("tier")
	limit, _ := cmd.Flags().GetInt("limit")

	since, err := parseOptionalDate(sinceStr)
	if err != nil {
		return err
	}
	tier := model.Tier(strings.ToLower(tierStr))
	if tier != "" && tier.Rank() == 0 {
		return common.NewUserError(fmt.Sprintf("invalid tier %q", tierStr), nil)
	}
	if limit < 0 {
		return common.NewUserError("limit must not be negative", nil)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	events, err := a.store.ListEvents(ctx, service.EventFilter{
		UserID:  currentUser(),
		Since:   since,
		MinTier: tier,
		Limit:   limit,
	})
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	if len(events) == 0 {
		_, err := fmt.Fprintln(out, cli.InfoStyle.Render("No events found."))
		return err
	}

	return cli.WriteEventTable(out, events, a.currency(ctx))
}

func eventsLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record a news item, milestone or insight",
		Long: `Record something that happened outside the ledger. The event is classified
like any other; passing --key makes logging the same item twice a no-op.`,
		Example: `  spiceops events log --type milestone --title "First enterprise customer" --amount 50000
  spiceops events log --type ai_insight --priority high --title "Renewal risk on Acme"`,
		RunE: runEventsLog,
	}

	cmd.Flags().String("type", string(model.OccurrenceNews), "news, milestone or ai_insight")
	cmd.Flags().String("title", "", "Event title (required)")
	cmd.Flags().String("amount", "", "Monetary value, if any")
	cmd.Flags().String("priority", "", "Priority for ai_insight: low, medium, high or urgent")
	cmd.Flags().String("key", "", "De-duplication key")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func runEventsLog(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	typeStr, _ := cmd.Flags().GetString("type")
	title, _ := cmd.Flags().GetString("title")
	amountStr, _ := cmd.Flags().GetString("amount")
	priority, _ := cmd.Flags().GetString("priority")
	key, _ := cmd.Flags().GetString("key")

	occType, ok := loggableTypes[typeStr]
	if !ok {
		return common.NewUserError(fmt.Sprintf("invalid event type %q: use news, milestone or ai_insight", typeStr), nil)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return common.NewUserError("title must not be empty", nil)
	}

	occ := model.BusinessOccurrence{
		Type:       occType,
		Priority:   model.InsightPriority(strings.ToLower(priority)),
		PriorState: map[string]any{"logged_at": time.Now().UTC().Format(time.RFC3339)},
	}
	if amountStr != "" {
		amount, err := parseAmount(amountStr)
		if err != nil {
			return err
		}
		occ.MonetaryValue = model.Decimal(amount)
	}
	if err := occ.Validate(); err != nil {
		return common.NewUserError("invalid event", err)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	event, err := a.monitor.LogEvent(ctx, currentUser(), occ, title, key)
	if err != nil {
		return fmt.Errorf("failed to log event: %w", err)
	}

	out := cmd.OutOrStdout()
	if event == nil {
		_, err = fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Already logged %q, skipping", key)))
		return err
	}
	_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Logged %s event [%s]: %s", event.Type, event.Tier, event.Title)))
	return err
}
