package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/metronai/costmeter/pkg/model"
	"github.com/metronai/costmeter/pkg/tracker"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Aggregate cost reports",
}

var reportTotalCmd = &cobra.Command{
	Use:   "total",
	Short: "Total cost over matching records",
	RunE:  runReportTotal,
}

var reportTopUsersCmd = &cobra.Command{
	Use:   "top-users",
	Short: "Costliest users, descending by total cost",
	RunE:  runReportTopUsers,
}

var reportTopFeaturesCmd = &cobra.Command{
	Use:   "top-features",
	Short: "Costliest features, descending by total cost",
	RunE:  runReportTopFeatures,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportTotalCmd, reportTopUsersCmd, reportTopFeaturesCmd)

	reportCmd.PersistentFlags().String("org", "", "Filter by organization id")
	reportCmd.PersistentFlags().StringP("user", "u", "", "Filter by user id")
	reportCmd.PersistentFlags().StringP("feature", "f", "", "Filter by feature")
	reportCmd.PersistentFlags().StringP("provider", "p", "", "Filter by provider")
	reportCmd.PersistentFlags().StringP("model", "m", "", "Filter by model")
	reportCmd.PersistentFlags().String("since", "", "Only records at or after this RFC 3339 time")
	reportCmd.PersistentFlags().String("until", "", "Only records before this RFC 3339 time")

	reportTopUsersCmd.Flags().IntP("limit", "n", 10, "Maximum number of rows")
	reportTopFeaturesCmd.Flags().IntP("limit", "n", 10, "Maximum number of rows")
}

func filterFromFlags(cmd *cobra.Command) (model.QueryFilter, error) {
	var filter model.QueryFilter
	filter.OrgID, _ = cmd.Flags().GetString("org")
	filter.UserID, _ = cmd.Flags().GetString("user")
	filter.Feature, _ = cmd.Flags().GetString("feature")
	filter.Provider, _ = cmd.Flags().GetString("provider")
	filter.Model, _ = cmd.Flags().GetString("model")

	since, _ := cmd.Flags().GetString("since")
	if since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return filter, fmt.Errorf("parse --since: %w", err)
		}
		filter.Since = ts
	}
	until, _ := cmd.Flags().GetString("until")
	if until != "" {
		ts, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return filter, fmt.Errorf("parse --until: %w", err)
		}
		filter.Until = ts
	}
	return filter, nil
}

func runReportTotal(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}

	t, store, err := newTracker(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	total, err := t.TotalCost(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("total cost: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Total cost: $%s\n", total.StringFixed(6))
	return nil
}

// aggregateFunc selects which grouped query a top report runs.
type aggregateFunc func(t *tracker.Tracker, ctx context.Context, limit int, filter model.QueryFilter) ([]model.AggregateRow, error)

func runReportTopUsers(cmd *cobra.Command, _ []string) error {
	return runTopReport(cmd, "USER", (*tracker.Tracker).TopUsers)
}

func runReportTopFeatures(cmd *cobra.Command, _ []string) error {
	return runTopReport(cmd, "FEATURE", (*tracker.Tracker).TopFeatures)
}

func runTopReport(cmd *cobra.Command, heading string, top aggregateFunc) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	t, store, err := newTracker(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := top(t, cmd.Context(), limit, filter)
	if err != nil {
		return fmt.Errorf("top %s report: %w", heading, err)
	}

	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching records.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tTOTAL COST\tCALLS\n", heading)
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t$%s\t%d\n", row.Key, row.TotalUSD.StringFixed(6), row.CallCount)
	}
	return w.Flush()
}
