package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/raphaelgruber/supportdesk/internal/models"
	"github.com/spf13/cobra"
)

var activityLimit int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard counters",
	Long: `Show ticket and document counts with their week-over-week trend.

Examples:
  supportdesk stats`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show recent admin activity",
	Long: `Show the most recent ticket and document events, newest first.

Examples:
  supportdesk activity
  supportdesk activity --limit 25`,
	Args: cobra.NoArgs,
	RunE: runActivity,
}

func init() {
	activityCmd.Flags().IntVarP(&activityLimit, "limit", "n", 10, "number of entries (1-50)")
}

func runStats(cmd *cobra.Command, args []string) error {
	stats, err := apiClient.TicketStats(context.Background())
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	theme := currentTheme()
	var trends models.Trends
	if stats.Trends != nil {
		trends = *stats.Trends
	}

	rows := []struct {
		label string
		value int
		trend models.Trend
	}{
		{"Total tickets", stats.Total, trends.Total},
		{"Open tickets", stats.Open, trends.Open},
		{"Resolved tickets", stats.Resolved, trends.Resolved},
		{"Documents", stats.Documents, trends.Documents},
	}

	for _, r := range rows {
		line := fmt.Sprintf("  %-18s %6d", r.label, r.value)
		if stats.Trends == nil {
			fmt.Println(line)
			continue
		}
		fmt.Printf("%s  %s\n", line, renderTrend(r.trend, theme))
	}
	return nil
}

func renderTrend(t models.Trend, theme Theme) string {
	if t.IsPositive {
		return theme.completedStyle().Render(fmt.Sprintf("↑ %.1f%%", t.Value))
	}
	return theme.errorStyle().Render(fmt.Sprintf("↓ %.1f%%", t.Value))
}

func runActivity(cmd *cobra.Command, args []string) error {
	if activityLimit < 1 || activityLimit > 50 {
		return fmt.Errorf("--limit must be between 1 and 50, got %d", activityLimit)
	}

	items, err := apiClient.Activity(context.Background(), activityLimit)
	if err != nil {
		return fmt.Errorf("get activity: %w", err)
	}

	theme := currentTheme()
	if len(items) == 0 {
		fmt.Println(theme.hintStyle().Render("No recent activity."))
		return nil
	}

	for _, a := range items {
		action := a.Action
		switch a.Type {
		case models.ActivitySuccess:
			action = theme.completedStyle().Render(action)
		case models.ActivityInfo:
			action = theme.statusStyle().Render(action)
		}
		fmt.Printf("%-16s %s\n", theme.hintStyle().Render(humanize.Time(a.Timestamp)), action)
	}
	return nil
}
