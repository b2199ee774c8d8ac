package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/naka-gawa/pr-tracker/internal/domain"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var habitCmd = &cobra.Command{
	Use:   "habit",
	Short: "Builds a user's pull request habit tracker",
	Long: `Fetches every pull request the user created within the period and aggregates them
into a Sunday-first calendar grid with streaks and activity levels.
Periods: last-year (default), last-6-months, last-3-months.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		period, _ := cmd.Flags().GetString("period")
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}

		data, err := a.service.HabitTracker(cmd.Context(), user, period)
		if err != nil {
			return fmt.Errorf("failed to build habit tracker: %w", err)
		}

		if output == outputTable {
			return renderHabitSummary(data)
		}
		return writeOutput(os.Stdout, output, data)
	},
}

func renderHabitSummary(data *domain.HabitTrackerData) error {
	pterm.DefaultSection.Printf("%s: %s to %s", data.Username, data.StartDate, data.EndDate)
	return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"Metric", "Value"},
		{"Total PRs", strconv.Itoa(data.TotalPRs)},
		{"Active days", strconv.Itoa(data.ActiveDays)},
		{"Max PRs in a day", strconv.Itoa(data.MaxDailyPRs)},
		{"Average PRs per active day", fmt.Sprintf("%.2f", data.AverageDailyPRs)},
		{"Longest streak", strconv.Itoa(data.LongestStreak)},
		{"Current streak", strconv.Itoa(data.CurrentStreak)},
		{"Weeks", strconv.Itoa(len(data.Weeks))},
	}).Render()
}

func init() {
	rootCmd.AddCommand(habitCmd)
	habitCmd.Flags().StringP("user", "u", "", "Target GitHub user name (required)")
	habitCmd.Flags().StringP("period", "p", string(domain.DefaultHabitPeriod), "Period to aggregate")
	habitCmd.Flags().StringP("output", "o", outputJSON, "Output format: json, yaml or table")
	habitCmd.MarkFlagRequired("user")
}
