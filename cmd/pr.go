package cmd

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/naka-gawa/pr-tracker/internal/domain"
	"github.com/spf13/cobra"
)

var prCmd = &cobra.Command{
	Use:   "pr",
	Short: "Lists, searches and shows pull requests",
}

var prListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists a user's most recent pull requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		items, err := a.service.ListPullRequests(cmd.Context(), user, limit)
		if err != nil {
			return err
		}
		return writeOutput(os.Stdout, output, items)
	},
}

var prSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Searches a user's pull requests created within a period",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		period, _ := cmd.Flags().GetString("period")
		page, _ := cmd.Flags().GetInt("page")
		perPage, _ := cmd.Flags().GetInt("per-page")
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		result, err := a.service.SearchPullRequests(cmd.Context(), user, period, page, perPage)
		if err != nil {
			return err
		}
		return writeOutput(os.Stdout, output, result)
	},
}

var prRefPattern = regexp.MustCompile(`^([^/\s]+)/([^#\s]+)#(\d+)$`)

var prGetCmd = &cobra.Command{
	Use:   "get OWNER/REPO#NUMBER",
	Short: "Shows the detail of one pull request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		m := prRefPattern.FindStringSubmatch(args[0])
		if m == nil {
			return fmt.Errorf("invalid pull request reference %q, expected OWNER/REPO#NUMBER", args[0])
		}
		number, err := strconv.Atoi(m[3])
		if err != nil {
			return fmt.Errorf("invalid pull request number %q: %w", m[3], err)
		}

		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		detail, err := a.service.GetPullRequest(cmd.Context(), m[1], m[2], number)
		if err != nil {
			return err
		}
		return writeOutput(os.Stdout, output, detail)
	},
}

func init() {
	rootCmd.AddCommand(prCmd)
	prCmd.AddCommand(prListCmd, prSearchCmd, prGetCmd)
	prCmd.PersistentFlags().StringP("output", "o", outputJSON, "Output format: json or yaml")

	for _, c := range []*cobra.Command{prListCmd, prSearchCmd} {
		c.Flags().StringP("user", "u", "", "Target GitHub user name (required)")
		c.MarkFlagRequired("user")
	}
	prListCmd.Flags().IntP("limit", "l", 0, "Maximum number of pull requests (default 30, max 100)")
	prSearchCmd.Flags().StringP("period", "p", string(domain.DefaultHabitPeriod), "Creation period: last-year, last-6-months or last-3-months")
	prSearchCmd.Flags().Int("page", 1, "Page number")
	prSearchCmd.Flags().Int("per-page", 0, "Results per page (default 30, max 100)")
}
