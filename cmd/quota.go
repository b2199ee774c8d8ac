package cmd

import (
	"time"

	"github.com/naka-gawa/pr-tracker/internal/domain"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Shows the remaining GitHub API quota",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		for _, res := range []domain.QuotaResource{domain.QuotaResourceCore, domain.QuotaResourceGraphQL} {
			printQuota(a.gateway.CheckQuota(cmd.Context(), res))
		}
		return nil
	},
}

func printQuota(q domain.QuotaStatus) {
	const format = "%-8s %5d/%-5d remaining (%.1f%%), resets at %s\n"
	args := []any{q.Resource, q.Remaining, q.Limit, q.PercentRemaining(), q.ResetAt.Local().Format(time.Kitchen)}
	switch q.Severity() {
	case domain.QuotaSeverityCritical:
		pterm.Error.Printf(format, args...)
	case domain.QuotaSeverityWarning:
		pterm.Warning.Printf(format, args...)
	default:
		pterm.Success.Printf(format, args...)
	}
}

func init() {
	rootCmd.AddCommand(quotaCmd)
}
