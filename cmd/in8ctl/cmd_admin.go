package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"in8/internal/model"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show result counts per constitution",
	RunE:  runStats,
}

// usersCmd groups user maintenance commands
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Maintain survey-taker records",
}

var usersReconcileCmd = &cobra.Command{
	Use:   "reconcile <userId>",
	Short: "Rebuild a user's summary from stored results",
	Long: `Rebuild a user's survey count and latest constitution from the stored
result history. Use it after a summary update failed behind a committed result.`,
	Args: cobra.ExactArgs(1),
	RunE: runUsersReconcile,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	stats, err := deps.Stats.Statistics(ctx)
	if err != nil {
		return err
	}
	return renderStats(cmd.OutOrStdout(), stats)
}

func renderStats(w io.Writer, stats *model.SurveyStatistics) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "CONSTITUTION\tCOUNT\n")
	for _, c := range stats.ConstitutionCounts {
		fmt.Fprintf(tw, "%s\t%d\n", c.Constitution, c.Count)
	}
	fmt.Fprintf(tw, "total\t%d\n", stats.TotalCount)
	if stats.MostCommon != nil {
		fmt.Fprintf(tw, "most common\t%s\n", stats.MostCommon.Constitution)
	}
	return tw.Flush()
}

func runUsersReconcile(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	summary, err := deps.Results.ReconcileSummary(ctx, args[0])
	if err != nil {
		return err
	}
	if summary == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: no summary\n", args[0])
		return nil
	}
	last := "-"
	if summary.LastConstitution != "" {
		last = string(summary.LastConstitution)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d surveys, last %s\n", summary.UserID, summary.SurveyCount, last)
	return nil
}
