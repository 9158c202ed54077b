package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result map[string]any
		if err := client.getJSON("/healthz", &result); err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Printf("server %s: %v\n", serverURL, result["status"])
		return nil
	},
}

var archiveExpiredCmd = &cobra.Command{
	Use:   "archive-expired",
	Short: "Archive every currently-expired order",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result struct {
			Archived int `json:"archived"`
		}
		if err := client.postJSON("/api/v1/lifecycle/orders:archive-expired", struct{}{}, &result); err != nil {
			return fmt.Errorf("archive-expired failed: %w", err)
		}
		fmt.Printf("archived %d expired orders\n", result.Archived)
		return nil
	},
}

var purgeMonths int
var purgeActivityDays int

var purgeHistoryCmd = &cobra.Command{
	Use:   "purge-history",
	Short: "Purge order history and activity logs past the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]int{
			"months":       purgeMonths,
			"activityDays": purgeActivityDays,
		}
		var result struct {
			HistoryDeleted  int64 `json:"historyDeleted"`
			ActivityDeleted int64 `json:"activityDeleted"`
		}
		if err := client.postJSON("/api/v1/audit/history:purge", body, &result); err != nil {
			return fmt.Errorf("purge failed: %w", err)
		}
		fmt.Printf("deleted %d history entries, %d activity entries\n",
			result.HistoryDeleted, result.ActivityDeleted)
		return nil
	},
}

var warningsCmd = &cobra.Command{
	Use:   "warnings",
	Short: "List orders approaching expiration",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result struct {
			Warnings []struct {
				OrderID        string `json:"orderId"`
				Number         string `json:"number"`
				Title          string `json:"title"`
				ExpirationDate string `json:"expirationDate"`
				DaysRemaining  int    `json:"daysRemaining"`
			} `json:"warnings"`
		}
		if err := client.getJSON("/api/v1/lifecycle/orders:expiration-warnings", &result); err != nil {
			return fmt.Errorf("warnings failed: %w", err)
		}

		if outputFmt == "json" {
			return json.NewEncoder(os.Stdout).Encode(result.Warnings)
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NUMBER\tTITLE\tEXPIRES\tDAYS LEFT")
		for _, warning := range result.Warnings {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n",
				warning.Number, warning.Title, warning.ExpirationDate, warning.DaysRemaining)
		}
		return tw.Flush()
	},
}

func init() {
	purgeHistoryCmd.Flags().IntVar(&purgeMonths, "months", 0, "History retention in months (0 = server default)")
	purgeHistoryCmd.Flags().IntVar(&purgeActivityDays, "activity-days", 0, "Activity log retention in days (0 = server default)")
}
