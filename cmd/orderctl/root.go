package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	outputFmt string
	adminUser string
)

var rootCmd = &cobra.Command{
	Use:   "orderctl",
	Short: "Admin CLI for the order server",
	Long: `orderctl performs administrative operations against a running order
server: health checks, batch archival of expired orders, audit retention
purges, and expiration warning listings.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Order server URL")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table or json")
	rootCmd.PersistentFlags().StringVar(&adminUser, "as", "", "Acting user for header auth (default: from ORDERCTL_USER env)")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(archiveExpiredCmd)
	rootCmd.AddCommand(purgeHistoryCmd)
	rootCmd.AddCommand(warningsCmd)
}

// resolvedUser returns the acting user for header-auth requests.
// Priority: --as flag > ORDERCTL_USER env var > "admin".
func resolvedUser() string {
	if adminUser != "" {
		return adminUser
	}
	if u := os.Getenv("ORDERCTL_USER"); u != "" {
		return u
	}
	return "admin"
}
