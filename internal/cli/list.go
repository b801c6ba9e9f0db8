package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"certporter/internal/core"
	"certporter/internal/parse"
	"certporter/internal/store"
)

var (
	listScope   string
	listMinDays int
	listSubject string
	listIssuer  string
	listJSON    bool
)

// listCmd represents the list command.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List certificates in a store",
	Long: `The list command enumerates a certificate store and prints the matching
certificates without writing anything. The same filters as export apply, so
it doubles as a preview of what an export with those filters would touch.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listScope, "scope", "user", "store scope: user or machine")
	listCmd.Flags().IntVar(&listMinDays, "min-days", 0, "show only certificates valid for at least this many more days")
	listCmd.Flags().StringVar(&listSubject, "subject", "", "case-insensitive substring the subject must contain")
	listCmd.Flags().StringVar(&listIssuer, "issuer", "", "case-insensitive substring the issuer must contain")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print records as JSON")
}

func runList(cmd *cobra.Command, args []string) error {
	now := time.Now()

	scope, err := parse.Scope(listScope)
	if err != nil {
		return err
	}
	if err := parse.MinDays(listMinDays); err != nil {
		return err
	}

	s, err := store.DefaultProvider().Open(scope)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", scope, err)
	}
	defer s.Close()

	idents, err := s.Identities()
	if err != nil {
		return fmt.Errorf("failed to enumerate %s store: %w", scope, err)
	}
	records := make([]store.Record, len(idents))
	for i, id := range idents {
		records[i] = id.Record()
		id.Close()
	}

	filtered := core.ApplyFilter(records, core.FilterSpec{
		MinDaysRemaining: listMinDays,
		Subject:          listSubject,
		Issuer:           listIssuer,
	}, now)

	if listJSON {
		jsonBytes, err := json.MarshalIndent(filtered, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal records: %w", err)
		}
		fmt.Println(string(jsonBytes))
		return nil
	}

	if len(filtered) == 0 {
		fmt.Println("No certificates matched.")
		return nil
	}
	for _, rec := range filtered {
		key := " "
		if rec.HasPrivateKey {
			key = "K"
		}
		fmt.Printf("%s  %s  %5dd  %s\n", rec.Thumbprint, key, rec.DaysRemaining(now), rec.Subject)
	}
	fmt.Printf("%d certificate(s)\n", len(filtered))
	return nil
}
