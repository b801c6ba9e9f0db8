package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"certporter/internal/config"
	"certporter/internal/core"
	"certporter/internal/parse"
	"certporter/internal/pfx"
	"certporter/internal/schema"
)

var (
	exportScope       string
	exportOut         string
	exportPassword    string
	exportPasswordEnv string
	exportMinDays     int
	exportSubject     string
	exportIssuer      string
	exportDryRun      bool
	exportProgress    bool
	exportBundle      bool
	exportEncryptAge  string
	exportAlgorithm   string
)

// exportCmd represents the export command.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export certificates from a store to PFX files",
	Long: `The export command enumerates a certificate store, applies the expiry,
subject, and issuer filters, and writes each matching certificate with its
private key to a password-protected PFX file. A CSV audit log records the
outcome of every certificate; one failing certificate never aborts the rest.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportScope, "scope", "user", "store scope: user or machine")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "destination folder for PFX files")
	exportCmd.Flags().StringVarP(&exportPassword, "password", "p", "", "container password (visible in process list; prefer --password-env)")
	exportCmd.Flags().StringVar(&exportPasswordEnv, "password-env", "", "environment variable holding the container password")
	exportCmd.Flags().IntVar(&exportMinDays, "min-days", 0, "export only certificates valid for at least this many more days")
	exportCmd.Flags().StringVar(&exportSubject, "subject", "", "case-insensitive substring the subject must contain")
	exportCmd.Flags().StringVar(&exportIssuer, "issuer", "", "case-insensitive substring the issuer must contain")
	exportCmd.Flags().BoolVar(&exportDryRun, "dry-run", false, "list what would be exported without writing anything")
	exportCmd.Flags().BoolVar(&exportProgress, "progress", false, "report per-certificate progress on stderr")
	exportCmd.Flags().BoolVar(&exportBundle, "bundle", false, "pack the destination folder into a tar.gz archive afterwards")
	exportCmd.Flags().StringVar(&exportEncryptAge, "encrypt-age", "", "age public key for archive encryption (must start with age1, implies --bundle)")
	exportCmd.Flags().StringVar(&exportAlgorithm, "algorithm", "", "PKCS#12 encryption scheme: legacy or modern (default legacy)")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	started := time.Now()
	logger := log.New(os.Stderr, "", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	scope, err := parse.Scope(exportScope)
	if err != nil {
		return err
	}

	destination := exportOut
	if destination == "" {
		destination = cfg.DefaultDestination
	}
	if destination == "" {
		return fmt.Errorf("no destination folder: set --out or defaultDestination in the config file")
	}

	minDays := exportMinDays
	if !cmd.Flags().Changed("min-days") && cfg.DefaultMinDays != 0 {
		minDays = cfg.DefaultMinDays
	}
	if err := parse.MinDays(minDays); err != nil {
		return err
	}

	algorithmFlag := exportAlgorithm
	if algorithmFlag == "" {
		algorithmFlag = cfg.DefaultAlgorithm
	}
	algorithm, err := parse.Algorithm(algorithmFlag)
	if err != nil {
		return err
	}

	if exportEncryptAge != "" {
		if err := core.ValidateAgeRecipient(exportEncryptAge); err != nil {
			return fmt.Errorf("invalid --encrypt-age: %w", err)
		}
		exportBundle = true
	}

	var password *pfx.Secret
	if !exportDryRun {
		password, err = acquirePassword(exportPassword, exportPasswordEnv, "Container password: ")
		if err != nil {
			return err
		}
		defer password.Zero()
		warnIfWeak(password)
	}

	exporter := &core.Exporter{
		Codec:  pfx.Codec{Algorithm: algorithm},
		Logger: logger,
	}
	opts := core.ExportOptions{
		Scope:       scope,
		Destination: destination,
		Password:    password,
		Filter: core.FilterSpec{
			MinDaysRemaining: minDays,
			Subject:          exportSubject,
			Issuer:           exportIssuer,
		},
		DryRun:       exportDryRun,
		Bundle:       exportBundle,
		AgeRecipient: exportEncryptAge,
	}
	if exportProgress {
		opts.Progress = stderrProgress("Exported")
	}

	summary, err := exporter.Export(ctx, opts)
	if err != nil {
		return err
	}

	output := schema.NewExportRunOutput(scope.String(), destination, exportDryRun, opts.Filter, summary, started, time.Since(started))
	jsonBytes, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output JSON: %w", err)
	}
	fmt.Println(string(jsonBytes))

	// Per-item failures are carried in the summary, not the exit code.
	return nil
}

// stderrProgress returns a ProgressFunc printing percentages to stderr.
func stderrProgress(verb string) core.ProgressFunc {
	return func(done, total int) {
		fmt.Fprintf(os.Stderr, "%s %d/%d (%d%%)\n", verb, done, total, done*100/total)
	}
}
