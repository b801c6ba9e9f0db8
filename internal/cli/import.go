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
	importScope        string
	importIn           string
	importPassword     string
	importPasswordEnv  string
	importSkipExisting bool
	importMode         string
	importDryRun       bool
	importProgress     bool
	importExportable   bool
)

// importCmd represents the import command.
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import PFX files into a certificate store",
	Long: `The import command reads every PFX file in a folder, validates it against
the supplied password, skips certificates the target store already holds
(by thumbprint), and writes the rest into the store. A CSV audit log in the
source folder records the outcome of every file.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importScope, "scope", "user", "store scope: user or machine")
	importCmd.Flags().StringVar(&importIn, "in", "", "source folder holding PFX files")
	importCmd.Flags().StringVarP(&importPassword, "password", "p", "", "container password (visible in process list; prefer --password-env)")
	importCmd.Flags().StringVar(&importPasswordEnv, "password-env", "", "environment variable holding the container password")
	importCmd.Flags().BoolVar(&importSkipExisting, "skip-existing", false, "skip certificates already present in the target store")
	importCmd.Flags().StringVar(&importMode, "mode", "", "validation mode: prevalidate (default) or direct")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "list candidate files without decoding or writing")
	importCmd.Flags().BoolVar(&importProgress, "progress", false, "report per-file progress on stderr")
	importCmd.Flags().BoolVar(&importExportable, "exportable", true, "mark imported private keys exportable in the target store")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	started := time.Now()
	logger := log.New(os.Stderr, "", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	scope, err := parse.Scope(importScope)
	if err != nil {
		return err
	}

	source := importIn
	if source == "" {
		source = cfg.DefaultSource
	}
	if source == "" {
		return fmt.Errorf("no source folder: set --in or defaultSource in the config file")
	}

	modeFlag := importMode
	if modeFlag == "" {
		modeFlag = cfg.DefaultMode
	}
	mode, err := parse.Mode(modeFlag)
	if err != nil {
		return err
	}

	var password *pfx.Secret
	if !importDryRun {
		password, err = acquirePassword(importPassword, importPasswordEnv, "Container password: ")
		if err != nil {
			return err
		}
		defer password.Zero()
		warnIfWeak(password)
	}

	importer := &core.Importer{Logger: logger}
	opts := core.ImportOptions{
		Scope:          scope,
		Source:         source,
		Password:       password,
		SkipExisting:   importSkipExisting,
		Mode:           mode,
		DryRun:         importDryRun,
		MarkExportable: importExportable,
	}
	if importProgress {
		opts.Progress = stderrProgress("Imported")
	}

	summary, err := importer.Import(ctx, opts)
	if err != nil {
		return err
	}

	output := schema.NewImportRunOutput(scope.String(), source, importDryRun, mode, importSkipExisting, summary, started, time.Since(started))
	jsonBytes, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output JSON: %w", err)
	}
	fmt.Println(string(jsonBytes))

	// Per-item failures are carried in the summary, not the exit code.
	return nil
}
