// Package schema defines the data structures for certporter's JSON output.
package schema

import (
	"time"

	"github.com/google/uuid"

	"certporter/internal/core"
)

// ExportRunOutput is the JSON summary printed after an export command.
type ExportRunOutput struct {
	Command      string `json:"command"`
	RunID        string `json:"run_id"`
	Scope        string `json:"scope"`
	Destination  string `json:"destination"`
	DryRun       bool   `json:"dry_run"`
	Exported     int    `json:"exported"`
	Failed       int    `json:"failed"`
	LogPath      string `json:"log_path,omitempty"`
	ArchivePath  string `json:"archive_path,omitempty"`
	Encrypted    bool   `json:"encrypted"`
	MinDays      int    `json:"min_days"`
	Subject      string `json:"subject_filter,omitempty"`
	Issuer       string `json:"issuer_filter,omitempty"`
	TimestampUTC string `json:"timestamp_utc"`
	DurationMS   int64  `json:"duration_ms"`

	Preview []core.ExportPreviewItem `json:"preview,omitempty"`
}

// NewExportRunOutput assembles the export summary output.
func NewExportRunOutput(scope, destination string, dryRun bool, filter core.FilterSpec, summary *core.ExportSummary, started time.Time, duration time.Duration) *ExportRunOutput {
	return &ExportRunOutput{
		Command:      "export",
		RunID:        uuid.NewString(),
		Scope:        scope,
		Destination:  destination,
		DryRun:       dryRun,
		Exported:     summary.Exported,
		Failed:       summary.Failed,
		LogPath:      summary.LogPath,
		ArchivePath:  summary.ArchivePath,
		Encrypted:    summary.ArchivePath != "" && hasAgeSuffix(summary.ArchivePath),
		MinDays:      filter.MinDaysRemaining,
		Subject:      filter.Subject,
		Issuer:       filter.Issuer,
		TimestampUTC: started.UTC().Format(time.RFC3339),
		DurationMS:   duration.Milliseconds(),
		Preview:      summary.Preview,
	}
}

// ImportRunOutput is the JSON summary printed after an import command.
type ImportRunOutput struct {
	Command      string `json:"command"`
	RunID        string `json:"run_id"`
	Scope        string `json:"scope"`
	Source       string `json:"source"`
	DryRun       bool   `json:"dry_run"`
	Mode         string `json:"mode"`
	SkipExisting bool   `json:"skip_existing"`
	Imported     int    `json:"imported"`
	Skipped      int    `json:"skipped"`
	Failed       int    `json:"failed"`
	LogPath      string `json:"log_path,omitempty"`
	TimestampUTC string `json:"timestamp_utc"`
	DurationMS   int64  `json:"duration_ms"`

	Preview []core.ImportPreviewItem `json:"preview,omitempty"`
}

// NewImportRunOutput assembles the import summary output.
func NewImportRunOutput(scope, source string, dryRun bool, mode core.ImportMode, skipExisting bool, summary *core.ImportSummary, started time.Time, duration time.Duration) *ImportRunOutput {
	return &ImportRunOutput{
		Command:      "import",
		RunID:        uuid.NewString(),
		Scope:        scope,
		Source:       source,
		DryRun:       dryRun,
		Mode:         string(mode),
		SkipExisting: skipExisting,
		Imported:     summary.Imported,
		Skipped:      summary.Skipped,
		Failed:       summary.Failed,
		LogPath:      summary.LogPath,
		TimestampUTC: started.UTC().Format(time.RFC3339),
		DurationMS:   duration.Milliseconds(),
		Preview:      summary.Preview,
	}
}

func hasAgeSuffix(path string) bool {
	const suffix = ".age"
	return len(path) >= len(suffix) && path[len(path)-len(suffix):] == suffix
}
