package core

// ExportSummary is the outcome of one export run. A summary is always
// produced, however many per-item failures occurred; the audit log holds
// the detailed record.
type ExportSummary struct {
	Exported    int    `json:"exported"`
	Failed      int    `json:"failed"`
	LogPath     string `json:"log_path,omitempty"`
	ArchivePath string `json:"archive_path,omitempty"`

	// Preview holds the would-be exports of a dry run.
	Preview []ExportPreviewItem `json:"preview,omitempty"`
}

// ExportPreviewItem describes one certificate a dry run would export.
type ExportPreviewItem struct {
	Subject    string `json:"subject"`
	Thumbprint string `json:"thumbprint"`
	FileName   string `json:"file_name"`
	NotAfter   string `json:"not_after"`
}

// ImportSummary is the outcome of one import run.
type ImportSummary struct {
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
	LogPath  string `json:"log_path,omitempty"`

	// Preview holds the candidate files of a dry run.
	Preview []ImportPreviewItem `json:"preview,omitempty"`
}

// ImportPreviewItem describes one candidate file a dry run found.
type ImportPreviewItem struct {
	FileName string `json:"file_name"`
	Size     int64  `json:"size"`
}

// ProgressFunc observes per-item progress. Purely observational; it has no
// effect on control flow.
type ProgressFunc func(done, total int)

func reportProgress(fn ProgressFunc, done, total int) {
	if fn != nil {
		fn(done, total)
	}
}
