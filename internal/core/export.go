package core

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"certporter/internal/audit"
	"certporter/internal/pfx"
	"certporter/internal/store"
)

// Exporter orchestrates one export run: enumerate store, filter, name,
// encode, write, audit. Fields left nil fall back to production defaults.
type Exporter struct {
	Provider   store.Provider
	Codec      pfx.Codec
	Privileges PrivilegeChecker
	Clock      Clock
	Logger     *log.Logger
}

// ExportOptions carries the parameters of one export run.
type ExportOptions struct {
	Scope       store.Scope
	Destination string
	Password    *pfx.Secret
	Filter      FilterSpec

	// DryRun lists what would be exported without touching the
	// filesystem; it does not create the destination folder and does not
	// require a password.
	DryRun bool

	Progress ProgressFunc

	// Bundle packs the destination folder into a tar.gz archive after the
	// run; AgeRecipient additionally encrypts it.
	Bundle       bool
	AgeRecipient string
}

// Export runs one export. Setup failures (privileges, password, store,
// destination folder) abort with an error and no audit rows; per-item
// failures are audited and never abort the batch.
func (e *Exporter) Export(ctx context.Context, opts ExportOptions) (*ExportSummary, error) {
	e.fillDefaults()
	now := e.Clock.Now()

	if opts.Scope == store.MachineScoped && !e.Privileges.Elevated() {
		return nil, ErrPermissionDenied
	}
	if !opts.DryRun {
		if err := opts.Password.Validate(); err != nil {
			return nil, err
		}
	}

	s, err := e.Provider.Open(opts.Scope)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", opts.Scope, err)
	}
	defer s.Close()

	idents, err := s.Identities()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s store: %w", opts.Scope, err)
	}
	defer func() {
		for _, id := range idents {
			id.Close()
		}
	}()

	records := make([]store.Record, len(idents))
	byThumbprint := make(map[string]store.Identity, len(idents))
	for i, id := range idents {
		records[i] = id.Record()
		if _, ok := byThumbprint[records[i].Thumbprint]; !ok {
			byThumbprint[records[i].Thumbprint] = id
		}
	}

	filtered := ApplyFilter(records, opts.Filter, now)

	if opts.DryRun {
		return e.preview(filtered, opts.Destination), nil
	}

	if err := os.MkdirAll(opts.Destination, 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination folder: %w", err)
	}
	logFile, err := audit.NewExportLog(opts.Destination, now)
	if err != nil {
		return nil, err
	}

	summary := &ExportSummary{LogPath: logFile.Path()}
	if len(filtered) == 0 {
		e.Logger.Printf("No certificates matched the filter; nothing to export")
		return summary, nil
	}

	usedNames := make(map[string]bool)
	for i, rec := range filtered {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		fileName, path, itemErr := e.exportOne(rec, byThumbprint[rec.Thumbprint], opts, usedNames)

		entry := audit.Entry{
			Timestamp:  e.Clock.Now(),
			Scope:      opts.Scope.String(),
			Name:       fileName,
			Thumbprint: rec.Thumbprint,
			Subject:    rec.Subject,
			FilePath:   path,
			Status:     audit.StatusSuccess,
		}
		if itemErr != nil {
			summary.Failed++
			entry.Status = audit.StatusFailed
			entry.Detail = itemErr.Error()
			e.Logger.Printf("Export of %s failed: %v", rec.Thumbprint, itemErr)
		} else {
			summary.Exported++
		}
		if err := logFile.Append(entry); err != nil {
			e.Logger.Printf("Failed to write audit row: %v", err)
		}

		reportProgress(opts.Progress, i+1, len(filtered))
	}

	if opts.Bundle {
		archive, err := BundleExport(ctx, opts.Destination, opts.AgeRecipient, now)
		if err != nil {
			return summary, fmt.Errorf("failed to bundle export folder: %w", err)
		}
		summary.ArchivePath = archive.Path
	}
	return summary, nil
}

// preview builds the side-effect-free dry-run listing. Collisions are
// simulated against both the destination folder and the names already
// assigned in this run.
func (e *Exporter) preview(filtered []store.Record, destination string) *ExportSummary {
	usedNames := make(map[string]bool)
	items := make([]ExportPreviewItem, 0, len(filtered))
	for _, rec := range filtered {
		fileName := ResolveCollision(BaseName(rec), rec.Thumbprint, func(name string) bool {
			if usedNames[name] {
				return true
			}
			_, err := os.Stat(filepath.Join(destination, name))
			return err == nil
		})
		usedNames[fileName] = true
		items = append(items, ExportPreviewItem{
			Subject:    rec.Subject,
			Thumbprint: rec.Thumbprint,
			FileName:   fileName,
			NotAfter:   rec.NotAfter.UTC().Format(time.RFC3339),
		})
	}
	return &ExportSummary{Preview: items}
}

// exportOne handles a single certificate: resolve the output name, obtain
// PFX bytes (native fast path or codec), write, verify. Returns the chosen
// file name even on failure so the audit row can carry it.
func (e *Exporter) exportOne(rec store.Record, ident store.Identity, opts ExportOptions, usedNames map[string]bool) (fileName, path string, err error) {
	fileName = ResolveCollision(BaseName(rec), rec.Thumbprint, func(name string) bool {
		if usedNames[name] {
			return true
		}
		_, statErr := os.Stat(filepath.Join(opts.Destination, name))
		return statErr == nil
	})
	usedNames[fileName] = true
	path = filepath.Join(opts.Destination, fileName)

	if ident == nil {
		return fileName, path, fmt.Errorf("identity disappeared from store during run")
	}

	var data []byte
	if exporter, ok := ident.(store.PFXExporter); ok {
		data, err = exporter.ExportPFX(opts.Password.Bytes())
		if err != nil {
			return fileName, path, err
		}
	} else {
		cert, certErr := ident.Certificate()
		if certErr != nil {
			return fileName, path, certErr
		}
		key, keyErr := ident.PrivateKey()
		if keyErr != nil {
			return fileName, path, keyErr
		}
		data, err = e.Codec.Encode(cert, key, opts.Password)
		if err != nil {
			return fileName, path, err
		}
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fileName, path, fmt.Errorf("failed to write %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return fileName, path, fmt.Errorf("written file %s is missing or empty", path)
	}
	return fileName, path, nil
}

func (e *Exporter) fillDefaults() {
	if e.Provider == nil {
		e.Provider = store.DefaultProvider()
	}
	if e.Privileges == nil {
		e.Privileges = OSPrivileges{}
	}
	if e.Clock == nil {
		e.Clock = SystemClock{}
	}
	if e.Logger == nil {
		e.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}
}
