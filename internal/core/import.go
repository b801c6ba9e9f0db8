package core

import (
	"context"
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"certporter/internal/audit"
	"certporter/internal/pfx"
	"certporter/internal/store"
)

// ImportMode selects how candidate files are validated.
type ImportMode string

const (
	// ModePreValidate decodes every candidate before importing any, so no
	// store mutation happens until every container has been checked
	// against the password. This is the default.
	ModePreValidate ImportMode = "prevalidate"

	// ModeDirect skips the validation pass and writes each candidate
	// straight into the store, rolling back a just-written duplicate.
	ModeDirect ImportMode = "direct"
)

// Importer orchestrates one import run: enumerate PFX files, validate,
// detect duplicates, write to the target store, audit. Nil fields fall
// back to production defaults.
type Importer struct {
	Provider   store.Provider
	Codec      pfx.Codec
	Privileges PrivilegeChecker
	Clock      Clock
	Logger     *log.Logger
}

// ImportOptions carries the parameters of one import run.
type ImportOptions struct {
	Scope    store.Scope
	Source   string
	Password *pfx.Secret

	// SkipExisting consults the target store's thumbprints and records a
	// Skipped row instead of writing a duplicate.
	SkipExisting bool

	Mode ImportMode

	// DryRun lists candidate files and sizes without decoding or writing;
	// it does not require a password.
	DryRun bool

	Progress ProgressFunc

	// MarkExportable asks the target store to keep the imported key
	// exportable. The expected default for a migration tool is true.
	MarkExportable bool
}

// candidate is one PFX file moving through the import pipeline.
type candidate struct {
	name string
	path string
	data []byte
	cert *x509.Certificate
	key  crypto.PrivateKey
}

// Import runs one import. Setup failures abort with an error; per-item
// failures are audited and never abort the batch.
func (im *Importer) Import(ctx context.Context, opts ImportOptions) (*ImportSummary, error) {
	im.fillDefaults()
	if opts.Mode == "" {
		opts.Mode = ModePreValidate
	}
	now := im.Clock.Now()

	if opts.Scope == store.MachineScoped && !im.Privileges.Elevated() {
		return nil, ErrPermissionDenied
	}
	if !opts.DryRun {
		if err := opts.Password.Validate(); err != nil {
			return nil, err
		}
	}

	candidates, preview, err := listCandidates(opts.Source)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		return &ImportSummary{Preview: preview}, nil
	}

	logFile, err := audit.NewImportLog(opts.Source, now)
	if err != nil {
		return nil, err
	}
	summary := &ImportSummary{LogPath: logFile.Path()}

	if len(candidates) == 0 {
		im.Logger.Printf("No PFX files found in %s; nothing to import", opts.Source)
		return summary, nil
	}

	s, err := im.Provider.Open(opts.Scope)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", opts.Scope, err)
	}
	defer s.Close()

	var existing map[string]bool
	if opts.SkipExisting {
		existing, err = store.Thumbprints(s)
		if err != nil {
			return nil, err
		}
	}

	total := len(candidates)
	done := 0
	record := func(c *candidate, thumbprint, subject string, status audit.Status, detail string) {
		switch status {
		case audit.StatusSuccess:
			summary.Imported++
		case audit.StatusSkipped:
			summary.Skipped++
		case audit.StatusFailed:
			summary.Failed++
			im.Logger.Printf("Import of %s failed: %s", c.name, detail)
		}
		err := logFile.Append(audit.Entry{
			Timestamp:  im.Clock.Now(),
			Scope:      opts.Scope.String(),
			Name:       c.name,
			Thumbprint: thumbprint,
			Subject:    subject,
			Status:     status,
			Detail:     detail,
		})
		if err != nil {
			im.Logger.Printf("Failed to write audit row: %v", err)
		}
		done++
		reportProgress(opts.Progress, done, total)
	}

	_, nativeImport := s.(store.PFXImporter)

	// Pre-validation pass: decode everything up front and discard the
	// candidates that fail, before any store mutation.
	if opts.Mode == ModePreValidate {
		survivors := candidates[:0]
		for i := range candidates {
			c := &candidates[i]
			if err := im.loadAndDecode(c, opts.Password); err != nil {
				record(c, "", "", audit.StatusFailed, err.Error())
				continue
			}
			survivors = append(survivors, *c)
		}
		candidates = survivors
	}

	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		c := &candidates[i]

		// Direct mode reads the bytes and lets the store's native PKCS#12
		// ingestion validate them; the codec only steps in for stores
		// without one.
		if opts.Mode == ModeDirect {
			var err error
			if nativeImport {
				err = im.loadBytes(c)
			} else {
				err = im.loadAndDecode(c, opts.Password)
			}
			if err != nil {
				record(c, "", "", audit.StatusFailed, err.Error())
				continue
			}
		}

		var thumbprint, subject string
		if c.cert != nil {
			rec := store.NewRecord(c.cert, c.key != nil, "")
			thumbprint, subject = rec.Thumbprint, rec.Subject
		}

		// Pre-validate mode checks duplicates before touching the store.
		if opts.Mode == ModePreValidate && opts.SkipExisting && existing[thumbprint] {
			record(c, thumbprint, subject, audit.StatusSkipped, "already present in target store")
			continue
		}

		written, err := writeToStore(s, c, opts)
		if errors.Is(err, store.ErrDuplicate) {
			record(c, thumbprint, subject, audit.StatusSkipped, "already present in target store")
			continue
		}
		if err != nil {
			record(c, thumbprint, subject, audit.StatusFailed, err.Error())
			continue
		}

		// Direct mode detects the duplicate after the write and rolls the
		// just-written entry back out of the store.
		if opts.Mode == ModeDirect && opts.SkipExisting && existing[written.Thumbprint] {
			if err := s.Remove(written.Thumbprint); err != nil {
				record(c, written.Thumbprint, written.Subject, audit.StatusFailed,
					fmt.Sprintf("duplicate written but rollback failed: %v", err))
				continue
			}
			record(c, written.Thumbprint, written.Subject, audit.StatusSkipped, "already present in target store")
			continue
		}

		record(c, written.Thumbprint, written.Subject, audit.StatusSuccess, "")
	}

	return summary, nil
}

// loadBytes reads the candidate file once.
func (im *Importer) loadBytes(c *candidate) error {
	if c.data != nil {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.path, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("file %s is empty", c.name)
	}
	c.data = data
	return nil
}

// loadAndDecode reads the candidate file and decodes it via the codec,
// populating the candidate in place.
func (im *Importer) loadAndDecode(c *candidate, password *pfx.Secret) error {
	if err := im.loadBytes(c); err != nil {
		return err
	}
	if c.cert == nil {
		cert, key, err := im.Codec.Decode(c.data, password)
		if err != nil {
			return err
		}
		c.cert = cert
		c.key = key
	}
	return nil
}

// writeToStore writes a decoded candidate into the target store, using the
// store's native PKCS#12 ingestion when it has one.
func writeToStore(s store.Store, c *candidate, opts ImportOptions) (store.Record, error) {
	if importer, ok := s.(store.PFXImporter); ok {
		return importer.ImportPFX(c.data, opts.Password.Bytes(), opts.MarkExportable)
	}
	return s.Add(c.cert, c.key, strings.TrimSuffix(c.name, filepath.Ext(c.name)), opts.MarkExportable)
}

// listCandidates enumerates the PFX files in dir in sorted order, along
// with the dry-run preview of the same listing.
func listCandidates(dir string) ([]candidate, []ImportPreviewItem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read source folder %s: %w", dir, err)
	}

	var candidates []candidate
	var preview []ImportPreviewItem
	for _, entry := range entries {
		if entry.IsDir() || !isPFXName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		candidates = append(candidates, candidate{
			name: entry.Name(),
			path: filepath.Join(dir, entry.Name()),
		})
		preview = append(preview, ImportPreviewItem{FileName: entry.Name(), Size: info.Size()})
	}
	return candidates, preview, nil
}

func isPFXName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".pfx" || ext == ".p12"
}

func (im *Importer) fillDefaults() {
	if im.Provider == nil {
		im.Provider = store.DefaultProvider()
	}
	if im.Privileges == nil {
		im.Privileges = OSPrivileges{}
	}
	if im.Clock == nil {
		im.Clock = SystemClock{}
	}
	if im.Logger == nil {
		im.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}
}
