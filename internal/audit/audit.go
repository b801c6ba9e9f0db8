// Package audit writes the per-run CSV audit log for certporter operations.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Status is the outcome recorded for one processed item.
type Status string

const (
	StatusSuccess Status = "Success"
	StatusFailed  Status = "Failed"
	StatusSkipped Status = "Skipped"
)

const (
	exportHeader = "Timestamp,Scope,ContainerName,Thumbprint,Subject,FilePath,Status,Detail"
	importHeader = "Timestamp,Scope,FileName,Thumbprint,Subject,Status,Detail"
)

// Entry is one audit row. Name is the container name on export and the file
// name on import; FilePath is only written to export logs.
type Entry struct {
	Timestamp  time.Time
	Scope      string
	Name       string
	Thumbprint string
	Subject    string
	FilePath   string
	Status     Status
	Detail     string
}

// Log is an append-only CSV audit file. The file is opened and closed
// around every row so a partial log stays readable after abnormal
// termination.
type Log struct {
	path       string
	exportForm bool
}

// NewExportLog creates an export audit log in dir and writes its header.
func NewExportLog(dir string, now time.Time) (*Log, error) {
	return newLog(dir, "export", exportHeader, true, now)
}

// NewImportLog creates an import audit log in dir and writes its header.
func NewImportLog(dir string, now time.Time) (*Log, error) {
	return newLog(dir, "import", importHeader, false, now)
}

func newLog(dir, kind, header string, exportForm bool, now time.Time) (*Log, error) {
	name := fmt.Sprintf("%s-log-%s.csv", kind, now.UTC().Format("20060102T150405Z"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(header+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("failed to create audit log %s: %w", path, err)
	}
	return &Log{path: path, exportForm: exportForm}, nil
}

// Path returns the log file's location.
func (l *Log) Path() string {
	return l.path
}

// Append writes one row and closes the file again.
func (l *Log) Append(e Entry) error {
	fields := []string{
		e.Timestamp.UTC().Format(time.RFC3339),
		e.Scope,
		e.Name,
		e.Thumbprint,
		e.Subject,
	}
	if l.exportForm {
		fields = append(fields, e.FilePath)
	}
	fields = append(fields, string(e.Status), e.Detail)

	for i, f := range fields {
		fields[i] = Sanitize(f)
	}
	line := strings.Join(fields, ",") + "\n"

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("failed to append audit row: %w", err)
	}
	return nil
}

// Sanitize makes a value safe for the unquoted CSV format: commas and line
// breaks become semicolons. Distinguished names routinely contain commas,
// so every field passes through here, not just Detail.
func Sanitize(s string) string {
	s = strings.ReplaceAll(s, ",", ";")
	s = strings.ReplaceAll(s, "\r", ";")
	s = strings.ReplaceAll(s, "\n", ";")
	return s
}
