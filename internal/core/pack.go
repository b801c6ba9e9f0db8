package core

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"filippo.io/age"
)

// ArchiveMeta describes the bundle created after an export run.
type ArchiveMeta struct {
	Path      string `json:"archive_path"`
	Encrypted bool   `json:"encrypted"`
	FileCount int    `json:"file_count"`
	Bytes     int64  `json:"bytes_written"`
}

// BundleExport packs the export folder into
// certporter_<host>_<timestamp>.tar.gz next to it, encrypting with age when
// a recipient is supplied. The archive lands in the folder's parent so it
// cannot include itself.
func BundleExport(ctx context.Context, exportDir, ageRecipient string, timestamp time.Time) (*ArchiveMeta, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	timeStr := timestamp.UTC().Format("20060102T150405Z")
	baseName := fmt.Sprintf("certporter_%s_%s.tar.gz", hostname, timeStr)

	encrypted := ageRecipient != ""
	if encrypted {
		baseName += ".age"
	}
	outputPath := filepath.Join(filepath.Dir(filepath.Clean(exportDir)), baseName)

	outFile, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive %s: %w", outputPath, err)
	}
	defer outFile.Close()

	// Writer pipeline: tar -> gzip -> (age ->) file.
	var encWriter io.WriteCloser
	var gzWriter *gzip.Writer
	if encrypted {
		recipient, err := age.ParseX25519Recipient(ageRecipient)
		if err != nil {
			return nil, fmt.Errorf("failed to parse age recipient: %w", err)
		}
		encWriter, err = age.Encrypt(outFile, recipient)
		if err != nil {
			return nil, fmt.Errorf("failed to create age writer: %w", err)
		}
		gzWriter = gzip.NewWriter(encWriter)
	} else {
		gzWriter = gzip.NewWriter(outFile)
	}
	tarWriter := tar.NewWriter(gzWriter)

	fileCount := 0
	err = filepath.WalkDir(exportDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if path == exportDir || d.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(exportDir, path)
		if err != nil {
			return fmt.Errorf("failed to relativize %s: %w", path, err)
		}
		tarPath := "export/" + filepath.ToSlash(relPath)

		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer file.Close()

		info, err := file.Stat()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		header := &tar.Header{
			Name:    tarPath,
			Mode:    0600,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to write tar header for %s: %w", path, err)
		}
		if _, err := io.Copy(tarWriter, file); err != nil {
			return fmt.Errorf("failed to copy %s into archive: %w", path, err)
		}
		fileCount++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk export folder: %w", err)
	}

	// Close in pipeline order.
	if err := tarWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close tar writer: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	if encrypted {
		if err := encWriter.Close(); err != nil {
			return nil, fmt.Errorf("failed to close age writer: %w", err)
		}
	}

	var bytesWritten int64
	if stat, err := outFile.Stat(); err == nil {
		bytesWritten = stat.Size()
	}
	return &ArchiveMeta{
		Path:      outputPath,
		Encrypted: encrypted,
		FileCount: fileCount,
		Bytes:     bytesWritten,
	}, nil
}

// ValidateAgeRecipient validates an age public key flag value.
func ValidateAgeRecipient(key string) error {
	if !strings.HasPrefix(key, "age1") {
		return fmt.Errorf("age public key must start with 'age1'")
	}
	if _, err := age.ParseX25519Recipient(key); err != nil {
		return fmt.Errorf("invalid age public key: %w", err)
	}
	return nil
}
