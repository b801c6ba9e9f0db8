package core

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"filippo.io/age"
)

func writeBundleFixture(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "export")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"web.example_0001.pfx":            "fake pfx one",
		"api.example_0002.pfx":            "fake pfx two",
		"export-log-20260101T000000Z.csv": "Timestamp,Scope\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// listTar returns the sorted member names of a tar stream.
func listTar(t *testing.T, r io.Reader) []string {
	t.Helper()
	tr := tar.NewReader(r)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read tar: %v", err)
		}
		names = append(names, hdr.Name)
	}
	sort.Strings(names)
	return names
}

func TestBundleExportPlainArchive(t *testing.T) {
	dir := writeBundleFixture(t)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	meta, err := BundleExport(context.Background(), dir, "", ts)
	if err != nil {
		t.Fatalf("BundleExport: %v", err)
	}
	if meta.Encrypted {
		t.Error("archive marked encrypted without a recipient")
	}
	if meta.FileCount != 3 {
		t.Errorf("FileCount = %d, want 3", meta.FileCount)
	}
	if meta.Bytes == 0 {
		t.Error("Bytes is zero")
	}

	// The archive lands next to the export folder, not inside it.
	if filepath.Dir(meta.Path) != filepath.Dir(dir) {
		t.Errorf("archive at %s, want sibling of %s", meta.Path, dir)
	}
	base := filepath.Base(meta.Path)
	if !strings.HasPrefix(base, "certporter_") || !strings.HasSuffix(base, "_20260102T030405Z.tar.gz") {
		t.Errorf("unexpected archive name %s", base)
	}

	f, err := os.Open(meta.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("open gzip: %v", err)
	}
	names := listTar(t, gz)
	want := []string{
		"export/api.example_0002.pfx",
		"export/export-log-20260101T000000Z.csv",
		"export/web.example_0001.pfx",
	}
	if len(names) != len(want) {
		t.Fatalf("tar members = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("tar member %d = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestBundleExportAgeRoundTrip(t *testing.T) {
	dir := writeBundleFixture(t)
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatal(err)
	}

	meta, err := BundleExport(context.Background(), dir, identity.Recipient().String(), time.Now())
	if err != nil {
		t.Fatalf("BundleExport: %v", err)
	}
	if !meta.Encrypted {
		t.Error("archive not marked encrypted")
	}
	if !strings.HasSuffix(meta.Path, ".tar.gz.age") {
		t.Errorf("archive name %s lacks .age suffix", meta.Path)
	}

	f, err := os.Open(meta.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dec, err := age.Decrypt(f, identity)
	if err != nil {
		t.Fatalf("age decrypt: %v", err)
	}
	gz, err := gzip.NewReader(dec)
	if err != nil {
		t.Fatalf("open gzip: %v", err)
	}
	names := listTar(t, gz)
	if len(names) != 3 {
		t.Errorf("decrypted archive has %d members, want 3", len(names))
	}
}

func TestBundleExportCanceledContext(t *testing.T) {
	dir := writeBundleFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := BundleExport(ctx, dir, "", time.Now()); err == nil {
		t.Fatal("expected error from canceled context")
	}
}

func TestValidateAgeRecipient(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatal(err)
	}
	if err := ValidateAgeRecipient(identity.Recipient().String()); err != nil {
		t.Errorf("valid recipient rejected: %v", err)
	}
	if err := ValidateAgeRecipient("ssh-rsa AAAA"); err == nil {
		t.Error("non-age key accepted")
	}
	if err := ValidateAgeRecipient("age1invalidinvalidinvalid"); err == nil {
		t.Error("malformed age key accepted")
	}
}
