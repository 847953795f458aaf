package archive

import (
	"archive/zip"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		variant   string
		qualifier string
		format    Format
		want      string
	}{
		{"release", "macos", FormatZip, "app_macos.zip"},
		{"debug", "macos", FormatZip, "app_debug_macos.zip"},
		{"release", "macos_arm64", FormatZip, "app_macos_arm64.zip"},
		{"debug", "macos_arm64", FormatISO, "app_debug_macos_arm64.iso"},
		{"release", "", FormatZip, "app.zip"},
	}

	for _, tc := range cases {
		if got := Name("app", tc.variant, tc.qualifier, tc.format); got != tc.want {
			t.Fatalf("Name(%q, %q, %v) = %q, want %q", tc.variant, tc.qualifier, tc.format, got, tc.want)
		}
	}
}

func TestNameUniqueAcrossVariantsAndPlatforms(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for _, variant := range []string{"release", "debug"} {
		for _, qualifier := range []string{"macos", "macos_arm64"} {
			name := Name("app", variant, qualifier, FormatZip)
			if seen[name] {
				t.Fatalf("archive name %q produced twice", name)
			}
			seen[name] = true
		}
	}
}

func TestZipArchiverRoundTrip(t *testing.T) {
	t.Parallel()

	bundleDir := filepath.Join(t.TempDir(), "release")
	mustWrite(t, filepath.Join(bundleDir, "release"), "#!/bin/sh\necho app\n", 0o755)
	mustWrite(t, filepath.Join(bundleDir, "resources", "icon.png"), "png-bytes", 0o600)
	mustWrite(t, filepath.Join(bundleDir, "version.py"), "__version__ = 'v1.2.0'\n", 0o644)

	destPath := filepath.Join(t.TempDir(), "app_macos.zip")
	archiver := &ZipArchiver{}
	if err := archiver.Archive(context.Background(), bundleDir, destPath); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	reader, err := zip.OpenReader(destPath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer reader.Close()

	entries := map[string]*zip.File{}
	var names []string
	for _, file := range reader.File {
		entries[file.Name] = file
		if !file.FileInfo().IsDir() {
			names = append(names, file.Name)
		}
	}

	wantNames := []string{
		"release/release",
		"release/resources/icon.png",
		"release/version.py",
	}
	sort.Strings(names)
	if len(names) != len(wantNames) {
		t.Fatalf("unexpected entries: got %v want %v", names, wantNames)
	}
	for i, name := range wantNames {
		if names[i] != name {
			t.Fatalf("unexpected entries: got %v want %v", names, wantNames)
		}
	}

	if mode := entries["release/release"].Mode().Perm(); mode != 0o755 {
		t.Fatalf("executable must extract as 0755, got %o", mode)
	}
	if mode := entries["release/resources/icon.png"].Mode().Perm(); mode != 0o644 {
		t.Fatalf("resource must extract as 0644, got %o", mode)
	}

	content := readEntry(t, entries["release/version.py"])
	if content != "__version__ = 'v1.2.0'\n" {
		t.Fatalf("content corrupted: got %q", content)
	}
}

func TestZipArchiverSingleFileBundle(t *testing.T) {
	t.Parallel()

	bundlePath := filepath.Join(t.TempDir(), "release")
	mustWrite(t, bundlePath, "binary-bytes", 0o755)

	destPath := filepath.Join(t.TempDir(), "app_macos.zip")
	archiver := &ZipArchiver{}
	if err := archiver.Archive(context.Background(), bundlePath, destPath); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	reader, err := zip.OpenReader(destPath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer reader.Close()

	if len(reader.File) != 1 {
		t.Fatalf("expected one entry, got %d", len(reader.File))
	}
	if reader.File[0].Name != "release" {
		t.Fatalf("unexpected entry name: %q", reader.File[0].Name)
	}
	if mode := reader.File[0].Mode().Perm(); mode != 0o755 {
		t.Fatalf("executable must extract as 0755, got %o", mode)
	}
}

func TestZipArchiverMissingBundle(t *testing.T) {
	t.Parallel()

	archiver := &ZipArchiver{}
	destPath := filepath.Join(t.TempDir(), "out.zip")
	if err := archiver.Archive(context.Background(), filepath.Join(t.TempDir(), "missing"), destPath); err == nil {
		t.Fatalf("expected error for missing bundle")
	}
	if _, err := os.Stat(destPath); err == nil {
		t.Fatalf("no archive must be left behind on failure")
	}
}

func TestNormalizeMode(t *testing.T) {
	t.Parallel()

	if got := NormalizeMode("release/app.bin", 0o700); got != 0o755 {
		t.Fatalf("executable normalization: got %o", got)
	}
	if got := NormalizeMode("release/readme.txt", 0o600); got != 0o644 {
		t.Fatalf("regular file normalization: got %o", got)
	}
	if got := NormalizeMode("release/App.app/Contents/MacOS/App", 0o644); got != 0o755 {
		t.Fatalf("app binary must be forced executable, got %o", got)
	}
}

func mustWrite(t *testing.T, path, content string, mode fs.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readEntry(t *testing.T, file *zip.File) string {
	t.Helper()
	rc, err := file.Open()
	if err != nil {
		t.Fatalf("open entry: %v", err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read entry: %v", err)
	}
	return string(content)
}
