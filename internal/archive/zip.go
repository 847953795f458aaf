package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Ensure ZipArchiver satisfies the archiver interface.
var _ Archiver = (*ZipArchiver)(nil)

// ZipArchiver writes a bundle tree into a zip file. Entries are added
// in sorted path order and permissions are normalized so the archive
// extracts to a runnable bundle on the target platform.
type ZipArchiver struct{}

// Archive compresses the bundle at bundlePath into destPath. A single
// file bundle is archived as one entry; a directory bundle keeps its
// top-level directory name inside the archive.
func (a *ZipArchiver) Archive(ctx context.Context, bundlePath, destPath string) error {
	info, err := os.Stat(bundlePath)
	if err != nil {
		return fmt.Errorf("stat bundle: %w", err)
	}

	entries, err := collectEntries(bundlePath, info)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("ensure archive directory: %w", err)
	}

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}

	writer := zip.NewWriter(out)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			writer.Close()
			out.Close()
			_ = os.Remove(destPath)
			return err
		}
		if err := writeEntry(writer, entry); err != nil {
			writer.Close()
			out.Close()
			_ = os.Remove(destPath)
			return err
		}
	}

	if err := writer.Close(); err != nil {
		out.Close()
		_ = os.Remove(destPath)
		return fmt.Errorf("finalize archive: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(destPath)
		return fmt.Errorf("close archive file: %w", err)
	}
	return nil
}

type zipEntry struct {
	// name is the slash-separated path inside the archive.
	name string
	// path is the source location on disk, empty for directories.
	path string
	mode fs.FileMode
	dir  bool
}

func collectEntries(bundlePath string, info fs.FileInfo) ([]zipEntry, error) {
	base := filepath.Base(bundlePath)

	if !info.IsDir() {
		return []zipEntry{{
			name: base,
			path: bundlePath,
			mode: NormalizeMode(base, info.Mode()),
		}}, nil
	}

	var entries []zipEntry
	err := filepath.WalkDir(bundlePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(bundlePath, path)
		if err != nil {
			return err
		}
		name := base
		if rel != "." {
			name = base + "/" + filepath.ToSlash(rel)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return fmt.Errorf("symlinks are not supported in bundles (%s)", path)
		}

		if d.IsDir() {
			entries = append(entries, zipEntry{name: name + "/", mode: fs.ModeDir | 0o755, dir: true})
			return nil
		}
		entries = append(entries, zipEntry{
			name: name,
			path: path,
			mode: NormalizeMode(name, info.Mode()),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk bundle: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
	return entries, nil
}

func writeEntry(writer *zip.Writer, entry zipEntry) error {
	header := &zip.FileHeader{
		Name:   entry.name,
		Method: zip.Deflate,
	}
	header.SetMode(entry.mode)

	if entry.dir {
		header.Method = zip.Store
		_, err := writer.CreateHeader(header)
		return err
	}

	dst, err := writer.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("add %s: %w", entry.name, err)
	}

	src, err := os.Open(entry.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", entry.path, err)
	}
	defer src.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("compress %s: %w", entry.name, err)
	}
	return nil
}

// NormalizeMode maps a file's mode to the permissions recorded in the
// archive: executables become 0755, everything else 0644. Files under
// a macOS .app executable directory are always executable, whatever
// the build left behind.
func NormalizeMode(name string, mode fs.FileMode) fs.FileMode {
	if mode&0o111 != 0 || strings.Contains(name, ".app/Contents/MacOS/") {
		return 0o755
	}
	return 0o644
}
