package gitver

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "version.py")
	version := Version{Value: "v1.2.0", Tag: "v1.2.0"}

	if err := version.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read version file: %v", err)
	}

	want := "__version__ = 'v1.2.0'\n"
	if string(content) != want {
		t.Fatalf("unexpected content: got %q want %q", content, want)
	}
}

func TestWriteFileOverwrites(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "version.py")

	if err := (Version{Value: "v1.0.0"}).WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := (Version{Value: "v1.1.0"}).WriteFile(path); err != nil {
		t.Fatalf("WriteFile() overwrite error = %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read version file: %v", err)
	}
	if string(content) != "__version__ = 'v1.1.0'\n" {
		t.Fatalf("expected overwrite, got %q", content)
	}
}

func TestWriteFileRejectsEmptyVersion(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "version.py")
	if err := (Version{}).WriteFile(path); err == nil {
		t.Fatalf("expected error for empty version")
	}
}
