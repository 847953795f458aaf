package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cochaviz/skiff/internal/archive"
	"github.com/cochaviz/skiff/internal/bundle"
)

const validManifest = `
app: pdfbookmarker
entrypoint: app.py
icon: assets/icon.icns
version_file: src/version.py
publish:
  owner: cochaviz
  repo: pdfbookmarker
platforms:
  - name: macos-legacy
    qualifier: macos
    tool_version: "3.8"
    variants:
      - name: release
      - name: debug
        console: true
        exclude_resources:
          - samples
  - name: macos-arm64
    qualifier: macos_arm64
    tool_version: "3.12"
    variants:
      - name: release
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skiff.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	m, err := Load(writeManifest(t, validManifest))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if m.OutputDir != "dist" {
		t.Fatalf("output dir default: got %q", m.OutputDir)
	}
	if m.ArchiveFormat != archive.FormatZip {
		t.Fatalf("archive format default: got %q", m.ArchiveFormat)
	}
	if len(m.Platforms) != 2 {
		t.Fatalf("expected 2 platforms, got %d", len(m.Platforms))
	}
	if len(m.Platforms[0].Variants) != 2 || len(m.Platforms[1].Variants) != 1 {
		t.Fatalf("variant sets must follow the manifest, got %+v", m.Platforms)
	}
	if !m.Platforms[0].Variants[1].Console {
		t.Fatalf("debug variant must attach a console")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing manifest")
	}
}

func TestArchiveNames(t *testing.T) {
	t.Parallel()

	m, err := Load(writeManifest(t, validManifest))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	legacy := m.Platforms[0]
	if got := m.ArchiveName(legacy, legacy.Variants[0]); got != "pdfbookmarker_macos.zip" {
		t.Fatalf("release archive name: got %q", got)
	}
	if got := m.ArchiveName(legacy, legacy.Variants[1]); got != "pdfbookmarker_debug_macos.zip" {
		t.Fatalf("debug archive name: got %q", got)
	}
}

func TestValidateRejectsArchiveNameCollision(t *testing.T) {
	t.Parallel()

	collision := strings.Replace(validManifest, "qualifier: macos_arm64", "qualifier: macos", 1)
	_, err := Load(writeManifest(t, collision))
	if err == nil || !strings.Contains(err.Error(), "collides") {
		t.Fatalf("expected collision error, got %v", err)
	}
}

func TestValidateRejectsDuplicateVariant(t *testing.T) {
	t.Parallel()

	m := Manifest{
		App:         "app",
		Entrypoint:  "app.py",
		VersionFile: "version.py",
		Platforms: []Platform{{
			Name:      "macos",
			Qualifier: "macos",
			Variants:  []bundle.Variant{{Name: "release"}, {Name: "release"}},
		}},
	}
	if err := m.Validate(); err == nil {
		t.Fatalf("expected error for duplicate variant")
	}
}

func TestValidateRequiredFields(t *testing.T) {
	t.Parallel()

	base := func() Manifest {
		return Manifest{
			App:         "app",
			Entrypoint:  "app.py",
			VersionFile: "version.py",
			Platforms: []Platform{{
				Name:      "macos",
				Qualifier: "macos",
				Variants:  []bundle.Variant{{Name: "release"}},
			}},
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("base manifest must be valid: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Manifest)
	}{
		{"missing app", func(m *Manifest) { m.App = "" }},
		{"missing entrypoint", func(m *Manifest) { m.Entrypoint = "" }},
		{"missing version file", func(m *Manifest) { m.VersionFile = "" }},
		{"no platforms", func(m *Manifest) { m.Platforms = nil }},
		{"unknown archive format", func(m *Manifest) { m.ArchiveFormat = "tar" }},
		{"platform without qualifier", func(m *Manifest) { m.Platforms[0].Qualifier = "" }},
		{"platform without variants", func(m *Manifest) { m.Platforms[0].Variants = nil }},
		{"variant without name", func(m *Manifest) { m.Platforms[0].Variants[0].Name = "" }},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m := base()
			tc.mutate(&m)
			if err := m.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
