// Package manifest defines the YAML pipeline manifest: which
// application to package, for which platform targets, with which
// build variants, and where to publish the results.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cochaviz/skiff/internal/archive"
	"github.com/cochaviz/skiff/internal/bundle"
)

// Platform is one operating-system/architecture pair the pipeline
// builds for. Each platform declares its own variant set explicitly;
// nothing about variants is implied by the platform name.
type Platform struct {
	Name        string           `yaml:"name"`
	Qualifier   string           `yaml:"qualifier"`
	ToolVersion string           `yaml:"tool_version"`
	Variants    []bundle.Variant `yaml:"variants"`
}

// Publish configures where archives are uploaded.
type Publish struct {
	Owner    string `yaml:"owner"`
	Repo     string `yaml:"repo"`
	APIBase  string `yaml:"api_base"`
	TokenEnv string `yaml:"token_env"`
}

// Manifest is the root pipeline configuration document.
type Manifest struct {
	App           string         `yaml:"app"`
	Entrypoint    string         `yaml:"entrypoint"`
	Icon          string         `yaml:"icon"`
	VersionFile   string         `yaml:"version_file"`
	ArchiveFormat archive.Format `yaml:"archive_format"`
	OutputDir     string         `yaml:"output_dir"`
	Publish       Publish        `yaml:"publish"`
	Platforms     []Platform     `yaml:"platforms"`
}

// Load reads and validates a manifest file.
func Load(path string) (Manifest, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(payload, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}

	if m.OutputDir == "" {
		m.OutputDir = "dist"
	}
	if m.ArchiveFormat == "" {
		m.ArchiveFormat = archive.FormatZip
	}

	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Validate checks the manifest for the invariants the orchestrator
// relies on, in particular archive-name uniqueness across the full
// configured (platform, variant) set.
func (m Manifest) Validate() error {
	if m.App == "" {
		return fmt.Errorf("app name is required")
	}
	if m.Entrypoint == "" {
		return fmt.Errorf("entrypoint is required")
	}
	if m.VersionFile == "" {
		return fmt.Errorf("version_file is required")
	}
	if len(m.Platforms) == 0 {
		return fmt.Errorf("at least one platform is required")
	}
	if _, err := archive.ForFormat(m.ArchiveFormat); err != nil {
		return err
	}

	seenPlatforms := map[string]bool{}
	seenArchives := map[string]string{}
	for _, platform := range m.Platforms {
		if platform.Name == "" {
			return fmt.Errorf("platform name is required")
		}
		if platform.Qualifier == "" {
			return fmt.Errorf("platform %s: qualifier is required", platform.Name)
		}
		if seenPlatforms[platform.Name] {
			return fmt.Errorf("platform %s is configured twice", platform.Name)
		}
		seenPlatforms[platform.Name] = true

		if len(platform.Variants) == 0 {
			return fmt.Errorf("platform %s: at least one variant is required", platform.Name)
		}

		seenVariants := map[string]bool{}
		for _, variant := range platform.Variants {
			if variant.Name == "" {
				return fmt.Errorf("platform %s: variant name is required", platform.Name)
			}
			if seenVariants[variant.Name] {
				return fmt.Errorf("platform %s: variant %s is configured twice", platform.Name, variant.Name)
			}
			seenVariants[variant.Name] = true

			name := archive.Name(m.App, variant.Name, platform.Qualifier, m.ArchiveFormat)
			if owner, taken := seenArchives[name]; taken {
				return fmt.Errorf("archive name %s collides between %s and %s/%s",
					name, owner, platform.Name, variant.Name)
			}
			seenArchives[name] = platform.Name + "/" + variant.Name
		}
	}
	return nil
}

// ArchiveName returns the archive file name for one (platform, variant) pair.
func (m Manifest) ArchiveName(platform Platform, variant bundle.Variant) string {
	return archive.Name(m.App, variant.Name, platform.Qualifier, m.ArchiveFormat)
}
