// Package config wires the pipeline services together with sensible
// defaults. The CLI talks only to this facade.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cochaviz/skiff/internal/archive"
	"github.com/cochaviz/skiff/internal/artifacts"
	"github.com/cochaviz/skiff/internal/bundle"
	"github.com/cochaviz/skiff/internal/gitver"
	"github.com/cochaviz/skiff/internal/logging"
	"github.com/cochaviz/skiff/internal/manifest"
	"github.com/cochaviz/skiff/internal/pipeline"
	"github.com/cochaviz/skiff/internal/release"
	"github.com/cochaviz/skiff/internal/setup"
	"github.com/cochaviz/skiff/internal/trigger"
)

var DefaultManifestPath = setup.DefaultManifestPath

// DefaultTokenEnv is consulted for the publish token when the manifest
// does not name its own environment variable.
const DefaultTokenEnv = "GITHUB_TOKEN"

// RunPipeline executes the full pipeline for every platform the
// manifest configures and returns the per-platform results. A
// non-empty outputDir overrides the manifest's output directory. The
// error is non-nil when any platform run failed; successful platforms
// still appear in the results.
func RunPipeline(ctx context.Context, manifestPath, outputDir string, event trigger.Event, logger *slog.Logger) ([]pipeline.PlatformResult, error) {
	logger = logging.Ensure(logger).With("component", "config.simple")

	m, err := manifest.Load(resolveManifestPath(manifestPath))
	if err != nil {
		return nil, err
	}
	if outputDir != "" {
		m.OutputDir = outputDir
	}

	archiver, err := archive.ForFormat(m.ArchiveFormat)
	if err != nil {
		return nil, err
	}

	service := &pipeline.Service{
		Logger:   logger.With("service", "pipeline"),
		Manifest: m,
		Resolver: &gitver.Resolver{
			RepoDir: ".",
			Logger:  logger.With("service", "gitver"),
		},
		Driver: &bundle.PyInstallerDriver{
			Logger: logger.With("driver", "pyinstaller"),
		},
		Archiver:  archiver,
		Publisher: newPublisher(m, logger),
		Store: &artifacts.LocalStore{
			BaseDir: filepath.Join(m.OutputDir, "artifacts"),
		},
	}

	return service.RunAll(ctx, event)
}

// ResolveVersion resolves the version for the checkout at repoDir and
// optionally writes the version file.
func ResolveVersion(ctx context.Context, repoDir, writePath string, logger *slog.Logger) (gitver.Version, error) {
	logger = logging.Ensure(logger).With("component", "config.simple")

	if repoDir == "" {
		repoDir = "."
	}

	resolver := &gitver.Resolver{RepoDir: repoDir, Logger: logger.With("service", "gitver")}
	version, err := resolver.Resolve(ctx)
	if err != nil {
		return gitver.Version{}, err
	}

	if writePath != "" {
		if err := version.WriteFile(writePath); err != nil {
			return gitver.Version{}, err
		}
	}
	return version, nil
}

// PublishArchives uploads already-produced archives to the release for
// tag, using the manifest's publish settings.
func PublishArchives(ctx context.Context, manifestPath, tag string, archivePaths []string, logger *slog.Logger) error {
	logger = logging.Ensure(logger).With("component", "config.simple")

	m, err := manifest.Load(resolveManifestPath(manifestPath))
	if err != nil {
		return err
	}

	for _, path := range archivePaths {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("archive %s does not exist", path)
		}
	}

	return newPublisher(m, logger).Publish(ctx, tag, archivePaths)
}

// LoadManifest exposes manifest loading for read-only CLI commands.
func LoadManifest(manifestPath string) (manifest.Manifest, error) {
	return manifest.Load(resolveManifestPath(manifestPath))
}

func newPublisher(m manifest.Manifest, logger *slog.Logger) *release.GitHubPublisher {
	tokenEnv := m.Publish.TokenEnv
	if tokenEnv == "" {
		tokenEnv = DefaultTokenEnv
	}

	return &release.GitHubPublisher{
		Owner:   m.Publish.Owner,
		Repo:    m.Publish.Repo,
		Token:   os.Getenv(tokenEnv),
		BaseURL: m.Publish.APIBase,
		Logger:  logger.With("service", "release"),
	}
}

func resolveManifestPath(path string) string {
	if path == "" {
		return DefaultManifestPath
	}
	return path
}
