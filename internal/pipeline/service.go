// Package pipeline sequences the release-packaging steps for each
// configured platform target: resolve the version, build one bundle
// per variant, archive each bundle, and publish the archives when the
// triggering event carries a tag.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cochaviz/skiff/internal/archive"
	"github.com/cochaviz/skiff/internal/artifacts"
	"github.com/cochaviz/skiff/internal/bundle"
	"github.com/cochaviz/skiff/internal/gitver"
	"github.com/cochaviz/skiff/internal/manifest"
	"github.com/cochaviz/skiff/internal/release"
	"github.com/cochaviz/skiff/internal/trigger"
)

// VersionResolver produces the version embedded into the application.
type VersionResolver interface {
	Resolve(ctx context.Context) (gitver.Version, error)
}

// Service runs the pipeline for the platforms a manifest configures.
// All collaborators are injected; the zero value of optional fields
// (Store) disables the corresponding side effect.
type Service struct {
	Logger    *slog.Logger
	Manifest  manifest.Manifest
	Resolver  VersionResolver
	Driver    bundle.Driver
	Archiver  archive.Archiver
	Publisher release.Publisher

	// Store, when set, records every produced archive.
	Store artifacts.Store
}

func (s *Service) logger() *slog.Logger {
	if s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// platformRun carries the mutable state of one platform instance while
// it executes. It is confined to a single goroutine.
type platformRun struct {
	state       State
	transitions []Transition
	now         func() time.Time
}

// Run executes the full sequence for one platform using a version
// already resolved for the whole pipeline run. Steps are strictly
// sequential; the first failing step aborts the rest of this
// platform's run. Run never panics across step boundaries and always
// returns a terminal-state result.
func (s *Service) Run(ctx context.Context, platform manifest.Platform, event trigger.Event, version gitver.Version) PlatformResult {
	result := PlatformResult{
		RunID:    uuid.NewString(),
		Platform: platform,
	}

	run := &platformRun{state: StateTriggered, now: time.Now}

	logger := s.logger().With("platform", platform.Name, "run_id", result.RunID)
	logger.Info("pipeline run triggered", "event", string(event.Kind), "ref", event.Ref)

	abort := func(err error) PlatformResult {
		_ = run.transition(StateAborted)
		result.State = run.state
		result.Transitions = run.transitions
		result.Err = err
		logger.Error("pipeline run aborted", "error", err)
		return result
	}

	if version.Value == "" {
		return abort(errors.New("pipeline run started without a resolved version"))
	}
	if err := run.transition(StateVersionResolved); err != nil {
		return abort(err)
	}
	result.Version = version
	logger.Info("version resolved", "version", version.Value, "dirty", version.Dirty)

	for _, variant := range platform.Variants {
		archivePath, err := s.buildAndArchive(ctx, run, logger, platform, variant)
		if err != nil {
			return abort(err)
		}
		result.Archives = append(result.Archives, archivePath)
	}

	published, err := s.publish(ctx, run, logger, event, result.Archives)
	if err != nil {
		return abort(err)
	}
	result.Published = published

	if err := run.transition(StateDone); err != nil {
		return abort(err)
	}
	result.State = run.state
	result.Transitions = run.transitions
	logger.Info("pipeline run completed", "archives", len(result.Archives), "published", published)
	return result
}

// resolveVersion computes the version for the whole pipeline run and
// writes the version file. It runs exactly once, before any platform
// instance starts; the written file is never touched again.
func (s *Service) resolveVersion(ctx context.Context) (gitver.Version, error) {
	if s.Resolver == nil {
		return gitver.Version{}, errors.New("version resolver is not configured")
	}

	version, err := s.Resolver.Resolve(ctx)
	if err != nil {
		return gitver.Version{}, fmt.Errorf("resolve version: %w", err)
	}

	if err := version.WriteFile(s.Manifest.VersionFile); err != nil {
		return gitver.Version{}, err
	}
	return version, nil
}

func (s *Service) buildAndArchive(ctx context.Context, run *platformRun, logger *slog.Logger, platform manifest.Platform, variant bundle.Variant) (string, error) {
	if s.Driver == nil {
		return "", errors.New("bundle driver is not configured")
	}
	if s.Archiver == nil {
		return "", errors.New("archiver is not configured")
	}

	outputDir := s.platformDir(platform)

	built, err := s.Driver.Build(ctx, bundle.Spec{
		Entrypoint: s.Manifest.Entrypoint,
		Icon:       s.Manifest.Icon,
		OutputDir:  filepath.Join(outputDir, "bundles"),
		Variant:    variant,
	})
	if err != nil {
		return "", err
	}
	if err := run.transition(StateBuilt); err != nil {
		return "", err
	}
	logger.Info("bundle built", "variant", variant.Name, "path", built.Path)

	archivePath := filepath.Join(outputDir, s.Manifest.ArchiveName(platform, variant))
	if err := s.Archiver.Archive(ctx, built.Path, archivePath); err != nil {
		return "", fmt.Errorf("archive variant %s: %w", variant.Name, err)
	}
	if err := run.transition(StateArchived); err != nil {
		return "", err
	}
	logger.Info("bundle archived", "variant", variant.Name, "archive", archivePath)

	if s.Store != nil {
		_, err := s.Store.StoreArtifact(archivePath, artifacts.ArchiveArtifact, map[string]any{
			"platform": platform.Name,
			"variant":  variant.Name,
		})
		if err != nil {
			return "", fmt.Errorf("store archive artifact: %w", err)
		}
	}
	return archivePath, nil
}

func (s *Service) publish(ctx context.Context, run *platformRun, logger *slog.Logger, event trigger.Event, archives []string) (bool, error) {
	tag, tagged := event.Tag()
	if !tagged {
		logger.Info("trigger carries no tag, skipping publication")
		return false, run.transition(StateSkipped)
	}

	if s.Publisher == nil {
		return false, errors.New("publisher is not configured")
	}

	if err := s.Publisher.Publish(ctx, tag, archives); err != nil {
		return false, fmt.Errorf("publish release %s: %w", tag, err)
	}
	return true, run.transition(StatePublished)
}

// platformDir is the per-platform output root. Platform runs never
// share a directory, so concurrent instances stay independent.
func (s *Service) platformDir(platform manifest.Platform) string {
	return filepath.Join(s.Manifest.OutputDir, platform.Name)
}
