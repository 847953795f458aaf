// Package gitver derives a human-readable version string from the
// repository's tag history and working-tree state.
package gitver

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// fallbackVersion is used when the checkout carries no usable history
// at all (e.g. a shallow clone with no commits reachable).
const fallbackVersion = "unknown"

// DirtyMarker is appended to the version when the working tree has
// uncommitted modifications.
const DirtyMarker = "+dirty"

// Version is the resolved identifier for the current checkout.
type Version struct {
	// Value is the full human-readable version string. Never empty.
	Value string
	// Tag is the nearest reachable tag, empty when no tag exists.
	Tag string
	// Commit is the abbreviated hash of HEAD, empty when unavailable.
	Commit string
	// Distance is the number of commits between HEAD and Tag.
	Distance int
	// Dirty reports uncommitted working-tree modifications.
	Dirty bool
}

// Exact reports whether HEAD sits exactly on the resolved tag with a
// clean working tree.
func (v Version) Exact() bool {
	return v.Tag != "" && v.Distance == 0 && !v.Dirty
}

// CommandRunner executes a git subcommand in a repository directory
// and returns its standard output. Implemented by GitRunner; tests
// substitute a fake.
type CommandRunner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// GitRunner runs the git CLI.
type GitRunner struct{}

func (GitRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			message = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), message)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Resolver derives a Version from the repository at RepoDir.
type Resolver struct {
	RepoDir string
	Runner  CommandRunner
	Logger  *slog.Logger
}

func (r *Resolver) logger() *slog.Logger {
	if r != nil && r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Resolver) runner() CommandRunner {
	if r != nil && r.Runner != nil {
		return r.Runner
	}
	return GitRunner{}
}

// Resolve computes the version for the current checkout. Missing or
// ambiguous history degrades to the most specific identifier still
// available; Resolve never fails outright over history alone.
func (r *Resolver) Resolve(ctx context.Context) (Version, error) {
	logger := r.logger()
	runner := r.runner()

	commit, err := runner.Run(ctx, r.RepoDir, "rev-parse", "--short", "HEAD")
	if err != nil {
		logger.Warn("no commit reachable, falling back to placeholder version", "error", err)
		return Version{Value: fallbackVersion}, nil
	}

	dirty, err := r.isDirty(ctx)
	if err != nil {
		logger.Warn("dirty check failed, assuming clean tree", "error", err)
		dirty = false
	}

	tag, err := runner.Run(ctx, r.RepoDir, "describe", "--tags", "--abbrev=0")
	if err != nil {
		logger.Info("no tag reachable, using commit hash", "commit", commit)
		return withDirty(Version{Value: "g" + commit, Commit: commit}, dirty), nil
	}

	distance, err := r.distanceFrom(ctx, tag)
	if err != nil {
		logger.Warn("commit distance unavailable, using tag with hash suffix", "tag", tag, "error", err)
		return withDirty(Version{
			Value:  fmt.Sprintf("%s-g%s", tag, commit),
			Tag:    tag,
			Commit: commit,
		}, dirty), nil
	}

	version := Version{Tag: tag, Commit: commit, Distance: distance}
	if distance == 0 {
		version.Value = tag
	} else {
		version.Value = fmt.Sprintf("%s-%d-g%s", tag, distance, commit)
	}
	return withDirty(version, dirty), nil
}

func (r *Resolver) isDirty(ctx context.Context) (bool, error) {
	status, err := r.runner().Run(ctx, r.RepoDir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(status) != "", nil
}

func (r *Resolver) distanceFrom(ctx context.Context, tag string) (int, error) {
	output, err := r.runner().Run(ctx, r.RepoDir, "rev-list", "--count", tag+"..HEAD")
	if err != nil {
		return 0, err
	}

	distance, err := strconv.Atoi(strings.TrimSpace(output))
	if err != nil {
		return 0, fmt.Errorf("parse commit distance %q: %w", output, err)
	}
	return distance, nil
}

func withDirty(version Version, dirty bool) Version {
	if dirty {
		version.Value += DirtyMarker
		version.Dirty = true
	}
	return version
}
