package bundle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Ensure PyInstallerDriver satisfies the bundle driver interface.
var _ Driver = (*PyInstallerDriver)(nil)

// DefaultExecutable is the packager binary looked up on PATH when no
// explicit executable is configured.
const DefaultExecutable = "pyinstaller"

// PyInstallerDriver packages an application with PyInstaller. The
// produced bundle does not depend on the build machine's installed
// interpreter or libraries at execution time.
type PyInstallerDriver struct {
	// Executable overrides the packager binary. Empty means
	// DefaultExecutable resolved via PATH.
	Executable string
	// WorkDir is the directory the packager runs in. Empty means the
	// current directory.
	WorkDir string
	Logger  *slog.Logger
}

func (d *PyInstallerDriver) logger() *slog.Logger {
	if d != nil && d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d *PyInstallerDriver) executable() string {
	if d != nil && d.Executable != "" {
		return d.Executable
	}
	return DefaultExecutable
}

// Build invokes the packager and returns the produced bundle. A
// non-zero exit is fatal to the platform run; no partial bundle is
// handed to later stages.
func (d *PyInstallerDriver) Build(ctx context.Context, spec Spec) (Bundle, error) {
	if err := validateSpec(spec); err != nil {
		return Bundle{}, err
	}

	args := BuildArgs(spec)
	logger := d.logger().With("variant", spec.Variant.Name)
	logger.Info("running packager",
		"executable", d.executable(),
		"command", strings.Join(args, " "),
	)

	cmd := exec.CommandContext(ctx, d.executable(), args...)
	cmd.Dir = d.WorkDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return Bundle{}, buildErrorf("packager failed for variant %s: %v", spec.Variant.Name, err)
	}

	bundlePath := OutputPath(spec)
	if _, err := os.Stat(bundlePath); err != nil {
		return Bundle{}, buildErrorf("packager reported success but produced no bundle at %s", bundlePath)
	}

	logger.Info("bundle produced", "path", bundlePath)
	return Bundle{
		Path:      bundlePath,
		Variant:   spec.Variant,
		CreatedAt: time.Now(),
	}, nil
}

// BuildArgs constructs the packager's argument list. Flag order is
// fixed and excluded resources are sorted so identical specs always
// yield identical invocations. Scratch directories live under the
// spec's output directory, so concurrent invocations with distinct
// output directories never share build state.
func BuildArgs(spec Spec) []string {
	args := []string{
		"--noconfirm",
		"--clean",
		"--name", spec.Variant.Name,
		"--distpath", spec.OutputDir,
		"--workpath", filepath.Join(spec.OutputDir, "build"),
		"--specpath", filepath.Join(spec.OutputDir, "spec"),
	}

	if spec.Icon != "" {
		args = append(args, "--icon", spec.Icon)
	}

	if spec.Variant.Console {
		args = append(args, "--console")
	} else {
		args = append(args, "--windowed")
	}

	if spec.Variant.OneFile {
		args = append(args, "--onefile")
	} else {
		args = append(args, "--onedir")
	}

	excluded := append([]string(nil), spec.Variant.ExcludeResources...)
	sort.Strings(excluded)
	for _, resource := range excluded {
		args = append(args, "--exclude-module", resource)
	}

	return append(args, spec.Entrypoint)
}

// OutputPath returns the deterministic location of the produced bundle.
func OutputPath(spec Spec) string {
	return filepath.Join(spec.OutputDir, spec.Variant.Name)
}

func validateSpec(spec Spec) error {
	if spec.Entrypoint == "" {
		return fmt.Errorf("entrypoint is required")
	}
	if spec.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if spec.Variant.Name == "" {
		return fmt.Errorf("variant name is required")
	}
	return nil
}
