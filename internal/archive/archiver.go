// Package archive turns a produced bundle into a single portable file:
// execute permissions are normalized so the extracted application is
// runnable, and the bundle tree is compressed recursively.
package archive

import (
	"context"
	"fmt"
	"strings"
)

// Format selects the archive container written for a bundle.
type Format string

// Supported archive formats.
const (
	FormatZip Format = "zip"
	FormatISO Format = "iso"
)

// ReleaseVariantName is the variant whose archive name omits the
// variant segment, matching the published asset naming scheme.
const ReleaseVariantName = "release"

// Archiver compresses one bundle into a single file at destPath.
type Archiver interface {
	Archive(ctx context.Context, bundlePath, destPath string) error
}

// ForFormat returns the archiver implementing the requested format.
func ForFormat(format Format) (Archiver, error) {
	switch format {
	case FormatZip, "":
		return &ZipArchiver{}, nil
	case FormatISO:
		return &ISOArchiver{}, nil
	default:
		return nil, fmt.Errorf("unsupported archive format %q", format)
	}
}

// Extension returns the file extension for the format, without a dot.
func (f Format) Extension() string {
	if f == "" {
		return string(FormatZip)
	}
	return string(f)
}

// Name derives the archive file name for one (variant, platform) pair.
// The release variant drops its variant segment:
//
//	Name("app", "release", "macos", FormatZip) == "app_macos.zip"
//	Name("app", "debug", "macos", FormatZip)   == "app_debug_macos.zip"
//
// Uniqueness across the configured (variant, platform) set follows
// from qualifier and variant uniqueness; the orchestrator validates it
// before building anything.
func Name(app, variant, qualifier string, format Format) string {
	parts := []string{app}
	if variant != "" && variant != ReleaseVariantName {
		parts = append(parts, variant)
	}
	if qualifier != "" {
		parts = append(parts, qualifier)
	}
	return strings.Join(parts, "_") + "." + format.Extension()
}
