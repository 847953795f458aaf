package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kdomanski/iso9660"
)

// Ensure ISOArchiver satisfies the archiver interface.
var _ Archiver = (*ISOArchiver)(nil)

// ISOArchiver writes a bundle into an ISO9660 disk image, the
// disk-image style of distribution macOS mounts natively. Only
// directory bundles are supported; single-file bundles are placed at
// the image root.
type ISOArchiver struct{}

// Archive writes the bundle at bundlePath into an ISO image at destPath.
func (a *ISOArchiver) Archive(ctx context.Context, bundlePath, destPath string) error {
	info, err := os.Stat(bundlePath)
	if err != nil {
		return fmt.Errorf("stat bundle: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	writer, err := iso9660.NewWriter()
	if err != nil {
		return fmt.Errorf("create iso writer: %w", err)
	}
	defer writer.Cleanup()

	if info.IsDir() {
		if err := writer.AddLocalDirectory(bundlePath, "/"); err != nil {
			return fmt.Errorf("stage bundle: %w", err)
		}
	} else {
		src, err := os.Open(bundlePath)
		if err != nil {
			return fmt.Errorf("open bundle: %w", err)
		}
		defer src.Close()
		if err := writer.AddFile(src, filepath.Base(bundlePath)); err != nil {
			return fmt.Errorf("stage bundle: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("ensure archive directory: %w", err)
	}

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}

	if err := writer.WriteTo(out, VolumeLabel(filepath.Base(bundlePath))); err != nil {
		out.Close()
		_ = os.Remove(destPath)
		return fmt.Errorf("write iso: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(destPath)
		return fmt.Errorf("finalize iso: %w", err)
	}
	return nil
}

// VolumeLabel derives an ISO volume label from the bundle name:
// uppercase alphanumerics with everything else folded to underscores,
// capped at 32 characters.
func VolumeLabel(name string) string {
	const maxLen = 32

	if name == "" {
		return "BUNDLE"
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - ('a' - 'A'))
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
		if b.Len() >= maxLen {
			break
		}
	}
	return b.String()
}
