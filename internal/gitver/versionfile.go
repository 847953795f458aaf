package gitver

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile persists the version string to the file the application
// imports at startup, overwriting any previous content. The format is
// a single assignment line: __version__ = '<value>'.
func (v Version) WriteFile(path string) error {
	if v.Value == "" {
		return fmt.Errorf("refusing to write empty version to %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create version file directory: %w", err)
		}
	}

	content := fmt.Sprintf("__version__ = '%s'\n", v.Value)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write version file: %w", err)
	}
	return nil
}
