package setup

import (
	"fmt"
	"os"
	"os/exec"
)

// DefaultManifestPath is where the pipeline manifest is looked up when
// no explicit path is given.
var DefaultManifestPath = "skiff.yaml"

// requiredTools are the external binaries the pipeline shells out to.
var requiredTools = [...]string{
	"git",
}

// Verify checks that the manifest exists and the required external
// tools are resolvable. The packager binary is checked separately
// because its name is configurable per manifest.
func Verify(manifestPath string) error {
	if manifestPath == "" {
		manifestPath = DefaultManifestPath
	}

	getLogger().Info("verifying pipeline prerequisites", "manifest", manifestPath)

	if _, err := os.Stat(manifestPath); err != nil {
		return fmt.Errorf("manifest %s does not exist", manifestPath)
	}

	for _, tool := range requiredTools {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("required tool %s not found on PATH", tool)
		}
	}
	return nil
}

// VerifyPackager checks that the configured packager binary resolves.
func VerifyPackager(executable string) error {
	if executable == "" {
		return fmt.Errorf("packager executable is not configured")
	}
	if _, err := exec.LookPath(executable); err != nil {
		return fmt.Errorf("packager %s not found on PATH", executable)
	}
	return nil
}
