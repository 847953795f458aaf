package artifacts

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore persists artifacts and metadata on disk under BaseDir.
type LocalStore struct {
	BaseDir string
}

// StoreArtifact copies the artifact into the store directory and records metadata.
func (store *LocalStore) StoreArtifact(artifactPath string, kind ArtifactKind, metadata map[string]any) (Artifact, error) {
	if store.BaseDir == "" {
		return Artifact{}, errors.New("base directory is not configured")
	}
	if artifactPath == "" {
		return Artifact{}, errors.New("artifact path is required")
	}

	if err := os.MkdirAll(store.BaseDir, 0o755); err != nil {
		return Artifact{}, err
	}

	src, err := os.Open(artifactPath)
	if err != nil {
		return Artifact{}, err
	}
	defer src.Close()

	artifactID := uuid.NewString()
	destName := artifactID
	if ext := filepath.Ext(artifactPath); ext != "" {
		destName += ext
	}

	destPath := filepath.Join(store.BaseDir, destName)
	dst, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return Artifact{}, err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return Artifact{}, err
	}
	if err := dst.Close(); err != nil {
		return Artifact{}, err
	}

	artifact := Artifact{
		ID:          artifactID,
		Kind:        kind,
		URI:         fileURI(destPath),
		Metadata:    cloneMetadata(metadata),
		ContentType: detectContentType(destPath),
	}

	if err := store.writeMetadata(destPath, artifact); err != nil {
		return Artifact{}, err
	}
	return artifact, nil
}

// RemoveArtifact deletes the artifact file and its metadata document.
func (store *LocalStore) RemoveArtifact(artifact Artifact) error {
	path, err := PathFromURI(artifact.URI)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Remove(metadataPath(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Clear removes all artifacts and metadata under the store's base directory.
func (store *LocalStore) Clear() error {
	entries, err := os.ReadDir(store.BaseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(store.BaseDir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (store *LocalStore) writeMetadata(filePath string, artifact Artifact) error {
	payload, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(metadataPath(filePath), payload, 0o644)
}

// PathFromURI resolves a file:// URI back to a local path.
func PathFromURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, "file://") {
		return "", errors.New("unsupported URI scheme")
	}
	return strings.TrimPrefix(uri, "file://"), nil
}

func metadataPath(path string) string {
	return path + ".json"
}

func fileURI(path string) string {
	return "file://" + path
}

func detectContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return "application/zip"
	case ".iso":
		return "application/x-iso9660-image"
	case ".json":
		return "application/json"
	case ".txt", ".py":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

func cloneMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	cloned := make(map[string]any, len(metadata))
	for k, v := range metadata {
		cloned[k] = v
	}
	return cloned
}
