package artifacts

type ArtifactKind string

const (
	BundleArtifact  ArtifactKind = "bundle"  // Artifact for packaged application bundles
	ArchiveArtifact ArtifactKind = "archive" // Artifact for compressed release archives
	VersionArtifact ArtifactKind = "version" // Artifact for the embedded version file
)

type Artifact struct {
	ID   string
	Kind ArtifactKind
	URI  string

	ContentType string
	Metadata    map[string]any
}

// Store records produced artifacts for later inspection or re-publish.
type Store interface {
	StoreArtifact(artifactPath string, kind ArtifactKind, metadata map[string]any) (Artifact, error)
	RemoveArtifact(artifact Artifact) error
	Clear() error
}
