package bundle

import (
	"fmt"
	"time"
)

// Variant is a named build configuration. The name doubles as the
// output bundle's name, so it must be unique within one platform run.
type Variant struct {
	// Name of the variant, used verbatim as the bundle name.
	Name string `yaml:"name"`
	// Console attaches a terminal window to the packaged application.
	Console bool `yaml:"console"`
	// OneFile packs the bundle into a single executable instead of a
	// directory tree.
	OneFile bool `yaml:"onefile"`
	// ExcludeResources lists static resources left out of the bundle.
	ExcludeResources []string `yaml:"exclude_resources"`
}

// Spec captures the inputs for one packager invocation.
type Spec struct {
	Entrypoint string
	Icon       string
	OutputDir  string
	Variant    Variant
}

// Bundle is the self-contained output of one packager invocation.
type Bundle struct {
	Path      string
	Variant   Variant
	CreatedAt time.Time
}

// A BuildError represents a failure of the external packaging tool.
// It is fatal to the platform run that produced it.
type BuildError struct {
	Message string
}

// Error returns the error message.
func (e *BuildError) Error() string {
	return e.Message
}

func buildErrorf(format string, args ...any) *BuildError {
	return &BuildError{Message: fmt.Sprintf(format, args...)}
}
