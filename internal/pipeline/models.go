package pipeline

import (
	"time"

	"github.com/cochaviz/skiff/internal/gitver"
	"github.com/cochaviz/skiff/internal/manifest"
)

// State captures the lifecycle of one platform's pipeline run.
type State string

// Pipeline run states.
const (
	StateTriggered       State = "triggered"
	StateVersionResolved State = "version_resolved"
	StateBuilt           State = "built"
	StateArchived        State = "archived"
	StatePublished       State = "published"
	StateSkipped         State = "skipped"
	StateDone            State = "done"
	StateAborted         State = "aborted"
)

// Transition is one recorded state change of a platform run.
type Transition struct {
	From State
	To   State
	At   time.Time
}

// PlatformResult is the immutable outcome of one platform's pipeline
// instance. Failure in one platform never affects another's result.
type PlatformResult struct {
	RunID    string
	Platform manifest.Platform
	State    State
	Version  gitver.Version

	// Archives lists the produced archive paths, one per variant.
	Archives []string

	// Published reports whether the archives were uploaded; false for
	// deliberate skips on non-tag triggers.
	Published bool

	Err         error
	Transitions []Transition
}

// Succeeded reports whether the platform run reached its terminal
// success state. A deliberate publish skip still counts as success.
func (r PlatformResult) Succeeded() bool {
	return r.State == StateDone
}
