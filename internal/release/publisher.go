// Package release uploads produced archives as assets of the release
// matching the triggering tag.
package release

import (
	"context"
	"fmt"
	"strings"
)

// Publisher attaches the named archive files to the release for tag.
// The caller decides whether publication applies at all; a Publisher
// is never invoked for runs without an associated tag.
type Publisher interface {
	Publish(ctx context.Context, tag string, archivePaths []string) error
}

// A PartialUploadError reports that some archives were attached while
// others failed. It is a failed outcome, never silently swallowed.
type PartialUploadError struct {
	Tag      string
	Uploaded []string
	Failed   map[string]error
}

func (e *PartialUploadError) Error() string {
	failed := make([]string, 0, len(e.Failed))
	for name := range e.Failed {
		failed = append(failed, name)
	}
	return fmt.Sprintf("partial upload to release %s: %d uploaded, failed: %s",
		e.Tag, len(e.Uploaded), strings.Join(failed, ", "))
}
