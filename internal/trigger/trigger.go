// Package trigger models the external event that starts a pipeline run:
// a pushed ref or a published release. An Event is an immutable value
// consumed once per run and never persisted.
package trigger

import (
	"fmt"
	"os"
	"strings"
)

// EventKind identifies how the pipeline was started.
type EventKind string

// Supported event kinds.
const (
	KindPush    EventKind = "push"
	KindRelease EventKind = "release"
)

const tagRefPrefix = "refs/tags/"

// Event is the occurrence that triggered a pipeline run. Ref may be
// empty (e.g. a manually started run) or a non-tag ref such as
// refs/heads/main; both are tolerated and simply carry no tag.
type Event struct {
	Kind EventKind
	Ref  string
}

// Parse validates an event kind and ref pair.
func Parse(kind, ref string) (Event, error) {
	switch EventKind(strings.ToLower(strings.TrimSpace(kind))) {
	case KindPush:
		return Event{Kind: KindPush, Ref: strings.TrimSpace(ref)}, nil
	case KindRelease:
		return Event{Kind: KindRelease, Ref: strings.TrimSpace(ref)}, nil
	default:
		return Event{}, fmt.Errorf("unknown event kind %q", kind)
	}
}

// FromEnv reads the triggering event from the CI environment
// (GITHUB_EVENT_NAME and GITHUB_REF). Absent variables yield a plain
// push event with no ref.
func FromEnv() Event {
	kind := strings.TrimSpace(os.Getenv("GITHUB_EVENT_NAME"))
	ref := strings.TrimSpace(os.Getenv("GITHUB_REF"))

	event, err := Parse(kind, ref)
	if err != nil {
		return Event{Kind: KindPush, Ref: ref}
	}
	return event
}

// Tag returns the tag name associated with the event, if any. Push
// events carry a tag only for refs/tags/ refs; release events carry
// the release tag either bare or as a fully qualified ref.
func (e Event) Tag() (string, bool) {
	ref := strings.TrimSpace(e.Ref)
	if ref == "" {
		return "", false
	}

	if strings.HasPrefix(ref, tagRefPrefix) {
		tag := strings.TrimPrefix(ref, tagRefPrefix)
		return tag, tag != ""
	}

	if e.Kind == KindRelease && !strings.HasPrefix(ref, "refs/") {
		return ref, true
	}
	return "", false
}

// TagAssociated reports whether the event should cause publication.
func (e Event) TagAssociated() bool {
	_, ok := e.Tag()
	return ok
}
