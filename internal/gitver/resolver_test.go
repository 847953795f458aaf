package gitver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// fakeRunner answers git invocations from a canned table keyed by the
// joined argument list.
type fakeRunner struct {
	responses map[string]string
	failures  map[string]error
	calls     []string
}

func (r *fakeRunner) Run(_ context.Context, _ string, args ...string) (string, error) {
	key := strings.Join(args, " ")
	r.calls = append(r.calls, key)
	if err, ok := r.failures[key]; ok {
		return "", err
	}
	if out, ok := r.responses[key]; ok {
		return out, nil
	}
	return "", fmt.Errorf("unexpected git invocation: %s", key)
}

func TestResolveExactTag(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{responses: map[string]string{
		"rev-parse --short HEAD":        "abc1234",
		"status --porcelain":            "",
		"describe --tags --abbrev=0":    "v1.2.0",
		"rev-list --count v1.2.0..HEAD": "0",
	}}

	resolver := &Resolver{RepoDir: ".", Runner: runner}
	version, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if version.Value != "v1.2.0" {
		t.Fatalf("unexpected version: got %q want %q", version.Value, "v1.2.0")
	}
	if !version.Exact() {
		t.Fatalf("expected exact tag match")
	}
}

func TestResolveTagWithDistance(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{responses: map[string]string{
		"rev-parse --short HEAD":        "abc1234",
		"status --porcelain":            "",
		"describe --tags --abbrev=0":    "v1.2.0",
		"rev-list --count v1.2.0..HEAD": "4",
	}}

	resolver := &Resolver{Runner: runner}
	version, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	want := "v1.2.0-4-gabc1234"
	if version.Value != want {
		t.Fatalf("unexpected version: got %q want %q", version.Value, want)
	}
	if version.Exact() {
		t.Fatalf("version with distance must not be exact")
	}
}

func TestResolveDirtyTreeAppendsMarker(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{responses: map[string]string{
		"rev-parse --short HEAD":        "abc1234",
		"status --porcelain":            " M src/app.py",
		"describe --tags --abbrev=0":    "v1.2.0",
		"rev-list --count v1.2.0..HEAD": "0",
	}}

	resolver := &Resolver{Runner: runner}
	version, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	want := "v1.2.0" + DirtyMarker
	if version.Value != want {
		t.Fatalf("unexpected version: got %q want %q", version.Value, want)
	}
	if !version.Dirty {
		t.Fatalf("expected dirty flag")
	}
	if version.Exact() {
		t.Fatalf("dirty version must not be exact")
	}
}

func TestResolveWithoutTagsFallsBackToCommit(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		responses: map[string]string{
			"rev-parse --short HEAD": "abc1234",
			"status --porcelain":     "",
		},
		failures: map[string]error{
			"describe --tags --abbrev=0": errors.New("fatal: no names found"),
		},
	}

	resolver := &Resolver{Runner: runner}
	version, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if version.Value != "gabc1234" {
		t.Fatalf("unexpected fallback version: got %q", version.Value)
	}
	if version.Tag != "" {
		t.Fatalf("expected empty tag, got %q", version.Tag)
	}
}

func TestResolveWithoutHistoryNeverFails(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{failures: map[string]error{
		"rev-parse --short HEAD": errors.New("fatal: not a git repository"),
	}}

	resolver := &Resolver{Runner: runner}
	version, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() must degrade gracefully, got error %v", err)
	}
	if version.Value == "" {
		t.Fatalf("version must never be empty")
	}
}

func TestResolveShallowHistoryUsesTagWithHashSuffix(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		responses: map[string]string{
			"rev-parse --short HEAD":     "abc1234",
			"status --porcelain":         "",
			"describe --tags --abbrev=0": "v1.2.0",
		},
		failures: map[string]error{
			"rev-list --count v1.2.0..HEAD": errors.New("fatal: shallow clone"),
		},
	}

	resolver := &Resolver{Runner: runner}
	version, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	want := "v1.2.0-gabc1234"
	if version.Value != want {
		t.Fatalf("unexpected version: got %q want %q", version.Value, want)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	t.Parallel()

	responses := map[string]string{
		"rev-parse --short HEAD":        "abc1234",
		"status --porcelain":            "",
		"describe --tags --abbrev=0":    "v1.2.0",
		"rev-list --count v1.2.0..HEAD": "2",
	}

	resolver := &Resolver{Runner: &fakeRunner{responses: responses}}

	first, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	second, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if first != second {
		t.Fatalf("identical inputs must yield identical versions: %+v vs %+v", first, second)
	}
}
