package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cochaviz/skiff/internal/manifest"
	"github.com/cochaviz/skiff/internal/trigger"
)

// RunAll resolves the version once, writes the version file, and then
// executes one independent pipeline instance per configured platform,
// concurrently. Every platform embeds the same resolved version.
// Platform instances share no mutable state: every instance writes
// under its own output directory and uploads uniquely named archives,
// so no coordination is needed. The returned results follow the
// manifest's platform order.
func (s *Service) RunAll(ctx context.Context, event trigger.Event) ([]PlatformResult, error) {
	if err := s.Manifest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	version, err := s.resolveVersion(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]PlatformResult, len(s.Manifest.Platforms))

	var wg sync.WaitGroup
	for i, platform := range s.Manifest.Platforms {
		wg.Add(1)
		go func(i int, platform manifest.Platform) {
			defer wg.Done()
			results[i] = s.Run(ctx, platform, event, version)
		}(i, platform)
	}
	wg.Wait()

	return results, summarize(results)
}

// summarize reduces per-platform outcomes to a single error: nil when
// every platform reached Done, otherwise one error naming each failed
// platform. Successful platforms are unaffected by failed ones.
func summarize(results []PlatformResult) error {
	var failed []string
	for _, result := range results {
		if !result.Succeeded() {
			failed = append(failed, fmt.Sprintf("%s: %v", result.Platform.Name, result.Err))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%d platform run(s) failed: %s", len(failed), strings.Join(failed, "; "))
}
