// Package bundle drives an external packaging tool that turns an
// application entry point plus static resources into a self-contained
// executable bundle, one per build variant.
package bundle

import "context"

// Driver produces a Bundle from a Spec. The external tool is treated
// as a black box; the driver only guarantees deterministic argument
// construction and a deterministic output location.
type Driver interface {
	Build(ctx context.Context, spec Spec) (Bundle, error)
}
