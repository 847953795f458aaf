// Package setup provides functions for preparing a pipeline run.
// It verifies that the manifest and the external tools the pipeline
// shells out to are present before any work starts.
//
// This package is essentially a collection of scripts and constants, and is therefore the only package that is
// allowed to call a global logger.
package setup
