// Package utils holds small helpers shared across malhf's package test
// suites, adapted from the teacher's test/utils (originally built around its
// key/value Index interface) to the tuple/relation domain.
package utils

import (
	"path/filepath"
	"testing"
)

// TempRelationPath returns a fresh, not-yet-existing relation name rooted in
// a directory that testing.T will clean up automatically.
func TempRelationPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "rel")
}
