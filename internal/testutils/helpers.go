// Package testutils holds fixtures shared by adapter and CLI tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// SetupProfileRepo initializes a Loam repository in a temporary directory and
// writes docs (file name to content) into it, bypassing the repository so files
// look hand-written. It returns the absolute directory and the repository.
func SetupProfileRepo(t *testing.T, docs map[string]string, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	repo, err := loam.Init(dir, opts...)
	require.NoError(t, err, "Failed to init loam repo")

	for name, content := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644), "Failed to write %s", name)
	}
	return dir, repo
}

// MouseProfile is a Markdown profile document for the "mouse" type.
const MouseProfile = `---
type: mouse
base_resist_time: 3s
mass: 1
---
Small and slippery.
`
