package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/resist"
	"github.com/aretw0/resist/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "resist version "+resist.Version+"\n", out)
}

func TestSimulate_Examples(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("..", "..", "examples", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	for _, path := range matches {
		t.Run(filepath.Base(path), func(t *testing.T) {
			out, err := execute(t, "simulate", "--format", "lines", path)
			require.NoError(t, err, out)
			assert.NotContains(t, out, "failure")
		})
	}
}

func TestSimulate_FailingScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pinned.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: pinned
entities:
  - {id: crate, features: [storage]}
  - {id: mouse, parent: crate, pinned: true, escape: true}
steps:
  - {action: move, entity: mouse, keys: [up]}
  - {action: expect, entity: mouse, expect: {escaping: true}}
`), 0644))

	_, err := execute(t, "simulate", "--format", "markdown", path)
	assert.ErrorIs(t, err, runner.ErrExpectationFailed)
}

func TestSimulate_RequiresScenario(t *testing.T) {
	_, err := execute(t, "simulate")
	assert.Error(t, err)
}

func TestGraph(t *testing.T) {
	out, err := execute(t, "graph", filepath.Join("..", "..", "examples", "scenarios", "hand-grip.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "human -- \"hand\" --> cat")
}
