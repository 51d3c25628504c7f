package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/appgraphgo/internal/cli"
)

func TestRun_NoArgsExitsCleanly(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, run(&out, nil))
	require.Contains(t, out.String(), "Usage:")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := run(&out, []string{"-not-a-real-flag"})
	require.Error(t, err)
	exitErr, ok := err.(*cli.ExitError)
	require.True(t, ok)
	require.Equal(t, 2, exitErr.Code)
}

func TestRun_PanicRecovery(t *testing.T) {
	t.Parallel()

	manifestPath := filepath.Join(t.TempDir(), "broken.hcl")
	require.NoError(t, os.WriteFile(manifestPath, []byte(`application { name = `), 0644))

	var out bytes.Buffer
	err := run(&out, []string{manifestPath})
	require.Error(t, err)
	require.Contains(t, err.Error(), "application startup panicked")
	require.Contains(t, err.Error(), "failed to parse")
}

func TestRun_MissingGraphFile(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := run(&out, []string{filepath.Join(t.TempDir(), "absent.subgraph.json")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "application startup panicked")
	require.Contains(t, err.Error(), "failed to load graph")
}
