package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_NoArgsPrintsUsage(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cfg, shouldExit, err := Parse(nil, &out)
	require.NoError(t, err)
	require.True(t, shouldExit)
	require.Nil(t, cfg)
	require.Contains(t, out.String(), "Usage:")
}

func TestParse_Help(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cfg, shouldExit, err := Parse([]string{"-h"}, &out)
	require.NoError(t, err)
	require.True(t, shouldExit)
	require.Nil(t, cfg)
	require.Contains(t, out.String(), "appgraph")
}

func TestParse_UnknownFlag(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	_, _, err := Parse([]string{"-definitely-not-a-flag"}, &out)
	require.Error(t, err)
	exitErr, ok := err.(*ExitError)
	require.True(t, ok)
	require.Equal(t, 2, exitErr.Code)
}

func TestParse_PositionalManifest(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cfg, shouldExit, err := Parse([]string{"apps/sub.hcl"}, &out)
	require.NoError(t, err)
	require.False(t, shouldExit)
	require.Equal(t, "apps/sub.hcl", cfg.ManifestPath)
	require.Empty(t, cfg.GraphPath)
}

func TestParse_PositionalGraph(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cfg, _, err := Parse([]string{"apps/nav.subgraph.json"}, &out)
	require.NoError(t, err)
	require.Equal(t, "apps/nav.subgraph.json", cfg.GraphPath)
	require.Empty(t, cfg.ManifestPath)
}

func TestParse_AllFlags(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cfg, shouldExit, err := Parse([]string{
		"-graph", "nav.subgraph.json",
		"-prefix", "sub",
		"-module", "sight",
		"-module", "simbridge",
		"-config", "sub.lidar/VelodyneLidar/port=2368",
		"-config", "sub.lidar/VelodyneLidar/ip=192.168.2.201",
		"-overlay", "overlay.json",
		"-watch",
		"-status-port", "8080",
		"-log-format", "text",
		"-log-level", "debug",
	}, &out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	require.Equal(t, "nav.subgraph.json", cfg.GraphPath)
	require.Equal(t, "sub", cfg.Prefix)
	require.Equal(t, []string{"sight", "simbridge"}, cfg.Modules)
	require.Len(t, cfg.Overrides, 2)
	require.Equal(t, "overlay.json", cfg.OverlayPath)
	require.True(t, cfg.Watch)
	require.Equal(t, 8080, cfg.StatusPort)
	require.Equal(t, "text", cfg.LogFormat)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestParse_InvalidLogFormat(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	_, _, err := Parse([]string{"-graph", "x.json", "-log-format", "yaml"}, &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid log-format")
}

func TestParse_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	_, _, err := Parse([]string{"-graph", "x.json", "-log-level", "loud"}, &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid log-level")
}

func TestParse_ConflictingPaths(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	_, _, err := Parse([]string{"-app", "a.hcl", "-graph", "b.json"}, &out)
	require.Error(t, err)
	exitErr, ok := err.(*ExitError)
	require.True(t, ok)
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, exitErr.Message, "mutually exclusive")
}

func TestParse_WatchRequiresOverlay(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	_, _, err := Parse([]string{"-graph", "x.json", "-watch"}, &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "watch requires")
}
