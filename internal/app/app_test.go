package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vk/appgraphgo/internal/app"
	"github.com/vk/appgraphgo/internal/testutil"
)

const navSubgraph = `{
  "modules": ["velodyne_lidar", "viewers"],
  "graph": {
    "nodes": [
      {"name": "lidar", "components": [
        {"name": "VelodyneLidar", "type": "velodyne_lidar.VelodyneLidar"}
      ]},
      {"name": "viewer", "components": [
        {"name": "RangeScan", "type": "viewers.RangeScanViewer"}
      ]}
    ],
    "edges": [
      {"source": "lidar/VelodyneLidar/scan", "target": "viewer/RangeScan/scan"}
    ]
  },
  "config": {
    "lidar": {"VelodyneLidar": {"ip": "192.168.2.201", "port": 2368}}
  }
}`

const rangeSchema = `{"protos": [
  {"name": "RangeScanProto", "id": 9741, "fields": [
    {"name": "phi", "type": "float_list"},
    {"name": "frame", "type": "string"}
  ]}
]}`

const navManifest = `
application {
  name           = "sub"
  home_workspace = "velodyne"
}

workspace "velodyne" {
  root = "ws"
}

load {
  graph  = "@velodyne//apps/nav.subgraph.json"
  prefix = "sub"
}

module "sight" {}

config {
  node      = "sub.lidar"
  component = "VelodyneLidar"
  key       = "port"
  value     = 9999
}

schemas {
  glob = "messages/*.schema.json"
}
`

func navFiles() map[string]string {
	return map[string]string{
		"app.hcl":                    navManifest,
		"ws/apps/nav.subgraph.json":  navSubgraph,
		"messages/range.schema.json": rangeSchema,
	}
}

func TestNew_FromManifest(t *testing.T) {
	t.Parallel()

	res := testutil.LaunchApp(t, navFiles(), app.Config{ManifestPath: "app.hcl"})
	require.NoError(t, res.Err)
	a := res.App

	require.Equal(t, "sub", a.Name())
	require.NotEmpty(t, a.UUID())
	require.Equal(t, []string{"sight"}, a.ActiveModules())

	require.NotNil(t, a.Node("sub.lidar"))
	require.Nil(t, a.Node("lidar"))

	// Subgraph config survives the prefix; the manifest write wins over it.
	require.Equal(t, "192.168.2.201", a.GetConfigString("sub.lidar", "VelodyneLidar", "ip", ""))
	require.Equal(t, 9999, a.GetConfigInt("sub.lidar", "VelodyneLidar", "port", 0))

	b, err := a.MessageBuilder("RangeScanProto")
	require.NoError(t, err)
	require.NoError(t, b.Set("frame", "lidar"))
}

func TestNew_FromGraphPath(t *testing.T) {
	t.Parallel()

	res := testutil.LaunchApp(t, map[string]string{
		"nav.subgraph.json": navSubgraph,
	}, app.Config{GraphPath: "nav.subgraph.json", Prefix: "main"})
	require.NoError(t, res.Err)

	require.Equal(t, "nav", res.App.Name())
	require.NotNil(t, res.App.Node("main.lidar"))
}

func TestNew_Overrides(t *testing.T) {
	t.Parallel()

	res := testutil.LaunchApp(t, map[string]string{
		"nav.subgraph.json": navSubgraph,
	}, app.Config{
		GraphPath: "nav.subgraph.json",
		Overrides: []string{"lidar/VelodyneLidar/port=7070", "lidar/VelodyneLidar/ip=10.1.1.1"},
	})
	require.NoError(t, res.Err)
	require.Equal(t, 7070, res.App.GetConfigInt("lidar", "VelodyneLidar", "port", 0))
	require.Equal(t, "10.1.1.1", res.App.GetConfigString("lidar", "VelodyneLidar", "ip", ""))
}

func TestNew_BadOverride(t *testing.T) {
	t.Parallel()

	res := testutil.LaunchApp(t, map[string]string{
		"nav.subgraph.json": navSubgraph,
	}, app.Config{
		GraphPath: "nav.subgraph.json",
		Overrides: []string{"missing-equals"},
	})
	require.Error(t, res.Err)
	require.Contains(t, res.Err.Error(), "invalid config override")
}

func TestNew_UnknownModule(t *testing.T) {
	t.Parallel()

	res := testutil.LaunchApp(t, map[string]string{
		"nav.subgraph.json": navSubgraph,
	}, app.Config{
		GraphPath: "nav.subgraph.json",
		Modules:   []string{"nope"},
	})
	require.Error(t, res.Err)
	require.Contains(t, res.Err.Error(), `unknown module "nope"`)
}

func TestNew_MissingGraphFile(t *testing.T) {
	t.Parallel()

	res := testutil.LaunchApp(t, nil, app.Config{GraphPath: "absent.subgraph.json"})
	require.Error(t, res.Err)
	require.Contains(t, res.Err.Error(), "failed to load graph")
}

func TestLoadModule_Idempotent(t *testing.T) {
	t.Parallel()

	res := testutil.LaunchApp(t, map[string]string{
		"nav.subgraph.json": navSubgraph,
	}, app.Config{GraphPath: "nav.subgraph.json"})
	require.NoError(t, res.Err)

	require.NoError(t, res.App.LoadModule("sight"))
	require.NoError(t, res.App.LoadModule("sight"))
	require.Equal(t, []string{"sight"}, res.App.ActiveModules())
	require.Error(t, res.App.LoadModule("definitely-not-a-module"))
}

func TestRun_LifecycleAndOnce(t *testing.T) {
	t.Parallel()

	res := testutil.LaunchApp(t, map[string]string{
		"nav.subgraph.json": navSubgraph,
		"overlay.json":      `{"lidar": {"VelodyneLidar": {"port": 5555}}}`,
	}, app.Config{
		GraphPath:   "nav.subgraph.json",
		OverlayPath: "overlay.json",
	})
	require.NoError(t, res.Err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- res.App.Run(ctx) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}

	// The overlay was applied before the run loop blocked.
	require.Equal(t, 5555, res.App.GetConfigInt("lidar", "VelodyneLidar", "port", 0))

	err := res.App.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "already called")
}

func TestRun_FailsValidation(t *testing.T) {
	t.Parallel()

	res := testutil.LaunchApp(t, map[string]string{
		"bad.subgraph.json": `{"graph": {"nodes": [
			{"name": "orphan", "components": [{"name": "C", "type": "mystery.Component"}]}
		]}}`,
	}, app.Config{GraphPath: "bad.subgraph.json"})
	require.NoError(t, res.Err)

	err := res.App.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "neither activated nor declared")
}
