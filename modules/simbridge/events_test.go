package simbridge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/appgraphgo/internal/graph"
	"github.com/vk/appgraphgo/internal/nodeconfig"
	"github.com/vk/appgraphgo/internal/registry"
)

func testEnv() *registry.Env {
	return &registry.Env{
		AppName: "sub",
		RunID:   "3e8e7a4e-test",
		Graph: &graph.Graph{
			Name: "sub",
			Nodes: []*graph.Node{
				{
					Name: "sub.lidar",
					Components: []*graph.Component{
						{Name: "VelodyneLidar", Type: "velodyne_lidar.VelodyneLidar"},
					},
				},
				{Name: "sub.idle", Disabled: true},
			},
		},
		Config: nodeconfig.New(),
	}
}

func TestBuildRegisterPayload(t *testing.T) {
	t.Parallel()

	payload := buildRegisterPayload(testEnv())
	require.Equal(t, "sub", payload["application"])
	require.Equal(t, "3e8e7a4e-test", payload["uuid"])

	nodes, ok := payload["nodes"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, nodes, 2)
	require.Equal(t, "sub.lidar", nodes[0]["name"])
	require.Equal(t, false, nodes[0]["disabled"])
	require.Equal(t, true, nodes[1]["disabled"])

	components, ok := nodes[0]["components"].([]map[string]string)
	require.True(t, ok)
	require.Len(t, components, 1)
	require.Equal(t, "velodyne_lidar.VelodyneLidar", components[0]["type"])
}

func TestApplyConfigEvent(t *testing.T) {
	t.Parallel()

	env := testEnv()
	err := applyConfigEvent(env, map[string]any{
		"node":      "sub.lidar",
		"component": "VelodyneLidar",
		"key":       "port",
		"value":     float64(2368),
	})
	require.NoError(t, err)
	require.Equal(t, 2368, env.Config.GetInt("sub.lidar", "VelodyneLidar", "port", 0))
}

func TestApplyConfigEvent_Malformed(t *testing.T) {
	t.Parallel()

	env := testEnv()
	cases := []struct {
		name    string
		data    []any
		wantErr string
	}{
		{"no payload", nil, "no payload"},
		{"payload not an object", []any{"nope"}, "must be an object"},
		{"missing node", []any{map[string]any{"component": "C", "key": "k", "value": 1}}, `missing "node"`},
		{"empty key", []any{map[string]any{"node": "n", "component": "C", "key": "", "value": 1}}, `field "key"`},
		{"non-string component", []any{map[string]any{"node": "n", "component": 7, "key": "k", "value": 1}}, `field "component"`},
		{"missing value", []any{map[string]any{"node": "n", "component": "C", "key": "k"}}, `missing "value"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := applyConfigEvent(env, tc.data...)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
