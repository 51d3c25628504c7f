package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const statusGraph = `{
  "modules": ["velodyne_lidar"],
  "graph": {
    "nodes": [
      {"name": "lidar", "components": [
        {"name": "VelodyneLidar", "type": "velodyne_lidar.VelodyneLidar"}
      ]}
    ],
    "edges": []
  },
  "config": {
    "lidar": {"VelodyneLidar": {"port": 2368}}
  }
}`

func newStatusApp(t *testing.T) *App {
	t.Helper()

	graphPath := filepath.Join(t.TempDir(), "nav.subgraph.json")
	require.NoError(t, os.WriteFile(graphPath, []byte(statusGraph), 0644))

	cfg, err := NewConfig(Config{
		GraphPath:  graphPath,
		StatusPort: 8080,
		LogFormat:  "text",
		LogLevel:   "debug",
	})
	require.NoError(t, err)
	return New(context.Background(), io.Discard, cfg)
}

func TestStatusMux_Health(t *testing.T) {
	t.Parallel()

	mux := newStatusApp(t).newStatusMux()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK\n", rec.Body.String())
}

func TestStatusMux_Graph(t *testing.T) {
	t.Parallel()

	a := newStatusApp(t)
	rec := httptest.NewRecorder()
	a.newStatusMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graph", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Application string          `json:"application"`
		UUID        string          `json:"uuid"`
		Graph       json.RawMessage `json:"graph"`
		Config      json.RawMessage `json:"config"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "nav", body.Application)
	require.Equal(t, a.UUID(), body.UUID)
	require.Contains(t, string(body.Graph), "velodyne_lidar.VelodyneLidar")
	require.Contains(t, string(body.Config), `"port"`)
}

func TestStatusMux_Metrics(t *testing.T) {
	t.Parallel()

	mux := newStatusApp(t).newStatusMux()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "appgraph_graphs_loaded_total 1")
	require.Contains(t, rec.Body.String(), "appgraph_graph_nodes 1")
}

func TestAppNameFromGraphPath(t *testing.T) {
	t.Parallel()

	require.Equal(t, "nav", appNameFromGraphPath("/x/y/nav.subgraph.json"))
	require.Equal(t, "nav", appNameFromGraphPath("nav.json"))
	require.Equal(t, "nav", appNameFromGraphPath("nav"))
}

func TestRun_OverlayFailureClosesStatusServer(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	dir := t.TempDir()
	graphPath := filepath.Join(dir, "nav.subgraph.json")
	require.NoError(t, os.WriteFile(graphPath, []byte(statusGraph), 0644))
	overlayPath := filepath.Join(dir, "overlay.json")
	require.NoError(t, os.WriteFile(overlayPath, []byte(`{"broken":`), 0644))

	cfg, err := NewConfig(Config{
		GraphPath:   graphPath,
		OverlayPath: overlayPath,
		StatusPort:  port,
		LogFormat:   "text",
		LogLevel:    "debug",
	})
	require.NoError(t, err)

	a := New(context.Background(), io.Discard, cfg)
	err = a.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "config overlay")

	// The aborted run must leave the status port closed.
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), time.Second)
	if err == nil {
		conn.Close()
		t.Fatal("status server still listening after aborted run")
	}
}
