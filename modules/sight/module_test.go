package sight

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/appgraphgo/internal/ctxlog"
	"github.com/vk/appgraphgo/internal/registry"
)

func testCtx() context.Context {
	return ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStartWebsightServer_PortOutOfRange(t *testing.T) {
	t.Parallel()

	_, err := StartWebsightServer(testCtx(), &registry.Env{}, &Config{Port: 99999})
	require.Error(t, err)
	require.Contains(t, err.Error(), "out of range")
}

func TestStartWebsightServer_MissingWebroot(t *testing.T) {
	t.Parallel()

	cfg := &Config{WebrootPath: filepath.Join(t.TempDir(), "does-not-exist")}
	_, err := StartWebsightServer(testCtx(), &registry.Env{}, cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "webroot_path")
}

func TestStartWebsightServer_WebrootIsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "webroot")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := StartWebsightServer(testCtx(), &registry.Env{}, &Config{WebrootPath: path})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a directory")
}

func TestStartWebsightServer_AttachesRoutes(t *testing.T) {
	t.Parallel()

	webroot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(webroot, "index.html"), []byte("<html>sight</html>"), 0644))
	assetroot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(assetroot, "robot.obj"), []byte("v 0 0 0"), 0644))

	env := &registry.Env{Mux: http.NewServeMux()}
	inst, err := StartWebsightServer(testCtx(), env, &Config{
		WebrootPath:   webroot,
		AssetrootPath: assetroot,
		Port:          3000,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, inst.Stop(testCtx())) })

	rec := httptest.NewRecorder()
	env.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sight/index.html", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "sight")

	rec = httptest.NewRecorder()
	env.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/robot.obj", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestStartWebsightServer_NoStatusSurface(t *testing.T) {
	t.Parallel()

	inst, err := StartWebsightServer(testCtx(), &registry.Env{}, &Config{Port: 3000})
	require.NoError(t, err)
	require.NoError(t, inst.Stop(testCtx()))
}

func TestRegister(t *testing.T) {
	t.Parallel()

	r := registry.New()
	(&Module{}).Register(r)
	require.True(t, r.ClaimsNamespace("sight"))
	require.False(t, r.ClaimsNamespace("viewers"))
}
