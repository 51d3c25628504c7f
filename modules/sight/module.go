// Package sight carries the launcher-side configuration of the web
// visualization surface. The visualization server itself belongs to the
// external runtime; this module validates its configuration and, when the
// status surface is up, exposes the web root and asset root over it.
package sight

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/vk/appgraphgo/internal/ctxlog"
	"github.com/vk/appgraphgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Name returns the module namespace.
func (m *Module) Name() string { return "sight" }

// Config defines the configuration keys of the WebsightServer component.
type Config struct {
	WebrootPath   string `cfg:"webroot_path"`
	AssetrootPath string `cfg:"assetroot_path"`
	Port          int    `cfg:"port"`
	UIConfig      string `cfg:"ui_config"`
}

// server is the live instance; there is nothing to tear down beyond logging.
type server struct{}

// Stop implements registry.Instance.
func (s *server) Stop(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Sight surface detached.")
	return nil
}

// StartWebsightServer is the start handler for the 'sight.WebsightServer'
// component type.
func StartWebsightServer(ctx context.Context, env *registry.Env, cfg *Config) (registry.Instance, error) {
	logger := ctxlog.FromContext(ctx).With("component", "sight.WebsightServer")

	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("sight: port %d out of range", cfg.Port)
	}
	for label, path := range map[string]string{
		"webroot_path":   cfg.WebrootPath,
		"assetroot_path": cfg.AssetrootPath,
	} {
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("sight: %s %q: %w", label, path, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("sight: %s %q is not a directory", label, path)
		}
	}

	if env.Mux != nil {
		if cfg.WebrootPath != "" {
			env.Mux.Handle("/sight/", http.StripPrefix("/sight/", http.FileServer(http.Dir(cfg.WebrootPath))))
		}
		if cfg.AssetrootPath != "" {
			env.Mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.Dir(cfg.AssetrootPath))))
		}
		logger.Info("Sight surface attached to status server.",
			"webroot", cfg.WebrootPath, "assetroot", cfg.AssetrootPath)
	} else {
		logger.Info("Status surface disabled; sight config validated only.",
			"webroot", cfg.WebrootPath, "assetroot", cfg.AssetrootPath, "port", cfg.Port)
	}

	return &server{}, nil
}

// Register registers the component handlers with the launcher.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent("sight.WebsightServer", &registry.RegisteredComponent{
		NewConfig: func() any { return new(Config) },
		StartFn:   StartWebsightServer,
	})
}
