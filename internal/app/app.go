package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/vk/appgraphgo/internal/ctxlog"
	"github.com/vk/appgraphgo/internal/graph"
	"github.com/vk/appgraphgo/internal/manifest"
	"github.com/vk/appgraphgo/internal/nodeconfig"
	"github.com/vk/appgraphgo/internal/registry"
	"github.com/vk/appgraphgo/internal/schema"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle. It owns the merged graph, the node configuration store, the
// component registry, and the message schema registry.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	ctx    context.Context
	cfg    *Config

	id            string
	name          string
	homeWorkspace string

	graph    *graph.Graph
	store    *nodeconfig.Store
	registry *registry.Registry
	schemas  *schema.Registry
	metrics  *metrics

	modules map[string]registry.Module
	active  []string

	man        *manifest.Manifest
	httpServer *http.Server
	running    atomic.Bool
}

// New is the constructor for the application handle. It returns a fully
// initialized App: logger built, modules registered, manifest or graph
// loaded, startup config applied. Fatal startup misconfiguration panics and
// is recovered at the entrypoint.
func New(ctx context.Context, outW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules
	}

	a := &App{
		outW:     outW,
		logger:   logger,
		ctx:      ctx,
		cfg:      cfg,
		id:       uuid.NewString(),
		store:    nodeconfig.New(),
		registry: registry.New(),
		schemas:  schema.NewRegistry(),
		metrics:  newMetrics(),
		modules:  make(map[string]registry.Module, len(modules)),
	}
	a.store.OnWrite(func(n int) { a.metrics.configWrites.Add(float64(n)) })

	for _, mod := range modules {
		if _, dup := a.modules[mod.Name()]; dup {
			panic(fmt.Errorf("module %q compiled in twice", mod.Name()))
		}
		a.modules[mod.Name()] = mod
		mod.Register(a.registry)
	}
	logger.Debug("All compiled-in modules registered.", "count", len(modules))

	if cfg.ManifestPath != "" {
		if err := a.loadManifest(ctx, cfg.ManifestPath); err != nil {
			// A failure to load the manifest is a fatal startup error.
			panic(fmt.Errorf("failed to load application manifest: %w", err))
		}
	} else {
		a.name = appNameFromGraphPath(cfg.GraphPath)
		a.graph = graph.New(a.name)
		if err := a.Load(cfg.GraphPath, cfg.Prefix); err != nil {
			panic(fmt.Errorf("failed to load graph: %w", err))
		}
	}

	for _, name := range cfg.Modules {
		if err := a.LoadModule(name); err != nil {
			panic(err)
		}
	}
	for _, override := range cfg.Overrides {
		if err := a.applyOverride(override); err != nil {
			panic(fmt.Errorf("invalid config override: %w", err))
		}
	}

	logger.Info("Application constructed.", "name", a.name, "uuid", a.id)
	return a
}

// loadManifest applies every section of the manifest to the handle.
func (a *App) loadManifest(ctx context.Context, path string) error {
	man, err := manifest.Load(ctx, path)
	if err != nil {
		return err
	}
	a.man = man
	a.name = man.Application.Name
	a.homeWorkspace = man.Application.HomeWorkspace
	a.graph = graph.New(a.name)
	if a.cfg.StatusPort == 0 && man.Application.StatusPort != 0 {
		a.cfg.StatusPort = man.Application.StatusPort
	}

	for _, mod := range man.Modules {
		if err := a.LoadModule(mod.Name); err != nil {
			return err
		}
	}
	for _, load := range man.Loads {
		graphPath, err := man.ResolvePath(load.Graph)
		if err != nil {
			return err
		}
		if err := a.Load(graphPath, load.Prefix); err != nil {
			return err
		}
	}
	for _, c := range man.Configs {
		a.store.SetValue(c.Node, c.Component, c.Key, c.Value)
	}
	for _, s := range man.Schemas {
		pattern, err := man.ResolvePath(s.Glob)
		if err != nil {
			return err
		}
		if err := a.LoadMessageSchemas(pattern); err != nil {
			return err
		}
	}
	return nil
}

// Load merges one subgraph file into the application graph, applying the
// node-name prefix, and folds its config section into the store.
func (a *App) Load(path, prefix string) error {
	sub, err := graph.LoadFile(a.ctx, path)
	if err != nil {
		return err
	}
	config, err := a.graph.Merge(a.ctx, sub, prefix)
	if err != nil {
		return fmt.Errorf("failed to merge subgraph %q: %w", path, err)
	}
	for node, raw := range config {
		if err := a.store.ApplyJSON(node, raw); err != nil {
			return fmt.Errorf("subgraph %q: %w", path, err)
		}
	}
	a.metrics.graphsLoaded.Inc()
	a.metrics.nodes.Set(float64(len(a.graph.Nodes)))
	a.metrics.edges.Set(float64(len(a.graph.Edges)))
	a.logger.Info("Subgraph loaded.", "path", path, "prefix", prefix, "nodes", len(a.graph.Nodes))
	return nil
}

// LoadModule activates a compiled-in module by name. Activation is
// idempotent; an unknown name is an error.
func (a *App) LoadModule(name string) error {
	if _, ok := a.modules[name]; !ok {
		return fmt.Errorf("unknown module %q", name)
	}
	for _, active := range a.active {
		if active == name {
			return nil
		}
	}
	a.active = append(a.active, name)
	a.logger.Debug("Module activated.", "module", name)
	return nil
}

// LoadMessageSchemas loads every message schema file matched by the pattern.
func (a *App) LoadMessageSchemas(pattern string) error {
	return a.schemas.LoadGlob(a.ctx, pattern)
}

// MessageBuilder returns a builder for the named message proto.
func (a *App) MessageBuilder(protoName string) (*schema.Builder, error) {
	return a.schemas.Builder(protoName)
}

// Node returns the named node of the merged graph, or nil.
func (a *App) Node(name string) *graph.Node {
	return a.graph.Node(name)
}

// SetConfig writes one node configuration value.
func (a *App) SetConfig(node, component, key string, v any) error {
	return a.store.Set(node, component, key, v)
}

// GetConfigString reads one node configuration value as a string.
func (a *App) GetConfigString(node, component, key, fallback string) string {
	return a.store.GetString(node, component, key, fallback)
}

// GetConfigInt reads one node configuration value as an int.
func (a *App) GetConfigInt(node, component, key string, fallback int) int {
	return a.store.GetInt(node, component, key, fallback)
}

// Name returns the application name.
func (a *App) Name() string { return a.name }

// UUID returns the identifier assigned to this run at construction.
func (a *App) UUID() string { return a.id }

// Graph returns the merged application graph.
func (a *App) Graph() *graph.Graph { return a.graph }

// ConfigStore returns the node configuration store.
func (a *App) ConfigStore() *nodeconfig.Store { return a.store }

// Schemas returns the message schema registry.
func (a *App) Schemas() *schema.Registry { return a.schemas }

// Registry returns the component registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry { return a.registry }

// ActiveModules returns the names of activated modules, in activation order.
func (a *App) ActiveModules() []string {
	out := make([]string, len(a.active))
	copy(out, a.active)
	return out
}

// applyOverride parses a node/component/key=value override and writes it.
func (a *App) applyOverride(override string) error {
	eq := strings.Index(override, "=")
	if eq < 0 {
		return fmt.Errorf("override %q: want node/component/key=value", override)
	}
	address, literal := override[:eq], override[eq+1:]
	parts := strings.Split(address, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return fmt.Errorf("override %q: address must be node/component/key", override)
	}
	return a.store.ApplyLiteral(parts[0], parts[1], parts[2], literal)
}

// appNameFromGraphPath derives an application name for manifest-less runs.
func appNameFromGraphPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".subgraph.json")
	base = strings.TrimSuffix(base, ".json")
	return base
}
