package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vk/appgraphgo/internal/ctxlog"
	"github.com/vk/appgraphgo/internal/registry"
)

// startedInstance pairs a live component with its graph address for teardown
// logging.
type startedInstance struct {
	node      string
	component string
	instance  registry.Instance
}

// Run executes the launcher lifecycle: validate the merged graph, bring up
// the status surface, start every component instance owned by an activated
// module, then block until the context is cancelled or the process receives
// SIGINT/SIGTERM. Teardown runs in reverse start order. Run may be called at
// most once per App.
func (a *App) Run(ctx context.Context) error {
	if a.running.Swap(true) {
		return errors.New("Run already called for this application")
	}
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	a.metrics.startTime.Set(float64(time.Now().Unix()))

	if err := a.graph.Validate(ctx); err != nil {
		return err
	}
	if err := a.registry.ValidateGraph(ctx, a.graph, a.active); err != nil {
		return err
	}

	env := &registry.Env{
		AppName: a.name,
		RunID:   a.id,
		Graph:   a.graph,
		Config:  a.store,
		Schemas: a.schemas,
	}
	if a.cfg.StatusPort > 0 {
		env.Mux = a.newStatusMux()
	}

	instances, err := a.startComponents(ctx, env)
	if err != nil {
		a.stopComponents(ctx, instances)
		return err
	}

	if env.Mux != nil {
		a.startStatusServer(env.Mux)
	}

	stopWatch, err := a.startOverlay(ctx)
	if err != nil {
		a.stopComponents(ctx, instances)
		if closeErr := a.closeStatusServer(); closeErr != nil {
			a.logger.Error("Status server shutdown failed during startup abort.", "error", closeErr)
		}
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Info("🚀 Application running.", "name", a.name, "uuid", a.id,
		"nodes", len(a.graph.Nodes), "components_started", len(instances))
	<-ctx.Done()
	a.logger.Info("Shutdown requested.")

	stopWatch()
	a.stopComponents(context.WithoutCancel(ctx), instances)
	if err := a.closeStatusServer(); err != nil {
		return err
	}

	a.logger.Info("🏁 Application stopped.", "name", a.name)
	return nil
}

// startComponents starts every graph component whose type is owned by an
// activated module, in graph order.
func (a *App) startComponents(ctx context.Context, env *registry.Env) ([]startedInstance, error) {
	activeSet := make(map[string]struct{}, len(a.active))
	for _, name := range a.active {
		activeSet[name] = struct{}{}
	}

	var started []startedInstance
	for _, node := range a.graph.Nodes {
		if node.Disabled {
			a.logger.Debug("Skipping disabled node.", "node", node.Name)
			continue
		}
		for _, comp := range node.Components {
			if _, ok := activeSet[comp.Namespace()]; !ok {
				continue
			}
			inst, err := a.registry.Start(ctx, env, node.Name, comp.Name, comp.Type)
			if err != nil {
				return started, err
			}
			a.metrics.componentStarts.Inc()
			if inst != nil {
				started = append(started, startedInstance{node.Name, comp.Name, inst})
			}
		}
	}
	return started, nil
}

// stopComponents tears down live instances in reverse start order. Stop
// errors are logged, not propagated; teardown always runs to completion.
func (a *App) stopComponents(ctx context.Context, instances []startedInstance) {
	for i := len(instances) - 1; i >= 0; i-- {
		si := instances[i]
		if err := si.instance.Stop(ctx); err != nil {
			a.logger.Error("Component stop failed.", "node", si.node, "component", si.component, "error", err)
		} else {
			a.logger.Debug("Component stopped.", "node", si.node, "component", si.component)
		}
	}
}

// startOverlay applies the config overlay, and when watching is enabled,
// keeps re-applying it as the file changes. The returned func stops the
// watcher.
func (a *App) startOverlay(ctx context.Context) (func(), error) {
	if a.cfg.OverlayPath == "" {
		return func() {}, nil
	}
	if err := a.applyOverlayFile(); err != nil {
		return nil, err
	}
	if !a.cfg.Watch {
		return func() {}, nil
	}
	w, err := newOverlayWatcher(ctx, a.cfg.OverlayPath, a.applyOverlayFile)
	if err != nil {
		return nil, fmt.Errorf("failed to watch config overlay: %w", err)
	}
	return w.Close, nil
}

// applyOverlayFile reads the overlay file and folds it into the store.
func (a *App) applyOverlayFile() error {
	data, err := os.ReadFile(a.cfg.OverlayPath)
	if err != nil {
		return fmt.Errorf("failed to read config overlay %q: %w", a.cfg.OverlayPath, err)
	}
	if err := a.store.ApplyOverlay(data); err != nil {
		return fmt.Errorf("config overlay %q: %w", a.cfg.OverlayPath, err)
	}
	a.logger.Info("Config overlay applied.", "path", a.cfg.OverlayPath)
	return nil
}
