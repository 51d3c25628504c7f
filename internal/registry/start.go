package registry

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/appgraphgo/internal/ctxlog"
)

// Start decodes the component's configuration from the store and invokes its
// registered start handler.
func (r *Registry) Start(ctx context.Context, env *Env, node, component, componentType string) (Instance, error) {
	rc, ok := r.components[componentType]
	if !ok {
		return nil, fmt.Errorf("no handler registered for component type %q", componentType)
	}

	cfg := rc.NewConfig()
	if err := env.Config.DecodeComponent(node, component, cfg); err != nil {
		return nil, fmt.Errorf("component %s/%s: %w", node, component, err)
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting component.", "node", node, "component", component, "type", componentType)

	results := reflect.ValueOf(rc.StartFn).Call([]reflect.Value{
		reflect.ValueOf(ctx),
		reflect.ValueOf(env),
		reflect.ValueOf(cfg),
	})
	if errVal := results[1]; !errVal.IsNil() {
		return nil, fmt.Errorf("component %s/%s failed to start: %w", node, component, errVal.Interface().(error))
	}
	inst, _ := results[0].Interface().(Instance)
	return inst, nil
}
