package simbridge

import (
	"fmt"

	"github.com/vk/appgraphgo/internal/registry"
)

// buildRegisterPayload assembles the topology announcement emitted on
// connect: application identity plus every node and its component types.
func buildRegisterPayload(env *registry.Env) map[string]any {
	nodes := make([]map[string]any, 0, len(env.Graph.Nodes))
	for _, n := range env.Graph.Nodes {
		components := make([]map[string]string, 0, len(n.Components))
		for _, c := range n.Components {
			components = append(components, map[string]string{
				"name": c.Name,
				"type": c.Type,
			})
		}
		nodes = append(nodes, map[string]any{
			"name":       n.Name,
			"components": components,
			"disabled":   n.Disabled,
		})
	}
	return map[string]any{
		"application": env.AppName,
		"uuid":        env.RunID,
		"nodes":       nodes,
	}
}

// applyConfigEvent folds one backend config event into the store. The event
// payload is an object with node, component, key, and value entries.
func applyConfigEvent(env *registry.Env, data ...any) error {
	if len(data) == 0 {
		return fmt.Errorf("config event carries no payload")
	}
	payload, ok := data[0].(map[string]any)
	if !ok {
		return fmt.Errorf("config event payload must be an object, got %T", data[0])
	}

	var address [3]string
	for i, field := range []string{"node", "component", "key"} {
		raw, ok := payload[field]
		if !ok {
			return fmt.Errorf("config event missing %q", field)
		}
		s, ok := raw.(string)
		if !ok || s == "" {
			return fmt.Errorf("config event field %q must be a non-empty string", field)
		}
		address[i] = s
	}
	value, ok := payload["value"]
	if !ok {
		return fmt.Errorf("config event missing \"value\"")
	}

	return env.Config.Set(address[0], address[1], address[2], value)
}
