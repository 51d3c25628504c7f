package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/appgraphgo/internal/ctxlog"
	"github.com/vk/appgraphgo/internal/graph"
)

// ValidateGraph checks that every component type used by the graph is
// accounted for: its namespace must belong to an activated compiled-in
// module, or be declared in the graph's modules section, in which case the
// external runtime owns it.
func (r *Registry) ValidateGraph(ctx context.Context, g *graph.Graph, active []string) error {
	logger := ctxlog.FromContext(ctx)

	activeSet := make(map[string]struct{}, len(active))
	for _, name := range active {
		activeSet[name] = struct{}{}
	}
	declared := make(map[string]struct{}, len(g.Modules))
	for _, name := range g.Modules {
		declared[name] = struct{}{}
	}

	var errs []string
	for _, n := range g.Nodes {
		for _, c := range n.Components {
			ns := c.Namespace()
			if _, ok := activeSet[ns]; ok {
				if _, registered := r.components[c.Type]; !registered {
					errs = append(errs, fmt.Sprintf("node %q: component type %q belongs to activated module %q but has no registered handler", n.Name, c.Type, ns))
				}
				continue
			}
			if _, ok := declared[ns]; ok {
				// External runtime component; the launcher only carries its config.
				continue
			}
			errs = append(errs, fmt.Sprintf("node %q: component type %q belongs to module %q which is neither activated nor declared by the graph", n.Name, c.Type, ns))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	logger.Debug("Registry validation passed.", "active_modules", len(active), "declared_modules", len(declared))
	return nil
}
