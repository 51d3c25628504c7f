package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/appgraphgo/internal/ctxlog"
)

// Validate checks the structural integrity of the merged graph: every edge
// endpoint must reference an existing node and component, and every component
// type must carry a module namespace. An empty graph is valid.
func (g *Graph) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	for _, n := range g.Nodes {
		for _, c := range n.Components {
			if c.Namespace() == "" {
				errs = append(errs, fmt.Sprintf("node %q: component %q has type %q without a module namespace", n.Name, c.Name, c.Type))
			}
		}
	}

	for _, e := range g.Edges {
		for _, ref := range []string{e.Source, e.Target} {
			ep, err := ParseEndpoint(ref)
			if err != nil {
				errs = append(errs, err.Error())
				continue
			}
			node := g.Node(ep.Node)
			if node == nil {
				errs = append(errs, fmt.Sprintf("edge endpoint %q references unknown node %q", ref, ep.Node))
				continue
			}
			if node.Component(ep.Component) == nil {
				errs = append(errs, fmt.Sprintf("edge endpoint %q references unknown component %q on node %q", ref, ep.Component, ep.Node))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("graph validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	if len(g.Nodes) == 0 {
		logger.Warn("Graph is empty; nothing for the runtime to host.")
	}
	logger.Debug("Graph validation passed.", "nodes", len(g.Nodes), "edges", len(g.Edges))
	return nil
}
