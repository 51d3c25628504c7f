package graph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vk/appgraphgo/internal/ctxlog"
)

// Merge folds a parsed subgraph into the application graph, applying the
// node-name prefix to nodes, edge endpoints, and config keys. An empty prefix
// merges names unchanged. Duplicate node names fail the merge.
func (g *Graph) Merge(ctx context.Context, sub *Subgraph, prefix string) (map[string]json.RawMessage, error) {
	logger := ctxlog.FromContext(ctx)

	for _, m := range sub.Modules {
		if !contains(g.Modules, m) {
			g.Modules = append(g.Modules, m)
		}
	}

	for _, n := range sub.Nodes {
		name := prefixed(prefix, n.Name)
		if _, exists := g.nodesByName[name]; exists {
			return nil, fmt.Errorf("duplicate node name %q after applying prefix %q", name, prefix)
		}
		node := &Node{Name: name, Components: n.Components, Disabled: n.Disabled}
		g.Nodes = append(g.Nodes, node)
		g.nodesByName[name] = node
	}

	for _, e := range sub.Edges {
		src, err := ParseEndpoint(e.Source)
		if err != nil {
			return nil, err
		}
		tgt, err := ParseEndpoint(e.Target)
		if err != nil {
			return nil, err
		}
		src.Node = prefixed(prefix, src.Node)
		tgt.Node = prefixed(prefix, tgt.Node)
		g.Edges = append(g.Edges, &Edge{Source: src.String(), Target: tgt.String()})
	}

	config := make(map[string]json.RawMessage, len(sub.Config))
	for node, raw := range sub.Config {
		config[prefixed(prefix, node)] = raw
	}

	logger.Debug("Subgraph merged.", "prefix", prefix, "total_nodes", len(g.Nodes), "total_edges", len(g.Edges))
	return config, nil
}

// prefixed joins a prefix and a node name with a dot separator.
func prefixed(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
