package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/vk/appgraphgo/internal/ctxlog"
)

// Subgraph is one parsed subgraph definition file, not yet merged into an
// application graph.
type Subgraph struct {
	Modules []string
	Nodes   []*Node
	Edges   []*Edge

	// Config carries the raw per-node config section. The node configuration
	// store owns its interpretation.
	Config map[string]json.RawMessage
}

// wireSubgraph mirrors the subgraph file layout.
type wireSubgraph struct {
	Modules []string `json:"modules"`
	Graph   struct {
		Nodes []*Node `json:"nodes"`
		Edges []*Edge `json:"edges"`
	} `json:"graph"`
	Config map[string]json.RawMessage `json:"config"`
}

// LoadFile reads and parses a subgraph definition file. Section shape is
// probed before the strict decode so errors can name the offending section.
func LoadFile(ctx context.Context, path string) (*Subgraph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading subgraph file.", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subgraph %q: %w", path, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("subgraph %q is not valid JSON", path)
	}

	if err := probeSections(data); err != nil {
		return nil, fmt.Errorf("subgraph %q: %w", path, err)
	}

	var wire wireSubgraph
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode subgraph %q: %w", path, err)
	}

	sub := &Subgraph{
		Modules: wire.Modules,
		Nodes:   wire.Graph.Nodes,
		Edges:   wire.Graph.Edges,
		Config:  wire.Config,
	}

	for _, n := range sub.Nodes {
		if n.Name == "" {
			return nil, fmt.Errorf("subgraph %q: node with empty name", path)
		}
		for _, c := range n.Components {
			if c.Name == "" || c.Type == "" {
				return nil, fmt.Errorf("subgraph %q: node %q has a component with empty name or type", path, n.Name)
			}
		}
	}

	logger.Debug("Subgraph parsed.", "nodes", len(sub.Nodes), "edges", len(sub.Edges), "modules", len(sub.Modules))
	return sub, nil
}

// probeSections checks the coarse shape of the known top-level sections.
func probeSections(data []byte) error {
	checks := []struct {
		path string
		kind string
	}{
		{"modules", "array"},
		{"graph", "object"},
		{"graph.nodes", "array"},
		{"graph.edges", "array"},
		{"config", "object"},
	}
	for _, c := range checks {
		res := gjson.GetBytes(data, c.path)
		if !res.Exists() {
			continue
		}
		ok := false
		switch c.kind {
		case "array":
			ok = res.IsArray()
		case "object":
			ok = res.IsObject()
		}
		if !ok {
			return fmt.Errorf("section %q must be a JSON %s", c.path, c.kind)
		}
	}
	return nil
}
