package graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Graph is the merged application graph. It accumulates the contents of every
// subgraph loaded into the application, with node names already prefixed.
type Graph struct {
	Name    string
	Modules []string
	Nodes   []*Node
	Edges   []*Edge

	nodesByName map[string]*Node
}

// Node is a named component container within the graph.
type Node struct {
	Name       string       `json:"name"`
	Components []*Component `json:"components"`
	Disabled   bool         `json:"disabled,omitempty"`
}

// Component is a typed instance hosted by a node. The type carries a
// "namespace.Type" shape, where the namespace names the module providing it.
type Component struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Edge connects a transmitting component channel to a receiving one. Both
// endpoints use the "node/component/channel" syntax.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Endpoint is a parsed edge endpoint.
type Endpoint struct {
	Node      string
	Component string
	Channel   string
}

// ParseEndpoint splits a "node/component/channel" reference.
func ParseEndpoint(s string) (Endpoint, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return Endpoint{}, fmt.Errorf("invalid edge endpoint %q: want node/component/channel", s)
	}
	for _, p := range parts {
		if p == "" {
			return Endpoint{}, fmt.Errorf("invalid edge endpoint %q: empty segment", s)
		}
	}
	return Endpoint{Node: parts[0], Component: parts[1], Channel: parts[2]}, nil
}

// String re-joins the endpoint into its reference syntax.
func (e Endpoint) String() string {
	return e.Node + "/" + e.Component + "/" + e.Channel
}

// New creates an empty graph with the given application name.
func New(name string) *Graph {
	return &Graph{Name: name, nodesByName: make(map[string]*Node)}
}

// Node returns the node with the given name, or nil when absent.
func (g *Graph) Node(name string) *Node {
	return g.nodesByName[name]
}

// Component returns the named component of a node, or nil when absent.
func (n *Node) Component(name string) *Component {
	for _, c := range n.Components {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Namespace returns the module namespace of the component type, i.e. the part
// before the first dot. A type without a namespace yields "".
func (c *Component) Namespace() string {
	if i := strings.Index(c.Type, "."); i > 0 {
		return c.Type[:i]
	}
	return ""
}

// Namespaces returns the sorted set of module namespaces referenced by any
// component in the graph.
func (g *Graph) Namespaces() []string {
	seen := make(map[string]struct{})
	for _, n := range g.Nodes {
		for _, c := range n.Components {
			if ns := c.Namespace(); ns != "" {
				seen[ns] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON exports the merged graph for the status surface.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name    string   `json:"name"`
		Modules []string `json:"modules"`
		Nodes   []*Node  `json:"nodes"`
		Edges   []*Edge  `json:"edges"`
	}{g.Name, g.Modules, g.Nodes, g.Edges})
}
