package manifest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/appgraphgo/internal/ctxlog"
)

// Manifest is the decoded application manifest.
type Manifest struct {
	Application *Application `hcl:"application,block" validate:"required"`
	Workspaces  []*Workspace `hcl:"workspace,block" validate:"dive"`
	Loads       []*LoadBlock `hcl:"load,block" validate:"dive"`
	Modules     []*Module    `hcl:"module,block" validate:"dive"`
	Configs     []*Config    `hcl:"config,block" validate:"dive"`
	Schemas     []*Schemas   `hcl:"schemas,block" validate:"dive"`

	dir string
}

// Application is the manifest's application block.
type Application struct {
	Name          string `hcl:"name" validate:"required"`
	HomeWorkspace string `hcl:"home_workspace,optional"`
	StatusPort    int    `hcl:"status_port,optional" validate:"omitempty,min=1,max=65535"`
}

// Workspace maps a workspace name to a filesystem root.
type Workspace struct {
	Name string `hcl:"name,label" validate:"required"`
	Root string `hcl:"root" validate:"required"`
}

// LoadBlock names one subgraph file to merge into the application graph.
type LoadBlock struct {
	Graph  string `hcl:"graph" validate:"required"`
	Prefix string `hcl:"prefix,optional"`
}

// Module activates one compiled-in module by name.
type Module struct {
	Name string `hcl:"name,label" validate:"required"`
}

// Config is one startup write into the node configuration store.
type Config struct {
	Node      string    `hcl:"node" validate:"required"`
	Component string    `hcl:"component" validate:"required"`
	Key       string    `hcl:"key" validate:"required"`
	Value     cty.Value `hcl:"value"`
}

// Schemas names one message schema glob to load.
type Schemas struct {
	Glob string `hcl:"glob" validate:"required"`
}

// Load parses and validates a manifest file.
func Load(ctx context.Context, path string) (*Manifest, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading application manifest.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %q: %w", path, diags)
	}

	var m Manifest
	if diags := gohcl.DecodeBody(file.Body, nil, &m); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode manifest %q: %w", path, diags)
	}
	m.dir = filepath.Dir(path)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&m); err != nil {
		return nil, fmt.Errorf("manifest %q failed validation: %w", path, err)
	}

	if m.Application.HomeWorkspace != "" {
		if _, ok := m.Workspace(m.Application.HomeWorkspace); !ok {
			return nil, fmt.Errorf("manifest %q: home workspace %q has no workspace block", path, m.Application.HomeWorkspace)
		}
	}

	logger.Debug("Manifest loaded.",
		"application", m.Application.Name,
		"loads", len(m.Loads), "modules", len(m.Modules), "configs", len(m.Configs))
	return &m, nil
}

// Workspace returns the named workspace block.
func (m *Manifest) Workspace(name string) (*Workspace, bool) {
	for _, ws := range m.Workspaces {
		if ws.Name == name {
			return ws, true
		}
	}
	return nil, false
}

// ResolvePath resolves a manifest-relative path reference. The
// "@workspace//relative/path" form resolves through the workspace map; plain
// relative paths resolve against the manifest's directory.
func (m *Manifest) ResolvePath(ref string) (string, error) {
	if strings.HasPrefix(ref, "@") {
		rest := ref[1:]
		i := strings.Index(rest, "//")
		if i < 0 {
			return "", fmt.Errorf("workspace reference %q: want @workspace//path", ref)
		}
		wsName, rel := rest[:i], rest[i+2:]
		ws, ok := m.Workspace(wsName)
		if !ok {
			return "", fmt.Errorf("workspace reference %q: unknown workspace %q", ref, wsName)
		}
		root := ws.Root
		if !filepath.IsAbs(root) {
			root = filepath.Join(m.dir, root)
		}
		return filepath.Join(root, filepath.FromSlash(rel)), nil
	}
	if filepath.IsAbs(ref) {
		return ref, nil
	}
	return filepath.Join(m.dir, ref), nil
}
