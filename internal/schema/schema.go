package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/appgraphgo/internal/ctxlog"
	"github.com/vk/appgraphgo/internal/fsutil"
)

// FieldType names the scalar (or scalar-list) type of a proto field.
type FieldType string

const (
	TypeString     FieldType = "string"
	TypeInt        FieldType = "int"
	TypeFloat      FieldType = "float"
	TypeBool       FieldType = "bool"
	TypeStringList FieldType = "string_list"
	TypeIntList    FieldType = "int_list"
	TypeFloatList  FieldType = "float_list"
	TypeBoolList   FieldType = "bool_list"
)

// ctyTypes maps field types to the cty types used for value checking.
var ctyTypes = map[FieldType]cty.Type{
	TypeString:     cty.String,
	TypeInt:        cty.Number,
	TypeFloat:      cty.Number,
	TypeBool:       cty.Bool,
	TypeStringList: cty.List(cty.String),
	TypeIntList:    cty.List(cty.Number),
	TypeFloatList:  cty.List(cty.Number),
	TypeBoolList:   cty.List(cty.Bool),
}

// Field is one declared field of a message proto.
type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Proto is one declared message type.
type Proto struct {
	Name   string  `json:"name"`
	ID     uint64  `json:"id"`
	Fields []Field `json:"fields"`

	fieldsByName map[string]Field
}

// Field returns the declared field with the given name.
func (p *Proto) Field(name string) (Field, bool) {
	f, ok := p.fieldsByName[name]
	return f, ok
}

// schemaFile mirrors the schema file layout.
type schemaFile struct {
	Protos []*Proto `json:"protos"`
}

// Registry holds every loaded message proto, keyed by proto name.
type Registry struct {
	mu     sync.RWMutex
	protos map[string]*Proto
}

// NewRegistry creates an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{protos: make(map[string]*Proto)}
}

// LoadGlob loads every schema file matched by the pattern. A directory
// pattern is walked for ".schema.json" files. Duplicate proto names across
// files fail the load.
func (r *Registry) LoadGlob(ctx context.Context, pattern string) error {
	logger := ctxlog.FromContext(ctx)

	paths, err := fsutil.Expand(pattern, ".schema.json", func(p string) bool {
		info, err := os.Stat(p)
		return err == nil && info.IsDir()
	})
	if err != nil {
		return fmt.Errorf("failed to expand schema pattern %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("schema pattern %q matched no files", pattern)
	}

	for _, path := range paths {
		if err := r.LoadFile(ctx, path); err != nil {
			return err
		}
	}
	logger.Debug("Schema files loaded.", "pattern", pattern, "files", len(paths), "protos", len(r.Names()))
	return nil
}

// LoadFile loads a single schema file into the registry.
func (r *Registry) LoadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read schema %q: %w", path, err)
	}

	var file schemaFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to decode schema %q: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Stage the whole file first; a file that fails mid-way must not leave
	// some of its protos registered.
	staged := make(map[string]*Proto, len(file.Protos))
	for _, proto := range file.Protos {
		if proto.Name == "" {
			return fmt.Errorf("schema %q: proto with empty name", path)
		}
		if _, exists := r.protos[proto.Name]; exists {
			return fmt.Errorf("schema %q: duplicate proto name %q", path, proto.Name)
		}
		if _, exists := staged[proto.Name]; exists {
			return fmt.Errorf("schema %q: duplicate proto name %q", path, proto.Name)
		}
		proto.fieldsByName = make(map[string]Field, len(proto.Fields))
		for _, f := range proto.Fields {
			if _, ok := ctyTypes[f.Type]; !ok {
				return fmt.Errorf("schema %q: proto %q field %q has unknown type %q", path, proto.Name, f.Name, f.Type)
			}
			if _, dup := proto.fieldsByName[f.Name]; dup {
				return fmt.Errorf("schema %q: proto %q declares field %q twice", path, proto.Name, f.Name)
			}
			proto.fieldsByName[f.Name] = f
		}
		staged[proto.Name] = proto
	}
	for name, proto := range staged {
		r.protos[name] = proto
	}
	return nil
}

// Proto returns the declared proto with the given name.
func (r *Registry) Proto(name string) (*Proto, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.protos[name]
	return p, ok
}

// Names returns the sorted names of every loaded proto.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.protos))
	for name := range r.protos {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
