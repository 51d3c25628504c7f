package registry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"

	"github.com/vk/appgraphgo/internal/graph"
	"github.com/vk/appgraphgo/internal/nodeconfig"
	"github.com/vk/appgraphgo/internal/schema"
)

// Module is the interface all compiled-in modules implement. The name doubles
// as the namespace of every component type the module registers.
type Module interface {
	Name() string
	Register(r *Registry)
}

// Env gives a started component instance access to launcher facilities.
type Env struct {
	AppName string
	RunID   string
	Graph   *graph.Graph
	Config  *nodeconfig.Store
	Schemas *schema.Registry

	// Mux is the status server mux, nil when the status surface is disabled.
	Mux *http.ServeMux
}

// Instance is a live component started by the launcher.
type Instance interface {
	Stop(ctx context.Context) error
}

// RegisteredComponent holds the compiled Go parts of a component type.
type RegisteredComponent struct {
	// NewConfig returns a pointer to a fresh config struct with `cfg` tags.
	NewConfig func() any

	// StartFn must be func(context.Context, *Env, *T) (Instance, error)
	// where *T matches NewConfig's return type.
	StartFn any

	configType reflect.Type
}

// Registry holds all registered component handlers for one application
// instance.
type Registry struct {
	components map[string]*RegisteredComponent
	namespaces map[string]struct{}
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		components: make(map[string]*RegisteredComponent),
		namespaces: make(map[string]struct{}),
	}
}

// RegisterComponent registers a Go handler for a component type. Duplicate
// registration and a malformed start signature are programmer errors.
func (r *Registry) RegisterComponent(componentType string, rc *RegisteredComponent) {
	if _, exists := r.components[componentType]; exists {
		panic(fmt.Sprintf("component type '%s' already registered", componentType))
	}
	rc.configType = validateStartFn(componentType, rc)
	slog.Debug("Registering component handler.", "type", componentType)
	r.components[componentType] = rc
	r.namespaces[(&graph.Component{Type: componentType}).Namespace()] = struct{}{}
}

// Component returns the registered handler for a component type.
func (r *Registry) Component(componentType string) (*RegisteredComponent, bool) {
	rc, ok := r.components[componentType]
	return rc, ok
}

// ClaimsNamespace reports whether any registered component type lives in the
// given module namespace.
func (r *Registry) ClaimsNamespace(ns string) bool {
	_, ok := r.namespaces[ns]
	return ok
}

var (
	ctxType      = reflect.TypeOf((*context.Context)(nil)).Elem()
	envType      = reflect.TypeOf((*Env)(nil))
	instanceType = reflect.TypeOf((*Instance)(nil)).Elem()
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
)

// validateStartFn enforces the start handler contract at registration time
// and returns the config struct type.
func validateStartFn(componentType string, rc *RegisteredComponent) reflect.Type {
	if rc.NewConfig == nil || rc.StartFn == nil {
		panic(fmt.Sprintf("component type '%s': NewConfig and StartFn are required", componentType))
	}
	cfgType := reflect.TypeOf(rc.NewConfig())
	if cfgType.Kind() != reflect.Ptr || cfgType.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("component type '%s': NewConfig must return a struct pointer", componentType))
	}
	fnType := reflect.TypeOf(rc.StartFn)
	ok := fnType.Kind() == reflect.Func &&
		fnType.NumIn() == 3 && fnType.NumOut() == 2 &&
		fnType.In(0) == ctxType && fnType.In(1) == envType && fnType.In(2) == cfgType &&
		fnType.Out(0) == instanceType && fnType.Out(1) == errorType
	if !ok {
		panic(fmt.Sprintf("component type '%s': StartFn must be func(context.Context, *Env, %s) (Instance, error)",
			componentType, cfgType))
	}
	return cfgType
}
