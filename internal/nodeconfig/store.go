package nodeconfig

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Store is the application's node configuration. Keys are addressed by node
// name, component name, and config key. Writes for nodes the launcher never
// saw are legal: the runtime may own nodes defined outside the loaded graph.
type Store struct {
	mu      sync.RWMutex
	nodes   map[string]map[string]map[string]cty.Value
	onWrite func(n int)
}

// New creates an empty configuration store.
func New() *Store {
	return &Store{nodes: make(map[string]map[string]map[string]cty.Value)}
}

// OnWrite installs a hook invoked with the number of keys written by each
// mutation. Used for the metrics surface.
func (s *Store) OnWrite(fn func(n int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onWrite = fn
}

// Set converts a native Go scalar into a cty value and stores it.
func (s *Store) Set(node, component, key string, v any) error {
	val, err := toCty(v)
	if err != nil {
		return fmt.Errorf("config %s/%s/%s: %w", node, component, key, err)
	}
	s.SetValue(node, component, key, val)
	return nil
}

// SetValue stores an already-typed value. Later writes win.
func (s *Store) SetValue(node, component, key string, val cty.Value) {
	s.mu.Lock()
	comps, ok := s.nodes[node]
	if !ok {
		comps = make(map[string]map[string]cty.Value)
		s.nodes[node] = comps
	}
	keys, ok := comps[component]
	if !ok {
		keys = make(map[string]cty.Value)
		comps[component] = keys
	}
	keys[key] = val
	hook := s.onWrite
	s.mu.Unlock()

	if hook != nil {
		hook(1)
	}
}

// Get returns the stored value for the given address.
func (s *Store) Get(node, component, key string) (cty.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if keys, ok := s.nodes[node][component]; ok {
		if val, ok := keys[key]; ok {
			return val, true
		}
	}
	return cty.NilVal, false
}

// GetString returns the value converted to a string. The fallback is returned
// when the key is absent or not convertible.
func (s *Store) GetString(node, component, key, fallback string) string {
	val, ok := s.Get(node, component, key)
	if !ok {
		return fallback
	}
	conv, err := convert.Convert(val, cty.String)
	if err != nil || conv.IsNull() {
		return fallback
	}
	return conv.AsString()
}

// GetInt returns the value converted to an int. The fallback is returned when
// the key is absent or not convertible.
func (s *Store) GetInt(node, component, key string, fallback int) int {
	val, ok := s.Get(node, component, key)
	if !ok {
		return fallback
	}
	var out int
	if err := gocty.FromCtyValue(val, &out); err != nil {
		return fallback
	}
	return out
}

// ApplyJSON folds a subgraph config section for one node into the store. The
// raw document maps component names to key/value objects.
func (s *Store) ApplyJSON(node string, raw json.RawMessage) error {
	var comps map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &comps); err != nil {
		return fmt.Errorf("config section for node %q: %w", node, err)
	}
	for component, keys := range comps {
		for key, rawVal := range keys {
			val, err := jsonToCty(rawVal)
			if err != nil {
				return fmt.Errorf("config %s/%s/%s: %w", node, component, key, err)
			}
			s.SetValue(node, component, key, val)
		}
	}
	return nil
}

// ApplyOverlay folds a full overlay document into the store. The document
// maps node names to component sections, same shape as the subgraph config.
func (s *Store) ApplyOverlay(data []byte) error {
	var nodes map[string]json.RawMessage
	if err := json.Unmarshal(data, &nodes); err != nil {
		return fmt.Errorf("config overlay: %w", err)
	}
	for node, raw := range nodes {
		if err := s.ApplyJSON(node, raw); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot exports the store as plain JSON, with deterministic key order
// left to the JSON encoder. Used by the status surface and the sim bridge.
func (s *Store) Snapshot() (map[string]map[string]map[string]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]map[string]map[string]json.RawMessage, len(s.nodes))
	for node, comps := range s.nodes {
		outComps := make(map[string]map[string]json.RawMessage, len(comps))
		for component, keys := range comps {
			outKeys := make(map[string]json.RawMessage, len(keys))
			for key, val := range keys {
				raw, err := ctyjson.Marshal(val, val.Type())
				if err != nil {
					return nil, fmt.Errorf("config %s/%s/%s: %w", node, component, key, err)
				}
				outKeys[key] = raw
			}
			outComps[component] = outKeys
		}
		out[node] = outComps
	}
	return out, nil
}

// Nodes returns the sorted node names present in the store.
func (s *Store) Nodes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.nodes))
	for node := range s.nodes {
		out = append(out, node)
	}
	sort.Strings(out)
	return out
}
