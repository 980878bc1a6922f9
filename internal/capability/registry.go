package capability

import (
	"errors"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// Registry errors.
var (
	ErrDuplicate = errors.New("capability already registered")
	ErrSealed    = errors.New("registry is sealed")
)

// entry is a registered capability with its compiled input schema.
type entry struct {
	cap      Capability
	schema   *gojsonschema.Schema
	defaults map[string]any
}

// Registry maps capability names to descriptors. It is populated once at
// startup and sealed; after Seal it is read-only and safe for concurrent
// lookups without locking.
type Registry struct {
	entries map[string]*entry
	order   []string
	sealed  bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds c. It fails on an empty or duplicate name, on a schema
// that does not compile, and after Seal.
func (r *Registry) Register(c Capability) error {
	if r.sealed {
		return fmt.Errorf("registering %q: %w", c.Name(), ErrSealed)
	}
	name := c.Name()
	if name == "" {
		return errors.New("capability name is empty")
	}
	if c.Handler == nil {
		return fmt.Errorf("capability %q has no handler", name)
	}
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%q: %w", name, ErrDuplicate)
	}

	doc := inputSchema(c)
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("compiling schema for %q: %w", name, err)
	}

	r.entries[name] = &entry{cap: c, schema: schema, defaults: schemaDefaults(c)}
	r.order = append(r.order, name)
	return nil
}

// RegisterAll registers each capability, stopping at the first error.
func (r *Registry) RegisterAll(caps []Capability) error {
	for _, c := range caps {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Seal freezes the registry.
func (r *Registry) Seal() {
	r.sealed = true
}

// Resolve looks up a capability by name.
func (r *Registry) Resolve(name string) (Capability, bool) {
	e, ok := r.entries[name]
	if !ok {
		return Capability{}, false
	}
	return e.cap, true
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Capabilities returns every capability in registration order.
func (r *Registry) Capabilities() []Capability {
	out := make([]Capability, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].cap)
	}
	return out
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	return len(r.entries)
}

// inputSchema turns the tool's declared input schema into a closed JSON
// schema document: unknown properties are rejected.
func inputSchema(c Capability) map[string]any {
	props := map[string]any{}
	for k, v := range c.Tool.InputSchema.Properties {
		props[k] = v
	}
	doc := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(c.Tool.InputSchema.Required) > 0 {
		required := make([]any, 0, len(c.Tool.InputSchema.Required))
		for _, name := range c.Tool.InputSchema.Required {
			required = append(required, name)
		}
		doc["required"] = required
	}
	return doc
}

// schemaDefaults collects declared defaults of optional properties.
func schemaDefaults(c Capability) map[string]any {
	defaults := map[string]any{}
	for name, raw := range c.Tool.InputSchema.Properties {
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if def, ok := prop["default"]; ok {
			defaults[name] = def
		}
	}
	return defaults
}
