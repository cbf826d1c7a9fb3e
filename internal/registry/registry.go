// Package registry implements the component registry and factory described
// by the pipeline engine's component model: every pluggable parser,
// chunker, embedder, indexer, searcher, and optimizer is registered under a
// (category, name) pair together with a constructor and an optional
// JSON-Schema for its config.
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Category is one of the fixed, closed set of component kinds.
type Category string

const (
	CategoryParser    Category = "parsers"
	CategoryChunker   Category = "chunkers"
	CategoryEmbedder  Category = "embedders"
	CategoryIndexer   Category = "indexers"
	CategorySearcher  Category = "searchers"
	CategoryOptimizer Category = "optimizers"
)

// Constructor builds a component instance from its raw JSON params.
type Constructor func(rawParams json.RawMessage) (interface{}, error)

// Metadata describes a registered component's name, category, description,
// and config schema. Dimension is non-zero only for embedder components,
// where it reports the embedder's default output width.
type Metadata struct {
	Category    Category        `json:"category"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Schema      json.RawMessage `json:"schema,omitempty"`
	Dimension   int             `json:"dimension,omitempty"`
}

// RegisterOptions carries the metadata accompanying a component registration
// beyond its constructor and schema.
type RegisterOptions struct {
	// Description is a short human-readable summary of the component.
	Description string
	// Dimension is the embedder's default output width. Ignored outside
	// CategoryEmbedder.
	Dimension int
}

// entry is one registered (category, name) component.
type entry struct {
	constructor Constructor
	schema      *jsonschema.Schema
	schemaJSON  []byte
	description string
	dimension   int
}

// Registry maps (category, name) to a Constructor, with optional JSON-Schema
// validation of the component's config before construction. Registration is
// idempotent: re-registering the same (category, name) replaces the prior
// entry rather than erroring, so a caller can override a built-in component
// by name.
type Registry struct {
	mu      sync.RWMutex
	entries map[Category]map[string]entry
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		entries: make(map[Category]map[string]entry),
	}
}

// Register adds a component constructor under category/name. schemaJSON may
// be nil to skip config validation for this component. opts is the zero
// value when the component carries no description or embedder dimension.
func (r *Registry) Register(category Category, name string, ctor Constructor, schemaJSON []byte, opts RegisterOptions) error {
	var schema *jsonschema.Schema
	if len(schemaJSON) > 0 {
		compiler := jsonschema.NewCompiler()
		resourceName := string(category) + "/" + name + ".json"
		if err := compiler.AddResource(resourceName, bytes.NewReader(schemaJSON)); err != nil {
			return fmt.Errorf("registry: compile schema for %s/%s: %w", category, name, err)
		}
		s, err := compiler.Compile(resourceName)
		if err != nil {
			return fmt.Errorf("registry: compile schema for %s/%s: %w", category, name, err)
		}
		schema = s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[category] == nil {
		r.entries[category] = make(map[string]entry)
	}
	r.entries[category][name] = entry{
		constructor: ctor,
		schema:      schema,
		schemaJSON:  schemaJSON,
		description: opts.Description,
		dimension:   opts.Dimension,
	}
	return nil
}

// Build validates params (if a schema was registered) and constructs the
// named component within category.
func (r *Registry) Build(category Category, name string, params json.RawMessage) (interface{}, error) {
	r.mu.RLock()
	catEntries, ok := r.entries[category]
	if !ok {
		r.mu.RUnlock()
		return nil, fmt.Errorf("registry: unknown category %q", category)
	}
	e, ok := catEntries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registry: no component %q registered in category %q, available: %v", name, category, r.Names(category))
	}

	if e.schema != nil && len(params) > 0 {
		var decoded interface{}
		if err := json.Unmarshal(params, &decoded); err != nil {
			return nil, fmt.Errorf("registry: invalid params for %s/%s: %w", category, name, err)
		}
		if err := e.schema.Validate(decoded); err != nil {
			return nil, fmt.Errorf("registry: params for %s/%s failed schema validation: %w", category, name, err)
		}
	}

	return e.constructor(params)
}

// Names returns every registered component name within a category, sorted.
func (r *Registry) Names(category Category) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries[category]))
	for name := range r.entries[category] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns the metadata (description, config schema, embedder
// dimension) for every component registered within category, sorted by
// name. Unlike Build, List never constructs a component.
func (r *Registry) List(category Category) []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries[category]))
	for name := range r.entries[category] {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Metadata, 0, len(names))
	for _, name := range names {
		e := r.entries[category][name]
		out = append(out, Metadata{
			Category:    category,
			Name:        name,
			Description: e.description,
			Schema:      e.schemaJSON,
			Dimension:   e.dimension,
		})
	}
	return out
}
