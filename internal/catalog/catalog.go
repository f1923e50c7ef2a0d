// Package catalog resolves tool descriptors by name and version, from
// an in-memory registry, a YAML manifest, or a SQLite store.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/me/flowc/pkg/wf"
)

// Catalog resolves tool descriptors. An empty version matches the sole
// registered version of the tool and is an error when several exist.
type Catalog interface {
	Lookup(ctx context.Context, name, version string) (*wf.Tool, error)
}

// NotFoundError reports a lookup that matched no registered tool.
type NotFoundError struct {
	Name    string
	Version string
}

func (e *NotFoundError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("tool %q not in catalog", e.Name)
	}
	return fmt.Sprintf("tool %q version %q not in catalog", e.Name, e.Version)
}

// AmbiguousError reports a versionless lookup of a tool registered
// under several versions.
type AmbiguousError struct {
	Name     string
	Versions []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("tool %q has %d versions, specify one of %v",
		e.Name, len(e.Versions), e.Versions)
}

// Registry is an in-memory Catalog. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]map[string]*wf.Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]map[string]*wf.Tool)}
}

// Register adds a tool. Registering the same name and version twice is
// an error.
func (r *Registry) Register(t *wf.Tool) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("register: tool has no name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	versions := r.tools[t.Name]
	if versions == nil {
		versions = make(map[string]*wf.Tool)
		r.tools[t.Name] = versions
	}
	if _, ok := versions[t.Ver]; ok {
		return fmt.Errorf("register: tool %q version %q already in catalog", t.Name, t.Ver)
	}
	versions[t.Ver] = t
	return nil
}

// Lookup implements Catalog.
func (r *Registry) Lookup(_ context.Context, name, version string) (*wf.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := r.tools[name]
	if len(versions) == 0 {
		return nil, &NotFoundError{Name: name, Version: version}
	}
	if version != "" {
		t, ok := versions[version]
		if !ok {
			return nil, &NotFoundError{Name: name, Version: version}
		}
		return t, nil
	}
	if len(versions) > 1 {
		var vs []string
		for v := range versions {
			vs = append(vs, v)
		}
		sort.Strings(vs)
		return nil, &AmbiguousError{Name: name, Versions: vs}
	}
	for _, t := range versions {
		return t, nil
	}
	return nil, &NotFoundError{Name: name, Version: version}
}

// List returns every registered tool, sorted by name then version.
func (r *Registry) List() []*wf.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*wf.Tool
	for _, versions := range r.tools {
		for _, t := range versions {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Ver < out[j].Ver
	})
	return out
}
