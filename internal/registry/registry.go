// Package registry implements the Endpoint Registry (spec.md §4.6):
// compile-time registration of read/write handlers, indexed by the dotted
// endpoint name the Call Dispatcher resolves against.
package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/reactivedb/reactive/internal/engineerr"
	"github.com/reactivedb/reactive/internal/relational"
	"github.com/reactivedb/reactive/internal/values"
	"github.com/reactivedb/reactive/internal/vector"
)

// Kind distinguishes a read (side-effect-free) endpoint from a write
// (side-effectful) one.
type Kind string

const (
	KindRead  Kind = "read"
	KindWrite Kind = "write"
)

// ReadContext is handed to a read handler: a read-only relational view,
// plus the vector engine (spec.md §2: "optionally the vector engine").
type ReadContext struct {
	Relational relational.ReadContext
	Vector     *vector.Engine
}

// MutationContext is handed to a write handler: a full read/write
// relational view, plus the vector engine.
type MutationContext struct {
	Relational relational.MutationContext
	Vector     *vector.Engine
}

// ReadHandler is the side-effect-free endpoint handler shape.
type ReadHandler func(ctx ReadContext, args map[string]any) (any, error)

// WriteHandler is the side-effectful endpoint handler shape.
type WriteHandler func(ctx MutationContext, args map[string]any) (any, error)

// Descriptor is everything the dispatcher needs to validate and invoke one
// registered endpoint.
type Descriptor struct {
	Name         string
	Kind         Kind
	Args         *values.Def
	ReadHandler  ReadHandler
	WriteHandler WriteHandler
}

// Registry holds every endpoint registered at process start, by name.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]Descriptor
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{descriptors: map[string]Descriptor{}}
}

// RegisterRead registers a side-effect-free endpoint. args describes the
// endpoint's argument shape as an Object Value Definition; pass
// values.Object() for an endpoint taking no arguments.
func (r *Registry) RegisterRead(name string, args *values.Def, handler ReadHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors[name] = Descriptor{Name: name, Kind: KindRead, Args: args, ReadHandler: handler}
}

// RegisterWrite registers a side-effectful endpoint.
func (r *Registry) RegisterWrite(name string, args *values.Def, handler WriteHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors[name] = Descriptor{Name: name, Kind: KindWrite, Args: args, WriteHandler: handler}
}

// Resolve looks up a registered endpoint by name.
func (r *Registry) Resolve(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[name]
	if !ok {
		return Descriptor{}, engineerr.FunctionResolution(
			"unknown endpoint %q; known endpoints: %s", name, strings.Join(r.namesLocked(), ", "))
	}
	return d, nil
}

// Names returns every registered endpoint name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load scans sourceDir for declared endpoints and cross-checks the
// manifest against compile-time registrations: every declared function
// must be registered under the same name and kind, and every registration
// must be backed by a declaration. Any mismatch fails with
// FunctionResolutionError (spec.md §4.6 "discovered at load time").
func (r *Registry) Load(sourceDir string) error {
	declarations, err := scanSourceDir(sourceDir)
	if err != nil {
		return err
	}

	declared := make(map[string]Kind, len(declarations))
	for _, d := range declarations {
		if _, dup := declared[d.Name]; dup {
			return engineerr.FunctionResolution("endpoint %q is declared more than once", d.Name)
		}
		declared[d.Name] = d.Kind
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, kind := range declared {
		desc, ok := r.descriptors[name]
		if !ok {
			return engineerr.FunctionResolution("endpoint %q is declared in %q but not registered", name, sourceDir)
		}
		if desc.Kind != kind {
			return engineerr.FunctionResolution(
				"endpoint %q is declared as %s but registered as %s", name, kind, desc.Kind)
		}
	}
	for name := range r.descriptors {
		if _, ok := declared[name]; !ok {
			return engineerr.FunctionResolution("endpoint %q is registered but not declared in %q", name, sourceDir)
		}
	}
	return nil
}
