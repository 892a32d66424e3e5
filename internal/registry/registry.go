// Package registry is the Command Registry (spec §4.2): it enumerates the
// fixed set of route names the server understands and holds exactly one
// operation function per name. It does nothing else — admission, worker
// selection and response writing all live in the dispatcher.
package registry

import (
	"context"

	"p01-compute-server/internal/resp"
)

// OperationFunc is the shape every registered command implements. It
// receives the parsed query parameters and a context carrying the task's
// deadline; it must poll ctx for cancellation at any coarse inner loop
// boundary and return resp.Timeout() on first expiry.
type OperationFunc func(ctx context.Context, params map[string]string) resp.Result

// Registry is a fixed, append-only map built once at startup.
type Registry struct {
	ops map[string]OperationFunc
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{ops: make(map[string]OperationFunc)}
}

// Register binds route to fn. Registering the same route twice is a
// programmer error and panics — the route set is fixed at startup.
func (r *Registry) Register(route string, fn OperationFunc) {
	if _, exists := r.ops[route]; exists {
		panic("registry: route already registered: " + route)
	}
	r.ops[route] = fn
}

// Lookup returns the operation bound to route, and whether it exists.
func (r *Registry) Lookup(route string) (OperationFunc, bool) {
	fn, ok := r.ops[route]
	return fn, ok
}

// Has reports whether route is a known command — used by the job
// subsystem to validate task= before creating a Job entry.
func (r *Registry) Has(route string) bool {
	_, ok := r.ops[route]
	return ok
}

// Routes returns every registered route name, in no particular order; the
// dispatcher builds one worker pool per entry.
func (r *Registry) Routes() []string {
	out := make([]string, 0, len(r.ops))
	for route := range r.ops {
		out = append(out, route)
	}
	return out
}
