// Package di wires an application object graph from plain constructor
// functions. Constructors are registered in any order; Build derives the
// instantiation order from the parameter and result types alone, runs each
// constructor exactly once, and returns an immutable Container of
// singletons. Wiring failures (duplicate producers, missing dependencies,
// cycles) are typed errors raised before the process starts serving.
package di

import (
	"context"
	"reflect"
)

// Registry collects constructor descriptors before resolution. It is not
// safe for concurrent use; wiring happens on the startup goroutine.
type Registry struct {
	descriptors map[reflect.Type]*descriptor
	order       []reflect.Type
}

// NewRegistry creates an empty constructor registry.
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[reflect.Type]*descriptor),
	}
}

// Provide registers a constructor function of shape func(deps...) T or
// func(deps...) (T, error). The produced type T is the constructor's
// identity; registering a second producer for the same type fails with
// DuplicateProducerError.
func (r *Registry) Provide(ctor interface{}) error {
	d, err := newDescriptor(ctor, len(r.order))
	if err != nil {
		return err
	}

	if _, exists := r.descriptors[d.produces]; exists {
		return DuplicateProducerError{Type: d.produces}
	}

	r.descriptors[d.produces] = d
	r.order = append(r.order, d.produces)
	return nil
}

// ProvideValue registers an already-constructed instance as a
// zero-dependency producer of its concrete type. Used for values built
// before wiring, such as configuration and the logger.
func (r *Registry) ProvideValue(value interface{}) error {
	if value == nil {
		return InvalidConstructorError{Got: nil, Reason: "value is nil"}
	}

	t := reflect.TypeOf(value)
	if _, exists := r.descriptors[t]; exists {
		return DuplicateProducerError{Type: t}
	}

	d := &descriptor{
		produces: t,
		fn:       makeValueCtor(t, reflect.ValueOf(value)),
		pos:      len(r.order),
	}
	r.descriptors[t] = d
	r.order = append(r.order, t)
	return nil
}

func makeValueCtor(t reflect.Type, v reflect.Value) reflect.Value {
	fnType := reflect.FuncOf(nil, []reflect.Type{t}, false)
	return reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		return []reflect.Value{v}
	})
}

// Build resolves the dependency graph and instantiates every registered
// producer exactly once, dependencies first. It fails with
// UnsatisfiedDependencyError or CycleError before any constructor runs, so
// a wiring error never leaves partially-constructed state behind. The
// context is passed through to constructors that declare a context.Context
// parameter.
func (r *Registry) Build(ctx context.Context) (*Container, error) {
	graph := newDependencyGraph(r.descriptors, r.order)

	if err := graph.validate(); err != nil {
		return nil, err
	}

	order, err := graph.topoSort()
	if err != nil {
		return nil, err
	}

	instances := make(map[reflect.Type]reflect.Value, len(order))
	for _, t := range order {
		instance, err := r.descriptors[t].call(ctx, instances)
		if err != nil {
			return nil, err
		}
		instances[t] = instance
	}

	return newContainer(instances, order), nil
}
