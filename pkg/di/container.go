package di

import (
	"reflect"
)

// Container holds the singleton instance registry produced by Build. It is
// logically immutable: no mutation API exists, so concurrent reads from any
// number of in-flight requests need no synchronization.
type Container struct {
	instances map[reflect.Type]interface{}

	// order is the instantiation order; every instance appears after the
	// instances it depends on.
	order []reflect.Type
}

func newContainer(instances map[reflect.Type]reflect.Value, order []reflect.Type) *Container {
	c := &Container{
		instances: make(map[reflect.Type]interface{}, len(instances)),
		order:     order,
	}
	for t, v := range instances {
		c.instances[t] = v.Interface()
	}
	return c
}

// Get returns the singleton registered for the given type, or
// NotRegisteredError. After a successful Build every produced type is
// present; the check guards against lookups of types that were never
// registered.
func (c *Container) Get(t reflect.Type) (interface{}, error) {
	instance, ok := c.instances[t]
	if !ok {
		return nil, NotRegisteredError{Type: t}
	}
	return instance, nil
}

// Has reports whether an instance is registered for the given type.
func (c *Container) Has(t reflect.Type) bool {
	_, ok := c.instances[t]
	return ok
}

// All returns every instance in instantiation order (dependencies before
// dependents), for wiring consumers such as route registration.
func (c *Container) All() []interface{} {
	all := make([]interface{}, 0, len(c.order))
	for _, t := range c.order {
		all = append(all, c.instances[t])
	}
	return all
}

// Len returns the number of registered instances.
func (c *Container) Len() int {
	return len(c.instances)
}

// TypeOf returns the reflect.Type identity used by the container for T.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Resolve returns the singleton for type T.
func Resolve[T any](c *Container) (T, error) {
	var zero T
	instance, err := c.Get(TypeOf[T]())
	if err != nil {
		return zero, err
	}
	return instance.(T), nil
}

// MustResolve returns the singleton for type T or panics. Intended for
// startup wiring where a missing type is a programming error.
func MustResolve[T any](c *Container) T {
	v, err := Resolve[T](c)
	if err != nil {
		panic(err)
	}
	return v
}
