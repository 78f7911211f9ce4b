package di

import (
	"reflect"
	"strings"
)

// DuplicateProducerError is returned by Provide when a constructor for the
// produced type is already registered. Registration fails immediately; the
// conflict is never deferred to resolution time.
type DuplicateProducerError struct {
	Type reflect.Type
}

// Error implements the error interface.
func (e DuplicateProducerError) Error() string {
	return "di: duplicate producer for type " + e.Type.String()
}

// UnsatisfiedDependencyError is returned by Build when a constructor requires
// a type that no registered constructor produces. It is detected before any
// constructor executes.
type UnsatisfiedDependencyError struct {
	// Required is the missing dependency type.
	Required reflect.Type

	// RequestedBy is the type whose constructor needs Required.
	RequestedBy reflect.Type
}

// Error implements the error interface.
func (e UnsatisfiedDependencyError) Error() string {
	return "di: no producer for type " + e.Required.String() +
		" required by constructor of " + e.RequestedBy.String()
}

// CycleError is returned by Build when the dependency graph contains a cycle.
// No constructor in or depending on the cycle is executed.
type CycleError struct {
	// Cycle lists the participating types in dependency order; the last
	// element depends on the first.
	Cycle []reflect.Type
}

// Error implements the error interface.
func (e CycleError) Error() string {
	names := make([]string, 0, len(e.Cycle))
	for _, t := range e.Cycle {
		names = append(names, t.String())
	}
	return "di: dependency cycle detected: " + strings.Join(names, " -> ")
}

// NotRegisteredError is returned by Container.Get for a type that the
// registry never produced. After a successful Build this indicates a caller
// bug, but lookups stay checked rather than panicking.
type NotRegisteredError struct {
	Type reflect.Type
}

// Error implements the error interface.
func (e NotRegisteredError) Error() string {
	return "di: no instance registered for type " + e.Type.String()
}

// InvalidConstructorError is returned by Provide when the registered value
// is not a usable constructor function.
type InvalidConstructorError struct {
	Got    reflect.Type
	Reason string
}

// Error implements the error interface.
func (e InvalidConstructorError) Error() string {
	got := "<nil>"
	if e.Got != nil {
		got = e.Got.String()
	}
	return "di: invalid constructor " + got + ": " + e.Reason
}

// ConstructorError wraps a failure returned by a constructor during Build.
type ConstructorError struct {
	Type reflect.Type
	Err  error
}

// Error implements the error interface.
func (e ConstructorError) Error() string {
	return "di: constructor for " + e.Type.String() + " failed: " + e.Err.Error()
}

// Unwrap returns the underlying constructor error.
func (e ConstructorError) Unwrap() error {
	return e.Err
}
