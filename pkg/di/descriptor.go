package di

import (
	"context"
	"reflect"
)

var (
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
)

// descriptor is an immutable record of one registered constructor: the type
// it produces, the types it requires, and the function to invoke. Descriptors
// exist only during wiring and are discarded once the container is built.
type descriptor struct {
	produces   reflect.Type
	requires   []reflect.Type
	fn         reflect.Value
	returnsErr bool

	// pos is the registration index, kept for stable diagnostics only;
	// resolution order is derived solely from the graph.
	pos int
}

// newDescriptor validates a constructor's signature and derives its type
// edges. Accepted shapes are func(deps...) T and func(deps...) (T, error).
// A context.Context parameter is injected from the Build context and does
// not become a graph edge.
func newDescriptor(ctor interface{}, pos int) (*descriptor, error) {
	if ctor == nil {
		return nil, InvalidConstructorError{Got: nil, Reason: "constructor is nil"}
	}

	t := reflect.TypeOf(ctor)
	if t.Kind() != reflect.Func {
		return nil, InvalidConstructorError{Got: t, Reason: "not a function"}
	}
	if t.IsVariadic() {
		return nil, InvalidConstructorError{Got: t, Reason: "variadic constructors are not supported"}
	}

	switch t.NumOut() {
	case 1:
		if t.Out(0) == errorType {
			return nil, InvalidConstructorError{Got: t, Reason: "constructor must produce a value, not just an error"}
		}
	case 2:
		if t.Out(1) != errorType {
			return nil, InvalidConstructorError{Got: t, Reason: "second return value must be error"}
		}
		if t.Out(0) == errorType {
			return nil, InvalidConstructorError{Got: t, Reason: "first return value must not be error"}
		}
	default:
		return nil, InvalidConstructorError{Got: t, Reason: "constructor must return (T) or (T, error)"}
	}

	d := &descriptor{
		produces:   t.Out(0),
		fn:         reflect.ValueOf(ctor),
		returnsErr: t.NumOut() == 2,
		pos:        pos,
	}

	for i := 0; i < t.NumIn(); i++ {
		in := t.In(i)
		if in == contextType {
			continue
		}
		d.requires = append(d.requires, in)
	}

	return d, nil
}

// call invokes the constructor with dependencies resolved from instances.
// Every required type is guaranteed present by the resolution phase.
func (d *descriptor) call(ctx context.Context, instances map[reflect.Type]reflect.Value) (reflect.Value, error) {
	t := d.fn.Type()
	args := make([]reflect.Value, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		in := t.In(i)
		if in == contextType {
			args[i] = reflect.ValueOf(ctx)
			continue
		}
		args[i] = instances[in]
	}

	out := d.fn.Call(args)
	if d.returnsErr && !out[1].IsNil() {
		return reflect.Value{}, ConstructorError{Type: d.produces, Err: out[1].Interface().(error)}
	}
	return out[0], nil
}
