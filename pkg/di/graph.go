package di

import (
	"reflect"
)

// dependencyGraph is the directed graph derived from descriptor signatures:
// each produced type points at the types its constructor requires. It is
// built once per Build call and discarded afterwards.
type dependencyGraph struct {
	descriptors map[reflect.Type]*descriptor

	// roots preserves registration order so diagnostics and walks are
	// stable; the resulting topological order is equivalent for any
	// registration permutation of the same descriptor set.
	roots []reflect.Type
}

func newDependencyGraph(descriptors map[reflect.Type]*descriptor, roots []reflect.Type) *dependencyGraph {
	return &dependencyGraph{descriptors: descriptors, roots: roots}
}

// validate checks every edge against the registered producers. A missing
// producer fails wiring before any constructor executes.
func (g *dependencyGraph) validate() error {
	for _, t := range g.roots {
		d := g.descriptors[t]
		for _, req := range d.requires {
			if _, ok := g.descriptors[req]; !ok {
				return UnsatisfiedDependencyError{Required: req, RequestedBy: d.produces}
			}
		}
	}
	return nil
}

// visit colors for the depth-first topological sort.
const (
	colorWhite = iota // unvisited
	colorGrey         // on the current DFS stack
	colorBlack        // finished
)

// topoSort returns all produced types ordered so that every type appears
// after the types its constructor requires. A back edge aborts the sort with
// a CycleError naming the participating types.
func (g *dependencyGraph) topoSort() ([]reflect.Type, error) {
	colors := make(map[reflect.Type]int, len(g.descriptors))
	order := make([]reflect.Type, 0, len(g.descriptors))
	stack := make([]reflect.Type, 0, len(g.descriptors))

	var visit func(t reflect.Type) error
	visit = func(t reflect.Type) error {
		switch colors[t] {
		case colorBlack:
			return nil
		case colorGrey:
			return CycleError{Cycle: cycleFrom(stack, t)}
		}

		colors[t] = colorGrey
		stack = append(stack, t)

		for _, req := range g.descriptors[t].requires {
			if err := visit(req); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		colors[t] = colorBlack
		order = append(order, t)
		return nil
	}

	for _, t := range g.roots {
		if err := visit(t); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// cycleFrom extracts the cycle portion of the DFS stack starting at the
// revisited node.
func cycleFrom(stack []reflect.Type, at reflect.Type) []reflect.Type {
	for i, t := range stack {
		if t == at {
			cycle := make([]reflect.Type, len(stack)-i)
			copy(cycle, stack[i:])
			return cycle
		}
	}
	// at is always on the stack when a grey node is revisited
	return []reflect.Type{at}
}
