// Package routing maps (method, path pattern) pairs to bound handlers. The
// table owns matching policy: entries are tried strictly in registration
// order, so the first registered pattern wins no matter how clever the
// underlying pattern matcher is. Pattern syntax is delegated to a Matcher
// adapter; chi and gorilla/mux adapters are provided.
package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

var (
	// ErrNotFound is returned by Match when no registered entry matches.
	ErrNotFound = errors.New("routing: no route matched")

	// ErrFrozen is returned by Register once the table is frozen.
	ErrFrozen = errors.New("routing: table is frozen")
)

// Params holds path parameters extracted by the matcher.
type Params map[string]string

// HandlerFunc is a handler bound to a controller instance, invoked by the
// execution pipeline with the decoded request payload. Path parameters
// travel in the context.
type HandlerFunc func(ctx context.Context, payload interface{}) (interface{}, error)

// Entry is one registered route. Created at registration time, immutable
// afterwards, and shared read-only across all concurrent requests.
type Entry struct {
	Method     string
	Pattern    string
	Handler    HandlerFunc
	Controller interface{}

	// NewPayload optionally constructs the payload prototype the request
	// decoder fills in. Nil for body-less routes.
	NewPayload func() interface{}

	compiled Pattern
}

// Matcher compiles a path pattern once at registration time.
type Matcher interface {
	Compile(pattern string) (Pattern, error)
}

// Pattern matches concrete request paths against one compiled pattern.
type Pattern interface {
	Match(path string) (Params, bool)
}

// RegisterOption customizes a route entry at registration.
type RegisterOption func(*Entry)

// WithPayload declares the payload prototype decoded for this route.
func WithPayload(newPayload func() interface{}) RegisterOption {
	return func(e *Entry) {
		e.NewPayload = newPayload
	}
}

// Table is the route table. Built once at startup, frozen before the first
// request, then read-only and safe for unsynchronized concurrent reads.
type Table struct {
	matcher Matcher
	entries []*Entry
	frozen  atomic.Bool
}

// NewTable creates a route table using the given pattern matcher.
func NewTable(matcher Matcher) *Table {
	return &Table{matcher: matcher}
}

// Register adds a route at startup. Registering the same (method, pattern)
// twice is allowed and keeps the first registration reachable. Registration
// after Freeze fails with ErrFrozen.
func (t *Table) Register(method, pattern string, handler HandlerFunc, controller interface{}, opts ...RegisterOption) error {
	if t.frozen.Load() {
		return ErrFrozen
	}
	if method == "" {
		return errors.New("routing: method must not be empty")
	}
	if handler == nil {
		return errors.New("routing: handler must not be nil")
	}

	compiled, err := t.matcher.Compile(pattern)
	if err != nil {
		return fmt.Errorf("routing: invalid pattern %q: %w", pattern, err)
	}

	entry := &Entry{
		Method:     strings.ToUpper(method),
		Pattern:    pattern,
		Handler:    handler,
		Controller: controller,
		compiled:   compiled,
	}
	for _, opt := range opts {
		opt(entry)
	}

	t.entries = append(t.entries, entry)
	return nil
}

// Match resolves the first registered entry whose method matches exactly and
// whose pattern matches the concrete path. Returns ErrNotFound otherwise.
func (t *Table) Match(method, path string) (*Entry, Params, error) {
	method = strings.ToUpper(method)
	for _, entry := range t.entries {
		if entry.Method != method {
			continue
		}
		if params, ok := entry.compiled.Match(path); ok {
			return entry, params, nil
		}
	}
	return nil, nil, ErrNotFound
}

// Freeze marks the table read-only. Idempotent.
func (t *Table) Freeze() {
	t.frozen.Store(true)
}

// Frozen reports whether the table has been frozen.
func (t *Table) Frozen() bool {
	return t.frozen.Load()
}

// Len returns the number of registered entries.
func (t *Table) Len() int {
	return len(t.entries)
}
